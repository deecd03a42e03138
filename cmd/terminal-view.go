package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/validation"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/tj/go-spin"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Width(10).Align(lipgloss.Right)
	hintStyle    = lipgloss.NewStyle().Faint(true)
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type reportRow struct {
	FeatureID int64           `json:"featureId" yaml:"feature_id"`
	Message   string          `json:"message" yaml:"message"`
	Location  *geometry.Point `json:"location,omitempty" yaml:"location,omitempty"`
}

// terminalView hosts the validation presenter on a terminal. Rows are
// printed as a table, JSON or YAML; progress is a spinner when stderr is a
// terminal.
type terminalView struct {
	out    io.Writer
	errOut io.Writer
	format string
	add    bool
	tty    bool

	mu       sync.Mutex
	max      int
	progress int
	stop     chan struct{}
	spinning sync.WaitGroup
	rows     int
}

func newTerminalView(out, errOut io.Writer, format string, add bool) *terminalView {
	tty := false
	if f, ok := errOut.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd())
	}
	return &terminalView{out: out, errOut: errOut, format: format, add: add, tty: tty}
}

func (v *terminalView) ShowMessage(level validation.MessageLevel, title, text string) {
	text = strings.ReplaceAll(text, "\n", " ")
	if level == validation.MessageWarning {
		fmt.Fprintf(v.errOut, "%s %s\n", warningStyle.Render(title+":"), text)
		return
	}
	fmt.Fprintf(v.errOut, "%s %s\n", title, text)
}

// Confirm answers with the --add flag.
func (v *terminalView) Confirm(_, text string) bool {
	fmt.Fprintln(v.errOut, strings.TrimSpace(strings.ReplaceAll(text, "\n\n", "\n")))
	if v.add {
		fmt.Fprintln(v.errOut, "yes")
	} else {
		fmt.Fprintln(v.errOut, "no")
	}
	return v.add
}

func (v *terminalView) SetAcceptEnabled(bool) {}

func (v *terminalView) SetCancelMode(running bool) {
	if running && v.tty {
		fmt.Fprintln(v.errOut, hintStyle.Render("press Ctrl+C to cancel"))
	}
}

func (v *terminalView) SetBusy(busy bool) {
	if !v.tty {
		return
	}

	v.mu.Lock()
	stop := v.stop
	if busy {
		if stop == nil {
			v.stop = make(chan struct{})
			v.spinning.Add(1)
			go v.spin(v.stop)
		}
		v.mu.Unlock()
		return
	}
	v.stop = nil
	v.mu.Unlock()

	if stop != nil {
		close(stop)
		v.spinning.Wait()
	}
}

func (v *terminalView) spin(stop <-chan struct{}) {
	defer v.spinning.Done()

	s := spin.New()
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			fmt.Fprint(v.errOut, "\r\033[K")
			return
		case <-t.C:
			v.mu.Lock()
			done, total := v.progress, v.max
			v.mu.Unlock()
			fmt.Fprintf(v.errOut, "\r%s checking %s / %s features", s.Next(),
				humanize.Comma(int64(done)), humanize.Comma(int64(total)))
		}
	}
}

func (v *terminalView) SetProgressRange(_, max int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.max = max
}

func (v *terminalView) SetProgress(value int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress = value
}

func (v *terminalView) ClearRows() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = 0
}

func (v *terminalView) ShowRows(rows []validation.Row) {
	v.mu.Lock()
	v.rows = len(rows)
	v.mu.Unlock()

	if err := renderRows(v.out, v.format, rows); err != nil {
		fmt.Fprintf(v.errOut, "%s %v\n", warningStyle.Render("Error:"), err)
	}
}

// Rows returns how many rows the last run showed.
func (v *terminalView) Rows() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rows
}

func renderRows(w io.Writer, format string, rows []validation.Row) error {
	report := make([]reportRow, len(rows))
	for i, r := range rows {
		report[i] = reportRow{FeatureID: int64(r.FeatureID), Message: r.Message, Location: r.Location}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, okStyle.Render("No geometry errors found"))
		return err
	}
	var b strings.Builder
	b.WriteString(idStyle.Render("Feature") + "  " + headerStyle.Render("Error") + "\n")
	for _, r := range report {
		b.WriteString(idStyle.Render(strconv.FormatInt(r.FeatureID, 10)) + "  " + r.Message + "\n")
	}
	b.WriteString(fmt.Sprintf("\n%s geometry error(s)\n", humanize.Comma(int64(len(rows)))))
	_, err := io.WriteString(w, b.String())
	return err
}
