package lidar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

var (
	ErrNoLasTools = errors.New("LAStools path is not configured")
	ErrNoInput    = errors.New("no input las file")
	ErrNoOutput   = errors.New("no output las file")
)

// Runner executes a command and hands every line it prints to onLine.
type Runner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) error
}

// ExecRunner runs commands with os/exec, merging stdout and stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		sc := bufio.NewScanner(pr)
		for sc.Scan() {
			onLine(sc.Text())
		}
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
	}()

	if err := cmd.Start(); err != nil {
		pw.Close()
		<-scanned
		return err
	}
	err := cmd.Wait()
	pw.Close()
	<-scanned
	return err
}

// Params are the arguments of one lasheight call.
type Params struct {
	Input   string
	Output  string
	Verbose bool
	// Extra is appended verbatim after the common parameters.
	Extra []string
}

// LasHeight computes the height of every LiDAR point above the ground
// surface by running LAStools' lasheight.
type LasHeight struct {
	// Path is the LAStools installation root.
	Path string
	// Wine, when set, is the wine binary used to launch the Windows
	// executable.
	Wine   string
	Runner Runner
	Log    *zap.Logger
}

// Command returns the program and arguments for p.
func (l *LasHeight) Command(p Params) (string, []string, error) {
	if l.Path == "" {
		return "", nil, ErrNoLasTools
	}
	if p.Input == "" {
		return "", nil, ErrNoInput
	}
	if p.Output == "" {
		return "", nil, ErrNoOutput
	}

	exe := filepath.Join(l.Path, "bin", "lasheight.exe")
	args := []string{"-i", p.Input, "-o", p.Output}
	if p.Verbose {
		args = append(args, "-v")
	}
	args = append(args, p.Extra...)

	if l.Wine != "" {
		return l.Wine, append([]string{exe}, args...), nil
	}
	return exe, args, nil
}

// Run executes lasheight and streams its output to the log and to onLine,
// which may be nil.
func (l *LasHeight) Run(ctx context.Context, p Params, onLine func(string)) error {
	name, args, err := l.Command(p)
	if err != nil {
		return err
	}
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	runner := l.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	log.Info("running lasheight", zap.String("cmd", name), zap.Strings("args", args))
	err = runner.Run(ctx, name, args, func(line string) {
		log.Debug("lasheight", zap.String("line", line))
		if onLine != nil {
			onLine(line)
		}
	})
	if err != nil {
		return fmt.Errorf("lasheight failed: %w", err)
	}
	return nil
}
