package tables

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bsaid97/geomcheck/metrics"
	"github.com/bsaid97/geomcheck/output"
	"github.com/jonas-p/go-shp"
	"go.uber.org/zap"
)

var (
	ErrFieldNotFound   = errors.New("field not found")
	ErrUnsupportedFile = errors.New("unsupported table file")
)

// Table is an attribute table held in memory. Every row has one value per
// field.
type Table struct {
	Name   string
	Fields []string
	Rows   [][]string
}

// FieldIndex returns the position of the named field.
func (t *Table) FieldIndex(name string) (int, error) {
	for i, f := range t.Fields {
		if f == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in table %s", ErrFieldNotFound, name, t.Name)
}

// ReadCSV reads a comma separated table whose first row holds the field
// names.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	t := &Table{Name: name, Fields: header}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.Rows)+1, err)
		}
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadShapefileTable reads the attribute table of a shapefile and ignores
// its geometries.
func ReadShapefileTable(path string) (*Table, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	t := &Table{Name: tableName(path), Fields: make([]string, len(fields))}
	for i, f := range fields {
		t.Fields[i] = f.String()
	}
	for r.Next() {
		n, _ := r.Shape()
		row := make([]string, len(fields))
		for i := range fields {
			row[i] = strings.Trim(r.ReadAttribute(n, i), " \x00")
		}
		t.Rows = append(t.Rows, row)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile: %w", err)
	}
	return t, nil
}

// LoadTable picks the reader from the file extension.
func LoadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(tableName(path), f)
	case ".shp":
		return ReadShapefileTable(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}

func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Options controls PointsFromTable.
type Options struct {
	XField string
	YField string
	// CRS is written with the output when set.
	CRS      string
	Encoding string
	// Progress receives the share of rows processed, 0 to 100.
	Progress func(percent int)
	Logger   *zap.Logger
}

// Summary reports what PointsFromTable wrote.
type Summary struct {
	Output  string `json:"output" yaml:"output"`
	Written int    `json:"written" yaml:"written"`
	Skipped int    `json:"skipped" yaml:"skipped"`
}

// PointsFromTable writes one point per row of t, placed at the row's X and
// Y fields, with every field of t copied as an attribute. Rows whose
// coordinates do not parse as numbers are skipped.
func PointsFromTable(ctx context.Context, t *Table, outPath string, opts Options) (sum Summary, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	xi, err := t.FieldIndex(opts.XField)
	if err != nil {
		return Summary{}, err
	}
	yi, err := t.FieldIndex(opts.YField)
	if err != nil {
		return Summary{}, err
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = "UTF-8"
	}

	w, err := output.Create(outPath, output.StringSchema(t.Fields...), output.Options{Encoding: encoding, CRS: opts.CRS})
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sum.Output = outPath
	total := len(t.Rows)
	last := -1
	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if opts.Progress != nil {
			if pct := (i + 1) * 100 / total; pct != last {
				last = pct
				opts.Progress(pct)
			}
		}

		x, xerr := parseCoord(row[xi])
		y, yerr := parseCoord(row[yi])
		if xerr != nil || yerr != nil {
			sum.Skipped++
			continue
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := w.Write(output.Record{X: x, Y: y, Values: values}); err != nil {
			return sum, fmt.Errorf("row %d: %w", i+1, err)
		}
		sum.Written++
	}

	metrics.TableRowsSkipped.Add(float64(sum.Skipped))
	log.Info("points layer created",
		zap.String("table", t.Name),
		zap.String("output", outPath),
		zap.Int("written", sum.Written),
		zap.Int("skipped", sum.Skipped))
	return sum, nil
}

func parseCoord(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
