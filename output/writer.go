package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported output format")
	ErrNotWritable       = errors.New("output location is not writable")
	ErrSchemaMismatch    = errors.New("record does not match schema")
)

// Driver names an output file format.
type Driver string

const (
	DriverShapefile Driver = "ESRI Shapefile"
	DriverGeoJSON   Driver = "GeoJSON"
)

// FieldType is the attribute type of an output column.
type FieldType int

const (
	FieldInteger FieldType = iota
	FieldFloat
	FieldString
)

// Field is one attribute column of an output layer.
type Field struct {
	Name string
	Type FieldType
	Size uint8
}

// Schema lists the attribute columns of an output layer in order.
type Schema []Field

// ErrorSchema is the fixed schema of geometry error layers.
var ErrorSchema = Schema{
	{Name: "FEAT_ID", Type: FieldInteger, Size: 10},
	{Name: "ERROR", Type: FieldString, Size: 254},
}

// StringSchema builds a schema of text columns, one per name.
func StringSchema(names ...string) Schema {
	s := make(Schema, len(names))
	for i, name := range names {
		s[i] = Field{Name: name, Type: FieldString, Size: 254}
	}
	return s
}

// Record is one point feature to write. Values follow the schema order.
type Record struct {
	X, Y   float64
	Values []any
}

// Options carries the layer-level settings of an output file.
type Options struct {
	// Encoding of the attribute table, written to the .cpg sidecar of
	// shapefiles. GeoJSON is always UTF-8.
	Encoding string
	// CRS definition, written to the .prj sidecar of shapefiles when it is WKT.
	CRS string
}

// Writer writes point features to an output layer.
type Writer interface {
	Write(rec Record) error
	Count() int
	Path() string
	Close() error
}

// DriverFor picks the driver from the file extension.
func DriverFor(path string) (Driver, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return DriverShapefile, nil
	case ".geojson", ".json":
		return DriverGeoJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, filepath.Ext(path))
}

// Preflight checks that an output layer could be created at path without
// creating it: the format is known and the parent directory exists and
// accepts new files.
func Preflight(path string) error {
	if _, err := DriverFor(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotWritable, dir)
	}
	tmp, err := os.CreateTemp(dir, ".geomcheck-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

// Create opens a new point output layer at path, replacing any existing
// file.
func Create(path string, schema Schema, opts Options) (Writer, error) {
	driver, err := DriverFor(path)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverShapefile:
		return createShapefile(path, schema, opts)
	default:
		return createGeoJSON(path, schema)
	}
}

func checkRecord(schema Schema, rec Record) error {
	if len(rec.Values) != len(schema) {
		return fmt.Errorf("%w: %d values for %d fields", ErrSchemaMismatch, len(rec.Values), len(schema))
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n]
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}
