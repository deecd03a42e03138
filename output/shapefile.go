package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
)

// Shapefile field names are limited to 10 characters (DBF limitation).
const maxFieldName = 10

type shapefileWriter struct {
	w      *shp.Writer
	path   string
	schema Schema
	count  int
}

func createShapefile(path string, schema Schema, opts Options) (*shapefileWriter, error) {
	shape, err := shp.Create(path, shp.POINT)
	if err != nil {
		return nil, fmt.Errorf("failed to create shapefile: %w", err)
	}
	shape.SetFields(shapefileFields(schema))

	base := strings.TrimSuffix(path, ".shp")
	created := []string{base + ".shp", base + ".shx", base + ".dbf"}
	discard := func() {
		shape.Close()
		for _, name := range created {
			os.Remove(name)
		}
	}

	if opts.Encoding != "" {
		if err := os.WriteFile(base+".cpg", []byte(opts.Encoding), 0644); err != nil {
			discard()
			return nil, fmt.Errorf("failed to write encoding file: %w", err)
		}
		created = append(created, base+".cpg")
	}
	if isWKT(opts.CRS) {
		if err := os.WriteFile(base+".prj", []byte(opts.CRS), 0644); err != nil {
			discard()
			return nil, fmt.Errorf("failed to write projection file: %w", err)
		}
	}

	return &shapefileWriter{w: shape, path: path, schema: schema}, nil
}

func shapefileFields(schema Schema) []shp.Field {
	fields := make([]shp.Field, 0, len(schema))
	for _, f := range schema {
		name := f.Name
		if len(name) > maxFieldName {
			name = name[:maxFieldName]
		}
		switch f.Type {
		case FieldInteger:
			fields = append(fields, shp.NumberField(name, f.Size))
		case FieldFloat:
			fields = append(fields, shp.FloatField(name, f.Size, 5))
		default:
			fields = append(fields, shp.StringField(name, f.Size))
		}
	}
	return fields
}

func (s *shapefileWriter) Write(rec Record) error {
	if err := checkRecord(s.schema, rec); err != nil {
		return err
	}
	values := make([]any, len(rec.Values))
	for i, v := range rec.Values {
		value, err := dbfValue(s.schema[i], v)
		if err != nil {
			return err
		}
		values[i] = value
	}

	row := int(s.w.Write(&shp.Point{X: rec.X, Y: rec.Y}))
	for i, v := range values {
		if err := s.w.WriteAttribute(row, i, v); err != nil {
			return fmt.Errorf("failed to write attribute %s: %w", s.schema[i].Name, err)
		}
	}
	s.count++
	return nil
}

// dbfValue converts v to one of the types the DBF writer accepts: int,
// float64 or string.
func dbfValue(f Field, v any) (any, error) {
	switch f.Type {
	case FieldInteger:
		switch n := v.(type) {
		case int:
			return n, nil
		case int32:
			return int(n), nil
		case int64:
			return int(n), nil
		}
		return nil, fmt.Errorf("%w: field %s expects an integer, got %T", ErrSchemaMismatch, f.Name, v)
	case FieldFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		}
		return nil, fmt.Errorf("%w: field %s expects a number, got %T", ErrSchemaMismatch, f.Name, v)
	}
	return truncate(fmt.Sprint(v), int(f.Size)), nil
}

func (s *shapefileWriter) Count() int   { return s.count }
func (s *shapefileWriter) Path() string { return s.path }

func (s *shapefileWriter) Close() error {
	s.w.Close()
	return nil
}

func isWKT(crs string) bool {
	crs = strings.TrimSpace(strings.ToUpper(crs))
	for _, prefix := range []string{"PROJCS[", "GEOGCS[", "GEOCCS[", "COMPD_CS[", "PROJCRS[", "GEOGCRS["} {
		if strings.HasPrefix(crs, prefix) {
			return true
		}
	}
	return false
}
