package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type geoJSONWriter struct {
	f        *os.File
	path     string
	schema   Schema
	features []*geojson.Feature
}

// createGeoJSON creates the file up front so an unwritable path fails
// before any feature is buffered.
func createGeoJSON(path string, schema Schema) (*geoJSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create GeoJSON file: %w", err)
	}
	return &geoJSONWriter{f: f, path: path, schema: schema}, nil
}

func (g *geoJSONWriter) Write(rec Record) error {
	if err := checkRecord(g.schema, rec); err != nil {
		return err
	}
	props := make(map[string]interface{}, len(g.schema))
	for i, field := range g.schema {
		props[field.Name] = rec.Values[i]
	}
	g.features = append(g.features, &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{rec.X, rec.Y}),
		Properties: props,
	})
	return nil
}

func (g *geoJSONWriter) Count() int   { return len(g.features) }
func (g *geoJSONWriter) Path() string { return g.path }

func (g *geoJSONWriter) Close() error {
	fc := geojson.FeatureCollection{Features: g.features}
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		g.f.Close()
		return fmt.Errorf("failed to marshal feature collection: %w", err)
	}
	if _, err := g.f.Write(data); err != nil {
		g.f.Close()
		return fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	return g.f.Close()
}
