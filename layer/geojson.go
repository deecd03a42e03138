package layer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/utils"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geos"
)

// geoJSONFeature holds geometry + properties as they arrive on the wire.
type geoJSONFeature struct {
	Type       string                 `json:"type"`
	ID         json.RawMessage        `json:"id,omitempty"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type parsedFeature struct {
	feature Feature
	err     error
}

// ReadGeoJSON reads a FeatureCollection into a new layer. Numeric feature
// ids are kept; features without one are numbered after the largest
// numeric id. Geometries are parsed in parallel. A geometry GEOS cannot
// build is kept as a feature defect instead of failing the layer.
func ReadGeoJSON(name string, r io.Reader, opts ...Option) (*Layer, error) {
	var fc geoJSONFeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to parse feature collection: %w", err)
	}
	if fc.Type != "" && fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected FeatureCollection, got %q", ErrUnsupportedFile, fc.Type)
	}

	ids := featureIDs(fc.Features)
	processor := utils.NewParallelProcessor(0)
	parsed := utils.ProcessBatch(processor, fc.Features, func(i int, f geoJSONFeature) parsedFeature {
		g, defect, err := parseGeoJSONGeometry(f.Geometry)
		if err != nil {
			return parsedFeature{err: fmt.Errorf("error creating geometry for feature %d: %w", i, err)}
		}
		return parsedFeature{feature: Feature{
			ID:         ids[i],
			Geometry:   g,
			Defect:     defect,
			Attributes: stringify(f.Properties),
		}}
	})

	l := New(name, append([]Option{WithFields(propertyNames(fc.Features)...)}, opts...)...)
	for _, p := range parsed {
		if p.err != nil {
			return nil, p.err
		}
		if err := l.AddFeature(p.feature); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// LoadGeoJSON reads a GeoJSON file; the layer is named after the file.
func LoadGeoJSON(path string) (*Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGeoJSON(layerName(path), f)
}

// parseGeoJSONGeometry returns a nil geometry for null. An object that is
// not a GeoJSON geometry is an error; one whose coordinates GEOS rejects
// comes back as a defect.
func parseGeoJSONGeometry(raw json.RawMessage) (*geos.Geom, *geometry.GeometryError, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, nil
	}

	var t geom.T
	if err := geojson.Unmarshal(trimmed, &t); err != nil {
		return nil, nil, err
	}
	if defect := componentDefect(t); defect != nil {
		return nil, defect, nil
	}

	g, err := geos.NewGeomFromGeoJSON(string(trimmed))
	if err != nil {
		defect := geometry.GeometryError{Message: err.Error()}
		if at := firstGeomCoord(t); at != nil {
			defect = geometry.At(defect.Message, at[0], at[1])
		}
		return nil, &defect, nil
	}
	return g, nil, nil
}

func componentDefect(t geom.T) *geometry.GeometryError {
	switch g := t.(type) {
	case *geom.LineString:
		return geometry.CheckLine(plainCoords(g.Coords()))
	case *geom.MultiLineString:
		for _, line := range g.Coords() {
			if defect := geometry.CheckLine(plainCoords(line)); defect != nil {
				return defect
			}
		}
	case *geom.Polygon:
		return ringDefect(g.Coords())
	case *geom.MultiPolygon:
		for _, polygon := range g.Coords() {
			if defect := ringDefect(polygon); defect != nil {
				return defect
			}
		}
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			if defect := componentDefect(child); defect != nil {
				return defect
			}
		}
	}
	return nil
}

func ringDefect(rings [][]geom.Coord) *geometry.GeometryError {
	for _, ring := range rings {
		if defect := geometry.CheckRing(plainCoords(ring)); defect != nil {
			return defect
		}
	}
	return nil
}

func plainCoords(coords []geom.Coord) [][]float64 {
	out := make([][]float64, len(coords))
	for i, c := range coords {
		out[i] = c
	}
	return out
}

func firstGeomCoord(t geom.T) []float64 {
	if gc, ok := t.(*geom.GeometryCollection); ok {
		for _, child := range gc.Geoms() {
			if c := firstGeomCoord(child); c != nil {
				return c
			}
		}
		return nil
	}
	if flat := t.FlatCoords(); len(flat) >= 2 {
		return flat[:2]
	}
	return nil
}

// featureIDs keeps integer ids and numbers the remaining features after
// the largest of them, in input order.
func featureIDs(features []geoJSONFeature) []FeatureID {
	ids := make([]FeatureID, len(features))
	known := make([]bool, len(features))
	next := FeatureID(0)
	for i, f := range features {
		id, ok := numericID(f.ID)
		if !ok {
			continue
		}
		ids[i], known[i] = id, true
		if id >= next {
			next = id + 1
		}
	}
	for i := range ids {
		if !known[i] {
			ids[i] = next
			next++
		}
	}
	return ids
}

func numericID(raw json.RawMessage) (FeatureID, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	s := strings.Trim(string(raw), `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return FeatureID(id), true
}

func stringify(props map[string]interface{}) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		switch v := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = v
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

func propertyNames(features []geoJSONFeature) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, f := range features {
		for k := range f.Properties {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

func layerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
