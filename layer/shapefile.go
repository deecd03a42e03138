package layer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geos"
)

// LoadShapefile reads an ESRI shapefile (.shp with its .shx/.dbf) into a new
// layer. Row numbers become feature ids. A sibling .prj becomes the layer
// CRS.
func LoadShapefile(path string) (*Layer, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	opts := []Option{WithFields(names...)}
	if prj, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"); err == nil {
		opts = append(opts, WithCRS(strings.TrimSpace(string(prj))))
	}
	l := New(layerName(path), opts...)

	for r.Next() {
		n, shape := r.Shape()
		g, defect, err := geomFromShape(shape)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", n, err)
		}
		attrs := make(map[string]string, len(names))
		for i, name := range names {
			attrs[name] = strings.Trim(r.ReadAttribute(n, i), " \x00")
		}
		if err := l.AddFeature(Feature{ID: FeatureID(n), Geometry: g, Defect: defect, Attributes: attrs}); err != nil {
			return nil, err
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile: %w", err)
	}
	return l, nil
}

// Load picks the reader from the file extension.
func Load(path string) (*Layer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path)
	case ".geojson", ".json":
		return LoadGeoJSON(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}

var errUnsupportedShape = errors.New("unsupported shape type")

// geomFromShape converts a shapefile record. A record whose parts GEOS
// cannot hold comes back as a nil geometry with a defect describing the
// first bad part.
func geomFromShape(shape shp.Shape) (*geos.Geom, *geometry.GeometryError, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil, nil
	case *shp.Point:
		return geos.NewPoint([]float64{s.X, s.Y}), nil, nil
	case *shp.MultiPoint:
		return buildGeom(func() *geos.Geom {
			points := make([]*geos.Geom, len(s.Points))
			for i, p := range s.Points {
				points[i] = geos.NewPoint([]float64{p.X, p.Y})
			}
			return geos.NewCollection(geos.TypeIDMultiPoint, points)
		}, nil)
	case *shp.PolyLine:
		parts := splitParts(s.Parts, s.Points)
		for _, part := range parts {
			if defect := geometry.CheckLine(part); defect != nil {
				return nil, defect, nil
			}
		}
		return buildGeom(func() *geos.Geom {
			if len(parts) == 1 {
				return geos.NewLineString(parts[0])
			}
			lines := make([]*geos.Geom, len(parts))
			for i, part := range parts {
				lines[i] = geos.NewLineString(part)
			}
			return geos.NewCollection(geos.TypeIDMultiLineString, lines)
		}, firstCoord(parts))
	case *shp.Polygon:
		rings := splitParts(s.Parts, s.Points)
		for _, ring := range rings {
			if defect := geometry.CheckRing(ring); defect != nil {
				return nil, defect, nil
			}
		}
		return buildGeom(func() *geos.Geom { return polygonFromRings(rings) }, firstCoord(rings))
	}
	return nil, nil, fmt.Errorf("%w: %T", errUnsupportedShape, shape)
}

// buildGeom runs a go-geos constructor, which panics when GEOS rejects its
// input, and turns such a panic into a defect located at at.
func buildGeom(build func() *geos.Geom, at []float64) (g *geos.Geom, defect *geometry.GeometryError, err error) {
	defer func() {
		if r := recover(); r != nil {
			e := geometry.GeometryError{Message: fmt.Sprint(r)}
			if len(at) >= 2 {
				e = geometry.At(e.Message, at[0], at[1])
			}
			g, defect, err = nil, &e, nil
		}
	}()
	return build(), nil, nil
}

func firstCoord(parts [][][]float64) []float64 {
	for _, part := range parts {
		if len(part) > 0 {
			return part[0]
		}
	}
	return nil
}

func splitParts(parts []int32, points []shp.Point) [][][]float64 {
	out := make([][][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		coords := make([][]float64, 0, end-start)
		for _, p := range points[start:end] {
			coords = append(coords, []float64{p.X, p.Y})
		}
		out = append(out, coords)
	}
	return out
}

// polygonFromRings groups shapefile rings into polygons: clockwise rings are
// shells, counter-clockwise rings are holes of the preceding shell.
func polygonFromRings(rings [][][]float64) *geos.Geom {
	var polygons [][][][]float64
	for _, ring := range rings {
		if signedArea(ring) <= 0 || len(polygons) == 0 {
			polygons = append(polygons, [][][]float64{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}

	if len(polygons) == 1 {
		return geos.NewPolygon(polygons[0])
	}
	geoms := make([]*geos.Geom, len(polygons))
	for i, p := range polygons {
		geoms[i] = geos.NewPolygon(p)
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, geoms)
}

func signedArea(ring [][]float64) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
