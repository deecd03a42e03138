package geometry

import (
	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"
)

// NewRect builds a rectangle from its corners.
func NewRect(minX, minY, maxX, maxY float64) r2.Rect {
	return r2.RectFromPoints(r2.Point{X: minX, Y: minY}, r2.Point{X: maxX, Y: maxY})
}

// Scale grows or shrinks r by factor around its own center.
func Scale(r r2.Rect, factor float64) r2.Rect {
	return r2.RectFromCenterSize(r.Center(), r.Size().Mul(factor))
}

// ScaleAround resizes r by factor and re-centers it on p.
func ScaleAround(r r2.Rect, factor float64, p Point) r2.Rect {
	return r2.RectFromCenterSize(r2.Point{X: p.X, Y: p.Y}, r.Size().Mul(factor))
}

// Bounds returns the bounding box of g. ok is false for nil or empty
// geometries.
func Bounds(g *geos.Geom) (r2.Rect, bool) {
	if g == nil || g.IsEmpty() {
		return r2.EmptyRect(), false
	}
	b := g.Bounds()
	if b == nil {
		return r2.EmptyRect(), false
	}
	return NewRect(b.MinX, b.MinY, b.MaxX, b.MaxY), true
}
