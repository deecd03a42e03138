package validation

import "github.com/bsaid97/geomcheck/geometry"

var errorMarkerStyle = MarkerStyle{Icon: IconX, PenWidth: 3}

// Marker owns at most one error highlight on a canvas.
type Marker struct {
	canvas Canvas
	item   ItemID
	placed bool
}

// NewMarker returns a marker with nothing placed yet.
func NewMarker(c Canvas) *Marker {
	return &Marker{canvas: c}
}

// SetGeom places the marker at p. An existing marker is removed and a new
// one created rather than moved.
func (m *Marker) SetGeom(p geometry.Point) {
	m.Reset()
	m.item = m.canvas.AddMarker(p, errorMarkerStyle)
	m.placed = true
}

// Reset removes the marker from the canvas. Safe to call when nothing is
// placed.
func (m *Marker) Reset() {
	if !m.placed {
		return
	}
	m.canvas.RemoveItem(m.item)
	m.placed = false
}

// Placed reports whether a marker is on the canvas.
func (m *Marker) Placed() bool {
	return m.placed
}
