package validation

import (
	"sync"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/bsaid97/geomcheck/layer"
	"github.com/golang/geo/r2"
)

// ItemID identifies a graphic item placed on a canvas.
type ItemID int

// MarkerIcon is the shape of a vertex marker.
type MarkerIcon int

const (
	IconCross MarkerIcon = iota
	IconX
	IconBox
	IconCircle
)

// MarkerStyle describes how a vertex marker is drawn.
type MarkerStyle struct {
	Icon     MarkerIcon
	PenWidth int
}

// Canvas is the part of a map canvas the presenter drives. Implementations
// own coordinate transforms between layer and map coordinates.
type Canvas interface {
	AddMarker(p geometry.Point, style MarkerStyle) ItemID
	RemoveItem(id ItemID)
	Extent() r2.Rect
	SetExtent(r r2.Rect)
	ZoomToPreviousExtent()
	Refresh()
	LayerToMap(l *layer.Layer, p geometry.Point) geometry.Point
	LayerExtentToMap(l *layer.Layer, r r2.Rect) r2.Rect
}

// CanvasMarker is a marker currently placed on a HeadlessCanvas.
type CanvasMarker struct {
	ID    ItemID
	At    geometry.Point
	Style MarkerStyle
}

// HeadlessCanvas is an in-memory Canvas for command-line use and tests.
// Layer and map coordinates are the same. SetExtent pushes the previous
// extent on a history stack that ZoomToPreviousExtent pops.
type HeadlessCanvas struct {
	mu        sync.Mutex
	extent    r2.Rect
	history   []r2.Rect
	items     map[ItemID]CanvasMarker
	nextID    ItemID
	refreshes int
}

// NewHeadlessCanvas returns a canvas showing extent.
func NewHeadlessCanvas(extent r2.Rect) *HeadlessCanvas {
	return &HeadlessCanvas{extent: extent, items: make(map[ItemID]CanvasMarker)}
}

func (c *HeadlessCanvas) AddMarker(p geometry.Point, style MarkerStyle) ItemID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.items[c.nextID] = CanvasMarker{ID: c.nextID, At: p, Style: style}
	return c.nextID
}

func (c *HeadlessCanvas) RemoveItem(id ItemID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

func (c *HeadlessCanvas) Extent() r2.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extent
}

func (c *HeadlessCanvas) SetExtent(r r2.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, c.extent)
	c.extent = r
}

func (c *HeadlessCanvas) ZoomToPreviousExtent() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.history); n > 0 {
		c.extent = c.history[n-1]
		c.history = c.history[:n-1]
	}
}

func (c *HeadlessCanvas) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
}

func (c *HeadlessCanvas) LayerToMap(_ *layer.Layer, p geometry.Point) geometry.Point {
	return p
}

func (c *HeadlessCanvas) LayerExtentToMap(_ *layer.Layer, r r2.Rect) r2.Rect {
	return r
}

// Markers returns the markers currently on the canvas.
func (c *HeadlessCanvas) Markers() []CanvasMarker {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CanvasMarker, 0, len(c.items))
	for _, m := range c.items {
		out = append(out, m)
	}
	return out
}

// HistoryLen returns the depth of the extent history.
func (c *HeadlessCanvas) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Refreshes returns how many times the canvas was refreshed.
func (c *HeadlessCanvas) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}
