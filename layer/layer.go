package layer

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"
)

var (
	ErrDuplicateID     = errors.New("duplicate feature id")
	ErrUnsupportedFile = errors.New("unsupported layer file")
)

// FeatureID identifies a feature inside its layer.
type FeatureID int64

// Feature is one record of a vector layer. Features handed out by a Layer
// are shared and must be treated as read-only. Defect is set, and Geometry
// left nil, when the stored coordinates could not be built into a geometry.
type Feature struct {
	ID         FeatureID
	Geometry   *geos.Geom
	Defect     *geometry.GeometryError
	Attributes map[string]string
}

// GeometryType is the broad geometry family of a layer.
type GeometryType int

const (
	GeometryUnknown GeometryType = iota
	GeometryPoint
	GeometryLine
	GeometryPolygon
)

func (t GeometryType) String() string {
	switch t {
	case GeometryPoint:
		return "point"
	case GeometryLine:
		return "line"
	case GeometryPolygon:
		return "polygon"
	}
	return "unknown"
}

func geometryTypeOf(g *geos.Geom) GeometryType {
	if g == nil || g.IsEmpty() {
		return GeometryUnknown
	}
	switch g.TypeID() {
	case geos.TypeIDPoint, geos.TypeIDMultiPoint:
		return GeometryPoint
	case geos.TypeIDLineString, geos.TypeIDLinearRing, geos.TypeIDMultiLineString:
		return GeometryLine
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return GeometryPolygon
	}
	return GeometryUnknown
}

// Layer is an in-memory vector layer with a feature selection.
type Layer struct {
	name   string
	crs    string
	fields []string

	mu           sync.RWMutex
	geometryType GeometryType
	features     []*Feature
	index        map[FeatureID]int
	selected     map[FeatureID]struct{}
	nextID       FeatureID
}

// Option configures a Layer.
type Option func(*Layer)

// WithCRS sets the coordinate reference system definition (WKT or PROJ
// string) inherited by outputs derived from the layer.
func WithCRS(crs string) Option {
	return func(l *Layer) { l.crs = crs }
}

// WithFields sets the attribute field names in display order.
func WithFields(fields ...string) Option {
	return func(l *Layer) { l.fields = slices.Clone(fields) }
}

// New creates an empty layer.
func New(name string, opts ...Option) *Layer {
	l := &Layer{
		name:     name,
		index:    make(map[FeatureID]int),
		selected: make(map[FeatureID]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Layer) Name() string     { return l.name }
func (l *Layer) CRS() string      { return l.crs }
func (l *Layer) Fields() []string { return slices.Clone(l.fields) }

// GeometryType returns the family of the first non-empty geometry added.
func (l *Layer) GeometryType() GeometryType {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.geometryType
}

// Add appends a feature with the next free id and returns that id.
func (l *Layer) Add(g *geos.Geom, attrs map[string]string) FeatureID {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.insert(&Feature{ID: id, Geometry: g, Attributes: attrs})
	return id
}

// AddFeature appends f keeping its id.
func (l *Layer) AddFeature(f Feature) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[f.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, f.ID)
	}
	l.insert(&f)
	return nil
}

func (l *Layer) insert(f *Feature) {
	l.index[f.ID] = len(l.features)
	l.features = append(l.features, f)
	if f.ID >= l.nextID {
		l.nextID = f.ID + 1
	}
	if l.geometryType == GeometryUnknown {
		l.geometryType = geometryTypeOf(f.Geometry)
	}
}

// Update replaces the geometry of an existing feature. Snapshots taken
// earlier keep the old feature.
func (l *Layer) Update(id FeatureID, g *geos.Geom) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return false
	}
	old := l.features[i]
	l.features[i] = &Feature{ID: id, Geometry: g, Attributes: old.Attributes}
	return true
}

// Remove deletes a feature and drops it from the selection.
func (l *Layer) Remove(id FeatureID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.features = slices.Delete(l.features, i, i+1)
	delete(l.index, id)
	delete(l.selected, id)
	for j := i; j < len(l.features); j++ {
		l.index[l.features[j].ID] = j
	}
	return true
}

// Len returns the number of features.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.features)
}

// Feature looks a feature up by id.
func (l *Layer) Feature(id FeatureID) (*Feature, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return l.features[i], true
}

// Features returns a snapshot of all features in layer order. Later edits
// to the layer are not reflected in the returned slice.
func (l *Layer) Features() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.features)
}

// Select adds ids to the selection. Unknown ids are ignored.
func (l *Layer) Select(ids ...FeatureID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range ids {
		if _, ok := l.index[id]; ok {
			l.selected[id] = struct{}{}
		}
	}
}

// ClearSelection empties the selection.
func (l *Layer) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.selected)
}

// SelectedCount returns the size of the selection.
func (l *Layer) SelectedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.selected)
}

// SelectedFeatures returns a snapshot of the selected features in layer
// order.
func (l *Layer) SelectedFeatures() []*Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Feature, 0, len(l.selected))
	for _, f := range l.features {
		if _, ok := l.selected[f.ID]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Extent returns the union of all feature bounding boxes.
func (l *Layer) Extent() (r2.Rect, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	extent := r2.EmptyRect()
	found := false
	for _, f := range l.features {
		if b, ok := geometry.Bounds(f.Geometry); ok {
			extent = extent.Union(b)
			found = true
		}
	}
	return extent, found
}
