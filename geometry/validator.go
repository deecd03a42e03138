package geometry

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/twpayne/go-geos"
)

// Validator produces the geometry errors of a single geometry. It must not
// modify its input.
type Validator interface {
	Validate(g *geos.Geom) []GeometryError
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(g *geos.Geom) []GeometryError

func (f ValidatorFunc) Validate(g *geos.Geom) []GeometryError {
	return f(g)
}

// GEOSValidator checks validity with the GEOS engine.
type GEOSValidator struct{}

// NewValidator returns the default GEOS-backed validator.
func NewValidator() *GEOSValidator {
	return &GEOSValidator{}
}

// Validate returns nil for nil, empty and valid geometries. Parts of
// multi-geometries are checked one by one so each broken part gets its own
// error; when every part is valid the collection as a whole is checked
// too, which catches overlapping polygons.
func (v *GEOSValidator) Validate(g *geos.Geom) []GeometryError {
	if g == nil || g.IsEmpty() {
		return nil
	}

	if isMulti(g.TypeID()) {
		var errs []GeometryError
		for i := range g.NumGeometries() {
			for _, partErr := range v.Validate(g.Geometry(i)) {
				partErr.Message = fmt.Sprintf("Part %d: %s", i, partErr.Message)
				errs = append(errs, partErr)
			}
		}
		if len(errs) > 0 {
			return errs
		}
	}

	if g.IsValid() {
		return nil
	}
	return []GeometryError{ParseReason(g.IsValidReason())}
}

func isMulti(typeID geos.TypeID) bool {
	switch typeID {
	case geos.TypeIDMultiPoint, geos.TypeIDMultiLineString, geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		return true
	}
	return false
}

// GEOS appends the offending coordinate as "[x y]".
var reasonPattern = regexp.MustCompile(`^(.*?)\s*\[(\S+) (\S+)\]\s*$`)

// ParseReason turns a GEOS validity reason such as "Self-intersection[5 5]"
// into a GeometryError.
func ParseReason(reason string) GeometryError {
	reason = strings.TrimSpace(reason)
	m := reasonPattern.FindStringSubmatch(reason)
	if m == nil {
		return GeometryError{Message: reason}
	}
	x, errX := strconv.ParseFloat(m[2], 64)
	y, errY := strconv.ParseFloat(m[3], 64)
	if errX != nil || errY != nil || !finite(x) || !finite(y) {
		return GeometryError{Message: reason}
	}
	return At(m[1], x, y)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
