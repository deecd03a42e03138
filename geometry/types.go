package geometry

import "fmt"

// Point is a location in layer coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// GeometryError is a single topology rule violation reported for one
// feature's geometry. Location is nil when the engine could not pin the
// problem to a coordinate.
type GeometryError struct {
	Message  string `json:"message" yaml:"message"`
	Location *Point `json:"location,omitempty" yaml:"location,omitempty"`
}

// HasLocation reports whether the error carries a coordinate.
func (e GeometryError) HasLocation() bool {
	return e.Location != nil
}

// At returns a GeometryError located at (x, y).
func At(message string, x, y float64) GeometryError {
	return GeometryError{Message: message, Location: &Point{X: x, Y: y}}
}
