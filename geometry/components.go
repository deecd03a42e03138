package geometry

const (
	MsgTooFewPoints  = "Too few points in geometry component"
	MsgRingNotClosed = "Ring is not closed"
)

// CheckLine reports a line component with fewer than two points. The error
// is located at the first coordinate. An empty component is accepted.
func CheckLine(coords [][]float64) *GeometryError {
	if len(coords) == 1 {
		return componentError(MsgTooFewPoints, coords)
	}
	return nil
}

// CheckRing reports a ring with fewer than four points or whose first and
// last points differ.
func CheckRing(coords [][]float64) *GeometryError {
	if len(coords) == 0 {
		return nil
	}
	if len(coords) < 4 {
		return componentError(MsgTooFewPoints, coords)
	}
	first, last := coords[0], coords[len(coords)-1]
	if len(first) < 2 || len(last) < 2 || first[0] != last[0] || first[1] != last[1] {
		return componentError(MsgRingNotClosed, coords)
	}
	return nil
}

func componentError(msg string, coords [][]float64) *GeometryError {
	if len(coords) == 0 || len(coords[0]) < 2 {
		return &GeometryError{Message: msg}
	}
	e := At(msg, coords[0][0], coords[0][1])
	return &e
}
