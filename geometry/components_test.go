package geometry_test

import (
	"testing"

	"github.com/bsaid97/geomcheck/geometry"
	"github.com/stretchr/testify/assert"
)

func TestCheckRing(t *testing.T) {
	tests := []struct {
		name string
		ring [][]float64
		want *geometry.GeometryError
	}{
		{"closed", [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, nil},
		{"empty", nil, nil},
		{"three points", [][]float64{{2, 3}, {4, 3}, {2, 3}}, errAt(geometry.MsgTooFewPoints, 2, 3)},
		{"unclosed", [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, errAt(geometry.MsgRingNotClosed, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geometry.CheckRing(tt.ring))
		})
	}
}

func TestCheckLine(t *testing.T) {
	assert.Nil(t, geometry.CheckLine([][]float64{{0, 0}, {1, 1}}))
	assert.Nil(t, geometry.CheckLine(nil))
	assert.Equal(t, errAt(geometry.MsgTooFewPoints, 7, 8), geometry.CheckLine([][]float64{{7, 8}}))
}

func errAt(msg string, x, y float64) *geometry.GeometryError {
	e := geometry.At(msg, x, y)
	return &e
}
