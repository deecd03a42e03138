package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReason(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		message string
		loc     *Point
	}{
		{"located", "Self-intersection[10 20]", "Self-intersection", &Point{X: 10, Y: 20}},
		{"negative and exponent", "Ring Self-intersection[-1.5 2e+06]", "Ring Self-intersection", &Point{X: -1.5, Y: 2e6}},
		{"no location", "Too few points in geometry component", "Too few points in geometry component", nil},
		{"nan location", "Invalid Coordinate[nan nan]", "Invalid Coordinate[nan nan]", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseReason(tt.reason)
			assert.Equal(t, tt.message, got.Message)
			if tt.loc == nil {
				assert.Nil(t, got.Location)
				return
			}
			require.NotNil(t, got.Location)
			assert.Equal(t, *tt.loc, *got.Location)
		})
	}
}
