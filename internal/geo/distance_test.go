package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePoint(t *testing.T) {
	p := Point{Latitude: -6.2088, Longitude: 106.8456}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "jakarta to bandung",
			a:        Point{-6.2088, 106.8456},
			b:        Point{-6.9175, 107.6191},
			expected: 115.6,
			delta:    2.0,
		},
		{
			name:     "one degree of latitude",
			a:        Point{0, 0},
			b:        Point{1, 0},
			expected: 111.19,
			delta:    0.1,
		},
		{
			name:     "short hop within a city",
			a:        Point{-6.2000, 106.8000},
			b:        Point{-6.2100, 106.8100},
			expected: 1.56,
			delta:    0.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.a, tt.b), tt.delta)
			// Distance is symmetric.
			assert.InDelta(t, Distance(tt.a, tt.b), Distance(tt.b, tt.a), 1e-9)
		})
	}
}

func TestDistance_Antipodal(t *testing.T) {
	a := Point{0, 0}
	b := Point{0, 180}

	d := Distance(a, b)

	// Half the Earth's circumference, and no NaN from rounding at the
	// domain boundary of Asin.
	assert.InDelta(t, 20015.0, d, 1.0)
	assert.False(t, d != d, "distance must not be NaN")
}
