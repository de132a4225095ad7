package geo

import (
	"math"
	"testing"
)

// TestDistanceKM checks great-circle distances against known values.
func TestDistanceKM(t *testing.T) {
	t.Run("Zero distance", func(t *testing.T) {
		d := DistanceKM(41.54, -87.14, 41.54, -87.14)
		if d != 0 {
			t.Errorf("Expected 0 km, got %f", d)
		}
	})

	t.Run("One degree of latitude", func(t *testing.T) {
		// One degree of latitude is ~111.2 km everywhere.
		d := DistanceKM(41.0, -87.0, 42.0, -87.0)
		if math.Abs(d-111.2) > 1.0 {
			t.Errorf("Expected ~111.2 km, got %f", d)
		}
	})

	t.Run("Chicago to Indianapolis", func(t *testing.T) {
		d := DistanceKM(41.8781, -87.6298, 39.7684, -86.1581)
		if math.Abs(d-265) > 10 {
			t.Errorf("Expected ~265 km, got %f", d)
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := DistanceKM(41.54, -87.14, 41.60, -87.20)
		b := DistanceKM(41.60, -87.20, 41.54, -87.14)
		if math.Abs(a-b) > 1e-9 {
			t.Errorf("Distance not symmetric: %f vs %f", a, b)
		}
	})
}

func TestBearingDeg(t *testing.T) {
	t.Run("Due north", func(t *testing.T) {
		b := BearingDeg(41.0, -87.0, 42.0, -87.0)
		if math.Abs(b-0) > 0.1 {
			t.Errorf("Expected bearing ~0, got %f", b)
		}
	})

	t.Run("Due east at equator", func(t *testing.T) {
		b := BearingDeg(0, 0, 0, 1)
		if math.Abs(b-90) > 0.1 {
			t.Errorf("Expected bearing ~90, got %f", b)
		}
	})

	t.Run("Due south", func(t *testing.T) {
		b := BearingDeg(42.0, -87.0, 41.0, -87.0)
		if math.Abs(b-180) > 0.1 {
			t.Errorf("Expected bearing ~180, got %f", b)
		}
	})
}

func TestValidLatLon(t *testing.T) {
	valid := [][2]float64{{0, 0}, {90, 180}, {-90, -180}, {41.54, -87.14}}
	for _, p := range valid {
		if !ValidLatLon(p[0], p[1]) {
			t.Errorf("Expected (%f, %f) to be valid", p[0], p[1])
		}
	}
	invalid := [][2]float64{{90.01, 0}, {-91, 0}, {0, 180.5}, {0, -181}, {9151.0, 2}}
	for _, p := range invalid {
		if ValidLatLon(p[0], p[1]) {
			t.Errorf("Expected (%f, %f) to be invalid", p[0], p[1])
		}
	}
}
