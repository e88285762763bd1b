package geo

import (
	"math"
	"testing"
)

func TestDistanceProperties(t *testing.T) {
	points := []Coordinates{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.001},
		{Lat: 10, Lng: 10},
		{Lat: 37.7749, Lng: -122.4194},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 90, Lng: 0},
		{Lat: -90, Lng: 180},
		{Lat: 51.5074, Lng: -0.1278},
	}

	for _, a := range points {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab := Distance(a, b)
			ba := Distance(b, a)
			if ab != ba {
				t.Errorf("Distance not symmetric for %v, %v: %v vs %v", a, b, ab, ba)
			}
			if ab < 0 || math.IsNaN(ab) {
				t.Errorf("Distance(%v, %v) = %v, want non-negative", a, b, ab)
			}
		}
	}
}

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Coordinates
		want      float64
		tolerance float64
	}{
		{
			name:      "one thousandth of a degree at the equator",
			a:         Coordinates{Lat: 0, Lng: 0},
			b:         Coordinates{Lat: 0, Lng: 0.001},
			want:      0.0691,
			tolerance: 0.0005,
		},
		{
			name:      "San Francisco to Los Angeles",
			a:         Coordinates{Lat: 37.7749, Lng: -122.4194},
			b:         Coordinates{Lat: 34.0522, Lng: -118.2437},
			want:      347,
			tolerance: 2,
		},
		{
			name:      "antipodal points are half the circumference",
			a:         Coordinates{Lat: 0, Lng: 0},
			b:         Coordinates{Lat: 0, Lng: 180},
			want:      math.Pi * EarthRadiusMiles,
			tolerance: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestCentroid(t *testing.T) {
	c, ok := Centroid([]Coordinates{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}, {Lat: 3, Lng: -3}})
	if !ok {
		t.Fatal("Centroid returned ok=false for non-empty input")
	}
	if math.Abs(c.Lat-1) > 1e-12 || math.Abs(c.Lng-(-2.999/3)) > 1e-12 {
		t.Errorf("Centroid = %+v", c)
	}

	if _, ok := Centroid(nil); ok {
		t.Error("Centroid(nil) returned ok=true")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		c    Coordinates
		want bool
	}{
		{Coordinates{0, 0}, true},
		{Coordinates{90, 180}, true},
		{Coordinates{-90, -180}, true},
		{Coordinates{90.01, 0}, false},
		{Coordinates{0, -180.5}, false},
		{Coordinates{math.NaN(), 0}, false},
		{Coordinates{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	c := Coordinates{Lat: 37.774929, Lng: -122.419416}
	if got, want := c.String(), "37.7749, -122.4194"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
