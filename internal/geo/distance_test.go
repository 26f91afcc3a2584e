package geo

import (
	"math"
	"testing"
)

// TestDistanceKm verifies the Haversine distance against known city pairs.
func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name      string
		a         Point
		b         Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point is zero",
			a:         Point{Lat: 37.7749, Lng: -122.4194},
			b:         Point{Lat: 37.7749, Lng: -122.4194},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "san francisco to los angeles",
			a:         Point{Lat: 37.7749, Lng: -122.4194},
			b:         Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    559,
			tolerance: 5,
		},
		{
			name:      "london to paris",
			a:         Point{Lat: 51.5074, Lng: -0.1278},
			b:         Point{Lat: 48.8566, Lng: 2.3522},
			wantKm:    344,
			tolerance: 5,
		},
		{
			name:      "short hop within a city",
			a:         Point{Lat: 37.7749, Lng: -122.4194},
			b:         Point{Lat: 37.7849, Lng: -122.4094},
			wantKm:    1.4,
			tolerance: 0.1,
		},
		{
			name:      "antipodal points are half the circumference",
			a:         Point{Lat: 0, Lng: 0},
			b:         Point{Lat: 0, Lng: 180},
			wantKm:    math.Pi * EarthRadiusKm,
			tolerance: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

// TestDistanceKmSymmetry verifies distance is symmetric in its arguments.
func TestDistanceKmSymmetry(t *testing.T) {
	a := Point{Lat: 40.7128, Lng: -74.0060}
	b := Point{Lat: 35.6762, Lng: 139.6503}

	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

// TestPointValidate tests WGS84 bounds checking.
func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr error
	}{
		{name: "valid point", point: Point{Lat: 37.7749, Lng: -122.4194}, wantErr: nil},
		{name: "north pole", point: Point{Lat: 90, Lng: 0}, wantErr: nil},
		{name: "date line", point: Point{Lat: 0, Lng: -180}, wantErr: nil},
		{name: "latitude too high", point: Point{Lat: 90.1, Lng: 0}, wantErr: ErrInvalidLatitude},
		{name: "latitude too low", point: Point{Lat: -91, Lng: 0}, wantErr: ErrInvalidLatitude},
		{name: "longitude too high", point: Point{Lat: 0, Lng: 180.5}, wantErr: ErrInvalidLongitude},
		{name: "longitude too low", point: Point{Lat: 0, Lng: -181}, wantErr: ErrInvalidLongitude},
		{name: "NaN latitude", point: Point{Lat: math.NaN(), Lng: 0}, wantErr: ErrInvalidLatitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.point.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
