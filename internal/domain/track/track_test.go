package track

import (
	"strings"
	"testing"

	"racegap/internal/domain/geo"
)

func TestNewTrack(t *testing.T) {
	center := geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

	tests := []struct {
		name    string
		input   string
		radius  float64
		center  geo.Coordinate
		wantErr error
	}{
		{"valid", "  Laguna Seca ", 12, center, nil},
		{"empty name", "   ", 12, center, ErrEmptyName},
		{"long name", strings.Repeat("x", 65), 12, center, ErrNameTooLong},
		{"zero radius", "x", 0, center, geo.ErrInvalidRadius},
		{"bad latitude", "x", 10, geo.Coordinate{Latitude: -91}, geo.ErrInvalidLatitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTrack(tt.input, tt.center, tt.radius)
			if err != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && tr.Name != "laguna seca" {
				t.Fatalf("expected normalized name, got %q", tr.Name)
			}
		})
	}
}
