package geo

import (
	"errors"
	"math"
)

// Geofence is a circular region used as the start/finish line.
type Geofence struct {
	Center       Coordinate
	RadiusMeters float64
}

var ErrInvalidRadius = errors.New("geofence radius must be greater than 0")

// NewGeofence validates the center and radius.
func NewGeofence(center Coordinate, radiusMeters float64) (Geofence, error) {
	if err := center.Validate(); err != nil {
		return Geofence{}, err
	}
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters <= 0 {
		return Geofence{}, ErrInvalidRadius
	}
	return Geofence{Center: center, RadiusMeters: radiusMeters}, nil
}

// Contains reports whether p lies strictly inside the fence.
func (g Geofence) Contains(p Coordinate) bool {
	return DistanceMeters(p, g.Center) < g.RadiusMeters
}
