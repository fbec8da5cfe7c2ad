package track

import (
	"errors"
	"strings"
	"time"

	"racegap/internal/domain/geo"
)

// Track is a named start/finish line kept in the catalog so organizers can
// configure a race by name instead of coordinates.
type Track struct {
	Name         string
	Center       geo.Coordinate
	RadiusMeters float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	ErrEmptyName     = errors.New("track name cannot be empty")
	ErrNameTooLong   = errors.New("track name must be at most 64 characters")
	ErrTrackNotFound = errors.New("track not found")
)

// NewTrack constructs a validated catalog entry.
func NewTrack(name string, center geo.Coordinate, radiusMeters float64) (*Track, error) {
	now := time.Now().UTC()
	t := &Track{
		Name:         NormalizeName(name),
		Center:       center,
		RadiusMeters: radiusMeters,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NormalizeName lowercases and trims a track name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the invariants of a catalog entry.
func (t *Track) Validate() error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if len(t.Name) > 64 {
		return ErrNameTooLong
	}
	_, err := t.Geofence()
	return err
}

// Geofence returns the start/finish geofence described by the track.
func (t *Track) Geofence() (geo.Geofence, error) {
	return geo.NewGeofence(t.Center, t.RadiusMeters)
}
