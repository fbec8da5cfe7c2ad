package race

import (
	"math"
	"time"

	"racegap/internal/domain/geo"
)

var startLineCenter = geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

// north returns the point the given number of meters due north of c.
func north(c geo.Coordinate, meters float64) geo.Coordinate {
	return geo.Coordinate{
		Latitude:  c.Latitude + meters/(geo.EarthRadiusMeters*math.Pi/180),
		Longitude: c.Longitude,
	}
}

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
