package memstore

import (
	"context"
	"testing"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/track"
)

func TestTrackRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackRepo()

	b, _ := track.NewTrack("Brands", geo.Coordinate{Latitude: 51.3, Longitude: 0.26}, 15)
	a, _ := track.NewTrack("Anderstorp", geo.Coordinate{Latitude: 57.26, Longitude: 13.6}, 20)
	for _, tr := range []*track.Track{b, a} {
		if err := repo.Upsert(ctx, tr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := repo.GetByName(ctx, " BRANDS ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RadiusMeters != 15 {
		t.Fatalf("expected radius 15, got %v", got.RadiusMeters)
	}

	if _, err := repo.GetByName(ctx, "monza"); err != track.ErrTrackNotFound {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].Name != "anderstorp" || list[1].Name != "brands" {
		t.Fatalf("expected catalog sorted by name, got %+v", list)
	}

	if err := repo.Upsert(ctx, &track.Track{Name: "bad", RadiusMeters: 0}); err == nil {
		t.Fatalf("expected validation error")
	}
}
