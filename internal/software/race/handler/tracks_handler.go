package handler

import (
	"errors"
	"net/http"
	"time"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/track"
)

// --- DTOs (HTTP boundary) ---

type putTrackRequest struct {
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	RadiusMeters *float64 `json:"radius_meters"`
}

type trackResponse struct {
	Name         string    `json:"name"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	RadiusMeters float64   `json:"radius_meters"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newTrackResponse(t *track.Track) trackResponse {
	return trackResponse{
		Name:         t.Name,
		Lat:          t.Center.Latitude,
		Lng:          t.Center.Longitude,
		RadiusMeters: t.RadiusMeters,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
}

// ----- Handler: GET /tracks -----

func (handler *RaceHTTPHandler) handleListTracks(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tracks, err := handler.svc.ListTracks(ctx)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to list tracks", err)
		return
	}

	out := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, newTrackResponse(t))
	}
	handler.jsonResponse(ctx, w, http.StatusOK, out)
}

// ----- Handler: PUT /tracks/{name} -----

func (handler *RaceHTTPHandler) handlePutTrack(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req putTrackRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "lat and lng are required", nil)
		return
	}
	radius := handler.defaultRadius
	if req.RadiusMeters != nil {
		radius = *req.RadiusMeters
	}

	_, err := handler.svc.RegisterTrack(ctx, r.PathValue("name"), geo.Coordinate{Latitude: *req.Lat, Longitude: *req.Lng}, radius)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, track.ErrEmptyName),
		errors.Is(err, track.ErrNameTooLong),
		errors.Is(err, geo.ErrInvalidRadius),
		errors.Is(err, geo.ErrInvalidLatitude),
		errors.Is(err, geo.ErrInvalidLongitude):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to store track", err)
	}
}
