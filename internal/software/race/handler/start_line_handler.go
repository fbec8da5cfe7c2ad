package handler

import (
	"errors"
	"net/http"
	"strings"

	"racegap/internal/domain/geo"
	"racegap/internal/domain/race"
	"racegap/internal/domain/track"
	"racegap/internal/general/contracts"
)

// ----- Handler: PUT /races/{race_id}/start-line -----

func (handler *RaceHTTPHandler) handleSetStartLine(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	raceID := strings.TrimSpace(r.PathValue("race_id"))
	if raceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "race_id is required", race.ErrEmptyRaceID)
		return
	}
	ctx = handler.logger.WithRaceID(ctx, raceID)

	var req contracts.StartLineRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	var err error
	if name := strings.TrimSpace(req.Track); name != "" {
		_, err = handler.svc.SetStartLineFromTrack(ctx, raceID, name)
	} else {
		if req.Lat == nil || req.Lng == nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "lat and lng are required", nil)
			return
		}
		center, cerr := geo.NewCoordinate(*req.Lat, *req.Lng)
		if cerr != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, cerr.Error(), cerr)
			return
		}
		radius := handler.defaultRadius
		if req.RadiusMeters != nil {
			radius = *req.RadiusMeters
		}
		_, err = handler.svc.SetStartLine(ctx, raceID, center, radius)
	}

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, race.ErrStartLineAlreadySet):
		handler.httpError(ctx, w, http.StatusConflict, "start line already set", err)
	case errors.Is(err, track.ErrTrackNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "track not found", err)
	case errors.Is(err, race.ErrConfiguration):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to set start line", err)
	}
}
