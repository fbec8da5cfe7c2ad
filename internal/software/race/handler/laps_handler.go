package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"racegap/internal/domain/race"
)

// ----- Handler: GET /races/{race_id}/laps -----

func (handler *RaceHTTPHandler) handleLapHistory(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	raceID := strings.TrimSpace(r.PathValue("race_id"))
	if raceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "race_id is required", race.ErrEmptyRaceID)
		return
	}
	ctx = handler.logger.WithRaceID(ctx, raceID)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			handler.httpError(ctx, w, http.StatusBadRequest, "limit must be a positive integer", errors.New("invalid limit"))
			return
		}
		limit = n
	}

	history, err := handler.svc.LapHistory(ctx, raceID, limit)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to list laps", err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, history)
}
