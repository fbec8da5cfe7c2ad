package handler

import (
	"errors"
	"net/http"
	"strings"

	"racegap/internal/domain/race"
)

// ----- Handler: GET /races/{race_id}/leaderboard -----

func (handler *RaceHTTPHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	raceID := strings.TrimSpace(r.PathValue("race_id"))
	if raceID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "race_id is required", race.ErrEmptyRaceID)
		return
	}
	ctx = handler.logger.WithRaceID(ctx, raceID)

	board, err := handler.svc.Leaderboard(ctx, raceID)
	if errors.Is(err, race.ErrUnknownRace) {
		handler.httpError(ctx, w, http.StatusNotFound, "race not found", err)
		return
	}
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to build leaderboard", err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, board)
}
