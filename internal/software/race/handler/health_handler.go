package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

const probeTimeout = 2 * time.Second

// Probe reports whether one backing dependency is usable.
type Probe func(ctx context.Context) error

// ----- Handler: GET /health -----

// handleHealth returns a minimal JSON health status payload.
func (handler *RaceHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type resp struct {
		Status string `json:"status"`
	}
	_ = json.NewEncoder(w).Encode(resp{Status: "ok"})
}

// ----- Handler: GET /ready -----

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleReady runs every registered probe and answers 503 when any fails.
func (handler *RaceHTTPHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	names := make([]string, 0, len(handler.probes))
	for name := range handler.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	res := readiness{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := handler.probes[name](ctx); err != nil {
			handler.logger.Error(ctx, "readiness_probe_failed", "Dependency is not ready", err, map[string]any{"dependency": name})
			res.Checks[name] = err.Error()
			res.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}

	w.Header().Set("Cache-Control", "no-store")
	handler.jsonResponse(ctx, w, status, res)
}
