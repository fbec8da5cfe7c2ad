package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"racegap/internal/general/logger"
	"racegap/internal/general/websocket"
	"racegap/internal/ports"
)

const maxBodyBytes = 64 << 10 // 64 KiB

// RaceHTTPHandler adapts HTTP requests to the RaceService.
type RaceHTTPHandler struct {
	svc           ports.RaceService
	logger        *logger.Logger
	websocket     *websocket.WebSocket
	defaultRadius float64
	probes        map[string]Probe
}

// NewRaceHTTPHandler wires an HTTP handler around the RaceService. ws may be
// nil, in which case /ws is not mounted.
func NewRaceHTTPHandler(svc ports.RaceService, logger *logger.Logger, ws *websocket.WebSocket, defaultRadius float64) *RaceHTTPHandler {
	return &RaceHTTPHandler{
		svc:           svc,
		logger:        logger,
		websocket:     ws,
		defaultRadius: defaultRadius,
		probes:        make(map[string]Probe),
	}
}

// AddProbe registers a dependency check served by GET /ready.
func (handler *RaceHTTPHandler) AddProbe(name string, probe Probe) {
	handler.probes[name] = probe
}

// RegisterRoutes mounts race endpoints on the provided mux.
func (handler *RaceHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.HandleFunc("GET /ready", handler.handleReady)
	mux.HandleFunc("GET /races", handler.handleOverview)
	mux.HandleFunc("GET /races/{race_id}/leaderboard", handler.handleLeaderboard)
	mux.HandleFunc("GET /races/{race_id}/laps", handler.handleLapHistory)
	mux.HandleFunc("PUT /races/{race_id}/start-line", handler.handleSetStartLine)
	mux.HandleFunc("GET /tracks", handler.handleListTracks)
	mux.HandleFunc("PUT /tracks/{name}", handler.handlePutTrack)

	if handler.websocket != nil {
		mux.HandleFunc("GET /ws", handler.websocket.Connect)
	}
}

// ----- general helpers -----

// jsonResponse encodes data and writes it with the given status.
func (handler *RaceHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *RaceHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
	case status == http.StatusBadRequest:
		action = "validation_failed"
	case status == http.StatusUnsupportedMediaType:
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// decodeJSON checks the content type and strictly decodes a bounded body.
// It writes the error response itself and reports whether decoding succeeded.
func (handler *RaceHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, v any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *RaceHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = logger.NewRequestID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
