package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"racegap/internal/general/contracts"
	"racegap/internal/general/logger"
	"racegap/internal/general/memstore"
	"racegap/internal/general/rabbitmq"
	"racegap/internal/ports"
	"racegap/internal/software/race/service"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, any) {}

func newTestMux(t *testing.T, probes ...func(*RaceHTTPHandler)) (*http.ServeMux, ports.RaceService) {
	t.Helper()
	log := logger.NewWithWriter("race-service", io.Discard)
	svc := service.NewRaceService(log, service.NewRegistry(nil), memstore.UnitOfWork{}, memstore.NewTrackRepo(),
		nopBroadcaster{}, rabbitmq.NoopPublisher{})

	h := NewRaceHTTPHandler(svc, log, nil, 10)
	for _, add := range probes {
		add(h)
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux, svc
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	mux, _ := newTestMux(t)

	w := do(mux, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"status":"ok"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestLeaderboard(t *testing.T) {
	mux, svc := newTestMux(t)

	if w := do(mux, http.MethodGet, "/races/race123/leaderboard", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown race, got %d", w.Code)
	}

	if _, err := svc.Join(t.Context(), "c1", "race123", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := do(mux, http.MethodGet, "/races/race123/leaderboard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var board contracts.LeaderboardMessage
	if err := json.Unmarshal(w.Body.Bytes(), &board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if board.RaceID != "race123" || len(board.Rows) != 1 || board.Rows[0].Name != "Car A" {
		t.Fatalf("unexpected board %+v", board)
	}
}

func TestSetStartLine(t *testing.T) {
	mux, _ := newTestMux(t)

	if w := do(mux, http.MethodPut, "/tracks/Laguna", `{"lat":36.584,"lng":-121.753,"radius_meters":15}`); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 storing track, got %d: %s", w.Code, w.Body)
	}

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"missing coordinates", "/races/r1/start-line", `{"radius_meters":10}`, http.StatusBadRequest},
		{"zero radius", "/races/r1/start-line", `{"lat":37.7749,"lng":-122.4194,"radius_meters":0}`, http.StatusBadRequest},
		{"bad latitude", "/races/r1/start-line", `{"lat":91,"lng":0}`, http.StatusBadRequest},
		{"unknown field", "/races/r1/start-line", `{"lat":1,"lng":1,"colour":"red"}`, http.StatusBadRequest},
		{"accepted", "/races/r1/start-line", `{"lat":37.7749,"lng":-122.4194,"radius_meters":10}`, http.StatusNoContent},
		{"already set", "/races/r1/start-line", `{"lat":37.7749,"lng":-122.4194}`, http.StatusConflict},
		{"unknown track", "/races/r2/start-line", `{"track":"monza"}`, http.StatusNotFound},
		{"from track", "/races/r2/start-line", `{"track":"laguna"}`, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(mux, http.MethodPut, tc.path, tc.body); w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body)
			}
		})
	}

	r := httptest.NewRequest(http.MethodPut, "/races/r3/start-line", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 without a JSON content type, got %d", w.Code)
	}
}

func TestTracks(t *testing.T) {
	mux, _ := newTestMux(t)

	if w := do(mux, http.MethodPut, "/tracks/Brands", `{"lat":51.36,"lng":0.26,"radius_meters":-2}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a negative radius, got %d", w.Code)
	}
	long := strings.Repeat("x", 65)
	if w := do(mux, http.MethodPut, "/tracks/"+long, `{"lat":51.36,"lng":0.26}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a long name, got %d", w.Code)
	}
	for _, name := range []string{"Brands", "Anderstorp"} {
		if w := do(mux, http.MethodPut, "/tracks/"+name, `{"lat":51.36,"lng":0.26}`); w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	}

	w := do(mux, http.MethodGet, "/tracks", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []trackResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Name != "anderstorp" || list[1].RadiusMeters != 10 {
		t.Fatalf("unexpected catalog %+v", list)
	}
}

func TestOverview(t *testing.T) {
	mux, svc := newTestMux(t)

	if _, err := svc.Join(t.Context(), "c1", "b-race", "Car A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Join(t.Context(), "c2", "a-race", "Car B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Join(t.Context(), "c3", "a-race", "Car C"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w := do(mux, http.MethodPut, "/races/a-race/start-line", `{"lat":37.7749,"lng":-122.4194}`); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body)
	}

	w := do(mux, http.MethodGet, "/races", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var overview contracts.RaceOverview
	if err := json.Unmarshal(w.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(overview.Races) != 2 {
		t.Fatalf("expected 2 races, got %+v", overview.Races)
	}
	first, second := overview.Races[0], overview.Races[1]
	if first.RaceID != "a-race" || first.Competitors != 2 || !first.StartLineSet {
		t.Fatalf("unexpected first summary %+v", first)
	}
	if second.RaceID != "b-race" || second.Competitors != 1 || second.StartLineSet {
		t.Fatalf("unexpected second summary %+v", second)
	}
}

func TestLapHistory(t *testing.T) {
	mux, _ := newTestMux(t)

	if w := do(mux, http.MethodGet, "/races/race123/laps?limit=0", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero limit, got %d", w.Code)
	}
	if w := do(mux, http.MethodGet, "/races/race123/laps?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}

	w := do(mux, http.MethodGet, "/races/race123/laps?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var history contracts.LapHistory
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if history.RaceID != "race123" || history.Laps == nil || len(history.Laps) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestReady(t *testing.T) {
	mux, _ := newTestMux(t)
	if w := do(mux, http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 without probes, got %d", w.Code)
	}

	mux, _ = newTestMux(t, func(h *RaceHTTPHandler) {
		h.AddProbe("postgres", func(context.Context) error { return nil })
		h.AddProbe("rabbitmq", func(context.Context) error { return errors.New("not connected") })
	})
	w := do(mux, http.MethodGet, "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var res readiness
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != "unavailable" || res.Checks["postgres"] != "ok" || res.Checks["rabbitmq"] != "not connected" {
		t.Fatalf("unexpected readiness %+v", res)
	}
}
