package contracts

import "encoding/json"

// WSInbound is the minimal envelope every client frame carries.
type WSInbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WSOutbound is the envelope for every server frame.
type WSOutbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type JoinRaceRequest struct {
	RaceID string `json:"race_id"`
	Name   string `json:"name"`
}

type JoinedResponse struct {
	CompetitorID string `json:"competitor_id"`
	RaceID       string `json:"race_id"`
	Name         string `json:"name"`
}

type RaceRef struct {
	RaceID string `json:"race_id"`
}

// StartLineRequest sets a start line by coordinates or by catalog track name.
type StartLineRequest struct {
	RaceID       string   `json:"race_id,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	RadiusMeters *float64 `json:"radius_meters,omitempty"`
	Track        string   `json:"track,omitempty"`
}

type StartLineSet struct {
	RaceID       string  `json:"race_id"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
