package dto

import (
	"solar-parcel-be/pkg/parcel"
	"solar-parcel-be/pkg/store"
)

type SearchRequest struct {
	Query     string `json:"query" validate:"required,max=2000"`
	SessionId string `json:"session_id" validate:"omitempty,max=128"`
}

type SearchResponse struct {
	Parcels    []parcel.Parcel `json:"parcels"`
	Summary    string          `json:"summary"`
	Sql        *string         `json:"sql"`
	SessionId  string          `json:"session_id"`
	Outcome    string          `json:"outcome"`
	Attempts   int             `json:"attempts"`
	DurationMs int64           `json:"duration_ms"`
}

// Stream event types.
const (
	StreamEventStatus = "status"
	StreamEventResult = "result"
	StreamEventError  = "error"
)

// StreamEvent is one SSE or WebSocket message. Result events, and error events for a failed
// search, carry the SearchResponse fields at the top level.
type StreamEvent struct {
	Type  string `json:"type"`
	Step  string `json:"step,omitempty"`
	Node  string `json:"node,omitempty"`
	Error string `json:"error,omitempty"`
	*SearchResponse
}

type SessionResponse struct {
	SessionId             string       `json:"session_id"`
	Conversation          []store.Turn `json:"conversation"`
	AwaitingClarification bool         `json:"awaiting_clarification"`
	LastSql               string       `json:"last_sql,omitempty"`
	TurnCount             int          `json:"turn_count"`
	UpdatedAt             string       `json:"updated_at"`
}

type SchemaResponse struct {
	Schemas []string `json:"schemas"`
	Text    string   `json:"text"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Memory   string `json:"memory"`
}
