package dto

import (
	"time"

	"github.com/google/uuid"
)

type SearchLogListRequest struct {
	Page      int    `query:"page" validate:"min=1"`
	Limit     int    `query:"limit" validate:"min=1,max=100"`
	SessionId string `query:"session_id" validate:"omitempty,max=128"`
	Outcome   string `query:"outcome" validate:"omitempty,oneof=completed off_topic needs_clarification exhausted failed"`
}

type SearchLogResponse struct {
	Id            uuid.UUID              `json:"id"`
	SessionId     string                 `json:"session_id"`
	Query         string                 `json:"query"`
	ExpandedQuery string                 `json:"expanded_query,omitempty"`
	Sql           string                 `json:"sql,omitempty"`
	Outcome       string                 `json:"outcome"`
	Attempts      int                    `json:"attempts"`
	ParcelCount   int                    `json:"parcel_count"`
	Summary       string                 `json:"summary"`
	Error         string                 `json:"error,omitempty"`
	DurationMs    int64                  `json:"duration_ms"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type SearchLogListResponse struct {
	Items []*SearchLogResponse `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// --- System Log DTOs ---

type LogListRequest struct {
	Page   int    `query:"page" validate:"min=1"`
	Limit  int    `query:"limit" validate:"min=1,max=500"`
	Level  string `query:"level" validate:"omitempty,oneof=debug info warn error"`
	Module string `query:"module" validate:"omitempty,max=32"`
}

type LogListResponse struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Module    string                 `json:"module,omitempty"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
