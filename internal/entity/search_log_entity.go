package entity

import (
	"time"

	"github.com/google/uuid"
)

// SearchLog is the audit record of one completed search turn.
type SearchLog struct {
	Id            uuid.UUID
	SessionId     string
	Query         string
	ExpandedQuery string
	Sql           string
	Outcome       string
	Attempts      int
	ParcelCount   int
	Summary       string
	Error         string
	DurationMs    int64
	Metadata      map[string]interface{}
	CreatedAt     time.Time
}
