package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	SearchCompletedType = "search.completed"
	// SearchCompletedTopic is the in-process bus topic for finished searches.
	SearchCompletedTopic = "parcel." + SearchCompletedType
)

// SearchCompleted is published once per finished search turn.
type SearchCompleted struct {
	SessionID     string                 `json:"session_id"`
	Query         string                 `json:"query"`
	ExpandedQuery string                 `json:"expanded_query,omitempty"`
	SQL           string                 `json:"sql,omitempty"`
	Outcome       string                 `json:"outcome"`
	Attempts      int                    `json:"attempts"`
	ParcelCount   int                    `json:"parcel_count"`
	Summary       string                 `json:"summary"`
	Error         string                 `json:"error,omitempty"`
	DurationMs    int64                  `json:"duration_ms"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

func (e SearchCompleted) EventType() string {
	return SearchCompletedType
}

func (e SearchCompleted) Payload() map[string]interface{} {
	data, err := json.Marshal(e)
	if err != nil {
		return map[string]interface{}{"session_id": e.SessionID, "outcome": e.Outcome}
	}
	var out map[string]interface{}
	_ = json.Unmarshal(data, &out)
	return out
}

func (e SearchCompleted) Timestamp() time.Time {
	return e.OccurredAt
}

// DecodeSearchCompleted reads the event back from a generic payload.
func DecodeSearchCompleted(payload map[string]interface{}) (SearchCompleted, error) {
	var out SearchCompleted
	data, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode search event: %w", err)
	}
	return out, nil
}
