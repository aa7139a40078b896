package contract

import (
	"context"

	"solar-parcel-be/pkg/store"
)

// SessionRepository is the conversational memory store keyed by session id.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*store.Session, bool, error)
	// Update applies mutate to the stored session, or to a new one when none exists, and
	// writes the result atomically. Concurrent updates from any instance are never lost.
	Update(ctx context.Context, sessionID string, mutate func(s *store.Session)) error
	Delete(ctx context.Context, sessionID string) error
}
