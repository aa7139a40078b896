package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"solar-parcel-be/internal/repository/contract"
	"solar-parcel-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "parcel:session:"

// maxUpdateRetries bounds optimistic retries when another instance writes the same key.
const maxUpdateRetries = 5

// SessionRepository stores conversations in Redis so every API instance shares them.
type SessionRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ contract.SessionRepository = &SessionRepository{}

func NewSessionRepository(client *goredis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{client: client, ttl: ttl}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*store.Session, bool, error) {
	raw, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}

	var s store.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	return &s, true, nil
}

// Update reads, mutates and writes the session inside WATCH. A write from another instance
// between the read and the write aborts the transaction and the update is retried on fresh data.
func (r *SessionRepository) Update(ctx context.Context, sessionID string, mutate func(s *store.Session)) error {
	k := key(sessionID)

	txn := func(tx *goredis.Tx) error {
		s := store.NewSession(sessionID)
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, s); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
		}

		mutate(s)
		s.ID = sessionID
		s.UpdatedAt = time.Now()
		out, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, k, out, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txn, k)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis update session: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis update session: too many concurrent writers for %s", sessionID)
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
