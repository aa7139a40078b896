package memory

import (
	"context"
	"sync"
	"time"

	"solar-parcel-be/internal/repository/contract"
	"solar-parcel-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps conversations in process memory. Idle sessions expire after ttl.
type SessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ contract.SessionRepository = &SessionRepository{}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) (*store.Session, bool, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session).Clone(), true, nil
	}
	return nil, false, nil
}

func (r *SessionRepository) Update(_ context.Context, sessionID string, mutate func(s *store.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := store.NewSession(sessionID)
	if x, found := r.cache.Get(sessionID); found {
		s = x.(*store.Session).Clone()
	}
	mutate(s)
	s.ID = sessionID
	s.UpdatedAt = time.Now()
	r.cache.Set(sessionID, s.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}
