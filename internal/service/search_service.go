package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"solar-parcel-be/internal/dto"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/repository/contract"
	"solar-parcel-be/pkg/agent/graph"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/events"
	"solar-parcel-be/pkg/parcel"
	"solar-parcel-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrSearchTimeout   = errors.New("search timed out")
	ErrSessionNotFound = errors.New("session not found")
)

// SearchPipeline runs one turn to a terminal state.
type SearchPipeline interface {
	Run(ctx context.Context, s state.State, observe graph.Observer) state.State
}

type ISearchService interface {
	Search(ctx context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error)
	// Stream runs a search and reports each stage to emit before the final result event.
	Stream(ctx context.Context, req *dto.SearchRequest, emit func(dto.StreamEvent)) (*dto.SearchResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

type searchService struct {
	pipeline  SearchPipeline
	sessions  contract.SessionRepository
	publisher IPublisherService
	locks     *sessionLocks
	timeout   time.Duration
	logger    logger.ILogger
}

func NewSearchService(
	pipeline SearchPipeline,
	sessions contract.SessionRepository,
	publisher IPublisherService,
	timeout time.Duration,
	log logger.ILogger,
) ISearchService {
	return &searchService{
		pipeline:  pipeline,
		sessions:  sessions,
		publisher: publisher,
		locks:     newSessionLocks(),
		timeout:   timeout,
		logger:    log,
	}
}

func (s *searchService) Search(ctx context.Context, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	return s.run(ctx, req, nil)
}

func (s *searchService) Stream(ctx context.Context, req *dto.SearchRequest, emit func(dto.StreamEvent)) (*dto.SearchResponse, error) {
	res, err := s.run(ctx, req, func(node graph.Node, _ state.State) {
		emit(dto.StreamEvent{Type: dto.StreamEventStatus, Step: node.Label(), Node: string(node)})
	})
	if err != nil {
		emit(dto.StreamEvent{Type: dto.StreamEventError, Error: err.Error()})
		return res, err
	}
	if res.Outcome == string(state.OutcomeFailed) {
		emit(dto.StreamEvent{Type: dto.StreamEventError, Error: res.Summary, SearchResponse: res})
		return res, nil
	}
	emit(dto.StreamEvent{Type: dto.StreamEventResult, SearchResponse: res})
	return res, nil
}

func (s *searchService) run(ctx context.Context, req *dto.SearchRequest, observe graph.Observer) (*dto.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	sessionId := strings.TrimSpace(req.SessionId)
	if sessionId == "" {
		sessionId = uuid.NewString()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	unlock, err := s.locks.Lock(ctx, sessionId)
	if err != nil {
		return nil, ErrSearchTimeout
	}
	defer unlock()

	sess, found, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		sess = store.NewSession(sessionId)
	}

	initial := state.New(sessionId, query, sess.Conversation)
	initial.SkipVagueCheck = sess.AwaitingClarification

	started := time.Now()
	final := s.pipeline.Run(ctx, initial, observe)
	elapsed := time.Since(started)

	result := parcel.Assemble(final)
	res := &dto.SearchResponse{
		Parcels:    result.Parcels,
		Summary:    result.Summary,
		Sql:        result.SQL,
		SessionId:  sessionId,
		Outcome:    string(result.Outcome),
		Attempts:   final.Attempt,
		DurationMs: elapsed.Milliseconds(),
	}

	// The turn is recorded even when the caller's deadline has passed.
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	delta := final.Conversation[len(sess.Conversation):]
	err = s.sessions.Update(bg, sessionId, func(stored *store.Session) {
		stored.Append(delta...)
		stored.AwaitingClarification = final.Outcome == state.OutcomeNeedsClarification
		if final.SQLQuery != nil && *final.SQLQuery != "" {
			stored.LastSQL = *final.SQLQuery
		}
		stored.TurnCount++
	})
	if err != nil {
		s.logger.Error("SEARCH", "Failed to save session", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	s.publish(bg, final, res)

	s.logger.Info("SEARCH", "Search finished", map[string]interface{}{
		"session_id":  sessionId,
		"outcome":     res.Outcome,
		"parcels":     len(res.Parcels),
		"attempts":    res.Attempts,
		"duration_ms": res.DurationMs,
	})

	if final.Outcome == state.OutcomeFailed && final.ErrorText() == graph.TimeoutMessage {
		return res, ErrSearchTimeout
	}
	return res, nil
}

func (s *searchService) publish(ctx context.Context, final state.State, res *dto.SearchResponse) {
	ev := events.SearchCompleted{
		SessionID:   res.SessionId,
		Query:       final.UserQuery,
		Outcome:     res.Outcome,
		Attempts:    res.Attempts,
		ParcelCount: len(res.Parcels),
		Summary:     res.Summary,
		Error:       final.ErrorText(),
		DurationMs:  res.DurationMs,
		Metadata:    searchMetadata(final),
		OccurredAt:  time.Now(),
	}
	if final.ExpandedQuery != nil {
		ev.ExpandedQuery = *final.ExpandedQuery
	}
	if res.Sql != nil {
		ev.SQL = *res.Sql
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("SEARCH", "Failed to encode search event", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("SEARCH", "Failed to publish search event", map[string]interface{}{"error": err.Error()})
	}
}

func searchMetadata(final state.State) map[string]interface{} {
	meta := map[string]interface{}{}
	if len(final.VagueConditions) > 0 {
		meta["vague_conditions"] = final.VagueConditions
	}
	if final.UnmatchedConditionsWarning != nil {
		meta["unmatched_warning"] = *final.UnmatchedConditionsWarning
	}
	var ids []string
	for _, row := range final.Results {
		if v, ok := row.Get("parcel_id"); ok && v != nil {
			ids = append(ids, fmt.Sprint(v))
		}
	}
	if len(ids) > 0 && !final.HasError() {
		meta["parcel_ids"] = ids
	}
	return meta
}

func (s *searchService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	sess, found, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return &dto.SessionResponse{
		SessionId:             sess.ID,
		Conversation:          sess.Conversation,
		AwaitingClarification: sess.AwaitingClarification,
		LastSql:               sess.LastSQL,
		TurnCount:             sess.TurnCount,
		UpdatedAt:             sess.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (s *searchService) DeleteSession(ctx context.Context, sessionId string) error {
	unlock, err := s.locks.Lock(ctx, sessionId)
	if err != nil {
		return err
	}
	defer unlock()
	return s.sessions.Delete(ctx, sessionId)
}
