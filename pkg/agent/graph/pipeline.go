// Package graph runs the search stages as a bounded state machine.
package graph

import (
	"context"
	"errors"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/sqlexec"
	"solar-parcel-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCeiling is the number of repair attempts before a run gives up.
const DefaultCeiling = 3

// TimeoutMessage is the error recorded when the caller's context ends mid-run.
const TimeoutMessage = "search timed out"

// Node names one state of the machine.
type Node string

const (
	TopicFilter    Node = "topic_filter"
	Rewrite        Node = "contextual_query_understanding"
	ResolveVague   Node = "resolve_vague_conditions"
	GenerateSQL    Node = "generate_sql"
	ExecuteSQL     Node = "execute_sql"
	ValidateSQL    Node = "validate_sql"
	RepairSQL      Node = "repair_sql"
	DisplayResults Node = "display_results"
)

var labels = map[Node]string{
	TopicFilter:    "Checking topic relevance",
	Rewrite:        "Constructing contextual query",
	ResolveVague:   "Resolving vague conditions",
	GenerateSQL:    "Generating SQL query",
	ExecuteSQL:     "Executing query",
	ValidateSQL:    "Validating results",
	RepairSQL:      "Repairing SQL query",
	DisplayResults: "Finalizing results",
}

// Label is the human-readable step name shown while streaming.
func (n Node) Label() string {
	if l, ok := labels[n]; ok {
		return l
	}
	return string(n)
}

// Stage computes a partial update from the current state. A returned error ends the run.
type Stage interface {
	Run(ctx context.Context, s state.State) (state.Update, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, s state.State) (state.Update, error)

func (f StageFunc) Run(ctx context.Context, s state.State) (state.Update, error) {
	return f(ctx, s)
}

// Runner executes one SQL statement.
type Runner interface {
	Run(ctx context.Context, query string) ([]sqlexec.Row, error)
}

// Stages holds the model-backed stages. Execution is supplied separately as a Runner.
type Stages struct {
	Topic    Stage
	Rewrite  Stage
	Vague    Stage
	Generate Stage
	Validate Stage
	Repair   Stage
}

// Observer is told about each node as it starts.
type Observer func(node Node, s state.State)

type Option func(*Pipeline)

// WithCeiling sets the repair attempt limit. Values below zero are ignored.
func WithCeiling(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.ceiling = n
		}
	}
}

// WithTracer replaces the tracer used for per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = t
	}
}

type Pipeline struct {
	stages  map[Node]Stage
	ceiling int
	logger  logger.ILogger
	tracer  trace.Tracer
}

func New(stages Stages, runner Runner, log logger.ILogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages: map[Node]Stage{
			TopicFilter:  stages.Topic,
			Rewrite:      stages.Rewrite,
			ResolveVague: stages.Vague,
			GenerateSQL:  stages.Generate,
			ExecuteSQL:   executeStage{runner: runner},
			ValidateSQL:  stages.Validate,
			RepairSQL:    stages.Repair,
		},
		ceiling: DefaultCeiling,
		logger:  log,
		tracer:  otel.Tracer("parcel-agent"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives s to a terminal state. It never returns an error: stage failures and
// cancellation end the run with OutcomeFailed and the message in Error.
func (p *Pipeline) Run(ctx context.Context, s state.State, observe Observer) state.State {
	if observe == nil {
		observe = func(Node, state.State) {}
	}
	s.HistoryLen = len(s.Conversation)

	node := TopicFilter
	for node != DisplayResults {
		if ctx.Err() != nil {
			s = p.fail(s, node, TimeoutMessage)
			break
		}

		observe(node, s)
		u, err := p.step(ctx, node, s)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				msg = TimeoutMessage
			}
			s = p.fail(s, node, msg)
			break
		}
		s = state.Reduce(s, u)
		node = p.next(node, s)
	}

	observe(DisplayResults, s)
	return p.finalize(s)
}

func (p *Pipeline) step(ctx context.Context, node Node, s state.State) (state.Update, error) {
	ctx, span := p.tracer.Start(ctx, "parcel-agent/"+string(node), trace.WithAttributes(
		attribute.String("session.id", s.SessionID),
		attribute.Int("attempt", s.Attempt),
	))
	defer span.End()

	u, err := p.stages[node].Run(ctx, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return u, err
}

// next is the transition table. The only cycle is execute, validate, repair, and it is
// bounded by the ceiling.
func (p *Pipeline) next(node Node, s state.State) Node {
	switch node {
	case TopicFilter:
		if s.RelevantQueryTopic == state.TopicIrrelevant {
			return DisplayResults
		}
		return Rewrite
	case Rewrite:
		return ResolveVague
	case ResolveVague:
		if len(s.VagueConditions) > 0 {
			return DisplayResults
		}
		return GenerateSQL
	case GenerateSQL:
		return ExecuteSQL
	case ExecuteSQL:
		return ValidateSQL
	case ValidateSQL:
		if !s.HasError() {
			return DisplayResults
		}
		if s.Attempt < p.ceiling {
			return RepairSQL
		}
		p.logger.Warn("PIPELINE", "Repair ceiling reached", map[string]interface{}{
			"session_id": s.SessionID,
			"attempt":    s.Attempt,
			"error":      s.ErrorText(),
		})
		return DisplayResults
	case RepairSQL:
		return ExecuteSQL
	default:
		return DisplayResults
	}
}

func (p *Pipeline) fail(s state.State, node Node, msg string) state.State {
	p.logger.Error("PIPELINE", "Run ended early", map[string]interface{}{
		"session_id": s.SessionID,
		"stage":      string(node),
		"error":      msg,
	})
	return state.Reduce(s, state.Update{
		Error:   state.Set(state.Text(msg)),
		Outcome: state.Set(state.OutcomeFailed),
	})
}

// finalize settles the outcome and makes sure this turn left a user and an assistant entry
// in the conversation.
func (p *Pipeline) finalize(s state.State) state.State {
	var u state.Update

	outcome := s.Outcome
	if outcome == state.OutcomePending {
		switch {
		case s.RelevantQueryTopic == state.TopicIrrelevant:
			outcome = state.OutcomeOffTopic
		case len(s.VagueConditions) > 0:
			outcome = state.OutcomeNeedsClarification
		case s.HasError():
			outcome = state.OutcomeExhausted
		default:
			outcome = state.OutcomeCompleted
		}
		u.Outcome = state.Set(outcome)
	}

	if !hasUserTurn(s.TurnsThisRun()) {
		u.Conversation = append(u.Conversation, store.UserTurn(s.UserQuery))
	}
	if s.HasError() && !lastTurnIs(s.Conversation, s.ErrorText()) {
		u.Conversation = append(u.Conversation, store.AssistantTurn(s.ErrorText()))
	}

	s = state.Reduce(s, u)
	p.logger.Info("PIPELINE", "Run finished", map[string]interface{}{
		"session_id": s.SessionID,
		"outcome":    string(s.Outcome),
		"attempt":    s.Attempt,
		"ceiling":    p.ceiling,
		"rows":       len(s.Results),
	})
	return s
}

func hasUserTurn(turns []store.Turn) bool {
	for _, t := range turns {
		if t.Role == store.RoleUser {
			return true
		}
	}
	return false
}

func lastTurnIs(turns []store.Turn, content string) bool {
	if len(turns) == 0 {
		return false
	}
	last := turns[len(turns)-1]
	return last.Role == store.RoleAssistant && last.Content == content
}

type executeStage struct {
	runner Runner
}

func (e executeStage) Run(ctx context.Context, s state.State) (state.Update, error) {
	rows, err := e.runner.Run(ctx, s.SQL())
	if err != nil {
		return state.Update{
			Results: state.Set[[]sqlexec.Row](nil),
			Error:   state.Set(state.Text(err.Error())),
		}, nil
	}
	return state.Update{
		Results: state.Set(rows),
		Error:   state.Set[*string](nil),
	}, nil
}
