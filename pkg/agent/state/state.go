// Package state holds the per-turn pipeline state and the reducer that merges stage updates.
package state

import (
	"solar-parcel-be/pkg/sqlexec"
	"solar-parcel-be/pkg/store"
)

// Topic is the tri-state result of the topic filter.
type Topic int

const (
	TopicUnknown Topic = iota
	TopicRelevant
	TopicIrrelevant
)

func (t Topic) String() string {
	switch t {
	case TopicRelevant:
		return "relevant"
	case TopicIrrelevant:
		return "irrelevant"
	default:
		return "unknown"
	}
}

// Outcome says how a run ended.
type Outcome string

const (
	OutcomePending            Outcome = ""
	OutcomeCompleted          Outcome = "completed"
	OutcomeOffTopic           Outcome = "off_topic"
	OutcomeNeedsClarification Outcome = "needs_clarification"
	OutcomeExhausted          Outcome = "exhausted"
	OutcomeFailed             Outcome = "failed"
)

// VagueCondition is an underspecified phrase with a proposed concrete reading.
type VagueCondition struct {
	Original             string `json:"original"`
	SuggestedReplacement string `json:"suggested_replacement"`
	Reasoning            string `json:"reasoning"`
}

// State is threaded through every stage of one run.
type State struct {
	SessionID string
	UserQuery string

	ExpandedQuery *string
	SQLQuery      *string
	LastFailedSQL *string

	// Results is nil until an execution succeeds.
	Results []sqlexec.Row
	Error   *string
	Attempt int

	RelevantQueryTopic         Topic
	VagueConditions            []VagueCondition
	UnmatchedConditionsWarning *string

	// Conversation is append-only. Stages add turns through Update.Conversation.
	Conversation []store.Turn
	// HistoryLen is how many Conversation turns were loaded before this run started.
	HistoryLen int

	// SkipVagueCheck is set when this turn answers an earlier clarification request.
	SkipVagueCheck bool

	Outcome Outcome
}

// New starts a run for query on top of the stored conversation.
func New(sessionID, query string, history []store.Turn) State {
	return State{
		SessionID:    sessionID,
		UserQuery:    query,
		Conversation: append([]store.Turn(nil), history...),
		HistoryLen:   len(history),
	}
}

// HasError reports whether the last execution is not to be trusted.
func (s State) HasError() bool {
	return s.Error != nil
}

func (s State) ErrorText() string {
	if s.Error == nil {
		return ""
	}
	return *s.Error
}

func (s State) SQL() string {
	if s.SQLQuery == nil {
		return ""
	}
	return *s.SQLQuery
}

// Query returns the expanded query when the rewrite has run, else the raw input.
func (s State) Query() string {
	if s.ExpandedQuery != nil && *s.ExpandedQuery != "" {
		return *s.ExpandedQuery
	}
	return s.UserQuery
}

// TurnsThisRun returns the turns appended since the run started.
func (s State) TurnsThisRun() []store.Turn {
	if s.HistoryLen < 0 || s.HistoryLen > len(s.Conversation) {
		return s.Conversation
	}
	return s.Conversation[s.HistoryLen:]
}

// RecentTurns returns up to n turns, newest last.
func (s State) RecentTurns(n int) []store.Turn {
	if n <= 0 || len(s.Conversation) <= n {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}
