package state

import (
	"solar-parcel-be/pkg/sqlexec"
	"solar-parcel-be/pkg/store"
)

// Field is an optional write. The zero value leaves the state untouched.
type Field[T any] struct {
	set   bool
	value T
}

// Set returns a field that overwrites the state value with v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

func (f Field[T]) IsSet() bool {
	return f.set
}

func (f Field[T]) apply(dst *T) {
	if f.set {
		*dst = f.value
	}
}

// Update is the partial result a stage returns.
type Update struct {
	ExpandedQuery              Field[*string]
	SQLQuery                   Field[*string]
	LastFailedSQL              Field[*string]
	Results                    Field[[]sqlexec.Row]
	Error                      Field[*string]
	Attempt                    Field[int]
	RelevantQueryTopic         Field[Topic]
	VagueConditions            Field[[]VagueCondition]
	UnmatchedConditionsWarning Field[*string]
	Outcome                    Field[Outcome]

	// Conversation turns are appended, never replaced.
	Conversation []store.Turn
}

// Reduce merges u into s and returns the new state. s is not modified.
func Reduce(s State, u Update) State {
	next := s
	u.ExpandedQuery.apply(&next.ExpandedQuery)
	u.SQLQuery.apply(&next.SQLQuery)
	u.LastFailedSQL.apply(&next.LastFailedSQL)
	u.Results.apply(&next.Results)
	u.Error.apply(&next.Error)
	u.Attempt.apply(&next.Attempt)
	u.RelevantQueryTopic.apply(&next.RelevantQueryTopic)
	u.VagueConditions.apply(&next.VagueConditions)
	u.UnmatchedConditionsWarning.apply(&next.UnmatchedConditionsWarning)
	u.Outcome.apply(&next.Outcome)

	if len(u.Conversation) > 0 {
		conv := make([]store.Turn, 0, len(s.Conversation)+len(u.Conversation))
		conv = append(conv, s.Conversation...)
		next.Conversation = append(conv, u.Conversation...)
	}
	return next
}

// Text returns a pointer to s for the nullable string fields.
func Text(s string) *string {
	return &s
}

// Fail is the update for a stage that sets an error.
func Fail(msg string) Update {
	return Update{Error: Set(Text(msg))}
}
