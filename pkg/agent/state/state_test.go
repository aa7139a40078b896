package state

import (
	"testing"

	"solar-parcel-be/pkg/sqlexec"
	"solar-parcel-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_OverwritesOnlySetFields(t *testing.T) {
	s := New("s1", "parcels over 20 acres", nil)
	s.Attempt = 2
	s.SQLQuery = Text("SELECT 1")

	next := Reduce(s, Update{
		Error:   Set(Text("boom")),
		Outcome: Set(OutcomeFailed),
	})

	assert.Equal(t, "boom", next.ErrorText())
	assert.Equal(t, OutcomeFailed, next.Outcome)
	assert.Equal(t, 2, next.Attempt)
	assert.Equal(t, "SELECT 1", next.SQL())
	assert.Nil(t, s.Error, "input state is untouched")
}

func TestReduce_CanClearNullableFields(t *testing.T) {
	s := New("s1", "q", nil)
	s.Error = Text("zero rows")

	next := Reduce(s, Update{Error: Set[*string](nil), Attempt: Set(1)})
	assert.False(t, next.HasError())
	assert.Equal(t, 1, next.Attempt)
}

func TestReduce_AppendsConversation(t *testing.T) {
	history := []store.Turn{store.UserTurn("q0"), store.AssistantTurn("a0")}
	s := New("s1", "q1", history)

	a := Reduce(s, Update{Conversation: []store.Turn{store.UserTurn("q1")}})
	b := Reduce(a, Update{Conversation: []store.Turn{store.AssistantTurn("a1")}})

	require.Len(t, b.Conversation, 4)
	assert.Equal(t, "q0", b.Conversation[0].Content)
	assert.Equal(t, "a1", b.Conversation[3].Content)
	assert.Len(t, a.Conversation, 3)
	assert.Len(t, history, 2)
}

func TestReduce_ResultsNilVersusEmpty(t *testing.T) {
	s := New("s1", "q", nil)
	assert.Nil(t, s.Results)

	empty := Reduce(s, Update{Results: Set([]sqlexec.Row{})})
	assert.NotNil(t, empty.Results)
	assert.Empty(t, empty.Results)

	cleared := Reduce(empty, Update{Results: Set[[]sqlexec.Row](nil)})
	assert.Nil(t, cleared.Results)
}

func TestState_Helpers(t *testing.T) {
	s := New("s1", "raw", []store.Turn{
		store.UserTurn("1"), store.AssistantTurn("2"), store.UserTurn("3"),
	})
	assert.Equal(t, "raw", s.Query())
	assert.Equal(t, "", s.SQL())
	assert.Len(t, s.RecentTurns(2), 2)
	assert.Equal(t, "3", s.RecentTurns(2)[1].Content)
	assert.Len(t, s.RecentTurns(10), 3)

	s.ExpandedQuery = Text("expanded")
	assert.Equal(t, "expanded", s.Query())
	assert.Equal(t, "unknown", TopicUnknown.String())
}
