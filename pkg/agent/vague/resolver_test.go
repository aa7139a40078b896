package vague

import (
	"context"
	"errors"
	"testing"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm/llmtest"
	"solar-parcel-be/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nearSubstation = `{"vague_conditions": [{"original": "near a substation", "suggested_replacement": "within 1 mile of a substation", "reasoning": "no distance given"}]}`

func run(t *testing.T, fake *llmtest.Scripted, query string) state.State {
	t.Helper()
	r := NewResolver(fake, schema.Static("Table: parcels.parcel_details"), logger.NewNopLogger())
	s := state.New("s1", query, nil)
	s.ExpandedQuery = state.Text(query)
	u, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	return state.Reduce(s, u)
}

func TestResolver_Boundary(t *testing.T) {
	concrete := run(t, llmtest.New().On(Marker, `{"vague_conditions": []}`), "within 1 mile of substations")
	assert.Empty(t, concrete.VagueConditions)
	assert.Empty(t, concrete.Conversation)

	vague := run(t, llmtest.New().On(Marker, nearSubstation), "near a substation")
	require.Len(t, vague.VagueConditions, 1)
	assert.Equal(t, "near a substation", vague.VagueConditions[0].Original)
	assert.NotEmpty(t, vague.VagueConditions[0].SuggestedReplacement)

	require.Len(t, vague.Conversation, 1)
	assert.Contains(t, vague.Conversation[0].Content, `- "near a substation" → I interpreted as: within 1 mile of a substation`)
}

func TestResolver_FailuresDowngrade(t *testing.T) {
	tests := []struct {
		name string
		fake *llmtest.Scripted
	}{
		{"malformed", llmtest.New().On(Marker, "near is vague I guess")},
		{"call error", llmtest.New().Fail(Marker, errors.New("503"))},
		{"blank entries", llmtest.New().On(Marker, `{"vague_conditions": [{"original": "", "suggested_replacement": "x"}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := run(t, tt.fake, "near a substation")
			assert.NotNil(t, s.VagueConditions)
			assert.Empty(t, s.VagueConditions)
			assert.False(t, s.HasError())
		})
	}
}

func TestResolver_SkipsClarificationAnswers(t *testing.T) {
	fake := llmtest.New()
	r := NewResolver(fake, schema.Static(""), logger.NewNopLogger())
	s := state.New("s1", "yes", nil)
	s.SkipVagueCheck = true

	u, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, state.Reduce(s, u).VagueConditions)
	assert.Empty(t, fake.Calls())
}
