package topic

import (
	"context"
	"errors"
	"testing"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm/llmtest"
	"solar-parcel-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Run(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantTopic state.Topic
		wantError bool
	}{
		{"relevant", `{"solar_query": true, "reason": "parcel search"}`, state.TopicRelevant, false},
		{"off topic", `{"solar_query": false, "reason": "weather"}`, state.TopicIrrelevant, true},
		{"malformed falls back to relevant", `I think this is fine`, state.TopicRelevant, false},
		{"missing key falls back to relevant", `{"reason": "?"}`, state.TopicRelevant, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := llmtest.New().On(Marker, tt.response)
			f := NewFilter(fake, logger.NewNopLogger(), 0)

			u, err := f.Run(context.Background(), state.New("s1", "What is the weather in Boston?", nil))
			require.NoError(t, err)

			next := state.Reduce(state.New("s1", "q", nil), u)
			assert.Equal(t, tt.wantTopic, next.RelevantQueryTopic)
			assert.Equal(t, tt.wantError, next.HasError())
			if tt.wantError {
				assert.Equal(t, RefusalMessage, next.ErrorText())
			}
		})
	}
}

func TestFilter_RequestsShortJSONReply(t *testing.T) {
	fake := llmtest.New().On(Marker, `{"solar_query": true}`)
	f := NewFilter(fake, logger.NewNopLogger(), 0)

	_, err := f.Run(context.Background(), state.New("s1", "parcels in Franklin", nil))
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Options.JSON)
	assert.Equal(t, maxVerdictTokens, calls[0].Options.MaxTokens)
	assert.Zero(t, calls[0].Options.Temperature)
}

func TestFilter_CallFailureIsFatal(t *testing.T) {
	fake := llmtest.New().Fail(Marker, errors.New("connection refused"))
	f := NewFilter(fake, logger.NewNopLogger(), 0)

	_, err := f.Run(context.Background(), state.New("s1", "parcels in Franklin", nil))
	assert.ErrorContains(t, err, "connection refused")
}

func TestFilter_PromptUsesRecentTurns(t *testing.T) {
	var history []store.Turn
	for i := 0; i < 10; i++ {
		history = append(history, store.UserTurn("old"), store.AssistantTurn("reply"))
	}
	history = append(history, store.UserTurn("parcels over 20 acres"))

	f := NewFilter(nil, logger.NewNopLogger(), 2)
	p := f.buildPrompt(state.New("s1", "only in Franklin", history))

	assert.Contains(t, p, "user: parcels over 20 acres")
	assert.Contains(t, p, "assistant: reply")
	assert.NotContains(t, p, "user: old", "only the last two turns are included")
	assert.Contains(t, p, "only in Franklin")
}
