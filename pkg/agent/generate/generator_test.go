package generate

import (
	"context"
	"errors"
	"testing"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm/llmtest"
	"solar-parcel-be/pkg/schema"
	"solar-parcel-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSchema struct{}

func (brokenSchema) Describe(context.Context) (string, error) {
	return "", errors.New("catalog unavailable")
}

func TestGenerator_Run(t *testing.T) {
	fake := llmtest.New().On(Marker,
		"Explanation: Parcels of at least 20 acres in Franklin county.\nSQL:\n```sql\nSELECT * FROM parcels.parcel_details WHERE area_acres >= 20 AND county_name = 'FRANKLIN'\n```")
	g := NewGenerator(fake, schema.Static("Table: parcels.parcel_details"), logger.NewNopLogger(), 0.2)

	s := state.New("s1", "Find parcels over 20 acres in Franklin county", nil)
	s.ExpandedQuery = state.Text("Find parcels over 20 acres in Franklin county")
	s.Error = state.Text("stale")

	u, err := g.Run(context.Background(), s)
	require.NoError(t, err)
	next := state.Reduce(s, u)

	assert.Equal(t, "SELECT * FROM parcels.parcel_details WHERE area_acres >= 20 AND county_name = 'FRANKLIN'", next.SQL())
	assert.False(t, next.HasError())
	assert.Equal(t, []store.Turn{store.AssistantTurn("Parcels of at least 20 acres in Franklin county.")}, next.Conversation)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Messages[0].Content, "Table: parcels.parcel_details")
	assert.Contains(t, calls[0].Messages[0].Content, "geometry_26986")
	assert.Equal(t, "Find parcels over 20 acres in Franklin county", calls[0].Messages[1].Content)
}

func TestGenerator_NonSQLOutputStillSetsQuery(t *testing.T) {
	g := NewGenerator(llmtest.New().On(Marker, "I cannot help with that"), schema.Static("x"), logger.NewNopLogger(), 0)

	u, err := g.Run(context.Background(), state.New("s1", "q", nil))
	require.NoError(t, err)
	next := state.Reduce(state.State{}, u)
	require.NotNil(t, next.SQLQuery)
	assert.Equal(t, "I cannot help with that", next.SQL())
}

func TestGenerator_Failures(t *testing.T) {
	_, err := NewGenerator(llmtest.New(), brokenSchema{}, logger.NewNopLogger(), 0).
		Run(context.Background(), state.New("s1", "q", nil))
	assert.ErrorContains(t, err, "catalog unavailable")

	_, err = NewGenerator(llmtest.New().Fail(Marker, errors.New("quota")), schema.Static("x"), logger.NewNopLogger(), 0).
		Run(context.Background(), state.New("s1", "q", nil))
	assert.ErrorContains(t, err, "quota")
}
