package validate

import (
	"context"
	"errors"
	"testing"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm/llmtest"
	"solar-parcel-be/pkg/schema"
	"solar-parcel-be/pkg/sqlexec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parcelColumns = []string{
	"parcel_id", "geometry", "full_address", "county_name", "area_acres",
	"municipality_name", "owner_name", "total_value", "ground_mounted_capacity_kw",
}

func parcelRow(id string) sqlexec.Row {
	return sqlexec.NewRow(parcelColumns, []any{id, nil, "1 Main St", "FRANKLIN", 25.0, "GREENFIELD", "Town", 1000.0, 500.0})
}

func withRows(rows ...sqlexec.Row) state.State {
	s := state.New("s1", "parcels over 20 acres in Franklin", nil)
	s.SQLQuery = state.Text("SELECT * FROM parcels.parcel_details")
	s.Results = rows
	return s
}

func TestCheck(t *testing.T) {
	aliased := sqlexec.NewRow(
		[]string{"geom", "address", "county", "acreage", "municipality", "owner_name", "total_value", "capacity"},
		[]any{nil, "a", "b", 1.0, "c", "d", 2.0, 3.0},
	)
	noGeometry := sqlexec.NewRow(
		[]string{"full_address", "county_name", "area_acres", "municipality_name", "owner_name", "total_value", "ground_mounted_capacity_kw"},
		[]any{"a", "b", 1.0, "c", "d", 2.0, 3.0},
	)

	tests := []struct {
		name     string
		rows     []sqlexec.Row
		contains string
	}{
		{name: "nil rows", rows: nil, contains: ZeroResultsMessage},
		{name: "empty rows", rows: []sqlexec.Row{}, contains: ZeroResultsMessage},
		{name: "duplicate parcel", rows: []sqlexec.Row{parcelRow("7"), parcelRow("8"), parcelRow("7")}, contains: "DISTINCT ON"},
		{name: "missing geometry", rows: []sqlexec.Row{noGeometry}, contains: "missing required columns: geometry"},
		{name: "aliases accepted", rows: []sqlexec.Row{aliased}},
		{name: "valid", rows: []sqlexec.Row{parcelRow("1"), parcelRow("2")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.rows)
			if tt.contains == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.contains)
		})
	}
}

func TestValidator_Pass(t *testing.T) {
	fake := llmtest.New().On(Marker, `{"unmatched_features": []}`)
	v := NewValidator(fake, schema.Static("schema"), logger.NewNopLogger())

	s := withRows(parcelRow("1"))
	s.Error = state.Text("stale")

	u, err := v.Run(context.Background(), s)
	require.NoError(t, err)
	next := state.Reduce(s, u)

	assert.False(t, next.HasError())
	assert.Nil(t, next.UnmatchedConditionsWarning)
	assert.Nil(t, next.LastFailedSQL)
}

func TestValidator_ExecutionErrorKept(t *testing.T) {
	fake := llmtest.New()
	v := NewValidator(fake, schema.Static("schema"), logger.NewNopLogger())

	s := withRows()
	s.Error = state.Text(`relation "parcels.nope" does not exist`)

	u, err := v.Run(context.Background(), s)
	require.NoError(t, err)
	next := state.Reduce(s, u)

	assert.Equal(t, `relation "parcels.nope" does not exist`, next.ErrorText())
	require.NotNil(t, next.LastFailedSQL)
	assert.Equal(t, "SELECT * FROM parcels.parcel_details", *next.LastFailedSQL)
	assert.Zero(t, fake.Count(Marker))
}

func TestValidator_UnmatchedWarningWithResults(t *testing.T) {
	fake := llmtest.New().On(Marker, "```json\n{\"unmatched_features\": [\"wind turbines\"]}\n```")
	v := NewValidator(fake, schema.Static("schema"), logger.NewNopLogger())

	s := withRows(parcelRow("1"))
	next := state.Reduce(s, mustRun(t, v, s))

	assert.False(t, next.HasError())
	require.NotNil(t, next.UnmatchedConditionsWarning)
	assert.Contains(t, *next.UnmatchedConditionsWarning, "wind turbines")
}

func TestValidator_ZeroResultsWinsTieBreak(t *testing.T) {
	fake := llmtest.New().On(Marker, `{"unmatched_features": ["airports"]}`)
	v := NewValidator(fake, schema.Static("schema"), logger.NewNopLogger())

	s := withRows()
	next := state.Reduce(s, mustRun(t, v, s))

	require.True(t, next.HasError())
	assert.Equal(t, ZeroResultsMessage+"\n"+Warning([]string{"airports"}), next.ErrorText())
	require.NotNil(t, next.UnmatchedConditionsWarning)
	assert.Equal(t, Warning([]string{"airports"}), *next.UnmatchedConditionsWarning)
	require.NotNil(t, next.LastFailedSQL)
}

func TestValidator_UnmatchedFailuresDowngrade(t *testing.T) {
	tests := []struct {
		name string
		fake *llmtest.Scripted
	}{
		{name: "call error", fake: llmtest.New().Fail(Marker, errors.New("timeout"))},
		{name: "not json", fake: llmtest.New().On(Marker, "wind turbines are missing")},
		{name: "wrong shape", fake: llmtest.New().On(Marker, `{"unmatched_features": "wind"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.fake, schema.Static("schema"), logger.NewNopLogger())
			s := withRows(parcelRow("1"))
			next := state.Reduce(s, mustRun(t, v, s))

			assert.False(t, next.HasError())
			assert.Nil(t, next.UnmatchedConditionsWarning)
		})
	}
}

func mustRun(t *testing.T, v *Validator, s state.State) state.Update {
	t.Helper()
	u, err := v.Run(context.Background(), s)
	require.NoError(t, err)
	return u
}
