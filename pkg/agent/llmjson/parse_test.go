package llmjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	SolarQuery *bool `json:"solar_query"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"bare", `{"solar_query": true}`, true},
		{"fenced", "```json\n{\"solar_query\": false}\n```", false},
		{"prose around", "Sure! Here it is: {\"solar_query\": true} Hope that helps.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[verdict](tt.raw)
			require.NoError(t, err)
			require.NotNil(t, got.SolarQuery)
			assert.Equal(t, tt.want, *got.SolarQuery)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode[verdict]("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = Decode[verdict]("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = Decode[verdict](`{"solar_query": "yes"`)
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = Decode[verdict](`{"solar_query": "yes"}`)
	assert.Error(t, err)
}

func TestPolicy_Resolve(t *testing.T) {
	p := Policy[[]string]{Name: "empty list", Value: []string{}}

	got, err := p.Resolve(`garbage`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty list")
	assert.Equal(t, []string{}, got)
}
