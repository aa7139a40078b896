// Package parcel turns a finished pipeline state into the response shown to the user.
package parcel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/geometry"
	"solar-parcel-be/pkg/sqlexec"
	"solar-parcel-be/pkg/store"

	"github.com/paulmach/orb/geojson"
)

// DefaultExplanation is used when the conversation holds nothing better.
const DefaultExplanation = "Found parcel matching your criteria"

type Parcel struct {
	Address      string            `json:"address"`
	County       string            `json:"county"`
	Acreage      float64           `json:"acreage"`
	Municipality string            `json:"municipality"`
	OwnerName    string            `json:"owner_name"`
	TotalValue   float64           `json:"total_value"`
	Capacity     float64           `json:"capacity"`
	Explanation  string            `json:"explanation"`
	Geometry     *geojson.Geometry `json:"geometry"`
}

type Result struct {
	Parcels   []Parcel      `json:"parcels"`
	Summary   string        `json:"summary"`
	SQL       *string       `json:"sql"`
	SessionID string        `json:"session_id"`
	Outcome   state.Outcome `json:"outcome"`
}

// Assemble builds the response for a terminal state. Rows without a usable geometry are dropped.
func Assemble(s state.State) Result {
	res := Result{
		Parcels:   []Parcel{},
		SQL:       s.SQLQuery,
		SessionID: s.SessionID,
		Outcome:   s.Outcome,
	}

	switch s.Outcome {
	case state.OutcomeOffTopic, state.OutcomeFailed:
		res.Summary = s.ErrorText()
		return res
	case state.OutcomeNeedsClarification:
		res.Summary = lastAssistant(s.Conversation)
		return res
	}

	explanation := Explanation(s)
	rowExplanation := explanation
	if rowExplanation == "" {
		rowExplanation = DefaultExplanation
	}

	// Rows are only trusted when the last validation passed.
	if !s.HasError() {
		for _, row := range s.Results {
			if p, ok := fromRow(row, rowExplanation); ok {
				res.Parcels = append(res.Parcels, p)
			}
		}
	}

	lines := []string{countLine(len(res.Parcels))}
	if explanation != "" {
		lines = append(lines, explanation)
	}
	if w := s.UnmatchedConditionsWarning; w != nil && *w != "" && !strings.Contains(explanation, *w) {
		lines = append(lines, *w)
	}
	res.Summary = strings.Join(lines, "\n")
	return res
}

func countLine(n int) string {
	switch n {
	case 0:
		return "No parcels found matching your criteria."
	case 1:
		return "Found 1 parcel matching your criteria."
	default:
		return fmt.Sprintf("Found %d parcels matching your criteria.", n)
	}
}

// Explanation returns the newest assistant turn of this run that is not an echo of the
// user's request. Earlier turns never explain the current results.
func Explanation(s state.State) string {
	echoes := []string{strings.TrimSpace(s.UserQuery)}
	if s.ExpandedQuery != nil {
		echoes = append(echoes, strings.TrimSpace(*s.ExpandedQuery))
	}

	turns := s.TurnsThisRun()
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role != store.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(t.Content)
		if content == "" || isEcho(content, echoes) {
			continue
		}
		return content
	}
	return ""
}

func isEcho(content string, echoes []string) bool {
	for _, e := range echoes {
		if e != "" && strings.HasPrefix(content, e) {
			return true
		}
	}
	return false
}

func lastAssistant(turns []store.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == store.RoleAssistant {
			return turns[i].Content
		}
	}
	return ""
}

func fromRow(row sqlexec.Row, explanation string) (Parcel, bool) {
	raw, _ := row.Get(GeometryField.Aliases...)
	geom, err := geometry.Normalize(raw)
	if err != nil {
		return Parcel{}, false
	}

	return Parcel{
		Address:      text(row, AddressField),
		County:       text(row, CountyField),
		Acreage:      number(row, AcreageField),
		Municipality: text(row, MunicipalityField),
		OwnerName:    text(row, OwnerField),
		TotalValue:   number(row, TotalValueField),
		Capacity:     number(row, CapacityField),
		Explanation:  explanation,
		Geometry:     geom,
	}, true
}

func text(row sqlexec.Row, f Field) string {
	v, _ := row.Get(f.Aliases...)
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// number coerces numeric-looking values to float64. Anything else, NaN and infinities are 0.
func number(row sqlexec.Row, f Field) float64 {
	v, _ := row.Get(f.Aliases...)
	n := toFloat(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case string:
		return parseFloat(t)
	case []byte:
		return parseFloat(string(t))
	default:
		return 0
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
