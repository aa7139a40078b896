// Package validate decides whether an executed query's rows can be shown, and flags requested
// features the database cannot answer for.
package validate

import (
	"context"
	"fmt"
	"strings"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/llmjson"
	"solar-parcel-be/pkg/agent/prompt"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm"
	"solar-parcel-be/pkg/parcel"
	"solar-parcel-be/pkg/schema"
	"solar-parcel-be/pkg/sqlexec"
)

// ZeroResultsMessage is the validation error for an empty result set.
const ZeroResultsMessage = "Query executed successfully but returned 0 results."

// Marker identifies the unmatched-feature prompt.
const Marker = "You check whether a land parcel query asks for features the database does not have"

type unmatchedCheck struct {
	UnmatchedFeatures []string `json:"unmatched_features"`
}

var malformedCheck = llmjson.Policy[unmatchedCheck]{
	Name:  "malformed unmatched-feature check treated as no unmatched features",
	Value: unmatchedCheck{},
}

type Validator struct {
	llm    llm.LLMProvider
	schema schema.Provider
	logger logger.ILogger
}

func NewValidator(provider llm.LLMProvider, schemaProvider schema.Provider, log logger.ILogger) *Validator {
	return &Validator{llm: provider, schema: schemaProvider, logger: log}
}

// Run fails the turn's current SQL when execution failed, no rows came back, a parcel repeats,
// or display columns are missing. Failure records the SQL for the repair prompt.
func (v *Validator) Run(ctx context.Context, s state.State) (state.Update, error) {
	sql := s.SQL()

	if s.HasError() {
		v.logger.Info("PIPELINE", "Execution failed, routing to repair", map[string]interface{}{
			"attempt": s.Attempt,
			"error":   s.ErrorText(),
		})
		return state.Update{LastFailedSQL: state.Set(state.Text(sql))}, nil
	}

	warning := v.unmatchedWarning(ctx, s)
	u := state.Update{UnmatchedConditionsWarning: state.Set(warning)}

	problem := Check(s.Results)
	if problem == ZeroResultsMessage && warning != nil {
		problem += "\n" + *warning
	}
	if problem == "" {
		u.Error = state.Set[*string](nil)
		return u, nil
	}

	v.logger.Info("PIPELINE", "Validation failed", map[string]interface{}{
		"attempt": s.Attempt,
		"problem": problem,
	})
	u.Error = state.Set(state.Text(problem))
	u.LastFailedSQL = state.Set(state.Text(sql))
	return u, nil
}

// Check returns a description of what is wrong with rows, or "" when they are displayable.
func Check(rows []sqlexec.Row) string {
	if len(rows) == 0 {
		return ZeroResultsMessage
	}

	if dups := duplicateParcels(rows); len(dups) > 0 {
		return fmt.Sprintf("Query returned the same parcel more than once (parcel_id %s). "+
			"Use SELECT DISTINCT ON (p.parcel_id) so each parcel appears once.", strings.Join(dups, ", "))
	}

	if missing := parcel.Missing(rows[0]); len(missing) > 0 {
		return fmt.Sprintf("Query result is missing required columns: %s. "+
			"Select them from parcels.parcel_details.", strings.Join(missing, ", "))
	}
	return ""
}

func duplicateParcels(rows []sqlexec.Row) []string {
	seen := make(map[string]int, len(rows))
	var dups []string
	for _, row := range rows {
		id, ok := row.Get("parcel_id")
		if !ok || id == nil {
			continue
		}
		key := fmt.Sprint(id)
		seen[key]++
		if seen[key] == 2 {
			dups = append(dups, key)
		}
		if len(dups) == 5 {
			break
		}
	}
	return dups
}

// unmatchedWarning never fails. Model and schema errors mean no warning.
func (v *Validator) unmatchedWarning(ctx context.Context, s state.State) *string {
	schemaText, err := v.schema.Describe(ctx)
	if err != nil {
		v.logger.Warn("PIPELINE", "Schema unavailable for unmatched-feature check", map[string]interface{}{"error": err.Error()})
		return nil
	}

	raw, err := v.llm.Generate(ctx, v.buildPrompt(s, schemaText), llm.WithTemperature(0), llm.WithJSON())
	if err != nil {
		v.logger.Warn("PIPELINE", "Unmatched-feature check failed, continuing", map[string]interface{}{"error": err.Error()})
		return nil
	}

	check, perr := malformedCheck.Resolve(raw)
	if perr != nil {
		v.logger.Warn("PIPELINE", "Unmatched-feature output unreadable", map[string]interface{}{
			"policy": malformedCheck.Name,
			"error":  perr.Error(),
		})
	}

	var features []string
	for _, f := range check.UnmatchedFeatures {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return nil
	}
	return state.Text(Warning(features))
}

// Warning is the user-facing note for features with no database equivalent.
func Warning(features []string) string {
	return fmt.Sprintf("Note: the database has no data for %s, so that condition could not be applied.",
		strings.Join(features, ", "))
}

func (v *Validator) buildPrompt(s state.State, schemaText string) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString(Marker + ".\n")
	b.WriteString("List every real-world feature type the user filters on (e.g. wind turbines, schools, airports) that has no matching table, column or category value in the schema.\n")
	b.WriteString("</task>\n\n")

	b.WriteString("<rules>\n")
	b.WriteString("- Parcel attributes (size, county, town, owner, value, capacity) always match.\n")
	b.WriteString("- Use the column comments to decide whether a category exists; synonyms count as matches (\"power lines\" matches transmission lines).\n")
	b.WriteString("- Only report features, not vague wording or units.\n")
	b.WriteString("</rules>\n\n")

	prompt.WriteSchema(&b, schemaText)
	prompt.WriteTagged(&b, "original_request", s.UserQuery)
	prompt.WriteTagged(&b, "expanded_request", s.Query())
	prompt.WriteTagged(&b, "sql", s.SQL())

	b.WriteString("Respond with JSON only: {\"unmatched_features\": [\"...\"]}\n")
	b.WriteString("Use an empty list when everything requested exists in the schema.")
	return b.String()
}
