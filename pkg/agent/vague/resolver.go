// Package vague flags underspecified search conditions so the user can confirm a concrete
// reading before any SQL is written.
package vague

import (
	"context"
	"fmt"
	"strings"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/llmjson"
	"solar-parcel-be/pkg/agent/prompt"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm"
	"solar-parcel-be/pkg/schema"
	"solar-parcel-be/pkg/store"
)

// Marker identifies this stage's prompt.
const Marker = "You find vague conditions in a land parcel search request"

type detection struct {
	VagueConditions []state.VagueCondition `json:"vague_conditions"`
}

// Detection is advisory. Output that cannot be read means nothing is flagged.
var malformedDetection = llmjson.Policy[detection]{
	Name:  "malformed vague detection treated as no vague conditions",
	Value: detection{},
}

type Resolver struct {
	llm    llm.LLMProvider
	schema schema.Provider
	logger logger.ILogger
}

func NewResolver(provider llm.LLMProvider, schemaProvider schema.Provider, log logger.ILogger) *Resolver {
	return &Resolver{llm: provider, schema: schemaProvider, logger: log}
}

// Run never fails the turn. Model or schema errors downgrade to "no vague conditions".
func (r *Resolver) Run(ctx context.Context, s state.State) (state.Update, error) {
	if s.SkipVagueCheck {
		return state.Update{VagueConditions: state.Set([]state.VagueCondition{})}, nil
	}

	schemaText, err := r.schema.Describe(ctx)
	if err != nil {
		r.logger.Warn("PIPELINE", "Schema unavailable for vague check", map[string]interface{}{"error": err.Error()})
		schemaText = ""
	}

	raw, err := r.llm.Generate(ctx, r.buildPrompt(s.Query(), schemaText), llm.WithTemperature(0), llm.WithJSON())
	if err != nil {
		r.logger.Warn("PIPELINE", "Vague check call failed, continuing", map[string]interface{}{"error": err.Error()})
		return state.Update{VagueConditions: state.Set([]state.VagueCondition{})}, nil
	}

	d, perr := malformedDetection.Resolve(raw)
	if perr != nil {
		r.logger.Warn("PIPELINE", "Vague check output unreadable", map[string]interface{}{
			"policy": malformedDetection.Name,
			"error":  perr.Error(),
		})
	}

	conditions := usable(d.VagueConditions)
	if len(conditions) == 0 {
		return state.Update{VagueConditions: state.Set([]state.VagueCondition{})}, nil
	}

	r.logger.Info("PIPELINE", "Vague conditions found", map[string]interface{}{"count": len(conditions)})
	return state.Update{
		VagueConditions: state.Set(conditions),
		Conversation:    []store.Turn{store.AssistantTurn(ClarificationMessage(conditions))},
	}, nil
}

// ClarificationMessage lists each vague phrase with its proposed reading.
func ClarificationMessage(conditions []state.VagueCondition) string {
	var b strings.Builder
	b.WriteString("I noticed a few vague parts of your query:\n")
	for _, c := range conditions {
		fmt.Fprintf(&b, "- \"%s\" → I interpreted as: %s\n", c.Original, c.SuggestedReplacement)
	}
	b.WriteString("\nIs this what you had in mind? You can confirm or clarify any of these.")
	return b.String()
}

func usable(in []state.VagueCondition) []state.VagueCondition {
	out := make([]state.VagueCondition, 0, len(in))
	for _, c := range in {
		c.Original = strings.TrimSpace(c.Original)
		c.SuggestedReplacement = strings.TrimSpace(c.SuggestedReplacement)
		if c.Original == "" || c.SuggestedReplacement == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Resolver) buildPrompt(query, schemaText string) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString(Marker + ".\n")
	b.WriteString("A condition is vague when it has no concrete number, unit or named category the database can filter on.\n")
	b.WriteString("</task>\n\n")

	b.WriteString("<vague_examples>\n")
	b.WriteString("- \"near a substation\" (no distance)\n")
	b.WriteString("- \"large parcels\", \"cheap land\" (no threshold)\n")
	b.WriteString("- \"in western Massachusetts\" (region with no county or town list)\n")
	b.WriteString("</vague_examples>\n\n")

	b.WriteString("<concrete_examples>\n")
	b.WriteString("- \"within 1 mile of substations\" (distance and feature are both given)\n")
	b.WriteString("- \"over 20 acres\", \"in Franklin county\", \"owned by the town\"\n")
	b.WriteString("- any feature name that matches a table or category listed in the schema comments\n")
	b.WriteString("</concrete_examples>\n\n")

	b.WriteString("<rules>\n")
	b.WriteString("- Only flag phrases that are genuinely underspecified. When in doubt, do not flag.\n")
	b.WriteString("- A condition carrying a number with a unit is never vague, even when combined with other conditions.\n")
	b.WriteString("- For each vague phrase propose one concrete replacement (e.g. \"within 1 mile\") and a short reason.\n")
	b.WriteString("</rules>\n\n")

	if schemaText != "" {
		prompt.WriteSchema(&b, schemaText)
	}
	prompt.WriteTagged(&b, "request", query)

	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"vague_conditions": [{"original": "...", "suggested_replacement": "...", "reasoning": "..."}]}`)
	b.WriteString("\nUse an empty list when nothing is vague.")
	return b.String()
}
