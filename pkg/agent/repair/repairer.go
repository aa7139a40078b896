// Package repair asks the model for a corrected query after an execution or validation failure.
package repair

import (
	"context"
	"fmt"
	"strings"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/prompt"
	"solar-parcel-be/pkg/agent/sqltext"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm"
	"solar-parcel-be/pkg/schema"
)

// Marker identifies this stage's prompt.
const Marker = "You fix a failing PostgreSQL query for a land parcel database"

type Repairer struct {
	llm    llm.LLMProvider
	schema schema.Provider
	logger logger.ILogger
}

func NewRepairer(provider llm.LLMProvider, schemaProvider schema.Provider, log logger.ILogger) *Repairer {
	return &Repairer{llm: provider, schema: schemaProvider, logger: log}
}

// Run replaces sql_query, clears the error and consumes one attempt. A schema failure only
// drops the schema from the prompt; a failed model call ends the run.
func (r *Repairer) Run(ctx context.Context, s state.State) (state.Update, error) {
	failed := s.SQL()
	if s.LastFailedSQL != nil {
		failed = *s.LastFailedSQL
	}

	schemaText, err := r.schema.Describe(ctx)
	if err != nil {
		r.logger.Warn("PIPELINE", "Schema unavailable for repair", map[string]interface{}{"error": err.Error()})
		schemaText = ""
	}

	raw, err := r.llm.Generate(ctx, r.buildPrompt(s, failed, schemaText), llm.WithTemperature(0))
	if err != nil {
		return state.Update{}, fmt.Errorf("sql repair failed: %w", err)
	}

	fixed, _ := sqltext.Extract(raw)
	r.logger.Info("PIPELINE", "SQL repaired", map[string]interface{}{
		"attempt": s.Attempt + 1,
		"problem": s.ErrorText(),
		"sql":     fixed,
	})

	return state.Update{
		SQLQuery: state.Set(state.Text(fixed)),
		Error:    state.Set[*string](nil),
		Attempt:  state.Set(s.Attempt + 1),
	}, nil
}

func (r *Repairer) buildPrompt(s state.State, failed, schemaText string) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString(Marker + ".\n")
	b.WriteString("Fix exactly the reported problem. Keep the rest of the query's structure, filters and select list unchanged.\n")
	b.WriteString("If the query returned no rows, relax or correct only the condition most likely to exclude every parcel (wrong category value, wrong case, wrong unit, wrong geometry column).\n")
	b.WriteString("</task>\n\n")

	if schemaText != "" {
		prompt.WriteSchema(&b, schemaText)
	}
	prompt.WriteSQLRules(&b)
	prompt.WriteTagged(&b, "request", s.Query())
	prompt.WriteTagged(&b, "failing_sql", failed)
	prompt.WriteTagged(&b, "problem", s.ErrorText())

	b.WriteString("Return only the corrected SQL statement, without markdown fences or commentary.")
	return b.String()
}
