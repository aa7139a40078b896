// Package generate writes the SQL for an expanded parcel search request.
package generate

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
	"solar-parcel-be/pkg/store"
)

// Marker identifies this stage's prompt.
const Marker = "You write PostgreSQL/PostGIS queries for a land parcel database"

type Generator struct {
	llm         llm.LLMProvider
	schema      schema.Provider
	logger      logger.ILogger
	temperature float64
}

func NewGenerator(provider llm.LLMProvider, schemaProvider schema.Provider, log logger.ILogger, temperature float64) *Generator {
	return &Generator{llm: provider, schema: schemaProvider, logger: log, temperature: temperature}
}

// Run sets sql_query and records the model's explanation as an assistant turn. Output that
// is not SQL is not detected here; it fails at execution and goes through repair.
func (g *Generator) Run(ctx context.Context, s state.State) (state.Update, error) {
	schemaText, err := g.schema.Describe(ctx)
	if err != nil {
		return state.Update{}, fmt.Errorf("schema unavailable: %w", err)
	}

	raw, err := g.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: g.systemPrompt(schemaText)},
		{Role: llm.RoleUser, Content: s.Query()},
	}, llm.WithTemperature(g.temperature))
	if err != nil {
		return state.Update{}, fmt.Errorf("sql generation failed: %w", err)
	}

	sql, explanation := sqltext.Extract(raw)
	g.logger.Info("PIPELINE", "SQL generated", map[string]interface{}{
		"sql":         sql,
		"explanation": explanation,
	})

	u := state.Update{
		SQLQuery: state.Set(state.Text(sql)),
		Error:    state.Set[*string](nil),
	}
	if explanation != "" {
		u.Conversation = []store.Turn{store.AssistantTurn(explanation)}
	}
	return u, nil
}

func (g *Generator) systemPrompt(schemaText string) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString(Marker + ".\n")
	b.WriteString("Translate the user's request into one query that returns the matching parcels.\n")
	b.WriteString("</task>\n\n")

	prompt.WriteSchema(&b, schemaText)
	prompt.WriteSQLRules(&b)
	prompt.WriteOutputFormat(&b)
	return b.String()
}
