// Package rewrite turns the latest message into a self-contained search request.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/prompt"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm"
	"solar-parcel-be/pkg/store"
)

// Marker identifies this stage's prompt.
const Marker = "You rewrite the latest message of a land parcel search conversation"

var labelRe = regexp.MustCompile(`(?i)^\s*(?:rewritten|expanded|standalone)?\s*(?:query|request)\s*:\s*`)

type Rewriter struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewRewriter(provider llm.LLMProvider, log logger.ILogger) *Rewriter {
	return &Rewriter{llm: provider, logger: log}
}

// Run produces the expanded query and records the user message and its rewrite.
func (r *Rewriter) Run(ctx context.Context, s state.State) (state.Update, error) {
	expanded := s.UserQuery

	if len(s.Conversation) > 0 {
		raw, err := r.llm.Generate(ctx, r.buildPrompt(s), llm.WithTemperature(0))
		if err != nil {
			return state.Update{}, fmt.Errorf("contextual rewrite failed: %w", err)
		}
		if cleaned := clean(raw); cleaned != "" {
			expanded = cleaned
		}
	}

	r.logger.Info("PIPELINE", "Query rewritten", map[string]interface{}{
		"query":    s.UserQuery,
		"expanded": expanded,
	})

	return state.Update{
		ExpandedQuery: state.Set(state.Text(expanded)),
		Conversation:  []store.Turn{store.UserTurn(s.UserQuery), store.AssistantTurn(expanded)},
	}, nil
}

func (r *Rewriter) buildPrompt(s state.State) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString(Marker + ".\n")
	b.WriteString("Produce one standalone request that can be understood without the conversation.\n")
	b.WriteString("</task>\n\n")

	b.WriteString("<guidelines>\n")
	b.WriteString("- Carry over every filter from earlier requests that the latest message keeps, refines or builds on.\n")
	b.WriteString("- Drop earlier filters the user replaces or removes.\n")
	b.WriteString("- If the latest message starts a new, unrelated search, return it unchanged.\n")
	b.WriteString("- Keep numbers, units and place names exactly as the user wrote them.\n")
	if s.SkipVagueCheck {
		b.WriteString("- The assistant's previous message proposed concrete interpretations for vague terms. ")
		b.WriteString("The latest message answers it: apply the interpretations the user accepts and the corrections they give.\n")
	}
	b.WriteString("</guidelines>\n\n")

	prompt.WriteConversation(&b, s.Conversation)
	prompt.WriteTagged(&b, "latest_message", s.UserQuery)

	b.WriteString("Return only the rewritten request as plain text.")
	return b.String()
}

func clean(raw string) string {
	out := strings.TrimSpace(raw)
	out = labelRe.ReplaceAllString(out, "")
	out = strings.Trim(out, "\"'` \n")
	return strings.TrimSpace(out)
}
