// Package topic screens out requests that are not land-parcel searches.
package topic

import (
	"context"
	"fmt"
	"strings"

	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/pkg/agent/llmjson"
	"solar-parcel-be/pkg/agent/prompt"
	"solar-parcel-be/pkg/agent/state"
	"solar-parcel-be/pkg/llm"
)

// Marker identifies this stage's prompt.
const Marker = "You screen requests sent to a land parcel search assistant"

// RefusalMessage is returned to the user for off-topic requests.
const RefusalMessage = "I can only assist with land parcel search and filtering for solar site selection."

// DefaultContextTurns is how many recent turns the classifier sees.
const DefaultContextTurns = 6

// maxVerdictTokens caps the classifier reply. A verdict is a one-line JSON object.
const maxVerdictTokens = 256

type verdict struct {
	SolarQuery *bool  `json:"solar_query"`
	Reason     string `json:"reason"`
}

// Unparseable classifier output lets the request through. Later stages only ever run
// read-only SQL, and refusing an in-domain question costs the user more than one wasted query.
var malformedVerdict = llmjson.Policy[verdict]{
	Name:  "malformed topic verdict treated as relevant",
	Value: verdict{SolarQuery: boolPtr(true)},
}

type Filter struct {
	llm          llm.LLMProvider
	logger       logger.ILogger
	contextTurns int
}

func NewFilter(provider llm.LLMProvider, log logger.ILogger, contextTurns int) *Filter {
	if contextTurns <= 0 {
		contextTurns = DefaultContextTurns
	}
	return &Filter{llm: provider, logger: log, contextTurns: contextTurns}
}

// Run classifies the latest request. A failed model call is returned as an error and ends
// the run.
func (f *Filter) Run(ctx context.Context, s state.State) (state.Update, error) {
	raw, err := f.llm.Generate(ctx, f.buildPrompt(s), llm.WithTemperature(0), llm.WithJSON(), llm.WithMaxTokens(maxVerdictTokens))
	if err != nil {
		return state.Update{}, fmt.Errorf("topic classifier call failed: %w", err)
	}

	v, perr := malformedVerdict.Resolve(raw)
	if perr != nil || v.SolarQuery == nil {
		f.logger.Warn("PIPELINE", "Topic verdict unreadable, applying fallback", map[string]interface{}{
			"policy": malformedVerdict.Name,
			"raw":    raw,
		})
		v = malformedVerdict.Value
	}

	if *v.SolarQuery {
		return state.Update{RelevantQueryTopic: state.Set(state.TopicRelevant)}, nil
	}

	f.logger.Info("PIPELINE", "Request rejected as off-topic", map[string]interface{}{
		"query":  s.UserQuery,
		"reason": v.Reason,
	})
	return state.Update{
		RelevantQueryTopic: state.Set(state.TopicIrrelevant),
		Error:              state.Set(state.Text(RefusalMessage)),
	}, nil
}

func (f *Filter) buildPrompt(s state.State) string {
	var b strings.Builder

	b.WriteString("<task>\n")
	b.WriteString(Marker + " that helps people find land for solar installations.\n")
	b.WriteString("Decide whether the latest request is something that assistant should handle.\n")
	b.WriteString("</task>\n\n")

	b.WriteString("<relevant>\n")
	b.WriteString("- Searching or filtering land parcels by size, location, county, town, owner, value or solar capacity\n")
	b.WriteString("- Proximity to infrastructure or geographic features (substations, power lines, roads, wetlands, water)\n")
	b.WriteString("- Solar site selection and suitability questions about parcels\n")
	b.WriteString("- Follow-ups that refine, narrow, widen or sort a previous parcel search (\"only in Franklin\", \"now over 50 acres\")\n")
	b.WriteString("- Confirmations or corrections answering the assistant's previous question (\"yes\", \"use 2 miles instead\")\n")
	b.WriteString("</relevant>\n\n")

	b.WriteString("<not_relevant>\n")
	b.WriteString("- Weather, news, sports, general knowledge, jokes, coding help, personal advice\n")
	b.WriteString("- Requests to change, delete or insert data\n")
	b.WriteString("- Anything unrelated to finding or evaluating land parcels\n")
	b.WriteString("</not_relevant>\n\n")

	prompt.WriteConversation(&b, s.RecentTurns(f.contextTurns))
	prompt.WriteTagged(&b, "latest_request", s.UserQuery)

	b.WriteString("Respond with JSON only: {\"solar_query\": true|false, \"reason\": \"<short reason>\"}")
	return b.String()
}

func boolPtr(v bool) *bool {
	return &v
}
