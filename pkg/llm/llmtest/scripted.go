// Package llmtest provides a scripted llm.LLMProvider for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"solar-parcel-be/pkg/llm"
)

type rule struct {
	marker    string
	responses []string
	err       error
	next      int
}

// Call is one recorded request.
type Call struct {
	Marker   string
	Messages []llm.Message
	Options  llm.Options
}

// Scripted answers each call with the responses registered for the first marker found in
// the prompt. The last response of a rule repeats once the others are used up.
type Scripted struct {
	mu    sync.Mutex
	rules []*rule
	calls []Call
}

var _ llm.LLMProvider = &Scripted{}

func New() *Scripted {
	return &Scripted{}
}

// On registers responses for prompts containing marker.
func (s *Scripted) On(marker string, responses ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, responses: responses})
	return s
}

// Fail makes prompts containing marker return err.
func (s *Scripted) Fail(marker string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, err: err})
	return s
}

// Count returns how many calls matched marker.
func (s *Scripted) Count(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Marker == marker {
			n++
		}
	}
	return n
}

// Calls returns a copy of every recorded call.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Scripted) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var prompt strings.Builder
	for _, m := range history {
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}
	text := prompt.String()
	options := llm.Apply(llm.Options{}, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rules {
		if !strings.Contains(text, r.marker) {
			continue
		}
		s.calls = append(s.calls, Call{Marker: r.marker, Messages: append([]llm.Message(nil), history...), Options: options})
		if r.err != nil {
			return "", r.err
		}
		if len(r.responses) == 0 {
			return "", nil
		}
		out := r.responses[r.next]
		if r.next < len(r.responses)-1 {
			r.next++
		}
		return out, nil
	}

	s.calls = append(s.calls, Call{Messages: history, Options: options})
	return "", fmt.Errorf("llmtest: nothing scripted for prompt %q", truncate(text, 80))
}

func (s *Scripted) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
