package llm

import (
	"context"
	"time"

	"solar-parcel-be/internal/pkg/logger"
)

// loggingProvider records every prompt and response to a dedicated log.
type loggingProvider struct {
	next   LLMProvider
	logger logger.ILogger
}

// WithLogging wraps p so each call is written to log under the LLM module.
func WithLogging(p LLMProvider, log logger.ILogger) LLMProvider {
	return &loggingProvider{next: p, logger: log}
}

func (p *loggingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	start := time.Now()
	out, err := p.next.Chat(ctx, history, options...)
	p.record(history, out, err, time.Since(start))
	return out, err
}

func (p *loggingProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	start := time.Now()
	out, err := p.next.Generate(ctx, prompt, options...)
	p.record([]Message{{Role: RoleUser, Content: prompt}}, out, err, time.Since(start))
	return out, err
}

func (p *loggingProvider) record(in []Message, out string, err error, took time.Duration) {
	details := map[string]interface{}{
		"messages":    in,
		"response":    out,
		"duration_ms": took.Milliseconds(),
	}
	if err != nil {
		details["error"] = err.Error()
		p.logger.Error("LLM", "Call failed", details)
		return
	}
	p.logger.Debug("LLM", "Call completed", details)
}
