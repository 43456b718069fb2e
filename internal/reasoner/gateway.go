// Package reasoner selects and invokes a natural-language reasoning
// provider for each turn, recovers the structured outcome embedded in
// its reply, and supplies the deterministic offline persona used when no
// provider can answer.
package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// Reasoner is one provider in the failover chain: a prompt in, free text
// out. The text is expected to embed a JSON Outcome.
type Reasoner interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ErrNoProvider is returned when no step of the chain could construct a
// provider. The caller falls back to the offline persona.
var ErrNoProvider = errors.New("no reasoning provider available")

// Gateway walks the provider chain in fixed order: a caller-supplied
// credential, the operator-configured default, then the built-in
// low-cost fallback. Exactly one provider is invoked per turn, with a
// bounded timeout and no retry; any failure is the caller's cue to use
// the persona instead.
type Gateway struct {
	defaultProvider  Reasoner
	fallbackProvider Reasoner
	perRequest       func(credential string) Reasoner
	timeout          time.Duration
	logger           *slog.Logger
}

// NewGateway builds a gateway. Any of the three sources may be nil (or
// return nil); the chain simply skips them.
func NewGateway(defaultProvider, fallbackProvider Reasoner, perRequest func(string) Reasoner, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		defaultProvider:  defaultProvider,
		fallbackProvider: fallbackProvider,
		perRequest:       perRequest,
		timeout:          timeout,
		logger:           logger,
	}
}

// Analyze invokes the selected provider once and decodes its outcome.
// A decode failure is treated the same as an invocation failure: both
// mean this turn runs heuristic-only.
func (g *Gateway) Analyze(ctx context.Context, credential, prompt string) (*Outcome, error) {
	provider := g.pick(credential)
	if provider == nil {
		return nil, ErrNoProvider
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := provider.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("provider invocation: %w", err)
	}

	out, err := DecodeOutcome(raw)
	if err != nil {
		g.logger.Warn("undecodable provider response", "error", err, "raw_len", len(raw))
		return nil, err
	}
	return out, nil
}

func (g *Gateway) pick(credential string) Reasoner {
	if credential != "" && g.perRequest != nil {
		if r := g.perRequest(credential); r != nil {
			g.logger.Debug("using caller-supplied reasoning credential")
			return r
		}
	}
	if g.defaultProvider != nil {
		return g.defaultProvider
	}
	return g.fallbackProvider
}

// BuildPrompt assembles the single prompt for a turn: persona and
// strategy instructions, prior notes, the reconciled history and the
// latest message. history must already contain the latest message as its
// final element.
func BuildPrompt(notes string, history []session.Message) string {
	if notes == "" {
		notes = "No previous notes."
	}

	var prior strings.Builder
	for _, m := range history[:max(len(history)-1, 0)] {
		prior.WriteString(speaker(m.Sender))
		prior.WriteString(": ")
		prior.WriteString(m.Text)
		prior.WriteByte('\n')
	}

	latest := ""
	if len(history) > 0 {
		m := history[len(history)-1]
		latest = speaker(m.Sender) + ": " + m.Text
	}

	return fmt.Sprintf(userPromptFormat, systemPrompt, notes, strings.TrimRight(prior.String(), "\n"), latest)
}

func speaker(sender string) string {
	if sender == session.SenderCounterpart {
		return "SCAMMER"
	}
	return "ALEX"
}
