// Package answer turns a retrieval outcome into a user-facing answer,
// calling the generation model only for confident matches.
package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bull/localrag/internal/retrieval"
)

// Defaults for the generation retry loop.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Kind classifies an answer.
type Kind string

const (
	KindNoMatch          Kind = "no_match"
	KindLowConfidence    Kind = "low_confidence"
	KindMatched          Kind = "matched"
	KindGenerationFailed Kind = "generation_failed"
)

// Answer is the synthesizer's output.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
	Kind    Kind     `json:"outcome"`
	// Attempts is the number of generation calls made (0 when generation was skipped).
	Attempts int `json:"attempts"`
	// AttemptDurations holds the wall-clock time of each generation call.
	AttemptDurations []time.Duration `json:"-"`
	Elapsed          time.Duration   `json:"-"`
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Synthesizer renders prompts and calls the generator with bounded, fixed-delay retry.
type Synthesizer struct {
	generator       Generator
	maxRetries      int
	delay           time.Duration
	maxContextChars int
	logger          *slog.Logger
}

// NewSynthesizer creates a synthesizer. maxRetries is the total number of
// generation attempts; values below 1 fall back to DefaultMaxRetries.
func NewSynthesizer(generator Generator, maxRetries int, delay time.Duration, logger *slog.Logger) *Synthesizer {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	if delay < 0 {
		delay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		generator:       generator,
		maxRetries:      maxRetries,
		delay:           delay,
		maxContextChars: DefaultMaxContextChars,
		logger:          logger,
	}
}

// Synthesize produces an answer for query. It never returns an error: a
// generator that keeps failing yields a KindGenerationFailed answer whose
// text is the last error message.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, outcome *retrieval.Outcome) *Answer {
	start := time.Now()

	switch outcome.Kind {
	case retrieval.NoMatch:
		return &Answer{Text: NoMatchMessage, Sources: []string{}, Kind: KindNoMatch, Elapsed: time.Since(start)}
	case retrieval.LowConfidence:
		return &Answer{Text: LowConfidenceMessage, Sources: outcome.SourceIDs(), Kind: KindLowConfidence, Elapsed: time.Since(start)}
	}

	contextBlock, cut := TruncateContext(BuildContext(outcome.Matches), s.maxContextChars)
	if cut {
		s.logger.Warn("Truncating context", "to_chars", s.maxContextChars, "matches", len(outcome.Matches))
	}
	prompt := RenderPrompt(contextBlock, query)
	ans := &Answer{Sources: outcome.SourceIDs()}

	var lastErr error
	operation := func() (string, error) {
		ans.Attempts++
		attemptStart := time.Now()
		text, err := s.generator.Generate(ctx, prompt)
		ans.AttemptDurations = append(ans.AttemptDurations, time.Since(attemptStart))
		if err != nil {
			lastErr = err
			s.logger.Warn("Generation attempt failed",
				"attempt", ans.Attempts,
				"max_attempts", s.maxRetries,
				"error", err,
			)
			return "", err
		}
		return text, nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.delay), uint64(s.maxRetries-1)),
		ctx,
	)
	text, err := backoff.RetryWithData(operation, b)

	ans.Elapsed = time.Since(start)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		s.logger.Error("Generation failed", "attempts", ans.Attempts, "error", lastErr)
		ans.Kind = KindGenerationFailed
		ans.Text = lastErr.Error()
		return ans
	}

	ans.Kind = KindMatched
	ans.Text = text
	return ans
}
