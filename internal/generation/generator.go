// Package generation produces text completions from a prompt.
package generation

import (
	"context"
	"errors"
)

// errEmptyCompletion is returned for a blank reply so callers retry it like any
// other failed attempt.
var errEmptyCompletion = errors.New("model returned an empty completion")

// Generator is implemented by every provider.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
