// Package providers abstracts the text completion backends. The router
// treats whichever backend is configured as a black box: prompt and
// history in, reply text out.
package providers

import (
	"context"
	"errors"

	"github.com/tinyland-inc/truefriend/pkg/config"
)

// ErrNoProvider is returned when no completion backend is configured.
var ErrNoProvider = errors.New("no completion provider configured")

// Turn is one prior user/assistant exchange passed as context.
type Turn struct {
	User      string
	Assistant string
}

// Completer produces a reply for a user message given a system
// instruction and recent history.
type Completer interface {
	Complete(ctx context.Context, system string, history []Turn, input string) (string, error)
	Model() string
}

// CreateCompleter picks a backend from config, preferring Anthropic when
// both keys are present.
func CreateCompleter(cfg *config.Config) (Completer, error) {
	if cfg.Providers.Anthropic.APIKey != "" {
		return NewAnthropic(cfg.Providers.Anthropic), nil
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		return NewOpenAI(cfg.Providers.OpenAI), nil
	}
	return nil, ErrNoProvider
}
