package ai

import (
	"context"
	"fmt"
	"time"
)

// Classifier sends a prompt to a chat-completion model and returns the
// text of its reply.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// TransportError wraps any failure to obtain a reply: network, auth,
// quota or an empty completion.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classifier request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}
