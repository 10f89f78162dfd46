package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// Paced spaces out calls to Next so that at most rps requests per second
// leave the process. It never retries.
type Paced struct {
	Next    Classifier
	Limiter *rate.Limiter
}

// WithPacing wraps c when rps is positive and returns it unchanged otherwise.
func WithPacing(c Classifier, rps float64) Classifier {
	if rps <= 0 {
		return c
	}
	return Paced{Next: c, Limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (p Paced) Classify(ctx context.Context, prompt string) (string, error) {
	if err := p.Limiter.Wait(ctx); err != nil {
		return "", &TransportError{Err: err}
	}
	return p.Next.Classify(ctx, prompt)
}
