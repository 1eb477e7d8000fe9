package adapter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// rateLimited rejects publishes beyond the platform's request budget with a
// transient error, so the job backs off instead of blocking a worker.
type rateLimited struct {
	Publisher
	limiter *rate.Limiter
}

// WithRateLimit allows n publishes per window, bursting up to n.
func WithRateLimit(p Publisher, n int, window time.Duration) Publisher {
	if n <= 0 || window <= 0 {
		return p
	}
	return &rateLimited{
		Publisher: p,
		limiter:   rate.NewLimiter(rate.Every(window/time.Duration(n)), n),
	}
}

func (r *rateLimited) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if !r.limiter.Allow() {
		return nil, Transient(errors.Newf("%s rate limit exceeded", r.Platform()))
	}
	return r.Publisher.Publish(ctx, req)
}

// Metrics forwards to the wrapped publisher when it can report metrics.
func (r *rateLimited) Metrics(ctx context.Context, externalID string) (map[string]float64, error) {
	mr, ok := r.Publisher.(MetricsReader)
	if !ok {
		return nil, Permanentf("%s does not report metrics", r.Platform())
	}
	return mr.Metrics(ctx, externalID)
}

// SupportsMetrics reports whether p, or the publisher it wraps, reads metrics.
func SupportsMetrics(p Publisher) bool {
	if rl, ok := p.(*rateLimited); ok {
		p = rl.Publisher
	}
	_, ok := p.(MetricsReader)
	return ok
}
