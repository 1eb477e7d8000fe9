package tasks

import (
	"time"

	"launchpad/internal/config"
)

// Task names understood by the worker pool.
const (
	TaskPublishPost     = "social.publish_post"
	TaskGenerateContent = "ai.generate_content"
)

// Policy is the application retry policy applied by every handler.
type Policy struct {
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	LeaseTTL       time.Duration
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		BaseDelay:      cfg.Retry.BaseDelay,
		AttemptTimeout: cfg.Retry.AttemptTimeout,
		LeaseTTL:       cfg.Queue.LeaseTTL,
	}
}

func (p Policy) withDefaults() Policy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = 60 * time.Second
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 30 * time.Second
	}
	if p.LeaseTTL <= p.AttemptTimeout {
		p.LeaseTTL = 2 * p.AttemptTimeout
	}
	return p
}

// Backoff returns the wait after a failed attempt with 0-indexed number n:
// BaseDelay * 2^n.
func (p Policy) Backoff(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 20 {
		n = 20
	}
	return p.BaseDelay * time.Duration(1<<uint(n))
}
