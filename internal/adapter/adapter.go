// Package adapter wraps the external platforms and LLM providers that job
// handlers call out to. Every error an adapter returns is tagged transient or
// permanent so handlers can decide whether to retry.
package adapter

import (
	"context"

	"launchpad/internal/models"
)

type PublishRequest struct {
	Content   string
	MediaURLs []string
	PostType  string
}

type PublishResult struct {
	ExternalID string
	URL        string
}

// Publisher posts content to one social platform.
type Publisher interface {
	Platform() models.Platform
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// MetricsReader is implemented by publishers that can report engagement for a
// published post. Keys follow the names used by models.EngagementRate.
type MetricsReader interface {
	Metrics(ctx context.Context, externalID string) (map[string]float64, error)
}

type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

type GenerateResult struct {
	Text       string
	Model      string
	TokensUsed int
	Cost       float64
}

// Generator produces text from a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}
