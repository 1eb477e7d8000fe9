package adapter

import (
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"launchpad/internal/config"
	"launchpad/internal/models"
)

// Registry resolves adapters by platform tag and agent type. It is built once
// at startup and shared read-only by the task handlers.
type Registry struct {
	mu         sync.RWMutex
	publishers map[models.Platform]Publisher
	generators map[models.AgentType]Generator
	fallback   Generator
}

func NewRegistry() *Registry {
	return &Registry{
		publishers: make(map[models.Platform]Publisher),
		generators: make(map[models.AgentType]Generator),
	}
}

func (r *Registry) RegisterPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[p.Platform()] = p
}

// RegisterGenerator binds a generator to one agent type. An empty agent type sets
// the generator used for every type without its own binding.
func (r *Registry) RegisterGenerator(t models.AgentType, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == "" {
		r.fallback = g
		return
	}
	r.generators[t] = g
}

// Publisher returns the adapter for a platform. An unknown platform is a
// permanent error: retrying cannot make it appear.
func (r *Registry) Publisher(p models.Platform) (Publisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if pub, ok := r.publishers[p]; ok {
		return pub, nil
	}
	return nil, Permanentf("no publisher configured for platform %q", p)
}

func (r *Registry) Generator(t models.AgentType) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g, ok := r.generators[t]; ok {
		return g, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, Permanentf("no generator configured for agent type %q", t)
}

// Platforms lists the platforms with a registered publisher.
func (r *Registry) Platforms() []models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Platform, 0, len(r.publishers))
	for p := range r.publishers {
		out = append(out, p)
	}
	return out
}

// NewRegistryFromConfig wires every adapter whose credentials are present.
func NewRegistryFromConfig(cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	r := NewRegistry()
	pc := cfg.Platforms

	if pc.Twitter.BearerToken != "" {
		tw := NewTwitterPublisher(pc.Twitter.BaseURL, pc.Twitter.UploadURL, pc.Twitter.BearerToken)
		r.RegisterPublisher(WithRateLimit(tw, pc.Twitter.RateLimit, pc.Twitter.RateWindow))
	}
	if pc.LinkedIn.AccessToken != "" {
		r.RegisterPublisher(NewLinkedInPublisher(pc.LinkedIn.BaseURL, pc.LinkedIn.AccessToken))
	}
	if pc.Facebook.AccessToken != "" && pc.Facebook.PageID != "" {
		r.RegisterPublisher(NewFacebookPublisher(pc.Facebook.BaseURL, pc.Facebook.PageID, pc.Facebook.AccessToken))
	}
	if pc.Instagram.AccessToken != "" && pc.Instagram.AccountID != "" {
		r.RegisterPublisher(NewInstagramPublisher(pc.Instagram.BaseURL, pc.Instagram.AccountID, pc.Instagram.AccessToken))
	}
	if pc.Telegram.Token != "" && pc.Telegram.ChannelID != 0 {
		tg, err := NewTelegramPublisher(pc.Telegram.Token, pc.Telegram.ChannelID, "")
		if err != nil {
			return nil, err
		}
		r.RegisterPublisher(tg)
	}

	switch cfg.LLM.Provider {
	case "openai":
		r.RegisterGenerator("", NewOpenAIGenerator(cfg.LLM.OpenAIURL, cfg.LLM.OpenAIKey, cfg.LLM.DefaultModel))
	case "gemini", "":
		r.RegisterGenerator("", NewGeminiGenerator(cfg.LLM.GeminiURL, cfg.LLM.GeminiKey, cfg.LLM.DefaultModel))
	default:
		return nil, errors.Newf("unsupported llm provider: %s", cfg.LLM.Provider)
	}

	logger.Info("Adapters configured",
		zap.Any("platforms", r.Platforms()),
		zap.String("llm_provider", cfg.LLM.Provider))
	return r, nil
}
