package adapter

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"launchpad/internal/pkg/httpclient"
)

const openAICostPer1KTokens = 0.002

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client       *httpclient.Client
	defaultModel string
}

func NewOpenAIGenerator(baseURL, apiKey, defaultModel string) *OpenAIGenerator {
	if defaultModel == "" || strings.HasPrefix(defaultModel, "gemini") {
		defaultModel = "gpt-3.5-turbo"
	}
	return &OpenAIGenerator{
		client:       httpclient.New().WithBaseURL(baseURL).WithBearerToken(apiKey),
		defaultModel: defaultModel,
	}
}

func (o *OpenAIGenerator) Name() string { return "openai" }

func (o *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, Permanentf("openai: empty prompt")
	}
	model := req.Model
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = o.defaultModel
	}

	messages := make([]map[string]string, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	body := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}

	var out struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if _, err := o.client.PostJSON(ctx, "/chat/completions", body, &out); err != nil {
		return nil, Classify(errors.Wrap(err, "openai: chat completion"))
	}
	if len(out.Choices) == 0 {
		return nil, Transient(errors.New("openai: response without choices"))
	}
	if out.Model != "" {
		model = out.Model
	}
	return &GenerateResult{
		Text:       out.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: out.Usage.TotalTokens,
		Cost:       float64(out.Usage.TotalTokens) / 1000 * openAICostPer1KTokens,
	}, nil
}
