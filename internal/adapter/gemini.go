package adapter

import (
	"context"
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"launchpad/internal/pkg/httpclient"
)

const geminiCostPer1KTokens = 0.0005

// GeminiGenerator calls the Generative Language generateContent endpoint.
type GeminiGenerator struct {
	client       *httpclient.Client
	apiKey       string
	defaultModel string
}

func NewGeminiGenerator(baseURL, apiKey, defaultModel string) *GeminiGenerator {
	if defaultModel == "" || !strings.HasPrefix(defaultModel, "gemini") {
		defaultModel = "gemini-pro"
	}
	return &GeminiGenerator{
		client:       httpclient.New().WithBaseURL(baseURL),
		apiKey:       apiKey,
		defaultModel: defaultModel,
	}
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if g.apiKey == "" {
		return nil, Permanentf("gemini: api key is not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, Permanentf("gemini: empty prompt")
	}
	model := req.Model
	if !strings.HasPrefix(model, "gemini") {
		model = g.defaultModel
	}

	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"role": "user", "parts": []map[string]string{{"text": req.Prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
		},
	}
	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": req.SystemPrompt}},
		}
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			TotalTokenCount int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	url := "/models/" + model + ":generateContent?key=" + g.apiKey
	if _, err := g.client.PostJSON(ctx, url, body, &out); err != nil {
		return nil, Classify(errors.Wrap(err, "gemini: generate"))
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		if len(out.Candidates) > 0 && out.Candidates[0].FinishReason == "SAFETY" {
			return nil, Permanentf("gemini: response blocked by safety filters")
		}
		return nil, Transient(errors.New("gemini: empty response"))
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()

	tokens := out.UsageMetadata.TotalTokenCount
	if tokens == 0 {
		tokens = EstimateTokens(text)
	}
	return &GenerateResult{
		Text:       text,
		Model:      model,
		TokensUsed: tokens,
		Cost:       float64(tokens) / 1000 * geminiCostPer1KTokens,
	}, nil
}

// EstimateTokens approximates a token count as 1.3 tokens per word.
func EstimateTokens(text string) int {
	return int(math.Floor(float64(len(strings.Fields(text))) * 1.3))
}
