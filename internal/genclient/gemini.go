package genclient

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// #region gemini

// GeminiGenerator backs ContentGenerator with the Gemini API. Requests ask
// for a JSON-object completion so the response parses against the draft
// schema.
type GeminiGenerator struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

// NewGeminiGenerator connects to the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, config Config) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGenerator{
		client:          client,
		model:           model,
		temperature:     config.Temperature,
		maxOutputTokens: config.MaxOutputTokens,
	}, nil
}

// GenerateContent sends one structured-completion request.
func (g *GeminiGenerator) GenerateContent(ctx context.Context, system, user string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxOutputTokens,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

// #endregion gemini
