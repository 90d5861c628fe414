package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini implements Client on top of the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini client for one credential. The model name
// comes from configuration; credentials come from the rotation pool.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: empty API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// GeminiFactory returns a Factory that builds Gemini clients for the
// given model.
func GeminiFactory(model string) Factory {
	return func(ctx context.Context, credential string) (Client, error) {
		return NewGemini(ctx, credential, model)
	}
}

// Generate sends the prompt and returns the concatenated candidate
// text. Provider errors pass through unwrapped so the rotation
// executor can classify them (the SDK surfaces *genai.APIError).
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response from model %s", g.model)
	}
	return text, nil
}
