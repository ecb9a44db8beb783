package nlp

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiCollaborator asks a Gemini model for a filter with a JSON response type.
type GeminiCollaborator struct {
	client *genai.Client
	model  string
}

func NewGeminiCollaborator(ctx context.Context, apiKey, model string) (*GeminiCollaborator, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is missing")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiCollaborator{client: client, model: model}, nil
}

func (g *GeminiCollaborator) Propose(ctx context.Context, req IntentRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(UserPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(req), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}
