package nlp

import (
	"context"
	"errors"
	"strings"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4.1-mini"
)

// OpenAICollaborator asks an OpenAI-compatible chat/completions endpoint
// for a filter in JSON mode.
type OpenAICollaborator struct {
	c       HTTPClient
	apiKey  string
	baseURL string
	model   string
}

func NewOpenAICollaborator(c HTTPClient, apiKey, baseURL, model string) *OpenAICollaborator {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAICollaborator{c: c, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAICollaborator) Propose(ctx context.Context, req IntentRequest) (string, error) {
	if o.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY is missing")
	}
	model := req.Model
	if model == "" {
		model = o.model
	}
	body := chatRequest{
		Model:          model,
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(req)},
			{Role: "user", Content: UserPrompt(req)},
		},
	}
	var out chatResponse
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	if err := postJSON(ctx, o.c, o.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
