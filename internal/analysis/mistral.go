package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMistralBaseURL = "https://api.mistral.ai/v1"
	defaultMistralModel   = "mistral-small-latest"
)

type MistralCompleter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type MistralChatRequest struct {
	Model          string                 `json:"model"`
	Messages       []MistralMessage       `json:"messages"`
	ResponseFormat *MistralResponseFormat `json:"response_format,omitempty"`
}

type MistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type MistralResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema MistralJSONSchema `json:"json_schema"`
}

type MistralJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type MistralChatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int            `json:"index"`
		Message MistralMessage `json:"message"`
	} `json:"choices"`
}

func NewMistralCompleter(apiKey, model, baseURL string, timeout time.Duration) *MistralCompleter {
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	if model == "" {
		model = defaultMistralModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &MistralCompleter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *MistralCompleter) Complete(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	reqBody := MistralChatRequest{
		Model: m.model,
		Messages: []MistralMessage{
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &MistralResponseFormat{
			Type: "json_schema",
			JSONSchema: MistralJSONSchema{
				Name:   "business_idea",
				Schema: schema,
				Strict: true,
			},
		},
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		m.baseURL+"/chat/completions",
		bytes.NewReader(raw),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Mistral API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return "", fmt.Errorf("mistral API error (status %d): %s", resp.StatusCode, errBody.String())
	}

	var mistralResp MistralChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&mistralResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(mistralResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return mistralResp.Choices[0].Message.Content, nil
}
