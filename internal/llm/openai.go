package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	deepSeekBaseURL = "https://api.deepseek.com/v1"
)

// chatCompletionProvider is the shared client for OpenAI-compatible chat
// APIs (OpenAI itself and DeepSeek).
type chatCompletionProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider targeting the OpenAI API. An empty
// baseURL selects the public endpoint.
func NewOpenAIProvider(baseURL, apiKey, model string, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &chatCompletionProvider{
		name:       "openai",
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
	}
}

// NewDeepSeekProvider creates a provider targeting the DeepSeek API, which
// speaks the OpenAI chat-completion dialect.
func NewDeepSeekProvider(baseURL, apiKey, model string, client *http.Client) Provider {
	if baseURL == "" {
		baseURL = deepSeekBaseURL
	}
	return &chatCompletionProvider{
		name:       "deepseek",
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
	}
}

func (p *chatCompletionProvider) Name() string  { return p.name }
func (p *chatCompletionProvider) Model() string { return p.model }

// chatRequest mirrors the /chat/completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse mirrors the relevant fields of the response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message and returns the first
// choice's content.
func (p *chatCompletionProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   2048,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create %s request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", p.name, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned HTTP %d: %s", p.name, resp.StatusCode, string(respBytes))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return "", fmt.Errorf("parse %s response: %w", p.name, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%s error (%s): %s", p.name, chatResp.Error.Type, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// TestConnection lists models with the configured key; a 200 means the key
// and endpoint are good.
func (p *chatCompletionProvider) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create %s models request: %w", p.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s connectivity: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s connectivity: unexpected status %d", p.name, resp.StatusCode)
	}
	return nil
}

func (p *chatCompletionProvider) EstimateCost(promptChars, responseChars int) float64 {
	return estimateCost(p.name, p.model, promptChars, responseChars)
}
