package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the Google Generative Language API.
type GeminiProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider creates a provider targeting the Gemini API. An empty
// baseURL selects the public endpoint.
func NewGeminiProvider(baseURL, apiKey, model string, client *http.Client) *GeminiProvider {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: client,
	}
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt to the generateContent endpoint and concatenates the
// first candidate's parts.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBytes, &genResp); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("gemini error (%d): %s", genResp.Error.Code, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text string
	for _, part := range genResp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

// TestConnection lists models with the configured key.
func (p *GeminiProvider) TestConnection(ctx context.Context) error {
	url := fmt.Sprintf("%s/models?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create gemini models request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gemini connectivity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini connectivity: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (p *GeminiProvider) EstimateCost(promptChars, responseChars int) float64 {
	return estimateCost("gemini", p.model, promptChars, responseChars)
}
