package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// OllamaBackend talks to a local Ollama server's /api/generate endpoint.
type OllamaBackend struct {
	baseURL       string
	model         string
	classifyModel string
	httpClient    *http.Client
}

// NewOllamaBackend creates a backend against an Ollama server.
func NewOllamaBackend(cfg Config) (*OllamaBackend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	classifyModel := cfg.ClassifyModel
	if classifyModel == "" {
		classifyModel = cfg.Model
	}
	return &OllamaBackend{
		baseURL:       strings.TrimRight(baseURL, "/"),
		model:         cfg.Model,
		classifyModel: classifyModel,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type ollamaRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (b *OllamaBackend) QueryVision(ctx context.Context, pngData []byte, prompt string) (string, error) {
	return b.generate(ctx, ollamaRequest{
		Model:  b.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(pngData)},
	})
}

func (b *OllamaBackend) QueryText(ctx context.Context, prompt string) (string, error) {
	return b.generate(ctx, ollamaRequest{Model: b.classifyModel, Prompt: prompt})
}

func (b *OllamaBackend) generate(ctx context.Context, request ollamaRequest) (string, error) {
	jsonData, err := sonic.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var response ollamaResponse
	if err := sonic.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("API error: %s", response.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return strings.TrimSpace(response.Response), nil
}
