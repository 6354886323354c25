package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Backend is the capability interface for model calls. Vision extraction and
// text classification share one backend so providers can be swapped without
// branching at call sites.
type Backend interface {
	// QueryVision sends a PNG image plus an instruction to a vision-capable
	// model and returns the raw text response.
	QueryVision(ctx context.Context, pngData []byte, prompt string) (string, error)
	// QueryText sends a text-only prompt and returns the raw text response.
	QueryText(ctx context.Context, prompt string) (string, error)
}

// Config holds backend settings shared by all providers.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string // vision model
	ClassifyModel string // text model; falls back to Model when empty
}

// OpenAIBackend talks to any OpenAI-compatible chat-completions endpoint
// (LM Studio, OpenRouter, vLLM).
type OpenAIBackend struct {
	client        *openai.Client
	model         string
	classifyModel string
}

// NewOpenAIBackend creates a backend against cfg.BaseURL.
func NewOpenAIBackend(cfg Config) (*OpenAIBackend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	classifyModel := cfg.ClassifyModel
	if classifyModel == "" {
		classifyModel = cfg.Model
	}
	return &OpenAIBackend{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		classifyModel: classifyModel,
	}, nil
}

func (b *OpenAIBackend) QueryVision(ctx context.Context, pngData []byte, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:image/png;base64,%s", base64.StdEncoding.EncodeToString(pngData))
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (b *OpenAIBackend) QueryText(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.classifyModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("text completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// imageErrorSignatures are substrings that identify an image decode failure
// at the endpoint, the only failure class worth a smaller-image retry.
var imageErrorSignatures = []string{
	"cannot process image",
	"failed to decode image",
	"image too large",
	"invalid image",
}

// IsImageError reports whether the error looks like the endpoint rejected
// the image itself rather than the request.
func IsImageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range imageErrorSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
