package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Config holds the provider connection settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAIProvider implements Provider against an OpenAI-compatible API.
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAIProvider.
func NewOpenAIProvider(config Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (p *OpenAIProvider) request(system, user string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     p.config.Model,
		MaxTokens: p.config.MaxTokens,
		Stream:    stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
}

// Stream implements Provider.Stream.
func (p *OpenAIProvider) Stream(ctx context.Context, system, user string, onDelta func(string) error) (string, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.request(system, user, true))
	if err != nil {
		return "", fmt.Errorf("provider stream error: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("provider stream recv error: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		content := response.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		full.WriteString(content)
		if err := onDelta(content); err != nil {
			return "", err
		}
	}
}

// Complete implements Provider.Complete.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(system, user, false))
	if err != nil {
		return "", fmt.Errorf("provider error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from provider")
	}
	return resp.Choices[0].Message.Content, nil
}
