package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const cerebrasBaseURL = "https://api.cerebras.ai/v1"

// CerebrasClient talks to Cerebras' OpenAI-compatible chat completions API.
type CerebrasClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	BaseURL    string
	// System is sent as the system message when non-empty.
	System string
}

func NewCerebrasClient(apiKey, model string) *CerebrasClient {
	return &CerebrasClient{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    cerebrasBaseURL,
	}
}

func (c *CerebrasClient) client() *openai.Client {
	cfg := openai.DefaultConfig(c.APIKey)
	cfg.BaseURL = c.BaseURL
	if c.HTTPClient != nil {
		cfg.HTTPClient = c.HTTPClient
	}
	return openai.NewClientWithConfig(cfg)
}

func (c *CerebrasClient) request(prompt string, stream bool) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if c.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	return openai.ChatCompletionRequest{Model: c.Model, Messages: messages, Stream: stream}
}

func (c *CerebrasClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("cerebras: %w", ErrMissingKey)
	}
	resp, err := c.client().CreateChatCompletion(ctx, c.request(prompt, false))
	if err != nil {
		return "", fmt.Errorf("cerebras: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("cerebras: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *CerebrasClient) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	if c.APIKey == "" {
		return errSeq(fmt.Errorf("cerebras: %w", ErrMissingKey))
	}
	return func(yield func(string, error) bool) {
		stream, err := c.client().CreateChatCompletionStream(ctx, c.request(prompt, true))
		if err != nil {
			yield("", fmt.Errorf("cerebras: open stream: %w", err))
			return
		}
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("cerebras: read stream: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}
