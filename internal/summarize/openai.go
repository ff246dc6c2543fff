package summarize

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// APIConfig OpenAI 兼容后端配置
// APIConfig configures the OpenAI-compatible backend
type APIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	TimeoutMS  int
	MaxRetries int
}

// APIBackend 使用 go-openai SDK 的后端实现
// APIBackend implements Backend using the go-openai SDK
type APIBackend struct {
	client *openai.Client
	model  string
	cfg    APIConfig
}

const apiSystemPrompt = `You summarize AI coding assistant conversations. ` +
	`Be terse and concrete. Output plain text only.`

// NewAPIBackend 创建 SDK 后端
// NewAPIBackend creates the SDK-based backend
func NewAPIBackend(cfg APIConfig) *APIBackend {
	config := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	httpClient := &http.Client{}
	if cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	config.HTTPClient = httpClient

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &APIBackend{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		cfg:    cfg,
	}
}

func (b *APIBackend) Name() string { return "api" }

func (b *APIBackend) Summarize(ctx context.Context, excerpt string) (Digest, error) {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: apiSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(digestPrompt, excerpt)},
		},
		Temperature: 0.2,
		MaxTokens:   200,
	}

	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(150*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return Digest{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := b.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		return parseDigest(resp.Choices[0].Message.Content), nil
	}
	return Digest{}, fmt.Errorf("chat completion: %w", lastErr)
}
