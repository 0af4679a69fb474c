package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"betai/internal/config"
)

// ModelFactory builds a chat model for one model name.
type ModelFactory func(ctx context.Context, name string) (model.ToolCallingChatModel, error)

// NewModelFactory returns a factory for provider, or nil when apiKey is empty.
func NewModelFactory(provider string, provCfg config.ProviderConfig, apiKey string, maxTokens int, temperature float32) (ModelFactory, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, nil
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	switch strings.ToLower(provider) {
	case "", "openai":
		return func(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
			tokens, temp := maxTokens, temperature
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				BaseURL:     provCfg.BaseURL,
				Model:       name,
				APIKey:      apiKey,
				MaxTokens:   &tokens,
				Temperature: &temp,
			})
		}, nil
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURL := provCfg.BaseURL
			baseURLPtr = &baseURL
		}
		return func(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
			temp := temperature
			return claude.NewChatModel(ctx, &claude.Config{
				APIKey:      apiKey,
				Model:       name,
				BaseURL:     baseURLPtr,
				MaxTokens:   maxTokens,
				Temperature: &temp,
			})
		}, nil
	case "gemini":
		var (
			once      sync.Once
			client    *genai.Client
			clientErr error
		)
		return func(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
			once.Do(func() {
				client, clientErr = genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
			})
			if clientErr != nil {
				return nil, fmt.Errorf("init gemini client: %w", clientErr)
			}
			tokens, temp := maxTokens, temperature
			return gemini.NewChatModel(ctx, &gemini.Config{
				Client:      client,
				Model:       name,
				MaxTokens:   &tokens,
				Temperature: &temp,
			})
		}, nil
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// ModelOrder puts primary first followed by the fallbacks.
func ModelOrder(primary string, fallbacks []string) []string {
	return dedupe(append([]string{primary}, fallbacks...))
}
