package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"betai/internal/logger"
	"betai/internal/metrics"
	"betai/internal/models"
)

var (
	ErrNotConfigured = errors.New("llm not configured")
	ErrBilling       = errors.New("llm project has no billing")
	ErrNoModel       = errors.New("no model available for this project")
	ErrEmptyReply    = errors.New("no response from LLM")
)

var modelNotFoundPattern = regexp.MustCompile(`model .*not found`)

// Error is a non-recoverable failure of one model call.
type Error struct {
	Model string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("model %s: %v", e.Model, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Request is one chat turn. History excludes the current message, which is the last user entry.
type Request struct {
	SystemPrompt string
	History      []models.ChatMessage
	Context      string
	Images       []string
}

type Reply struct {
	Text  string
	Model string
}

// Options tune a Client.
type Options struct {
	Models       []string
	VisionModels []string
	Timeout      time.Duration
	Tools        []tool.BaseTool
	Logger       *zap.Logger
}

// Client calls chat models in order until one accepts the request.
type Client struct {
	factory ModelFactory
	models  []string
	vision  []string
	timeout time.Duration
	tools   []tool.BaseTool
	log     *zap.Logger

	mu     sync.Mutex
	chats  map[string]model.ToolCallingChatModel
	agents map[string]*react.Agent
}

// NewClient returns a client; a nil factory yields an unconfigured client.
func NewClient(factory ModelFactory, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		factory: factory,
		models:  dedupe(opts.Models),
		vision:  dedupe(opts.VisionModels),
		timeout: opts.Timeout,
		tools:   opts.Tools,
		log:     logger.OrNop(opts.Logger),
		chats:   make(map[string]model.ToolCallingChatModel),
		agents:  make(map[string]*react.Agent),
	}
}

// Configured reports whether Chat can reach a provider.
func (c *Client) Configured() bool {
	return c != nil && c.factory != nil && len(c.models) > 0
}

// Models returns the text model order.
func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

// Chat sends the conversation to the first model that accepts it.
func (c *Client) Chat(ctx context.Context, req Request) (Reply, error) {
	if !c.Configured() {
		return Reply{}, ErrNotConfigured
	}
	list := c.models
	if len(req.Images) > 0 {
		if err := ValidateImages(req.Images); err != nil {
			return Reply{}, err
		}
		if len(c.vision) > 0 {
			list = c.vision
		}
	}
	messages := buildMessages(req)

	var lastErr error
	for _, name := range list {
		text, err := c.generate(ctx, name, messages, len(c.tools) > 0)
		if err == nil {
			metrics.LLMAttempts.WithLabelValues(name, "ok").Inc()
			return Reply{Text: text, Model: name}, nil
		}
		lastErr = err
		switch {
		case IsModelAccessError(err):
			metrics.LLMAttempts.WithLabelValues(name, "no_access").Inc()
			c.log.Info("model not accessible, trying next", zap.String("model", name), zap.Error(err))
			continue
		case IsBillingError(err):
			metrics.LLMAttempts.WithLabelValues(name, "billing").Inc()
			return Reply{}, fmt.Errorf("%w: %v", ErrBilling, err)
		default:
			metrics.LLMAttempts.WithLabelValues(name, "error").Inc()
			return Reply{}, &Error{Model: name, Err: err}
		}
	}
	return Reply{}, fmt.Errorf("%w: last error: %v", ErrNoModel, lastErr)
}

// Check asks each model for a trivial reply and reports the first that answers.
func (c *Client) Check(ctx context.Context) (Reply, error) {
	if !c.Configured() {
		return Reply{}, ErrNotConfigured
	}
	msgs := []*schema.Message{schema.UserMessage("Say OK")}
	var lastErr error
	for _, name := range c.models {
		text, err := c.generate(ctx, name, msgs, false, model.WithMaxTokens(10))
		if err == nil {
			return Reply{Text: text, Model: name}, nil
		}
		lastErr = err
		if !IsModelAccessError(err) {
			return Reply{}, &Error{Model: name, Err: err}
		}
	}
	return Reply{}, fmt.Errorf("%w: last error: %v", ErrNoModel, lastErr)
}

func (c *Client) generate(ctx context.Context, name string, msgs []*schema.Message, useAgent bool, opts ...model.Option) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		out *schema.Message
		err error
	)
	if useAgent {
		agent, aerr := c.agentFor(ctx, name)
		if aerr != nil {
			return "", aerr
		}
		out, err = agent.Generate(ctx, msgs)
	} else {
		chat, cerr := c.modelFor(ctx, name)
		if cerr != nil {
			return "", cerr
		}
		out, err = chat.Generate(ctx, msgs, opts...)
	}
	if err != nil {
		return "", err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyReply
	}
	return strings.TrimSpace(out.Content), nil
}

func (c *Client) modelFor(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.chats[name]; ok {
		return m, nil
	}
	m, err := c.factory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("init model %s: %w", name, err)
	}
	c.chats[name] = m
	return m, nil
}

func (c *Client) agentFor(ctx context.Context, name string) (*react.Agent, error) {
	chat, err := c.modelFor(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.agents[name]; ok {
		return a, nil
	}
	a, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chat,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: c.tools,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init react agent: %w", err)
	}
	c.agents[name] = a
	return a, nil
}

// buildMessages lays out system prompt plus context, then non-empty history turns.
// Images attach to the last user turn.
func buildMessages(req Request) []*schema.Message {
	system := req.SystemPrompt
	if req.Context != "" {
		system += "\n\n" + req.Context
	}
	msgs := []*schema.Message{schema.SystemMessage(system)}

	lastUser := -1
	for _, m := range req.History {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		if m.Sender == models.SenderUser {
			msgs = append(msgs, schema.UserMessage(text))
			lastUser = len(msgs) - 1
		} else {
			msgs = append(msgs, schema.AssistantMessage(text, nil))
		}
	}
	if len(req.Images) == 0 {
		return msgs
	}

	var text string
	if lastUser >= 0 {
		text = msgs[lastUser].Content
	} else {
		msgs = append(msgs, &schema.Message{Role: schema.User})
		lastUser = len(msgs) - 1
	}
	if text == "" {
		text = "What can you tell me about this image?"
	}
	parts := []schema.ChatMessagePart{{Type: schema.ChatMessagePartTypeText, Text: text}}
	for _, img := range req.Images {
		parts = append(parts, schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: img},
		})
	}
	msgs[lastUser].Content = ""
	msgs[lastUser].MultiContent = parts
	return msgs
}

// IsModelAccessError reports errors that mean "this model is not available to the key".
func IsModelAccessError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model_not_found") ||
		strings.Contains(msg, "does not have access to model") ||
		strings.Contains(msg, "unsupported model") ||
		modelNotFoundPattern.MatchString(msg)
}

// IsBillingError reports a 403 caused by project billing.
func IsBillingError(err error) bool {
	if err == nil || IsModelAccessError(err) {
		return false
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	return strings.Contains(msg, "403") && (strings.Contains(msg, "Project") || strings.Contains(lower, "billing"))
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
