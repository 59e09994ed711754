package llm

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/observe"
)

const (
	ProviderOllama     = "ollama"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
)

const (
	DefaultMaxTokens   = 256
	DefaultTimeout     = 60 * time.Second
	DefaultTemperature = 0.3
)

var defaultEndpoints = map[string]string{
	ProviderOllama:     "http://localhost:11434",
	ProviderOpenAI:     "https://api.openai.com/v1",
	ProviderAnthropic:  "https://api.anthropic.com/v1",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
}

// DefaultEndpoint returns the stock endpoint for a provider. Unknown
// providers get the OpenAI endpoint.
func DefaultEndpoint(provider string) string {
	if ep, ok := defaultEndpoints[provider]; ok {
		return ep
	}
	return defaultEndpoints[ProviderOpenAI]
}

type ProviderConfig struct {
	Provider  string
	Endpoint  string
	Model     string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration
}

// Family reports which wire protocol the provider speaks.
func (c ProviderConfig) Family() Family {
	if c.Provider == ProviderAnthropic {
		return FamilyAnthropic
	}
	return FamilyOpenAI
}

// baseURL is the URL the chat path is appended to.
func (c ProviderConfig) baseURL() string {
	ep := c.Endpoint
	if ep == "" {
		ep = DefaultEndpoint(c.Provider)
	}
	ep = strings.TrimRight(ep, "/")
	if c.Provider == ProviderOllama && !strings.HasSuffix(ep, "/v1") {
		ep += "/v1"
	}
	return ep
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

func NewClient(cfg ProviderConfig) Client {
	cfg = cfg.withDefaults()
	switch cfg.Family() {
	case FamilyAnthropic:
		return NewAnthropicClient(cfg)
	default:
		return NewOpenAIClient(cfg)
	}
}

// SettingsFunc returns the provider settings in effect right now.
type SettingsFunc func() ProviderConfig

// DynamicClient resolves its provider from settings on every call, so a
// settings change takes effect on the next request.
type DynamicClient struct {
	settings SettingsFunc
	logger   *zap.Logger
	metrics  *observe.Metrics
}

type Option func(*DynamicClient)

func WithLogger(l *zap.Logger) Option {
	return func(c *DynamicClient) { c.logger = l }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(c *DynamicClient) { c.metrics = m }
}

func NewDynamicClient(settings SettingsFunc, opts ...Option) *DynamicClient {
	c := &DynamicClient{settings: settings, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *DynamicClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (Turn, error) {
	cfg := c.settings()
	start := time.Now()
	turn, err := NewClient(cfg).Chat(ctx, messages, tools)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		c.logger.Warn("llm call failed",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		c.logger.Debug("llm call",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
			zap.Int("messages", len(messages)),
			zap.Duration("elapsed", elapsed))
	}
	c.metrics.RecordLLMCall(ctx, cfg.Provider, status, elapsed)
	return turn, err
}
