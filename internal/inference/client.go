// Package inference talks to an OpenAI-compatible chat completion API.
//
// The default endpoint is Groq's. Requests are rate limited client side
// and retried with exponential backoff on transport failures, 429 and 5xx.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/sprintai/internal/config"
)

const instrumentationName = "github.com/fyrsmithlabs/sprintai/internal/inference"

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512

	defaultTimeout     = 30 * time.Second
	defaultRatePerMin  = 30
	defaultBurst       = 5
	defaultMaxRetries  = 2
	defaultBaseBackoff = 500 * time.Millisecond
)

// ErrNoMessages is returned when Complete is called with nothing to send.
var ErrNoMessages = errors.New("no messages to send")

// Role is a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer is anything that turns a conversation into a reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Config configures the client.
type Config struct {
	BaseURL       string
	Model         string
	APIKey        string `json:"-"`
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	RatePerMinute int
	Burst         int

	// MaxRetries counts attempts after the first. Zero disables retrying;
	// a negative value selects the default.
	MaxRetries int
}

// FromSettings maps the inference section of the application config.
func FromSettings(c config.InferenceConfig) Config {
	return Config{
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		APIKey:        c.APIKey.Value(),
		Temperature:   c.Temperature,
		MaxTokens:     c.MaxTokens,
		Timeout:       c.Timeout.Duration(),
		RatePerMinute: c.RatePerMinute,
		Burst:         c.Burst,
		MaxRetries:    c.MaxRetries,
	}
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = defaultRatePerMin
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

// Client is a rate-limited, retrying chat completion client.
type Client struct {
	llm         llms.Model
	cfg         Config
	limiter     *rate.Limiter
	baseBackoff time.Duration
	logger      *zap.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithBackoff overrides the base retry delay.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.baseBackoff = d }
}

// New creates a client for cfg.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	token := cfg.APIKey
	if token == "" {
		// langchaingo refuses an empty token; the upstream answers 401
		// and callers fall back.
		token = "unset"
	}

	llm, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		openai.WithModel(cfg.Model),
		openai.WithToken(token),
		openai.WithHTTPClient(&statusDoer{client: &http.Client{Timeout: cfg.Timeout}}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	c := &Client{
		llm:         llm,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60), cfg.Burst),
		baseBackoff: defaultBaseBackoff,
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initMetrics()
	return c, nil
}

func (c *Client) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	c.requests, err = meter.Int64Counter(
		"sprintai.inference.requests_total",
		metric.WithDescription("Total number of completion requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		c.logger.Warn("failed to create request counter", zap.Error(err))
	}

	c.latency, err = meter.Float64Histogram(
		"sprintai.inference.duration_seconds",
		metric.WithDescription("Completion latency including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		c.logger.Warn("failed to create latency histogram", zap.Error(err))
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends messages and returns the first choice's content, which
// may be empty.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	ctx, span := c.tracer.Start(ctx, "inference.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.Int("messages", len(messages)),
	)

	start := time.Now()
	reply, err := c.complete(ctx, messages)

	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	c.requests.Add(ctx, 1, attrs)
	c.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	return reply, err
}

func (c *Client) complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}
	content := toMessageContent(messages)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		reply, err := c.generate(ctx, content)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return "", err
		}
		c.logger.Debug("retrying completion", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) generate(ctx context.Context, content []llms.MessageContent) (string, error) {
	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(c.cfg.Temperature),
		llms.WithMaxTokens(c.cfg.MaxTokens),
	)
	if errors.Is(err, openai.ErrEmptyResponse) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(messageType(m.Role), m.Content))
	}
	return out
}

func messageType(r Role) schema.ChatMessageType {
	switch r {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
