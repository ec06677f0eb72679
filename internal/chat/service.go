// Package chat keeps each user's conversation with the assistant and
// fronts the inference client.
//
// The proxy path never fails: upstream errors become a fixed
// "temporarily unavailable" reply and an empty completion becomes a fixed
// "did not generate" reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/inference"
	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/logging"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/sprintai/internal/chat"

// Fixed replies.
const (
	DefaultSystemPrompt = "You are a helpful decision-making AI assistant."

	ReplyUnavailable = "AI service is temporarily unavailable."
	ReplyEmpty       = "AI did not generate a response."
	ReplyMissing     = "AI did not return a response."
)

// Outcomes reported to Recorder.InferenceResult.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

var (
	// ErrEmptyMessage is returned when the user sends only whitespace.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrUserRequired is returned when no user id is given.
	ErrUserRequired = errors.New("user id is required")
)

// Scrubber removes secrets from text. *redact.Redactor implements it.
type Scrubber interface {
	Scrub(content string) string
}

// Recorder receives domain metric events. internal/metrics implements it.
type Recorder interface {
	ChatMessage(role string)
	InferenceResult(outcome string)
}

// Exchange is one user turn and the assistant's answer.
type Exchange struct {
	User      store.ChatMessage `json:"user"`
	Assistant store.ChatMessage `json:"assistant"`
}

// Service implements Send, List and Proxy.
type Service struct {
	store        store.ChatStore
	llm          inference.Completer
	scrubber     Scrubber
	pub          live.Publisher
	recorder     Recorder
	systemPrompt string
	logger       *zap.Logger

	tracer       trace.Tracer
	sendCounter  metric.Int64Counter
	proxyCounter metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithScrubber redacts text before it is stored or sent upstream.
func WithScrubber(sc Scrubber) Option {
	return func(s *Service) { s.scrubber = sc }
}

// WithPublisher publishes stored messages.
func WithPublisher(p live.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithSystemPrompt overrides DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		if strings.TrimSpace(prompt) != "" {
			s.systemPrompt = prompt
		}
	}
}

// NewService creates the chat service.
func NewService(st store.ChatStore, llm inference.Completer, logger *zap.Logger, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("chat store is required")
	}
	if llm == nil {
		return nil, errors.New("inference client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:        st,
		llm:          llm,
		systemPrompt: DefaultSystemPrompt,
		logger:       logger,
		tracer:       otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	s.sendCounter, err = meter.Int64Counter(
		"sprintai.chat.sends_total",
		metric.WithDescription("Total number of chat messages sent"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		s.logger.Warn("failed to create send counter", zap.Error(err))
	}

	s.proxyCounter, err = meter.Int64Counter(
		"sprintai.chat.proxy_requests_total",
		metric.WithDescription("Total number of inference proxy requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		s.logger.Warn("failed to create proxy counter", zap.Error(err))
	}
}

// List returns the user's log in creation order.
func (s *Service) List(ctx context.Context, userID string) ([]store.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "chat.list")
	defer span.End()

	if userID == "" {
		return nil, ErrUserRequired
	}
	msgs, err := s.store.ListMessages(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list messages: %w", err)
	}
	span.SetAttributes(attribute.Int("count", len(msgs)))
	return msgs, nil
}

// Send stores the user's message, asks the model with the system prompt
// and stores the answer. Inference failures produce a fallback answer
// rather than an error; only validation and storage errors are returned.
func (s *Service) Send(ctx context.Context, userID, content string) (*Exchange, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	ex, err := s.send(ctx, userID, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.sendCounter.Add(ctx, 1)
	return ex, nil
}

func (s *Service) send(ctx context.Context, userID, content string) (*Exchange, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	content = s.scrub(content)

	userMsg := &store.ChatMessage{UserID: userID, Role: store.RoleUser, Content: content}
	if err := s.append(ctx, userMsg); err != nil {
		return nil, err
	}

	reply, outcome := s.complete(ctx, []inference.Message{
		{Role: inference.RoleSystem, Content: s.systemPrompt},
		{Role: inference.RoleUser, Content: content},
	})
	if outcome == OutcomeEmpty {
		// An absent completion gets the proxy fallback, a blank one the chat fallback.
		if reply == "" {
			reply = ReplyEmpty
		} else {
			reply = ReplyMissing
		}
	}

	assistantMsg := &store.ChatMessage{UserID: userID, Role: store.RoleAssistant, Content: reply}
	if err := s.append(ctx, assistantMsg); err != nil {
		return nil, err
	}
	return &Exchange{User: *userMsg, Assistant: *assistantMsg}, nil
}

// Proxy forwards messages to the model and always returns a reply.
func (s *Service) Proxy(ctx context.Context, messages []inference.Message) string {
	ctx, span := s.tracer.Start(ctx, "chat.proxy")
	defer span.End()

	scrubbed := make([]inference.Message, len(messages))
	for i, m := range messages {
		scrubbed[i] = inference.Message{Role: m.Role, Content: s.scrub(m.Content)}
	}

	reply, outcome := s.complete(ctx, scrubbed)
	span.SetAttributes(attribute.String("outcome", outcome))
	s.proxyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	switch outcome {
	case OutcomeUnavailable:
		return ReplyUnavailable
	case OutcomeEmpty:
		return ReplyEmpty
	default:
		return reply
	}
}

// complete calls the model and classifies the result.
func (s *Service) complete(ctx context.Context, messages []inference.Message) (string, string) {
	reply, err := s.llm.Complete(ctx, messages)

	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeUnavailable
		s.logger.Warn("inference failed", append(logging.ContextFields(ctx), zap.Error(err))...)
		reply = ReplyUnavailable
	case strings.TrimSpace(reply) == "":
		outcome = OutcomeEmpty
	}
	if s.recorder != nil {
		s.recorder.InferenceResult(outcome)
	}
	return reply, outcome
}

func (s *Service) append(ctx context.Context, m *store.ChatMessage) error {
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return fmt.Errorf("append %s message: %w", m.Role, err)
	}
	if s.recorder != nil {
		s.recorder.ChatMessage(string(m.Role))
	}
	if s.pub != nil {
		if err := s.pub.PublishMessage(ctx, m); err != nil {
			fields := logging.ContextFields(logging.WithUserID(ctx, m.UserID))
			s.logger.Warn("failed to publish chat message", append(fields, zap.Error(err))...)
		}
	}
	return nil
}

func (s *Service) scrub(content string) string {
	if s.scrubber == nil {
		return content
	}
	return s.scrubber.Scrub(content)
}
