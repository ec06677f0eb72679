// Package analysis owns each user's decision analysis: loading it (or a
// default one), saving it wholesale and applying single-field edits.
// Every successful save is published as a full snapshot.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/logging"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/sprintai/internal/analysis"

// ErrUserRequired is returned when no user id is given.
var ErrUserRequired = errors.New("user id is required")

// Recorder receives domain metric events. internal/metrics implements it.
type Recorder interface {
	AnalysisSaved(userID string)
	AnalysisMutation(op string, err error)
}

// Service manages analyses.
type Service struct {
	store    store.AnalysisStore
	pub      live.Publisher
	recorder Recorder
	logger   *zap.Logger

	tracer       trace.Tracer
	saveCounter  metric.Int64Counter
	loadCounter  metric.Int64Counter
	mutateCounts metric.Int64Counter

	locks sync.Map // user id -> *sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates the service. pub may be nil to disable publication.
func NewService(st store.AnalysisStore, pub live.Publisher, logger *zap.Logger, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("analysis store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:  st,
		pub:    pub,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
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

	s.loadCounter, err = meter.Int64Counter(
		"sprintai.analysis.loads_total",
		metric.WithDescription("Total number of analysis loads"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		s.logger.Warn("failed to create load counter", zap.Error(err))
	}

	s.saveCounter, err = meter.Int64Counter(
		"sprintai.analysis.saves_total",
		metric.WithDescription("Total number of analysis saves"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.mutateCounts, err = meter.Int64Counter(
		"sprintai.analysis.mutations_total",
		metric.WithDescription("Total number of analysis edits by operation"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		s.logger.Warn("failed to create mutation counter", zap.Error(err))
	}
}

// Load returns the user's analysis, or the default analysis when none is
// stored. A stored record with a blank title or no weights is filled in; a
// record that fails validation is an error.
func (s *Service) Load(ctx context.Context, userID string) (*decision.Analysis, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.load")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	a, err := s.load(ctx, userID)
	if err != nil {
		s.fail(span, err)
		return nil, err
	}
	s.loadCounter.Add(ctx, 1)
	return a, nil
}

func (s *Service) load(ctx context.Context, userID string) (*decision.Analysis, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	a, err := s.store.GetAnalysis(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return decision.DefaultAnalysis(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	a.UserID = userID
	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("stored analysis for %q: %w", userID, err)
	}
	return a, nil
}

// Save overwrites the user's analysis with a (last writer wins) and
// publishes the stored snapshot.
func (s *Service) Save(ctx context.Context, a *decision.Analysis) (*decision.Analysis, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.save")
	defer span.End()
	if a == nil {
		err := errors.New("analysis is required")
		s.fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", a.UserID))

	stored, err := s.save(ctx, a)
	if err != nil {
		s.fail(span, err)
		return nil, err
	}
	return stored, nil
}

func (s *Service) save(ctx context.Context, a *decision.Analysis) (*decision.Analysis, error) {
	if a.UserID == "" {
		return nil, ErrUserRequired
	}
	next := a.Clone()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.store.PutAnalysis(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("put analysis: %w", err)
	}
	s.saveCounter.Add(ctx, 1)
	if s.recorder != nil {
		s.recorder.AnalysisSaved(stored.UserID)
	}

	if s.pub != nil {
		if err := s.pub.PublishAnalysis(ctx, stored); err != nil {
			// The save already happened; subscribers catch up on next load.
			fields := logging.ContextFields(logging.WithUserID(ctx, stored.UserID))
			s.logger.Warn("failed to publish analysis snapshot", append(fields, zap.Error(err))...)
		}
	}
	return stored, nil
}

// Update loads the user's analysis, applies fn and saves the result.
// Updates for the same user are serialized within this process.
func (s *Service) Update(ctx context.Context, userID, op string, fn func(*decision.Analysis) error) (*decision.Analysis, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.update")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("op", op),
	)

	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	a, err := s.load(ctx, userID)
	if err == nil {
		err = fn(a)
	}
	if err == nil {
		a, err = s.save(ctx, a)
	}

	result := "ok"
	if err != nil {
		result = "error"
		s.fail(span, err)
	}
	s.mutateCounts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
	if s.recorder != nil {
		s.recorder.AnalysisMutation(op, err)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SetTitle replaces the title.
func (s *Service) SetTitle(ctx context.Context, userID, title string) (*decision.Analysis, error) {
	return s.Update(ctx, userID, "set_title", func(a *decision.Analysis) error {
		a.SetTitle(title)
		return nil
	})
}

// AddOption appends a neutral option and returns the saved analysis and
// the new option.
func (s *Service) AddOption(ctx context.Context, userID string) (*decision.Analysis, decision.Option, error) {
	var added decision.Option
	a, err := s.Update(ctx, userID, "add_option", func(a *decision.Analysis) error {
		added = a.AddOption()
		return nil
	})
	return a, added, err
}

// RemoveOption deletes an option. The two-option floor is enforced.
func (s *Service) RemoveOption(ctx context.Context, userID, optionID string) (*decision.Analysis, error) {
	return s.Update(ctx, userID, "remove_option", func(a *decision.Analysis) error {
		return a.RemoveOption(optionID)
	})
}

// RenameOption changes an option's name.
func (s *Service) RenameOption(ctx context.Context, userID, optionID, name string) (*decision.Analysis, error) {
	return s.Update(ctx, userID, "rename_option", func(a *decision.Analysis) error {
		return a.RenameOption(optionID, name)
	})
}

// SetRating sets one option's rating for a factor.
func (s *Service) SetRating(ctx context.Context, userID, optionID string, f decision.Factor, v int) (*decision.Analysis, error) {
	return s.Update(ctx, userID, "set_rating", func(a *decision.Analysis) error {
		return a.SetRating(optionID, f, v)
	})
}

// SetWeight sets a factor's shared weight.
func (s *Service) SetWeight(ctx context.Context, userID string, f decision.Factor, v float64) (*decision.Analysis, error) {
	return s.Update(ctx, userID, "set_weight", func(a *decision.Analysis) error {
		return a.SetWeight(f, v)
	})
}

// Standings loads the user's analysis and ranks it.
func (s *Service) Standings(ctx context.Context, userID string) ([]decision.Standing, error) {
	a, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.Standings()
}

func (s *Service) lock(userID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
