// Package identity registers users and manages bearer sessions.
//
// Sessions live in process memory and are swept in the background once
// they pass their TTL. Profiles and password hashes are kept in a
// store.UserStore.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/sprintai/internal/config"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/sprintai/internal/identity"

// Password length bounds. bcrypt only hashes the first 72 bytes and
// rejects longer input.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// Config configures the identity service.
type Config struct {
	// SessionTTL is how long a session stays valid (default: 24h).
	SessionTTL time.Duration

	// SweepInterval is how often expired sessions are dropped. Zero
	// disables the background sweeper.
	SweepInterval time.Duration

	// BcryptCost is the password hashing cost (default: bcrypt.DefaultCost).
	BcryptCost int
}

// FromSettings maps the identity section of the application config.
func FromSettings(c config.IdentityConfig) Config {
	return Config{
		SessionTTL:    c.SessionTTL.Duration(),
		SweepInterval: c.SweepInterval.Duration(),
		BcryptCost:    c.BcryptCost,
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements register, sign-in, sign-out and token authentication.
type Service struct {
	users  store.UserStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	tracer         trace.Tracer
	meter          metric.Meter
	signInCounter  metric.Int64Counter
	registerCount  metric.Int64Counter
	sessionsActive metric.Int64UpDownCounter

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewService creates the identity service and starts the session sweeper
// when cfg.SweepInterval is positive. Call Close to stop it.
func NewService(users store.UserStore, cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cfg.BcryptCost)
	}

	s := &Service{
		users:    users,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initMetrics()

	if cfg.SweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(cfg.SweepInterval)
	}
	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.signInCounter, err = s.meter.Int64Counter(
		"sprintai.identity.sign_ins_total",
		metric.WithDescription("Total number of sign-in attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		s.logger.Warn("failed to create sign-in counter", zap.Error(err))
	}

	s.registerCount, err = s.meter.Int64Counter(
		"sprintai.identity.registrations_total",
		metric.WithDescription("Total number of registration attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		s.logger.Warn("failed to create registration counter", zap.Error(err))
	}

	s.sessionsActive, err = s.meter.Int64UpDownCounter(
		"sprintai.identity.sessions_active",
		metric.WithDescription("Number of live sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		s.logger.Warn("failed to create sessions gauge", zap.Error(err))
	}
}

// Register validates in, creates the user and signs them in. Checks run
// in order: required fields, confirmation match, length, email syntax,
// uniqueness.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "identity.register")
	defer span.End()

	sess, err := s.register(ctx, in)
	s.count(ctx, s.registerCount, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", sess.User.ID))
	s.logger.Info("user registered", zap.String("user.id", sess.User.ID))
	return sess, nil
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	// CreateUser enforces uniqueness as well.
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.Email = strings.ToLower(email)
	return s.issue(u)
}

// SignIn checks credentials and opens a new session. Unknown email and
// wrong password return the same error.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "identity.sign_in")
	defer span.End()

	sess, err := s.signIn(ctx, email, password)
	s.count(ctx, s.signInCounter, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("sign-in rejected")
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", sess.User.ID))
	return sess, nil
}

func (s *Service) signIn(ctx context.Context, email, password string) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// SignOut ends the session for token. Unknown tokens are a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	_, span := s.tracer.Start(ctx, "identity.sign_out")
	defer span.End()

	s.mu.Lock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()

	if ok {
		s.sessionsActive.Add(ctx, -1)
	}
	return nil
}

// Authenticate resolves a bearer token to its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}

	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnauthenticated
	}
	if sess.Expired(s.now()) {
		s.mu.Lock()
		_, still := s.sessions[token]
		delete(s.sessions, token)
		s.mu.Unlock()
		if still {
			s.sessionsActive.Add(ctx, -1)
		}
		return nil, ErrUnauthenticated
	}
	cp := *sess
	return &cp, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Service) Sweep() int {
	now := s.now()

	s.mu.Lock()
	n := 0
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	s.mu.Unlock()

	if n > 0 {
		s.sessionsActive.Add(context.Background(), int64(-n))
		s.logger.Debug("expired sessions swept", zap.Int("count", n))
	}
	return n
}

// Close stops the sweeper and drops all sessions.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		s.sessions = make(map[string]*Session)
		s.mu.Unlock()
	})
	return nil
}

func (s *Service) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Service) issue(u *store.User) (*Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &Session{
		Token:     token,
		User:      Profile{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt},
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
	s.sessionsActive.Add(context.Background(), 1)

	cp := *sess
	return &cp, nil
}

func (s *Service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Service) count(ctx context.Context, c metric.Int64Counter, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// randomToken returns 32 random bytes hex-encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// validEmail accepts a bare addr-spec with a dotted domain.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
