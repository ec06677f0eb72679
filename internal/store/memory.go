package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	analyses map[string]*decision.Analysis
	chats    map[string][]ChatMessage
	users    map[string]*User
	byEmail  map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	m := &Memory{
		now:      o.now,
		analyses: make(map[string]*decision.Analysis),
		chats:    make(map[string][]ChatMessage),
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
	}
	return m
}

// GetAnalysis implements AnalysisStore.
func (m *Memory) GetAnalysis(_ context.Context, userID string) (*decision.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.analyses[userID]
	if !ok {
		return nil, fmt.Errorf("analysis for %q: %w", userID, ErrNotFound)
	}
	return a.Clone(), nil
}

// PutAnalysis implements AnalysisStore.
func (m *Memory) PutAnalysis(_ context.Context, a *decision.Analysis) (*decision.Analysis, error) {
	if a == nil || a.UserID == "" {
		return nil, errors.Join(ErrInvalidRecord, errors.New("analysis user id is required"))
	}
	stored := a.Clone()

	m.mu.Lock()
	stored.UpdatedAt = m.now().UTC()
	m.analyses[stored.UserID] = stored
	m.mu.Unlock()

	return stored.Clone(), nil
}

// AppendMessage implements ChatStore.
func (m *Memory) AppendMessage(_ context.Context, msg *ChatMessage) error {
	if err := validateMessage(msg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now().UTC()
	}
	m.chats[msg.UserID] = append(m.chats[msg.UserID], *msg)
	return nil
}

// ListMessages implements ChatStore. Messages with equal timestamps keep
// insertion order.
func (m *Memory) ListMessages(_ context.Context, userID string) ([]ChatMessage, error) {
	m.mu.RLock()
	out := slices.Clone(m.chats[userID])
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b ChatMessage) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if out == nil {
		out = []ChatMessage{}
	}
	return out, nil
}

// CreateUser implements UserStore.
func (m *Memory) CreateUser(_ context.Context, u *User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	key := normalizeEmail(u.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byEmail[key]; taken {
		return fmt.Errorf("%q: %w", u.Email, ErrEmailTaken)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	cp := *u
	cp.Email = key
	m.users[u.ID] = &cp
	m.byEmail[key] = u.ID
	return nil
}

// GetUser implements UserStore.
func (m *Memory) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail implements UserStore.
func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[normalizeEmail(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return m.GetUser(ctx, id)
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
