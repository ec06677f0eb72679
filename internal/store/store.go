// Package store persists analyses, chat logs and user profiles.
//
// Each user owns exactly one Analysis record, overwritten wholesale on
// every put (last writer wins). Chat messages form an append-only log per
// user, read back in creation order. Two backends implement Store: an
// in-memory one for tests and single-process use, and a SQLite one built
// on the ncruces/go-sqlite3 database/sql driver.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when creating a user whose email is
	// already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidRecord is returned for records missing required fields.
	ErrInvalidRecord = errors.New("invalid record")
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is user or assistant.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is one entry of a user's chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a registered identity.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AnalysisStore holds one analysis per user.
type AnalysisStore interface {
	// GetAnalysis returns the stored analysis or ErrNotFound.
	GetAnalysis(ctx context.Context, userID string) (*decision.Analysis, error)
	// PutAnalysis overwrites the user's analysis, stamps UpdatedAt and
	// returns the stored copy.
	PutAnalysis(ctx context.Context, a *decision.Analysis) (*decision.Analysis, error)
}

// ChatStore holds append-only chat logs.
type ChatStore interface {
	// AppendMessage stores m, assigning ID and CreatedAt when empty.
	AppendMessage(ctx context.Context, m *ChatMessage) error
	// ListMessages returns the user's log ordered by creation time.
	ListMessages(ctx context.Context, userID string) ([]ChatMessage, error)
}

// UserStore holds user profiles.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// Store is the full document store.
type Store interface {
	AnalysisStore
	ChatStore
	UserStore
	Close() error
}

// normalizeEmail is the lookup key for emails.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateMessage(m *ChatMessage) error {
	if m.UserID == "" {
		return errors.Join(ErrInvalidRecord, errors.New("message user id is required"))
	}
	if !m.Role.Valid() {
		return errors.Join(ErrInvalidRecord, errors.New("message role must be user or assistant"))
	}
	return nil
}

func validateUser(u *User) error {
	if u.ID == "" || u.Email == "" || u.PasswordHash == "" {
		return errors.Join(ErrInvalidRecord, errors.New("user id, email and password hash are required"))
	}
	return nil
}
