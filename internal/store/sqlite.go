package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
)

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the
// schema.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	o := buildOptions(opts)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db, now: o.now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetAnalysis implements AnalysisStore.
func (s *SQLite) GetAnalysis(ctx context.Context, userID string) (*decision.Analysis, error) {
	var (
		doc       string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, updated_at FROM analyses WHERE user_id = ?`, userID,
	).Scan(&doc, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for %q: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	var a decision.Analysis
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("decode analysis for %q: %w", userID, err)
	}
	a.UserID = userID
	a.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &a, nil
}

// PutAnalysis implements AnalysisStore.
func (s *SQLite) PutAnalysis(ctx context.Context, a *decision.Analysis) (*decision.Analysis, error) {
	if a == nil || a.UserID == "" {
		return nil, errors.Join(ErrInvalidRecord, errors.New("analysis user id is required"))
	}
	stored := a.Clone()
	stored.UpdatedAt = s.now().UTC()

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (user_id, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		stored.UserID, string(doc), stored.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("put analysis: %w", err)
	}
	return stored, nil
}

// AppendMessage implements ChatStore.
func (s *SQLite) AppendMessage(ctx context.Context, m *ChatMessage) error {
	if err := validateMessage(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, string(m.Role), m.Content, m.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages implements ChatStore.
func (s *SQLite) ListMessages(ctx context.Context, userID string) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at FROM chat_messages
		 WHERE user_id = ? ORDER BY created_at, seq`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []ChatMessage{}
	for rows.Next() {
		var (
			m       ChatMessage
			role    string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = Role(role)
		m.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateUser implements UserStore.
func (s *SQLite) CreateUser(ctx context.Context, u *User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, normalizeEmail(u.Email), u.PasswordHash, u.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%q: %w", u.Email, ErrEmailTaken)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser implements UserStore.
func (s *SQLite) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row, id)
}

// GetUserByEmail implements UserStore.
func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, normalizeEmail(email))
	return scanUser(row, email)
}

func scanUser(row *sql.Row, key string) (*User, error) {
	var (
		u       User
		created int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

// isUniqueViolation matches SQLite's UNIQUE constraint message.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
