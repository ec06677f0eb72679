// Package live delivers per-user change notifications.
//
// Every saved analysis is published as a full snapshot and every stored
// chat message as itself. Consumers never receive diffs; they replace
// their state with decision.Reduce. Two transports exist: NATS for
// multi-process deployments and an in-process Local bus.
package live

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

// SubjectPrefix roots every live subject.
const SubjectPrefix = "sprintai.users"

// Kind names the event stream within a user's subjects.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindChat     Kind = "chat"
)

// ErrInvalidUserID is returned for ids that cannot be a subject token.
var ErrInvalidUserID = errors.New("user id is not a valid subject token")

// Event is one notification. Exactly one of Analysis or Message is set.
type Event struct {
	Kind     Kind               `json:"kind"`
	UserID   string             `json:"userId"`
	Analysis *decision.Analysis `json:"analysis,omitempty"`
	Message  *store.ChatMessage `json:"message,omitempty"`
}

// Publisher emits events.
type Publisher interface {
	PublishAnalysis(ctx context.Context, a *decision.Analysis) error
	PublishMessage(ctx context.Context, m *store.ChatMessage) error
}

// Subscriber streams a user's events. The returned channel is closed
// after the unsubscribe func is called or ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error)
}

// Bus is both ends of a transport.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Subject returns the subject for a user's stream of kind.
func Subject(userID string, kind Kind) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, userID, kind)
}

func validateUserID(userID string) error {
	if userID == "" || strings.ContainsAny(userID, ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return nil
}

func analysisEvent(a *decision.Analysis) Event {
	return Event{Kind: KindAnalysis, UserID: a.UserID, Analysis: a.Clone()}
}

func messageEvent(m *store.ChatMessage) Event {
	cp := *m
	return Event{Kind: KindChat, UserID: m.UserID, Message: &cp}
}
