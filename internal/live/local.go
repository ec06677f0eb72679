package live

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

// Local is an in-process Bus. Publishing never blocks: a subscriber whose
// buffer is full misses the event.
type Local struct {
	mu     sync.Mutex
	subs   map[string]map[*localSub]struct{}
	closed bool
}

type localSub struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewLocal creates an empty in-process bus.
func NewLocal() *Local {
	return &Local{subs: make(map[string]map[*localSub]struct{})}
}

// PublishAnalysis implements Publisher.
func (l *Local) PublishAnalysis(_ context.Context, a *decision.Analysis) error {
	if err := validateUserID(a.UserID); err != nil {
		return err
	}
	l.fanout(analysisEvent(a))
	return nil
}

// PublishMessage implements Publisher.
func (l *Local) PublishMessage(_ context.Context, m *store.ChatMessage) error {
	if err := validateUserID(m.UserID); err != nil {
		return err
	}
	l.fanout(messageEvent(m))
	return nil
}

func (l *Local) fanout(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s := range l.subs[ev.UserID] {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// Subscribe implements Subscriber.
func (l *Local) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	if err := validateUserID(userID); err != nil {
		return nil, nil, err
	}
	s := &localSub{ch: make(chan Event, subscriptionBuffer), done: make(chan struct{})}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	if l.subs[userID] == nil {
		l.subs[userID] = make(map[*localSub]struct{})
	}
	l.subs[userID][s] = struct{}{}
	l.mu.Unlock()

	cancel := func() { l.remove(userID, s) }
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()
	return s.ch, cancel, nil
}

func (l *Local) remove(userID string, s *localSub) {
	s.once.Do(func() {
		l.mu.Lock()
		if set, ok := l.subs[userID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(l.subs, userID)
			}
		}
		close(s.ch)
		l.mu.Unlock()
		close(s.done)
	})
}

// Close ends every subscription.
func (l *Local) Close() error {
	l.mu.Lock()
	l.closed = true
	var pending []func()
	for user, set := range l.subs {
		for s := range set {
			pending = append(pending, func() { l.remove(user, s) })
		}
	}
	l.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return nil
}
