package live

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

// subscriptionBuffer bounds undelivered messages per subscriber.
const subscriptionBuffer = 64

// NATSBus publishes and subscribes over a NATS connection.
type NATSBus struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewNATSBus wraps nc. The caller keeps ownership of the connection.
func NewNATSBus(nc *nats.Conn, logger *zap.Logger) *NATSBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSBus{nc: nc, logger: logger}
}

// PublishAnalysis implements Publisher. The payload is the bare snapshot.
func (b *NATSBus) PublishAnalysis(_ context.Context, a *decision.Analysis) error {
	if err := validateUserID(a.UserID); err != nil {
		return err
	}
	return b.publish(Subject(a.UserID, KindAnalysis), a)
}

// PublishMessage implements Publisher. The payload is the bare message.
func (b *NATSBus) PublishMessage(_ context.Context, m *store.ChatMessage) error {
	if err := validateUserID(m.UserID); err != nil {
		return err
	}
	return b.publish(Subject(m.UserID, KindChat), m)
}

func (b *NATSBus) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe implements Subscriber.
func (b *NATSBus) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	if err := validateUserID(userID); err != nil {
		return nil, nil, err
	}

	msgs := make(chan *nats.Msg, subscriptionBuffer)
	sub, err := b.nc.ChanSubscribe(fmt.Sprintf("%s.%s.*", SubjectPrefix, userID), msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}
	// Make sure the server has the interest before returning.
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("subscribe flush: %w", err)
	}

	out := make(chan Event)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg := <-msgs:
				ev, ok := b.decode(userID, msg)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
		<-stopped
	}
	return out, cancel, nil
}

func (b *NATSBus) decode(userID string, msg *nats.Msg) (Event, bool) {
	kind := Kind(msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:])
	ev := Event{Kind: kind, UserID: userID}

	var err error
	switch kind {
	case KindAnalysis:
		ev.Analysis = &decision.Analysis{}
		err = json.Unmarshal(msg.Data, ev.Analysis)
	case KindChat:
		ev.Message = &store.ChatMessage{}
		err = json.Unmarshal(msg.Data, ev.Message)
	default:
		return Event{}, false
	}
	if err != nil {
		b.logger.Warn("dropping malformed live event",
			zap.String("subject", msg.Subject), zap.Error(err))
		return Event{}, false
	}
	return ev, true
}

// Close flushes pending publishes.
func (b *NATSBus) Close() error {
	if b.nc.IsClosed() {
		return nil
	}
	return b.nc.Flush()
}
