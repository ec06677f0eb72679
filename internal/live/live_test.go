package live_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

func startNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := live.StartEmbedded("127.0.0.1", -1)
	require.NoError(t, err)
	t.Cleanup(func() {
		srv.Shutdown()
		srv.WaitForShutdown()
	})

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func buses(t *testing.T) map[string]live.Bus {
	return map[string]live.Bus{
		"local": live.NewLocal(),
		"nats":  live.NewNATSBus(startNATS(t), nil),
	}
}

func receive(t *testing.T, ch <-chan live.Event) live.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return live.Event{}
	}
}

func assertClosed(t *testing.T, ch <-chan live.Event) {
	t.Helper()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "sprintai.users.u1.analysis", live.Subject("u1", live.KindAnalysis))
	assert.Equal(t, "sprintai.users.u1.chat", live.Subject("u1", live.KindChat))
}

func TestBus_AnalysisSnapshot(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			defer bus.Close()
			ctx := context.Background()

			events, unsubscribe, err := bus.Subscribe(ctx, "u1")
			require.NoError(t, err)
			defer unsubscribe()

			a := decision.DefaultAnalysis("u1")
			a.Title = "Snapshot"
			require.NoError(t, bus.PublishAnalysis(ctx, a))

			ev := receive(t, events)
			assert.Equal(t, live.KindAnalysis, ev.Kind)
			assert.Equal(t, "u1", ev.UserID)
			require.NotNil(t, ev.Analysis)
			assert.Equal(t, "Snapshot", ev.Analysis.Title)
			assert.Equal(t, a.Options, ev.Analysis.Options)
			assert.Nil(t, ev.Message)

			// The snapshot feeds the reducer unchanged.
			next, err := decision.Reduce(decision.DefaultAnalysis("u1"), ev.Analysis)
			require.NoError(t, err)
			assert.Equal(t, "Snapshot", next.Title)
		})
	}
}

func TestBus_ChatMessage(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			defer bus.Close()
			ctx := context.Background()

			events, unsubscribe, err := bus.Subscribe(ctx, "u1")
			require.NoError(t, err)
			defer unsubscribe()

			msg := &store.ChatMessage{ID: "m1", UserID: "u1", Role: store.RoleAssistant, Content: "go with option 2"}
			require.NoError(t, bus.PublishMessage(ctx, msg))

			ev := receive(t, events)
			assert.Equal(t, live.KindChat, ev.Kind)
			require.NotNil(t, ev.Message)
			assert.Equal(t, "m1", ev.Message.ID)
			assert.Equal(t, "go with option 2", ev.Message.Content)
		})
	}
}

func TestBus_IsolatesUsers(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			defer bus.Close()
			ctx := context.Background()

			events, unsubscribe, err := bus.Subscribe(ctx, "u1")
			require.NoError(t, err)
			defer unsubscribe()

			require.NoError(t, bus.PublishAnalysis(ctx, decision.DefaultAnalysis("u2")))
			mine := decision.DefaultAnalysis("u1")
			require.NoError(t, bus.PublishAnalysis(ctx, mine))

			ev := receive(t, events)
			assert.Equal(t, "u1", ev.UserID)
		})
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			defer bus.Close()

			events, unsubscribe, err := bus.Subscribe(context.Background(), "u1")
			require.NoError(t, err)

			unsubscribe()
			unsubscribe()
			assertClosed(t, events)
		})
	}
}

func TestBus_ContextCancelClosesChannel(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			defer bus.Close()
			ctx, cancel := context.WithCancel(context.Background())

			events, unsubscribe, err := bus.Subscribe(ctx, "u1")
			require.NoError(t, err)
			defer unsubscribe()

			cancel()
			assertClosed(t, events)
		})
	}
}

func TestBus_RejectsInvalidUserID(t *testing.T) {
	for name, bus := range buses(t) {
		t.Run(name, func(t *testing.T) {
			defer bus.Close()

			for _, id := range []string{"", "a.b", "*", ">", "with space"} {
				_, _, err := bus.Subscribe(context.Background(), id)
				assert.ErrorIs(t, err, live.ErrInvalidUserID, id)
			}
			err := bus.PublishAnalysis(context.Background(), decision.DefaultAnalysis("a.b"))
			assert.ErrorIs(t, err, live.ErrInvalidUserID)
		})
	}
}

func TestLocal_CloseEndsSubscriptions(t *testing.T) {
	bus := live.NewLocal()
	events, _, err := bus.Subscribe(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	assertClosed(t, events)

	late, _, err := bus.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	assertClosed(t, late)
}
