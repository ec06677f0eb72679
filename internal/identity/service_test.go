package identity_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/sprintai/internal/identity"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T, opts ...identity.Option) *identity.Service {
	t.Helper()
	svc, err := identity.NewService(store.NewMemory(), identity.Config{
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   identity.RegisterInput
		want error
	}{
		{"missing email", identity.RegisterInput{Password: "secret1", ConfirmPassword: "secret1"}, identity.ErrMissingFields},
		{"missing password", identity.RegisterInput{Email: "a@b.co"}, identity.ErrMissingFields},
		{"mismatch checked before length", identity.RegisterInput{Email: "a@b.co", Password: "abc", ConfirmPassword: "abd"}, identity.ErrPasswordMismatch},
		{"short password", identity.RegisterInput{Email: "a@b.co", Password: "abc12", ConfirmPassword: "abc12"}, identity.ErrWeakPassword},
		{"password over 72 bytes", identity.RegisterInput{Email: "a@b.co", Password: strings.Repeat("a", 80), ConfirmPassword: strings.Repeat("a", 80)}, identity.ErrPasswordTooLong},
		{"length checked before email", identity.RegisterInput{Email: "nope", Password: "abc", ConfirmPassword: "abc"}, identity.ErrWeakPassword},
		{"bad email", identity.RegisterInput{Email: "not-an-email", Password: "secret1", ConfirmPassword: "secret1"}, identity.ErrInvalidEmail},
		{"email without dotted domain", identity.RegisterInput{Email: "a@localhost", Password: "secret1", ConfirmPassword: "secret1"}, identity.ErrInvalidEmail},
		{"display name form", identity.RegisterInput{Email: "Ada <a@b.co>", Password: "secret1", ConfirmPassword: "secret1"}, identity.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t)
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, identity.IsValidation(err))
		})
	}
}

func TestRegister_SignsIn(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, identity.RegisterInput{
		Email: "Ada@Example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	assert.Len(t, sess.Token, 64)
	assert.NotEmpty(t, sess.User.ID)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.False(t, sess.User.CreatedAt.IsZero())

	got, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.UserID())
}

func TestRegister_MaxPasswordLength(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	pw := strings.Repeat("a", identity.MaxPasswordBytes)

	sess, err := svc.Register(ctx, identity.RegisterInput{Email: "ada@example.com", Password: pw, ConfirmPassword: pw})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "ada@example.com", pw)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
}

func TestRegister_EmailInUse(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	in := identity.RegisterInput{Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"}

	_, err := svc.Register(ctx, in)
	require.NoError(t, err)

	in.Email = "ADA@example.com"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, identity.ErrEmailInUse)
	assert.False(t, identity.IsValidation(err))
}

func TestSignIn(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, identity.RegisterInput{Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)

	sess, err := svc.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.SignIn(ctx, "ada@example.com", "wrong-pass")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "bob@example.com", "secret1")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "", "")
	assert.ErrorIs(t, err, identity.ErrMissingFields)
}

func TestSignOut(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, identity.RegisterInput{Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.Token))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	// Signing out twice is harmless.
	assert.NoError(t, svc.SignOut(ctx, sess.Token))
}

func TestAuthenticate_Unknown(t *testing.T) {
	svc := newService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	_, err = svc.Authenticate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}

func TestSessionExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(t, identity.WithClock(clock.Now))
	ctx := context.Background()

	sess, err := svc.Register(ctx, identity.RegisterInput{Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), sess.ExpiresAt)

	clock.Advance(59 * time.Minute)
	_, err = svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	other, err := svc.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	assert.Equal(t, 0, svc.Sweep(), "expired session already dropped by Authenticate")

	clock.Advance(time.Hour)
	assert.Equal(t, 1, svc.Sweep())
	_, err = svc.Authenticate(ctx, other.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}

func TestSweeperStopsOnClose(t *testing.T) {
	svc, err := identity.NewService(store.NewMemory(), identity.Config{
		SessionTTL:    time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
		BcryptCost:    bcrypt.MinCost,
	}, nil)
	require.NoError(t, err)

	sess, err := svc.Register(context.Background(), identity.RegisterInput{Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := svc.Authenticate(context.Background(), sess.Token)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	_, err = svc.SignIn(context.Background(), "ada@example.com", "secret1")
	assert.ErrorIs(t, err, identity.ErrClosed)
}

func TestAuthenticate_Closed(t *testing.T) {
	svc, err := identity.NewService(store.NewMemory(), identity.Config{
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	require.NoError(t, err)

	sess, err := svc.Register(context.Background(), identity.RegisterInput{Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	_, err = svc.Authenticate(context.Background(), sess.Token)
	assert.ErrorIs(t, err, identity.ErrClosed)
}

func TestNewService_Errors(t *testing.T) {
	_, err := identity.NewService(nil, identity.Config{}, nil)
	assert.Error(t, err)

	_, err = identity.NewService(store.NewMemory(), identity.Config{BcryptCost: 99}, nil)
	assert.Error(t, err)
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	_, ok := identity.SessionFromContext(ctx)
	assert.False(t, ok)

	assert.Equal(t, ctx, identity.WithSession(ctx, nil))

	sess := &identity.Session{Token: "t", User: identity.Profile{ID: "u1"}}
	got, ok := identity.SessionFromContext(identity.WithSession(ctx, sess))
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID())
}
