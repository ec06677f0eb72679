package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	port := freePort(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_HTTP_PORT", fmt.Sprint(port))
	t.Setenv("NATS_EMBEDDED", "true")
	t.Setenv("REDACT_ENABLED", "false")
	t.Setenv("IDENTITY_BCRYPT_COST", "4")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, "")
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(url)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 5*time.Second, 50*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestInitDependencies_NATSUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.NATS.URL = fmt.Sprintf("nats://127.0.0.1:%d", freePort(t))

	deps, err := initDependencies(cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.natsConn)
	assert.NotNil(t, deps.bus)
	assert.Equal(t, "ok", deps.health(context.Background())["live"])
}

func TestInitDependencies_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.NATS.Disabled = true

	deps, err := initDependencies(cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.natsConn)
	assert.Nil(t, deps.embedded)
}
