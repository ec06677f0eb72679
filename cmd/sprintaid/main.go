// Command sprintaid serves the sprintai HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/analysis"
	"github.com/fyrsmithlabs/sprintai/internal/chat"
	"github.com/fyrsmithlabs/sprintai/internal/config"
	httpserver "github.com/fyrsmithlabs/sprintai/internal/http"
	"github.com/fyrsmithlabs/sprintai/internal/identity"
	"github.com/fyrsmithlabs/sprintai/internal/inference"
	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/logging"
	"github.com/fyrsmithlabs/sprintai/internal/metrics"
	"github.com/fyrsmithlabs/sprintai/internal/redact"
	"github.com/fyrsmithlabs/sprintai/internal/store"
	"github.com/fyrsmithlabs/sprintai/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ~/.config/sprintai/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  sprintaid           Start the sprintai server\n")
			fmt.Fprintf(os.Stderr, "  sprintaid version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("sprintaid by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the server and blocks until ctx is cancelled, then shuts
// down within the configured timeout.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	if !cfg.Inference.APIKey.IsSet() {
		cfg.Inference.APIKey = config.Secret(os.Getenv("GROQ_API_KEY"))
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting sprintaid",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("inference_key_set", cfg.Inference.APIKey.IsSet()))

	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	svc, err := initServices(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		_ = svc.Identity.Close()
	}()

	srv, err := httpserver.NewServer(svc, logger, &httpserver.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	return errors.Join(errs...)
}

func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*zap.Logger, error) {
	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, err
	}
	l, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, err
	}
	return l.Underlying(), nil
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	store    store.Store
	bus      live.Bus
	natsConn *nats.Conn
	embedded *natsserver.Server
	logger   *zap.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			d.logger.Warn("live bus close failed", zap.Error(err))
		}
	}
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if d.embedded != nil {
		d.embedded.Shutdown()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("store close failed", zap.Error(err))
		}
	}
}

// initDependencies opens the store and the live bus. A NATS server that
// cannot be reached degrades to the in-process bus.
func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	deps := &dependencies{store: st, logger: logger}

	if cfg.NATS.Disabled {
		logger.Info("NATS disabled, using in-process live bus")
		deps.bus = live.NewLocal()
		return deps, nil
	}

	url := cfg.NATS.URL
	if cfg.NATS.Embedded {
		ns, err := live.StartEmbedded("127.0.0.1", -1)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("start embedded nats: %w", err)
		}
		deps.embedded = ns
		url = ns.ClientURL()
		logger.Info("embedded NATS server started", zap.String("url", url))
	}

	nc, err := nats.Connect(url,
		nats.Name("sprintaid"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		logger.Warn("NATS unavailable, using in-process live bus",
			zap.String("url", url), zap.Error(err))
		deps.bus = live.NewLocal()
		return deps, nil
	}
	deps.natsConn = nc
	deps.bus = live.NewNATSBus(nc, logger)
	return deps, nil
}

func initServices(cfg *config.Config, deps *dependencies, logger *zap.Logger) (httpserver.Services, error) {
	m := metrics.Default()

	ids, err := identity.NewService(deps.store, identity.FromSettings(cfg.Identity), logger.Named("identity"))
	if err != nil {
		return httpserver.Services{}, err
	}

	an, err := analysis.NewService(deps.store, deps.bus, logger.Named("analysis"), analysis.WithRecorder(m))
	if err != nil {
		_ = ids.Close()
		return httpserver.Services{}, err
	}

	llm, err := inference.New(inference.FromSettings(cfg.Inference), logger.Named("inference"))
	if err != nil {
		_ = ids.Close()
		return httpserver.Services{}, err
	}

	red, err := redact.New(redact.FromSettings(cfg.Redact), logger.Named("redact"))
	if err != nil {
		_ = ids.Close()
		return httpserver.Services{}, err
	}

	ch, err := chat.NewService(deps.store, llm, logger.Named("chat"),
		chat.WithScrubber(red),
		chat.WithPublisher(deps.bus),
		chat.WithRecorder(m),
		chat.WithSystemPrompt(cfg.Inference.SystemPrompt),
	)
	if err != nil {
		_ = ids.Close()
		return httpserver.Services{}, err
	}

	return httpserver.Services{
		Identity: ids,
		Analysis: an,
		Chat:     ch,
		Events:   deps.bus,
		Metrics:  m,
		Health:   deps.health,
	}, nil
}

// health reports dependency status for GET /health.
func (d *dependencies) health(context.Context) map[string]string {
	out := map[string]string{"store": "ok", "live": "ok"}
	if d.natsConn != nil && !d.natsConn.IsConnected() {
		out["live"] = d.natsConn.Status().String()
	}
	return out
}
