package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/fleet/internal/config"
	"github.com/Iron-Ham/fleet/internal/event"
	"github.com/Iron-Ham/fleet/internal/logging"
	"github.com/Iron-Ham/fleet/internal/notify"
	"github.com/Iron-Ham/fleet/internal/orchestrator"
	"github.com/Iron-Ham/fleet/internal/server"
	"github.com/Iron-Ham/fleet/internal/telemetry"
	"github.com/Iron-Ham/fleet/internal/worker"
)

// httpShutdownTimeout bounds draining in-flight HTTP requests on shutdown.
const httpShutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator and its HTTP API",
	Long: `Run the orchestrator and its HTTP API.

Events are delivered to the log, to WebSocket clients on /api/v1/events
(notify.websocket_enabled) and to a Redis stream (notify.redis_url).
Editing orchestrator.max_concurrent_agents in the config file takes effect
without a restart. SIGINT or SIGTERM shuts down gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// sinks are the event consumers behind the dispatcher.
type sinks struct {
	notifier notify.Notifier
	bus      *event.Bus
	hub      *notify.Hub
	redis    *redis.Client
}

func (s *sinks) close() {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.bus.Clear()
}

// buildSinks assembles the notifier chain: the in-process bus (which feeds
// the log), the WebSocket hub and the Redis stream, each when enabled.
func buildSinks(cfg *config.Config, logger *logging.Logger) (*sinks, error) {
	s := &sinks{bus: event.NewBus(event.WithBusLogger(logger))}

	logNotifier := notify.NewLogNotifier(logger)
	s.bus.SubscribeAll(func(e event.Event) {
		_ = logNotifier.Notify(context.Background(), e)
	})
	chain := notify.Multi{notify.NewBusNotifier(s.bus)}

	if cfg.Notify.WebsocketEnabled {
		s.hub = notify.NewHub(logger)
		chain = append(chain, s.hub)
	}

	if cfg.Notify.RedisURL != "" {
		rdb, err := notify.NewRedisClient(cfg.Notify.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = rdb
		chain = append(chain, notify.NewRedisStream(rdb, cfg.Notify.RedisStream, cfg.Notify.RedisMaxLen))
	}

	s.notifier = chain
	return s, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	otelShutdown, err := telemetry.Init(ctx, logger, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, Version, cfg.Telemetry.Insecure)
	if err != nil {
		return fmt.Errorf("telemetry init: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	out, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer out.close()

	dispatcher := notify.NewDispatcher(out.notifier,
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithLogger(logger),
	)

	orch := orchestrator.New(
		orchestrator.WithMaxConcurrentAgents(cfg.Orchestrator.MaxConcurrentAgents),
		orchestrator.WithEmitter(dispatcher),
		orchestrator.WithLogger(logger),
		orchestrator.WithInstruments(telemetry.Default()),
	)
	if err := telemetry.RegisterGauges(telemetry.Meter(telemetry.ScopeName), orch); err != nil {
		logger.Warn("failed to register gauges", "error", err.Error())
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithStopTimeout(cfg.Orchestrator.StopTimeout()),
	}
	if out.hub != nil {
		opts = append(opts, server.WithEvents(out.hub))
	}
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(orch, worker.Builtin(), opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if viper.ConfigFileUsed() != "" {
		watchConfig(orch, logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("fleet listening", "addr", cfg.Server.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		orch.RunMetricsPush(gctx, cfg.Orchestrator.MetricsInterval())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("fleet shutting down")
		return shutdown(srv, orch, dispatcher, cfg, logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("fleet stopped")
	return nil
}

// watchConfig applies edits to orchestrator.max_concurrent_agents while the
// server runs. Other settings need a restart.
func watchConfig(orch *orchestrator.Orchestrator, logger *logging.Logger) {
	config.Watch(func(next *config.Config) {
		n := next.Orchestrator.MaxConcurrentAgents
		if n == orch.MaxConcurrentAgents() {
			return
		}
		if err := orch.SetMaxConcurrentAgents(n); err != nil {
			logger.Warn("ignoring config change", "error", err.Error())
			return
		}
		logger.Info("max concurrent agents updated", "max_concurrent_agents", n)
	}, func(err error) {
		logger.Warn("invalid config change ignored", "error", err.Error())
	})
}

// shutdown stops accepting requests, then cancels running tasks, then drains
// the event queue. Each phase gets its own timeout.
func shutdown(srv *http.Server, orch *orchestrator.Orchestrator, d *notify.Dispatcher, cfg *config.Config, logger *logging.Logger) error {
	httpCtx, httpCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := srv.Shutdown(httpCtx); err != nil {
		logger.Error("http shutdown error", "error", err.Error())
	}
	httpCancel()

	orchCtx, orchCancel := context.WithTimeout(context.Background(), cfg.Orchestrator.ShutdownTimeout())
	orchErr := orch.Shutdown(orchCtx)
	orchCancel()
	if orchErr != nil {
		logger.Error("orchestrator shutdown incomplete", "error", orchErr.Error())
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Orchestrator.ShutdownTimeout())
	defer drainCancel()
	if err := d.Close(drainCtx); err != nil {
		logger.Error("event queue not drained", "error", err.Error())
	}

	stats := d.Stats()
	logger.Info("event delivery totals",
		"delivered", stats.Delivered,
		"dropped", stats.Dropped,
		"failed", stats.Failed,
	)
	return nil
}
