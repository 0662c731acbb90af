// Command server runs the coordination core and its UI-facing HTTP
// surface. With no infrastructure configured it runs entirely in memory,
// which is the posture for local development and the client simulator.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"haven/internal/adapters"
	"haven/internal/coordination"
	"haven/internal/emergency"
	emergencymetrics "haven/internal/emergency/metrics"
	"haven/internal/platform/config"
	"haven/internal/platform/httpserver"
	"haven/internal/platform/logger"
	"haven/internal/platform/metrics"
	platformredis "haven/internal/platform/redis"
	"haven/internal/settings"
	"haven/internal/stealth"
	stealthmetrics "haven/internal/stealth/metrics"
	transporthttp "haven/internal/transport/http"
	"haven/pkg/platform/audit"
	auditmemory "haven/pkg/platform/audit/store/memory"
	auditpostgres "haven/pkg/platform/audit/store/postgres"
	auditworker "haven/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settings store: redis when configured, memory otherwise.
	var store settings.Store
	if cfg.RedisURL != "" {
		rc, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		store = settings.NewRedisStore(rc.Client)
		log.Info("settings store: redis")
	} else {
		store = settings.NewInMemoryStore()
		log.Info("settings store: memory")
	}

	// Audit journal: postgres when configured, memory otherwise.
	var auditStore audit.Store
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := auditpostgres.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		auditStore = pg
		log.Info("audit store: postgres")
	} else {
		auditStore = auditmemory.NewInMemoryStore()
		log.Info("audit store: memory")
	}

	pub := audit.NewPublisher(audit.WithLogger(log))
	worker := auditworker.New(pub, auditStore, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	m := metrics.New()
	core, err := coordination.New(ctx, store, pub,
		coordination.WithLogger(log), coordination.WithMetrics(m))
	if err != nil {
		return err
	}

	ports, err := buildPorts(ctx, cfg, log)
	if err != nil {
		return err
	}

	stealthSvc, err := stealth.New(ctx, core, store,
		stealth.WithLogger(log), stealth.WithMetrics(stealthmetrics.New()))
	if err != nil {
		return err
	}

	emergencySvc, err := emergency.New(ctx, core, store, ports,
		emergency.WithLogger(log),
		emergency.WithMetrics(emergencymetrics.New()),
		emergency.WithPipelineConfig(emergency.PipelineConfig{
			CountdownWindow: cfg.CountdownWindow,
			StageTimeout:    cfg.StageTimeout,
			StageRetries:    cfg.StageRetries,
			RetryBackoff:    500 * time.Millisecond,
		}))
	if err != nil {
		return err
	}

	handler := transporthttp.NewHandler(core, stealthSvc, emergencySvc, auditStore, log)
	srv := httpserver.New(cfg.Addr, handler.Router())

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown incomplete", "error", err)
	}

	// The worker drains remaining audit entries when its context ends.
	<-workerDone
	return nil
}

// buildPorts selects real adapters where infrastructure is configured and
// memory fakes where it is not.
func buildPorts(ctx context.Context, cfg config.Config, log *slog.Logger) (emergency.Ports, error) {
	ports := emergency.Ports{
		Capture: adapters.NewFSCapture(cfg.MediaDir),
		Wiper:   adapters.NewFSWiper(),
	}

	sealer, err := adapters.NewRandomKeySealer()
	if err != nil {
		return emergency.Ports{}, err
	}
	ports.Sealer = sealer

	if cfg.VaultURL != "" {
		ports.Vault = adapters.NewHTTPVault(cfg.VaultURL, []byte(cfg.VaultSigningKey))
		log.Info("vault: http", "url", cfg.VaultURL)
	} else {
		ports.Vault = adapters.NewMemoryVault()
		log.Info("vault: memory")
	}

	if cfg.KafkaSeeds != "" {
		notifier, err := adapters.NewKafkaNotifier(ctx, strings.Split(cfg.KafkaSeeds, ","), cfg.KafkaTopic)
		if err != nil {
			return emergency.Ports{}, err
		}
		ports.Notifier = notifier
		log.Info("notifier: kafka", "topic", cfg.KafkaTopic)
	} else {
		ports.Notifier = adapters.NewMemoryNotifier()
		log.Info("notifier: memory")
	}

	return ports, nil
}
