// Command server wires the enforcement engine behind its HTTP adapter.
// Dependency construction happens here; business logic lives in the internal
// services packages.
package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"veil/internal/audit"
	"veil/internal/classify"
	"veil/internal/consent"
	"veil/internal/enforce"
	enforcemetrics "veil/internal/enforce/metrics"
	"veil/internal/evaluate"
	"veil/internal/obfuscate"
	"veil/internal/platform/config"
	"veil/internal/platform/httpserver"
	"veil/internal/platform/logger"
	platformmetrics "veil/internal/platform/metrics"
	platformredis "veil/internal/platform/redis"
	"veil/internal/policy"
	httptransport "veil/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "veil: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("VEIL_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policyStore, consentStore, cleanup, err := buildStores(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer cleanup()

	managerOpts := []consent.ManagerOption{}
	if cfg.Crypto.ReceiptSigningKey != "" {
		managerOpts = append(managerOpts,
			consent.WithReceiptSigner(consent.NewReceiptSigner(cfg.Crypto.ReceiptSigningKey, "veil")))
	}
	manager := consent.NewManager(consentStore, log, managerOpts...)

	classifier := classify.New()
	evaluator := evaluate.New()

	engineOpts := []obfuscate.EngineOption{}
	if cfg.Crypto.EncryptKey != "" {
		key, err := hex.DecodeString(cfg.Crypto.EncryptKey)
		if err != nil {
			return fmt.Errorf("decode encrypt key: %w", err)
		}
		enc, err := obfuscate.NewChaChaEncrypter(key)
		if err != nil {
			return fmt.Errorf("init encrypter: %w", err)
		}
		engineOpts = append(engineOpts, obfuscate.WithEncrypter(enc))
	}
	engine := obfuscate.NewEngine(classifier, evaluator, log, engineOpts...)

	fileLog, err := audit.OpenFileLog(cfg.Audit.LogPath, log)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	publisherOpts := []audit.PublisherOption{}
	if cfg.Audit.MirrorBroker != "" {
		mirror, err := audit.NewKafkaMirror([]string{cfg.Audit.MirrorBroker}, cfg.Audit.MirrorTopic, log)
		if err != nil {
			return fmt.Errorf("init kafka mirror: %w", err)
		}
		defer mirror.Close()

		inbox := make(chan audit.Entry, 256)
		worker := audit.NewWorker(inbox, mirror)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit mirror worker stopped", zap.Error(err))
			}
		}()
		publisherOpts = append(publisherOpts, audit.WithMirrorChannel(inbox))
	}
	auditor := audit.NewPublisher(fileLog, log, publisherOpts...)

	enforcer := enforce.New(policyStore, manager, engine, auditor, log,
		enforce.WithMetrics(enforcemetrics.New()))

	httpMetrics := platformmetrics.New()
	handler := httptransport.New(enforcer, policyStore, manager, auditor, fileLog, log)
	router := httptransport.NewRouter(handler, log, httpMetrics)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage_backend", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// buildStores selects the persistence backend. The cleanup function closes
// whatever connections the backend opened.
func buildStores(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (policy.Store, consent.Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "memory", "":
		return policy.NewInMemoryStore(), consent.NewInMemoryStore(), noop, nil

	case "file":
		policyStore, err := policy.NewFileStore(cfg.FileDir+"/policies", log)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("init policy file store: %w", err)
		}
		consentStore, err := consent.NewFileStore(cfg.FileDir+"/consents", log)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("init consent file store: %w", err)
		}
		return policyStore, consentStore, noop, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("postgres ping: %w", err)
		}
		cleanup := func() { db.Close() }
		return policy.NewPostgresStore(db, log), consent.NewPostgresStore(db, log), cleanup, nil

	case "redis":
		// Redis backs consents only; policies are few and long-lived, so the
		// file store carries them alongside.
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("init redis: %w", err)
		}
		policyStore, err := policy.NewFileStore(cfg.FileDir+"/policies", log)
		if err != nil {
			client.Close()
			return nil, nil, noop, fmt.Errorf("init policy file store: %w", err)
		}
		cleanup := func() { client.Close() }
		return policyStore, consent.NewRedisStore(client.Client, log), cleanup, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
