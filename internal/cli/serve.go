package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/eventlog/internal/config"
	"github.com/telhawk-systems/eventlog/internal/dlq"
	"github.com/telhawk-systems/eventlog/internal/indexer"
	"github.com/telhawk-systems/eventlog/internal/listener"
	"github.com/telhawk-systems/eventlog/internal/logging"
	"github.com/telhawk-systems/eventlog/internal/messaging"
	"github.com/telhawk-systems/eventlog/internal/server"
	"github.com/telhawk-systems/eventlog/internal/storage"

	natsclient "github.com/telhawk-systems/eventlog/internal/messaging/nats"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume events from NATS and index them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.New(
				logging.ParseLevel(cfg.Logging.Level),
				cfg.Logging.Format,
			).With(logging.Service("eventlog"))
			logging.SetDefault(logger)

			if configPath != "" {
				slog.Info("Loaded configuration", slog.String("config_path", configPath))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

// backend is the configured sender with its readiness check and cleanup.
type backend struct {
	sender indexer.Sender
	name   string
	check  server.ReadinessCheck
	close  func() error
}

func newBackend(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*backend, error) {
	switch cfg.Sender.Backend {
	case config.BackendRedis:
		rs, err := storage.NewRedisSender(cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("Redis sender enabled", "key_prefix", cfg.Redis.KeyPrefix)
		return &backend{sender: rs, name: "redis", check: rs.Ping, close: rs.Close}, nil

	default:
		client, err := storage.NewOpenSearchClient(storage.OpenSearchConfig{
			URL:           cfg.OpenSearch.URL,
			Username:      cfg.OpenSearch.Username,
			Password:      cfg.OpenSearch.Password,
			TLSSkipVerify: cfg.OpenSearch.TLSSkipVerify,
		})
		if err != nil {
			return nil, err
		}

		initCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()

		if err := storage.Ping(initCtx, client); err != nil {
			logger.Warn("OpenSearch not reachable, events will be dropped until it is", logging.Error(err))
		} else if cfg.OpenSearch.InstallTemplate {
			installer := storage.NewTemplateInstaller(client, storage.TemplateConfig{
				BaseIndex:         cfg.Indexer.Index,
				TimestampProperty: cfg.Indexer.TimestampProperty,
				ShardCount:        cfg.OpenSearch.ShardCount,
				ReplicaCount:      cfg.OpenSearch.ReplicaCount,
				RefreshInterval:   cfg.OpenSearch.RefreshInterval,
			})
			if err := installer.Install(initCtx); err != nil {
				logger.Warn("Failed to install index template", logging.Error(err))
			} else {
				logger.Info("Index template installed", "template", installer.Name())
			}
		}

		return &backend{
			sender: storage.NewOpenSearchSender(client),
			name:   "opensearch",
			check:  func(ctx context.Context) error { return storage.Ping(ctx, client) },
			close:  func() error { return nil },
		}, nil
	}
}

func natsConfig(cfg *config.Config, logger *logging.Logger) natsclient.Config {
	return natsclient.Config{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
		Timeout:       cfg.NATS.Timeout,
		Username:      cfg.NATS.Username,
		Password:      cfg.NATS.Password,
		Token:         cfg.NATS.Token,
		Logger:        logger,
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	be, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	opts := []indexer.Option{indexer.WithLogger(logger)}

	var bus messaging.Client
	if cfg.DLQ.Enabled {
		js, err := natsclient.NewJetStreamClient(natsConfig(cfg, logger))
		if err != nil {
			return err
		}
		if _, err := js.CreateOrUpdateStream(ctx, natsclient.DeadLetterStreamConfig(cfg.DLQ.Stream, cfg.DLQ.Subject)); err != nil {
			js.Close()
			return fmt.Errorf("create dlq stream: %w", err)
		}
		opts = append(opts, indexer.WithDeadLetters(dlq.NewJetStreamQueue(js, cfg.DLQ.Subject)))
		logger.Info("Dead letter queue enabled", "stream", cfg.DLQ.Stream, logging.Subject(cfg.DLQ.Subject))
		bus = js.Client
	} else {
		client, err := natsclient.NewClient(natsConfig(cfg, logger))
		if err != nil {
			return err
		}
		bus = client
	}

	ix, err := indexer.New(indexer.Config{
		Host:         cfg.Indexer.Host,
		Index:        cfg.Indexer.Index,
		DocType:      cfg.Indexer.DocType,
		TimestampKey: cfg.Indexer.TimestampProperty,
		Location:     loc,
	}, be.sender, opts...)
	if err != nil {
		bus.Close()
		return err
	}

	l, err := listener.New(listener.Config{
		Subjects: cfg.NATS.Subjects,
		Queue:    cfg.NATS.Queue,
		Prefix:   cfg.NATS.SubjectPrefix,
		Ignore:   []string{cfg.DLQ.Subject},
	}, bus, ix, logger)
	if err != nil {
		bus.Close()
		return err
	}
	if err := l.Start(); err != nil {
		bus.Close()
		return err
	}

	health := server.NewHealthHandler(map[string]server.ReadinessCheck{
		"nats":  func(context.Context) error { return messaging.CheckConnected(bus) },
		be.name: be.check,
	})
	srv := server.New(cfg.Server, server.NewRouter(health))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting eventlog service",
			slog.String("addr", srv.Addr),
			logging.Index(ix.Resolver().Pattern()),
			slog.String("backend", be.name),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-errCh:
		logger.Error("Server error", logging.Error(runErr))
	}

	l.Stop()
	if err := bus.Drain(); err != nil {
		logger.Warn("NATS drain failed", logging.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Error(err))
	}

	logger.Info("Server stopped")
	return runErr
}
