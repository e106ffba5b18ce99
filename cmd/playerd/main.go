package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"playerstore/internal/players"
	"playerstore/pkg/cache"
	"playerstore/pkg/config"
	"playerstore/pkg/events"
	"playerstore/pkg/logger"
	"playerstore/pkg/retry"
	"playerstore/pkg/server"
	"playerstore/pkg/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "optional path to a config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()

	l.Info("player service initializing",
		zap.String("env", cfg.Environment),
		zap.String("driver", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Error("player service failed", err)
		os.Exit(1)
	}
	l.Info("player service stopped")
}

func run(ctx context.Context, cfg *config.AppConfig, l *logger.Logger) error {
	// 3. Open the store and wait until it answers
	st, err := store.Open(ctx, store.Config{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		MinConns: cfg.Store.MinConns,
		MaxConns: cfg.Store.MaxConns,
	}, l.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	connectOpts := retry.DefaultOptions()
	if cfg.Store.ConnectAttempts > 0 {
		connectOpts.MaxAttempts = cfg.Store.ConnectAttempts
	}
	err = retry.Do(ctx, connectOpts, func(ctx context.Context) error {
		if err := st.Ping(ctx); err != nil {
			l.Warn("store not reachable yet", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}

	// 4. Optional read cache and change events
	var opts []players.Option
	if cfg.CacheEnabled() {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		opts = append(opts, players.WithCache(cache.NewRedisCache(client, cfg.Redis.Key, cfg.Redis.TTL)))
		l.Info("read cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	if cfg.EventsEnabled() {
		pub := events.NewKafkaPublisher(events.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		qcfg := events.DefaultQueueConfig()
		qcfg.Size = cfg.Kafka.QueueSize
		qcfg.Timeout = cfg.Kafka.PublishTimeout
		queue := events.NewQueue(pub, l.Named("events"), qcfg)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := queue.Close(flushCtx); err != nil {
				l.Error("change events not fully flushed", err)
			}
		}()
		opts = append(opts, players.WithEvents(queue))
		l.Info("change events enabled", zap.String("topic", cfg.Kafka.Topic))
	}

	// 5. Service and HTTP server
	svc := players.NewService(l.Named("players"), st, opts...)

	srv := server.New(server.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, l.Named("http"), svc.Ready)
	players.NewHandler(svc, l.Named("http"), cfg.HTTP.MaxBodyBytes).RegisterRoutes(srv.Router())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		l.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
