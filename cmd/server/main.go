package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tpvrestaurante/internal/api"
	"tpvrestaurante/internal/audit"
	"tpvrestaurante/internal/config"
	"tpvrestaurante/internal/db"
	"tpvrestaurante/internal/guard"
	"tpvrestaurante/internal/notify"
	"tpvrestaurante/internal/pos"
	"tpvrestaurante/internal/report"
	"tpvrestaurante/internal/store/sqlstore"
)

func main() {
	os.Exit(serve())
}

// serve returns the process exit code so that deferred cleanup runs before os.Exit.
func serve() int {
	config.LoadDotEnv()
	cfg := config.Load()

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return 1
	}
	logger.Info("server stopped")
	return 0
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	conn, err := db.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	store := sqlstore.New(conn)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready", zap.String("driver", cfg.DBDriver))

	opts := []pos.Option{pos.WithLogger(log.Named("pos"))}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		opts = append(opts, pos.WithGuard(guard.NewRedis(rdb, "tpv:guard:"), cfg.CloseGuardTTL))
		log.Info("close guard uses redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		opts = append(opts, pos.WithGuard(guard.NewMemory(), cfg.CloseGuardTTL))
	}

	deps := api.Deps{
		Catalog: store,
		Ping:    store.Ping,
		Logger:  log.Named("http"),
	}
	if cfg.Mongo.URI != "" {
		mirror, err := audit.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return fmt.Errorf("connect audit mirror: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mirror.Close(closeCtx)
		}()
		opts = append(opts, pos.WithAudit(mirror))
		deps.Audit = mirror
		log.Info("audit mirror enabled", zap.String("database", cfg.Mongo.Database))
	}

	// The hub snapshot reads through the service, which is built after the bus it
	// publishes to.
	var svc *pos.Service
	hub := notify.NewHub(func(ctx context.Context) (any, error) {
		return svc.ListTables(ctx)
	}, log.Named("ws"))
	bus := notify.NewBus(cfg.NotifyQueueSize, log.Named("notify"), hub)

	if cfg.RabbitMQURL != "" {
		amqpConn, ch, err := notify.DialAMQP(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer amqpConn.Close()
		defer ch.Close()
		bus.AddSink(notify.NewAMQPSink(ch, cfg.RabbitMQExchange, log.Named("amqp")))
	}

	opts = append(opts, pos.WithNotifier(bus))
	svc = pos.NewService(store, store, opts...)
	registrar := report.NewRegistrar(store, store, cfg.Location, cfg.RegisterCloseHour, log.Named("register"))

	deps.Service = svc
	deps.Reports = registrar
	deps.Hub = hub
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(cfg, deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Run(gctx) })
	g.Go(func() error { return registrar.Run(gctx) })
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
