package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/humanbelnik/gamenight/internal/config"
	http_init "github.com/humanbelnik/gamenight/internal/delivery/http/init"
	http_auth_middleware "github.com/humanbelnik/gamenight/internal/delivery/http/middleware/auth"
	http_preference "github.com/humanbelnik/gamenight/internal/delivery/http/preference"
	http_session "github.com/humanbelnik/gamenight/internal/delivery/http/session"
	ws_session "github.com/humanbelnik/gamenight/internal/delivery/ws/session"
	infra_dynamo_init "github.com/humanbelnik/gamenight/internal/infra/dynamo/init"
	infra_dynamo_session "github.com/humanbelnik/gamenight/internal/infra/dynamo/session"
	infra_memory_session "github.com/humanbelnik/gamenight/internal/infra/memory/session"
	infra_otel "github.com/humanbelnik/gamenight/internal/infra/otel"
	infra_redis_init "github.com/humanbelnik/gamenight/internal/infra/redis/init"
	infra_redis_snapshot_cache "github.com/humanbelnik/gamenight/internal/infra/redis/snapshot_cache"
	infra_redis_status_bus "github.com/humanbelnik/gamenight/internal/infra/redis/status_bus"
	infra_sql_init "github.com/humanbelnik/gamenight/internal/infra/sql/init"
	infra_sql_session "github.com/humanbelnik/gamenight/internal/infra/sql/session"
	service_auth_token "github.com/humanbelnik/gamenight/internal/service/auth/token"
	storage_session "github.com/humanbelnik/gamenight/internal/storage/session"
	usecase_host "github.com/humanbelnik/gamenight/internal/usecase/host"
	usecase_preference "github.com/humanbelnik/gamenight/internal/usecase/preference"
	usecase_session "github.com/humanbelnik/gamenight/internal/usecase/session"
)

const (
	snapshotKey      = "session_snapshot"
	statusChannel    = "session_status"
	shutdownDeadline = 10 * time.Second
)

func Go(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := slog.Default()

	shutdownTracing, err := infra_otel.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	hub := ws_session.NewHub(logger)
	var publisher usecase_session.StatusPublisher = hub
	var storageOpts []storage_session.Option

	if cfg.Redis.Enabled {
		redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
		defer redisConn.Close()

		storageOpts = append(storageOpts, storage_session.WithSnapshotCache(
			infra_redis_snapshot_cache.New(redisConn, snapshotKey, cfg.Redis.SnapshotTTL)))

		// Every instance pushes what any instance published.
		bus := infra_redis_status_bus.New(redisConn, statusChannel)
		publisher = bus
		go func() {
			if err := bus.Run(ctx, hub.Deliver); err != nil {
				logger.Error("status bus stopped", slog.String("error", err.Error()))
			}
		}()
	}

	storage := storage_session.New(repo, storageOpts...)

	hostUC := usecase_host.New(storage, cfg.Host.AutoProvision)
	sessionUC := usecase_session.New(storage, hostUC, publisher,
		usecase_session.WithTTL(cfg.Session.TTL),
		usecase_session.WithLogger(logger))
	preferenceUC := usecase_preference.New(storage, nil)

	tokens := service_auth_token.New(cfg.Auth.Secret, cfg.Auth.Issuer)
	authMiddleware := http_auth_middleware.New(tokens)

	controllerPool := http_init.NewControllerPool(cfg.HTTP)
	controllerPool.Add(http_session.New(sessionUC, authMiddleware, http_session.WithLogger(logger)))
	controllerPool.Add(http_preference.New(preferenceUC, authMiddleware, http_preference.WithLogger(logger)))
	controllerPool.AddRoot(ws_session.NewController(sessionUC, hub, ws_session.WithLogger(logger)))

	controllerPool.Register()
	return controllerPool.RunAll(ctx, shutdownDeadline)
}

func openRepository(ctx context.Context, cfg *config.Config) (storage_session.Repository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		return infra_memory_session.New(), func() {}, nil
	case config.StorePostgres, config.StoreSQLite:
		db, err := infra_sql_init.Open(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("sql store: %w", err)
		}
		return infra_sql_session.New(db), func() { db.Close() }, nil
	case config.StoreDynamo:
		client := infra_dynamo_init.MustEstablishConn(ctx, cfg.Dynamo)
		return infra_dynamo_session.New(client, infra_dynamo_session.Tables{
			Sessions: cfg.Dynamo.SessionsTable,
			Catalog:  cfg.Dynamo.CatalogTable,
			Users:    cfg.Dynamo.UsersTable,
		}), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
