package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-api/internal/config"
	"github.com/rocketscienceinc/tictactoe-api/internal/repository"
	"github.com/rocketscienceinc/tictactoe-api/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-api/internal/service"
	"github.com/rocketscienceinc/tictactoe-api/internal/telemetry"
	"github.com/rocketscienceinc/tictactoe-api/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until ctx is canceled or a termination signal arrives.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdownTelemetry, err := telemetry.Setup(ctx, conf.Telemetry)
	if err != nil {
		return fmt.Errorf("could not set up telemetry: %w", err)
	}

	defer func() {
		if err = shutdownTelemetry(context.Background()); err != nil {
			log.Error("could not flush telemetry", "error", err)
		}
	}()

	gameRepo, closeStorage, err := openGameRepository(ctx, log, conf)
	if err != nil {
		return err
	}
	defer closeStorage()

	gameService := service.NewGameService(logger, gameRepo, service.WithMaxRetries(conf.Move.MaxRetries))

	pages, err := rest.NewPageHandler(logger, gameService)
	if err != nil {
		return fmt.Errorf("could not load pages: %w", err)
	}

	router, err := rest.NewRouter(rest.NewGameHandler(logger, gameService), pages, rest.NewPingHandler())
	if err != nil {
		return fmt.Errorf("could not build router: %w", err)
	}

	log.Info("Starting HTTP server", "port", conf.HTTPPort, "storage", conf.Storage.Driver)
	if err = rest.Start(ctx, logger, conf.HTTPPort, router); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// openGameRepository connects the configured storage driver. The returned func releases it.
func openGameRepository(ctx context.Context, log *slog.Logger, conf *config.Config) (repository.GameRepository, func(), error) {
	switch conf.Storage.Driver {
	case config.DriverRedis:
		redisAddrString := conf.Redis.GetRedisAddr()
		if conf.Redis.Host == "" {
			return nil, nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
			Addr:     redisAddrString,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		closeStorage := func() {
			if err := redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}

		return repository.NewGameRepository(redisStorage.Connection), closeStorage, nil

	case config.DriverSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		closeStorage := func() {
			if err := sqliteStorage.Close(); err != nil {
				log.Error("could not close sqlite storage", "error", err)
			}
		}

		if err = sqliteStorage.Init(ctx); err != nil {
			closeStorage()
			return nil, nil, fmt.Errorf("could not initialize sqlite schema: %w", err)
		}

		return repository.NewSQLiteGameRepository(sqliteStorage.Connection), closeStorage, nil

	case config.DriverMemory:
		log.Warn("using in-memory storage, games are lost on restart")
		return repository.NewMemoryGameRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, conf.Storage.Driver)
	}
}
