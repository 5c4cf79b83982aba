package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
	"github.com/rocketscienceinc/tictactoe-api/internal/pkg"
)

const (
	tracerName        = "github.com/rocketscienceinc/tictactoe-api/internal/service"
	defaultMaxRetries = 3
)

type GameService interface {
	CreateGame(ctx context.Context) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)
	DeleteGame(ctx context.Context, id string) error

	MakeMove(ctx context.Context, id string, position int) (*entity.Game, error)
}

type gameRepoDep interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	List(ctx context.Context) ([]*entity.Game, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, game *entity.Game) error
}

type Option func(*gameService)

// WithClock replaces time.Now as the source of game timestamps.
func WithClock(now func() time.Time) Option {
	return func(that *gameService) {
		that.now = now
	}
}

// WithMaxRetries bounds how many times a move is re-applied after a concurrent write.
func WithMaxRetries(attempts int) Option {
	return func(that *gameService) {
		if attempts > 0 {
			that.maxRetries = attempts
		}
	}
}

func WithIDGenerator(generate func() (string, error)) Option {
	return func(that *gameService) {
		that.newID = generate
	}
}

type gameService struct {
	logger *slog.Logger
	tracer trace.Tracer

	gameRepo gameRepoDep
	locks    *pkg.KeyedMutex

	maxRetries int
	now        func() time.Time
	newID      func() (string, error)
}

func NewGameService(logger *slog.Logger, gameRepo gameRepoDep, opts ...Option) GameService {
	service := &gameService{
		logger:     logger.With("component", "game_service"),
		tracer:     otel.Tracer(tracerName),
		gameRepo:   gameRepo,
		locks:      pkg.NewKeyedMutex(),
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		newID:      pkg.GenerateGameID,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

func (that *gameService) CreateGame(ctx context.Context) (*entity.Game, error) {
	ctx, span := that.tracer.Start(ctx, "game.create")
	defer span.End()

	gameID, err := that.newID()
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error generating game ID: %w", err))
	}

	span.SetAttributes(attribute.String("game.id", gameID))

	game := entity.NewGame(gameID, that.now())
	if err = that.gameRepo.Create(ctx, game); err != nil {
		that.logger.Error("failed to create game", "method", "CreateGame", "gameID", gameID, "error", err)
		return nil, recordError(span, fmt.Errorf("failed to create game in storage: %w", err))
	}

	return game, nil
}

func (that *gameService) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	ctx, span := that.tracer.Start(ctx, "game.get", trace.WithAttributes(attribute.String("game.id", id)))
	defer span.End()

	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("failed to retrieve game from storage: %w", err))
	}

	return game, nil
}

func (that *gameService) ListGames(ctx context.Context) ([]*entity.Game, error) {
	ctx, span := that.tracer.Start(ctx, "game.list")
	defer span.End()

	games, err := that.gameRepo.List(ctx)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("failed to list games from storage: %w", err))
	}

	span.SetAttributes(attribute.Int("game.count", len(games)))

	return games, nil
}

func (that *gameService) DeleteGame(ctx context.Context, id string) error {
	ctx, span := that.tracer.Start(ctx, "game.delete", trace.WithAttributes(attribute.String("game.id", id)))
	defer span.End()

	unlock := that.locks.Lock(id)
	defer unlock()

	existed, err := that.gameRepo.DeleteByID(ctx, id)
	if err != nil {
		return recordError(span, fmt.Errorf("failed to delete game: %w", err))
	}

	if !existed {
		return apperror.ErrNotFound
	}

	return nil
}

// MakeMove applies one move under the per-game lock. A save that loses to a concurrent
// writer is retried against the fresh state up to maxRetries times.
func (that *gameService) MakeMove(ctx context.Context, id string, position int) (*entity.Game, error) {
	ctx, span := that.tracer.Start(ctx, "game.move", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.Int("move.position", position),
	))
	defer span.End()

	log := that.logger.With("method", "MakeMove", "gameID", id, "position", position)

	unlock := that.locks.Lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		game, err := that.gameRepo.GetByID(ctx, id)
		if err != nil {
			return nil, recordError(span, fmt.Errorf("failed to get game by id: %w", err))
		}

		if err = game.ApplyMove(position, that.now()); err != nil {
			span.SetAttributes(attribute.String("move.rejected", err.Error()))
			return nil, err
		}

		err = that.gameRepo.Save(ctx, game)
		if err == nil {
			span.SetAttributes(attribute.String("game.status", string(game.Status)))
			return game, nil
		}

		if !errors.Is(err, apperror.ErrConflict) || attempt >= that.maxRetries {
			log.Error("failed to save game", "attempt", attempt, "error", err)
			return nil, recordError(span, fmt.Errorf("failed to save game: %w", err))
		}

		log.Warn("game changed during move, retrying", "attempt", attempt)
	}
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
