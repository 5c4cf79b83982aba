package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
)

const (
	gameKeyPrefix = "game:"
	gamesIndexKey = "games"
)

// GameRepository is the Store the game service persists through.
// Save succeeds only while the stored version equals game.Version and bumps it on success.
type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	List(ctx context.Context) ([]*entity.Game, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, game *entity.Game) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func (that *dbGame) Create(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	gameKey := gameKeyPrefix + game.ID

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey, gameJSON, 0)
		pipe.ZAdd(ctx, gamesIndexKey, redis.Z{
			Score:  float64(game.CreatedAt.UnixMicro()),
			Member: game.ID,
		})
		return nil
	})
	if err != nil {
		return storageError("failed to create game", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, storageError("failed to get game by id", err)
	}

	return decodeGame(response)
}

// List returns games newest first. Ties on creation time fall back to id, descending.
func (that *dbGame) List(ctx context.Context) ([]*entity.Game, error) {
	ids, err := that.client.ZRevRange(ctx, gamesIndexKey, 0, -1).Result()
	if err != nil {
		return nil, storageError("failed to read games index", err)
	}

	if len(ids) == 0 {
		return []*entity.Game{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, gameKeyPrefix+id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageError("failed to get games", err)
	}

	games := make([]*entity.Game, 0, len(values))
	for _, value := range values {
		// deleted between the index read and the fetch
		raw, ok := value.(string)
		if !ok {
			continue
		}

		game, err := decodeGame(raw)
		if err != nil {
			return nil, err
		}

		games = append(games, game)
	}

	return games, nil
}

func (that *dbGame) DeleteByID(ctx context.Context, id string) (bool, error) {
	var deleted *redis.IntCmd

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, gameKeyPrefix+id)
		pipe.ZRem(ctx, gamesIndexKey, id)
		return nil
	})
	if err != nil {
		return false, storageError("failed to delete game by id", err)
	}

	return deleted.Val() > 0, nil
}

func (that *dbGame) Save(ctx context.Context, game *entity.Game) error {
	gameKey := gameKeyPrefix + game.ID

	next := *game
	next.Version++

	gameJSON, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, gameKey).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return storageError("failed to get game", err)
		}

		stored, err := decodeGame(response)
		if err != nil {
			return err
		}

		if stored.Version != game.Version {
			return apperror.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey, gameJSON, 0)
			return nil
		})

		return err
	}

	err = that.client.Watch(ctx, txf, gameKey)
	switch {
	case err == nil:
		game.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return apperror.ErrConflict
	case errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrPersistence):
		return err
	default:
		return storageError("failed to save game", err)
	}
}

func decodeGame(raw string) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal([]byte(raw), &game); err != nil {
		return nil, storageError("failed to unmarshal game", err)
	}

	return &game, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperror.ErrPersistence, op, err)
}
