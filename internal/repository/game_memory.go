package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
)

// memoryGame keeps games in process memory. Games are copied in and out so callers never share state with the store.
type memoryGame struct {
	mu    sync.RWMutex
	games map[string]entity.Game
}

func NewMemoryGameRepository() GameRepository {
	return &memoryGame{
		games: make(map[string]entity.Game),
	}
}

func (that *memoryGame) Create(ctx context.Context, game *entity.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.games[game.ID] = *game

	return nil
}

func (that *memoryGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}

	return &game, nil
}

func (that *memoryGame) List(ctx context.Context) ([]*entity.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	that.mu.RLock()
	games := make([]*entity.Game, 0, len(that.games))
	for _, game := range that.games {
		game := game
		games = append(games, &game)
	}
	that.mu.RUnlock()

	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.After(games[j].CreatedAt)
		}
		return games[i].ID > games[j].ID
	})

	return games, nil
}

func (that *memoryGame) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.games[id]; !ok {
		return false, nil
	}

	delete(that.games, id)

	return true, nil
}

func (that *memoryGame) Save(ctx context.Context, game *entity.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	stored, ok := that.games[game.ID]
	if !ok {
		return apperror.ErrNotFound
	}

	if stored.Version != game.Version {
		return apperror.ErrConflict
	}

	game.Version++
	that.games[game.ID] = *game

	return nil
}
