package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
	"github.com/rocketscienceinc/tictactoe-api/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-api/testing/suite"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type repoFactory func(t *testing.T) (context.Context, GameRepository)

func newRedisRepo(t *testing.T) (context.Context, GameRepository) {
	ctx, st := suite.New(t)

	return ctx, NewGameRepository(st.Storage)
}

func newSQLiteRepo(t *testing.T) (context.Context, GameRepository) {
	t.Helper()

	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Init(ctx))

	return ctx, NewSQLiteGameRepository(st.Connection)
}

func newMemoryRepo(_ *testing.T) (context.Context, GameRepository) {
	return context.Background(), NewMemoryGameRepository()
}

func TestGameRepository_Redis(t *testing.T) {
	testGameRepository(t, newRedisRepo)
}

func TestGameRepository_SQLite(t *testing.T) {
	testGameRepository(t, newSQLiteRepo)
}

func TestGameRepository_Memory(t *testing.T) {
	testGameRepository(t, newMemoryRepo)
}

func testGameRepository(t *testing.T, newRepo repoFactory) {
	t.Run("Create_GetByID", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: a new game
		game := entity.NewGame("g1", baseTime)

		// When: it is created and read back
		require.NoError(t, gameRepo.Create(ctx, game))
		stored, err := gameRepo.GetByID(ctx, "g1")

		// Then: the stored game matches
		require.NoError(t, err)
		assertSameGame(t, game, stored)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// When: GetByID is called with an unknown id
		stored, err := gameRepo.GetByID(ctx, "9999999")

		// Then: ErrNotFound is returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, stored)
	})

	t.Run("List_NewestFirst", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: three games created at different times and two sharing a timestamp
		for i, id := range []string{"a", "b", "c"} {
			require.NoError(t, gameRepo.Create(ctx, entity.NewGame(id, baseTime.Add(time.Duration(i)*time.Second))))
		}
		require.NoError(t, gameRepo.Create(ctx, entity.NewGame("d", baseTime)))

		// When: listing
		games, err := gameRepo.List(ctx)

		// Then: newest comes first, ties ordered by id descending
		require.NoError(t, err)
		ids := make([]string, 0, len(games))
		for _, game := range games {
			ids = append(ids, game.ID)
		}
		assert.Equal(t, []string{"c", "b", "d", "a"}, ids)
	})

	t.Run("List_Empty", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		games, err := gameRepo.List(ctx)

		require.NoError(t, err)
		assert.Empty(t, games)
	})

	t.Run("DeleteByID", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: a stored game
		require.NoError(t, gameRepo.Create(ctx, entity.NewGame("g1", baseTime)))

		// When: it is deleted twice
		existed, err := gameRepo.DeleteByID(ctx, "g1")
		require.NoError(t, err)
		again, err := gameRepo.DeleteByID(ctx, "g1")
		require.NoError(t, err)

		// Then: only the first delete found it, and it is gone from reads and lists
		assert.True(t, existed)
		assert.False(t, again)

		_, err = gameRepo.GetByID(ctx, "g1")
		require.ErrorIs(t, err, apperror.ErrNotFound)

		games, err := gameRepo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, games)
	})

	t.Run("Save_BumpsVersion", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: a stored game with a move applied
		game := entity.NewGame("g1", baseTime)
		require.NoError(t, gameRepo.Create(ctx, game))
		require.NoError(t, game.ApplyMove(4, baseTime.Add(time.Second)))

		// When: the game is saved
		err := gameRepo.Save(ctx, game)

		// Then: the version advances and the move is persisted
		require.NoError(t, err)
		assert.Equal(t, int64(1), game.Version)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assertSameGame(t, game, stored)
		assert.Equal(t, entity.MarkX, stored.Board[4])
		assert.Equal(t, entity.MarkO, stored.CurrentPlayer)
	})

	t.Run("Save_StaleVersionConflicts", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: two copies of the same stored game
		require.NoError(t, gameRepo.Create(ctx, entity.NewGame("g1", baseTime)))
		first, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		second, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)

		// When: both try to save a move
		require.NoError(t, first.ApplyMove(0, baseTime))
		require.NoError(t, gameRepo.Save(ctx, first))

		require.NoError(t, second.ApplyMove(8, baseTime))
		err = gameRepo.Save(ctx, second)

		// Then: the second write is rejected and the first survives
		require.ErrorIs(t, err, apperror.ErrConflict)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, entity.MarkX, stored.Board[0])
		assert.True(t, stored.Board[8].IsEmpty())
	})

	t.Run("Save_Deleted", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: a game that was deleted
		game := entity.NewGame("g1", baseTime)
		require.NoError(t, gameRepo.Create(ctx, game))
		_, err := gameRepo.DeleteByID(ctx, "g1")
		require.NoError(t, err)

		// When: saving it
		err = gameRepo.Save(ctx, game)

		// Then: ErrNotFound is returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Save_ConcurrentWritersOneWins", func(t *testing.T) {
		ctx, gameRepo := newRepo(t)

		// Given: a stored game and several writers holding the same version
		require.NoError(t, gameRepo.Create(ctx, entity.NewGame("g1", baseTime)))

		const writers = 8
		results := make([]error, writers)

		// When: all of them save a different move at once
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				game, err := gameRepo.GetByID(ctx, "g1")
				if err != nil {
					results[i] = err
					return
				}
				game.Version = 0
				game.Board = entity.Board{}
				if err = game.ApplyMove(i, baseTime); err != nil {
					results[i] = err
					return
				}
				results[i] = gameRepo.Save(ctx, game)
			}(i)
		}
		wg.Wait()

		// Then: exactly one save succeeds and the rest conflict
		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			require.ErrorIs(t, err, apperror.ErrConflict)
		}
		assert.Equal(t, 1, succeeded)

		stored, err := gameRepo.GetByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
	})
}

func assertSameGame(t *testing.T, expected, actual *entity.Game) {
	t.Helper()

	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.Board, actual.Board)
	assert.Equal(t, expected.CurrentPlayer, actual.CurrentPlayer)
	assert.Equal(t, expected.Status, actual.Status)
	assert.Equal(t, expected.Version, actual.Version)
	assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt), "created_at %v != %v", expected.CreatedAt, actual.CreatedAt)
	assert.True(t, expected.UpdatedAt.Equal(actual.UpdatedAt), "updated_at %v != %v", expected.UpdatedAt, actual.UpdatedAt)
}
