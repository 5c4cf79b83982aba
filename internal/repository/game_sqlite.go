package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
)

const selectGameColumns = `SELECT id, board, current_player, status, version, created_at, updated_at FROM games`

type sqliteGame struct {
	conn *sql.DB
}

func NewSQLiteGameRepository(conn *sql.DB) GameRepository {
	return &sqliteGame{
		conn: conn,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func (that *sqliteGame) Create(ctx context.Context, game *entity.Game) error {
	board, err := json.Marshal(game.Board)
	if err != nil {
		return fmt.Errorf("could not marshal board: %w", err)
	}

	query := `INSERT INTO games (id, board, current_player, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = that.conn.ExecContext(ctx, query,
		game.ID,
		string(board),
		game.CurrentPlayer.String(),
		string(game.Status),
		game.Version,
		toMicros(game.CreatedAt),
		toMicros(game.UpdatedAt),
	)
	if err != nil {
		return storageError("can't create game", err)
	}

	return nil
}

func (that *sqliteGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	row := that.conn.QueryRowContext(ctx, selectGameColumns+` WHERE id = ?`, id)

	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return game, nil
}

func (that *sqliteGame) List(ctx context.Context) ([]*entity.Game, error) {
	rows, err := that.conn.QueryContext(ctx, selectGameColumns+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageError("can't list games", err)
	}
	defer rows.Close()

	games := make([]*entity.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}

		games = append(games, game)
	}

	if err = rows.Err(); err != nil {
		return nil, storageError("can't list games", err)
	}

	return games, nil
}

func (that *sqliteGame) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := that.conn.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return false, storageError("can't delete game", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageError("can't delete game", err)
	}

	return affected > 0, nil
}

func (that *sqliteGame) Save(ctx context.Context, game *entity.Game) error {
	board, err := json.Marshal(game.Board)
	if err != nil {
		return fmt.Errorf("could not marshal board: %w", err)
	}

	query := `UPDATE games
		SET board = ?, current_player = ?, status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	result, err := that.conn.ExecContext(ctx, query,
		string(board),
		game.CurrentPlayer.String(),
		string(game.Status),
		toMicros(game.UpdatedAt),
		game.ID,
		game.Version,
	)
	if err != nil {
		return storageError("can't save game", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("can't save game", err)
	}

	if affected == 0 {
		// either the row is gone or another writer bumped the version
		var exists int
		err = that.conn.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, game.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return storageError("can't save game", err)
		}

		return apperror.ErrConflict
	}

	game.Version++

	return nil
}

func scanGame(row scanner) (*entity.Game, error) {
	var (
		game          entity.Game
		board         string
		currentPlayer string
		status        string
		createdAt     int64
		updatedAt     int64
	)

	err := row.Scan(&game.ID, &board, &currentPlayer, &status, &game.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storageError("can't scan game", err)
	}

	if err = json.Unmarshal([]byte(board), &game.Board); err != nil {
		return nil, storageError("can't decode board", err)
	}

	game.CurrentPlayer, err = entity.ParseMark(currentPlayer)
	if err != nil {
		return nil, storageError("can't decode current player", err)
	}

	game.Status = entity.Status(status)
	game.CreatedAt = fromMicros(createdAt)
	game.UpdatedAt = fromMicros(updatedAt)

	return &game, nil
}

func toMicros(value time.Time) int64 {
	return value.UTC().UnixMicro()
}

func fromMicros(value int64) time.Time {
	return time.UnixMicro(value).UTC()
}
