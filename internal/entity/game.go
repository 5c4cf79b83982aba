package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
)

const (
	StatusInProgress Status = "in_progress"
	StatusXWins      Status = "X_wins"
	StatusOWins      Status = "O_wins"
	StatusDraw       Status = "draw"
)

// BoardSize is the number of cells on the 3x3 board.
const BoardSize = 9

// emptyGlyph is drawn in place of an empty cell by Display.
const emptyGlyph = "."

// WinCombos lists the rows top-to-bottom, the columns left-to-right, then both diagonals.
// EvaluateWinner scans them in this order.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Status is the lifecycle state of a game. Every value except StatusInProgress is terminal.
type Status string

func (that Status) IsTerminal() bool {
	return that != StatusInProgress
}

// Board holds the nine cells in row-major order.
type Board [BoardSize]Mark

type Game struct {
	ID            string    `json:"id"`
	Board         Board     `json:"board"`
	CurrentPlayer Mark      `json:"current_player"`
	Status        Status    `json:"status"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewGame returns a game with an empty board, X to move.
func NewGame(id string, now time.Time) *Game {
	now = now.UTC()

	return &Game{
		ID:            id,
		CurrentPlayer: MarkX,
		Status:        StatusInProgress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyMove places the current player's mark at position and advances the game.
// Nothing is modified when an error is returned.
func (that *Game) ApplyMove(position int, now time.Time) error {
	if that.Status != StatusInProgress {
		return apperror.ErrGameFinished
	}

	if position < 0 || position >= BoardSize {
		return apperror.ErrInvalidPosition
	}

	if !that.Board[position].IsEmpty() {
		return apperror.ErrCellOccupied
	}

	that.Board[position] = that.CurrentPlayer
	that.UpdatedAt = now.UTC()

	switch winner := that.Board.EvaluateWinner(); {
	case !winner.IsEmpty():
		that.Status = winStatus(winner)
	case that.Board.IsFull():
		that.Status = StatusDraw
	default:
		that.CurrentPlayer = that.CurrentPlayer.Opponent()
	}

	return nil
}

func (that *Game) IsFinished() bool {
	return that.Status.IsTerminal()
}

// EvaluateWinner returns the mark of the first completed line, or MarkEmpty.
func (that *Board) EvaluateWinner() Mark {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if !a.IsEmpty() && a == b && b == c {
			return a
		}
	}

	return MarkEmpty
}

// EvaluateDraw reports a full board with no completed line.
func (that *Board) EvaluateDraw() bool {
	return that.EvaluateWinner().IsEmpty() && that.IsFull()
}

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell.IsEmpty() {
			return false
		}
	}

	return true
}

// Display renders the board as three rows separated by dashed lines.
func (that *Board) Display() string {
	glyph := func(i int) string {
		if that[i].IsEmpty() {
			return emptyGlyph
		}
		return that[i].String()
	}

	rows := make([]string, 0, 3)
	for row := 0; row < 3; row++ {
		i := row * 3
		rows = append(rows, fmt.Sprintf(" %s | %s | %s", glyph(i), glyph(i+1), glyph(i+2)))
	}

	return strings.Join(rows, "\n-----------\n")
}

func winStatus(winner Mark) Status {
	if winner == MarkX {
		return StatusXWins
	}
	return StatusOWins
}
