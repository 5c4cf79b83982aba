package apperror

import "errors"

var (
	ErrNotFound        = errors.New("game not found")
	ErrGameFinished    = errors.New("game is already finished")
	ErrInvalidPosition = errors.New("invalid position, must be 0-8")
	ErrCellOccupied    = errors.New("position is already occupied")
	ErrPersistence     = errors.New("storage operation failed")
	ErrConflict        = errors.New("game was modified concurrently")
)

// IsMoveRejected reports errors raised by the engine when a move is not legal.
func IsMoveRejected(err error) bool {
	return errors.Is(err, ErrGameFinished) ||
		errors.Is(err, ErrInvalidPosition) ||
		errors.Is(err, ErrCellOccupied)
}
