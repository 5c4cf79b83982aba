package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
)

// GameResponse is the wire form of a game. BoardDisplay is only filled for single-game reads and moves.
type GameResponse struct {
	ID            string        `json:"id"`
	Board         entity.Board  `json:"board"`
	CurrentPlayer entity.Mark   `json:"current_player"`
	Status        entity.Status `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	BoardDisplay  string        `json:"board_display,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MoveRequest struct {
	Position *int `json:"position"`
}

func newGameResponse(game *entity.Game, withDisplay bool) GameResponse {
	response := GameResponse{
		ID:            game.ID,
		Board:         game.Board,
		CurrentPlayer: game.CurrentPlayer,
		Status:        game.Status,
		CreatedAt:     game.CreatedAt,
		UpdatedAt:     game.UpdatedAt,
	}

	if withDisplay {
		response.BoardDisplay = game.Board.Display()
	}

	return response
}

func respondJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) error {
	return respondJSON(w, status, ErrorResponse{Error: message})
}

// errorStatus maps a service error to the HTTP status and the message safe to show a client.
func errorStatus(err error) (int, string) {
	for _, rejected := range []error{apperror.ErrGameFinished, apperror.ErrInvalidPosition, apperror.ErrCellOccupied} {
		if errors.Is(err, rejected) {
			return http.StatusBadRequest, rejected.Error()
		}
	}

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, apperror.ErrNotFound.Error()
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, apperror.ErrConflict.Error()
	default:
		return http.StatusInternalServerError, apperror.ErrPersistence.Error()
	}
}
