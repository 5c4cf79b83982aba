package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
)

var (
	errInvalidBody     = errors.New("invalid request body")
	errMissingPosition = errors.New("position is required")
)

type GameHandler interface {
	CreateGame(w http.ResponseWriter, r *http.Request)
	ListGames(w http.ResponseWriter, r *http.Request)
	GetGame(w http.ResponseWriter, r *http.Request)
	DeleteGame(w http.ResponseWriter, r *http.Request)
	MakeMove(w http.ResponseWriter, r *http.Request)
}

type gameService interface {
	CreateGame(ctx context.Context) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)
	DeleteGame(ctx context.Context, id string) error
	MakeMove(ctx context.Context, id string, position int) (*entity.Game, error)
}

type gameHandler struct {
	logger *slog.Logger

	game gameService
}

func NewGameHandler(logger *slog.Logger, game gameService) GameHandler {
	return &gameHandler{
		logger: logger.With("component", "rest_game_handler"),
		game:   game,
	}
}

func (that *gameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.CreateGame(r.Context())
	if err != nil {
		that.fail(w, "CreateGame", err)
		return
	}

	that.write(w, "CreateGame", http.StatusCreated, newGameResponse(game, false))
}

func (that *gameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := that.game.ListGames(r.Context())
	if err != nil {
		that.fail(w, "ListGames", err)
		return
	}

	response := make([]GameResponse, 0, len(games))
	for _, game := range games {
		response = append(response, newGameResponse(game, false))
	}

	that.write(w, "ListGames", http.StatusOK, response)
}

func (that *gameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		that.fail(w, "GetGame", err)
		return
	}

	that.write(w, "GetGame", http.StatusOK, newGameResponse(game, true))
}

func (that *gameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := that.game.DeleteGame(r.Context(), mux.Vars(r)["id"]); err != nil {
		that.fail(w, "DeleteGame", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *gameHandler) MakeMove(w http.ResponseWriter, r *http.Request) {
	position, err := decodeMove(r.Body)
	if err != nil {
		if writeErr := respondError(w, http.StatusBadRequest, err.Error()); writeErr != nil {
			that.logger.Error("failed to write response", "method", "MakeMove", "error", writeErr)
		}
		return
	}

	game, err := that.game.MakeMove(r.Context(), mux.Vars(r)["id"], position)
	if err != nil {
		that.fail(w, "MakeMove", err)
		return
	}

	that.write(w, "MakeMove", http.StatusOK, newGameResponse(game, true))
}

func decodeMove(body io.Reader) (int, error) {
	var request MoveRequest
	if err := json.NewDecoder(body).Decode(&request); err != nil {
		return 0, errInvalidBody
	}

	if request.Position == nil {
		return 0, errMissingPosition
	}

	return *request.Position, nil
}

func (that *gameHandler) fail(w http.ResponseWriter, method string, err error) {
	status, message := errorStatus(err)

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
	} else if !apperror.IsMoveRejected(err) {
		that.logger.Debug("request rejected", "method", method, "status", status, "error", err)
	}

	if writeErr := respondError(w, status, message); writeErr != nil {
		that.logger.Error("failed to write response", "method", method, "error", writeErr)
	}
}

func (that *gameHandler) write(w http.ResponseWriter, method string, status int, data any) {
	if err := respondJSON(w, status, data); err != nil {
		that.logger.Error("failed to write response", "method", method, "error", err)
	}
}
