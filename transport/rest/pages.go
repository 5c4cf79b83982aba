package rest

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-api/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-api/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageGameList   = "game_list.html"
	pageGameDetail = "game_detail.html"
	pageNotFound   = "not_found.html"
)

type PageHandler interface {
	GameList(w http.ResponseWriter, r *http.Request)
	GameDetail(w http.ResponseWriter, r *http.Request)
	NotFound(w http.ResponseWriter, r *http.Request)
}

type pageService interface {
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)
}

type pageHandler struct {
	logger *slog.Logger

	game  pageService
	pages map[string]*template.Template
}

type gameListPage struct {
	Games []GameResponse
}

type gameDetailPage struct {
	Game  GameResponse
	Cells []cellView
}

type cellView struct {
	Position int
	Mark     string
	Playable bool
}

func NewPageHandler(logger *slog.Logger, game pageService) (PageHandler, error) {
	pages := make(map[string]*template.Template)

	for _, name := range []string{pageGameList, pageGameDetail, pageNotFound} {
		page, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}

		pages[name] = page
	}

	return &pageHandler{
		logger: logger.With("component", "rest_page_handler"),
		game:   game,
		pages:  pages,
	}, nil
}

// GameList renders every game, newest first. A storage failure renders an empty list.
func (that *pageHandler) GameList(w http.ResponseWriter, r *http.Request) {
	games, err := that.game.ListGames(r.Context())
	if err != nil {
		that.logger.Error("failed to list games", "method", "GameList", "error", err)
		games = nil
	}

	data := gameListPage{Games: make([]GameResponse, 0, len(games))}
	for _, game := range games {
		data.Games = append(data.Games, newGameResponse(game, false))
	}

	that.render(w, http.StatusOK, pageGameList, data)
}

func (that *pageHandler) GameDetail(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			that.logger.Error("failed to get game", "method", "GameDetail", "error", err)
		}
		that.render(w, http.StatusNotFound, pageNotFound, nil)
		return
	}

	data := gameDetailPage{Game: newGameResponse(game, true)}
	for position, mark := range game.Board {
		data.Cells = append(data.Cells, cellView{
			Position: position,
			Mark:     mark.String(),
			Playable: mark.IsEmpty() && !game.IsFinished(),
		})
	}

	that.render(w, http.StatusOK, pageGameDetail, data)
}

func (that *pageHandler) NotFound(w http.ResponseWriter, _ *http.Request) {
	that.render(w, http.StatusNotFound, pageNotFound, nil)
}

func (that *pageHandler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := that.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		that.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		that.logger.Error("failed to write page", "page", name, "error", err)
	}
}
