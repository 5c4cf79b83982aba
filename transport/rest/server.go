package rest

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

//go:embed static
var staticFS embed.FS

// NewRouter wires the JSON API under /api, the HTML pages and the static client helpers.
func NewRouter(games GameHandler, pages PageHandler, ping PingHandler) (*mux.Router, error) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/ping", ping.PingHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", games.CreateGame).Methods(http.MethodPost)
	api.HandleFunc("/games", games.ListGames).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", games.GetGame).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", games.DeleteGame).Methods(http.MethodDelete)
	api.HandleFunc("/games/{id}/move", games.MakeMove).Methods(http.MethodPost)

	router.HandleFunc("/", pages.GameList).Methods(http.MethodGet)
	router.HandleFunc("/game/{id}", pages.GameDetail).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	router.NotFoundHandler = http.HandlerFunc(pages.NotFound)

	return router, nil
}

// Start serves handler on port until ctx is canceled, then shuts down gracefully.
func Start(ctx context.Context, logger *slog.Logger, port string, handler http.Handler) error {
	log := logger.With("component", "rest_server")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped with error: %w", err)
	}

	log.Info("server stopped")

	return nil
}
