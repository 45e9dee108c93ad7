// Package httpapi exposes the controller and the stores over HTTP.
//
//	GET    /healthz
//	POST   /api/register          (public)
//	POST   /api/extract/image     (basic auth, multipart "file")
//	POST   /api/extract/audio     (basic auth, multipart "file")
//	GET    /api/status            (basic auth)
//	POST   /api/reset             (basic auth)
//	GET    /api/history           (basic auth)
//	GET    /api/history/{id}      (basic auth)
//	DELETE /api/history           (basic auth)
//	DELETE /api/history/{id}      (basic auth)
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lenslingua/internal/app"
	"lenslingua/internal/logging"
)

type Handler struct {
	app *app.App
}

func NewRouter(a *app.App) *chi.Mux {
	h := &Handler{app: a}

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(requestLogger)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", h.health)

	mux.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)

		r.Group(func(r chi.Router) {
			r.Use(h.basicAuth)
			r.Post("/extract/image", h.extractImage)
			r.Post("/extract/audio", h.extractAudio)
			r.Get("/status", h.status)
			r.Post("/reset", h.reset)
			r.Get("/history", h.listHistory)
			r.Delete("/history", h.clearHistory)
			r.Get("/history/{id}", h.getHistory)
			r.Delete("/history/{id}", h.deleteHistory)
		})
	})
	return mux
}

// Serve runs the API until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, a *app.App) error {
	cfg := a.Config
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.NewLogger(ctx).Infof("HTTP API listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	logging.NewLogger(ctx).Info("shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}
