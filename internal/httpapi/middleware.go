package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"lenslingua/internal/app"
	"lenslingua/internal/logging"
	"lenslingua/internal/model"
)

type ctxKey struct{}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.NewLogger(r.Context()).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", ww.Status()).
			WithField("bytes", ww.BytesWritten()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("request_id", middleware.GetReqID(r.Context())).
			Info("HTTP request")
	})
}

// basicAuth verifies HTTP Basic credentials against the identity store and
// puts the normalized email into the request context.
func (h *Handler) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="lenslingua"`)
			writeError(w, app.ErrUnauthorized)
			return
		}
		if err := h.app.Authenticate(r.Context(), email, password); err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="lenslingua"`)
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, model.NormalizeEmail(email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userEmail(r *http.Request) string {
	email, _ := r.Context().Value(ctxKey{}).(string)
	return email
}
