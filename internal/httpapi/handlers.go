package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"lenslingua/internal/app"
	"lenslingua/internal/capture"
	"lenslingua/internal/media"
	"lenslingua/internal/model"
)

const multipartOverhead = 1 << 20

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
		writeError(w, &media.ValidationError{Field: "body", Reason: "expected JSON {email, password}"})
		return
	}
	if err := h.app.Auth.Register(r.Context(), in.Email, in.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"email": model.NormalizeEmail(in.Email)})
}

func (h *Handler) extractImage(w http.ResponseWriter, r *http.Request) {
	h.extract(w, r, model.KindScan, h.app.Config.MaxImageBytes)
}

func (h *Handler) extractAudio(w http.ResponseWriter, r *http.Request) {
	h.extract(w, r, model.KindAudio, h.app.Config.MaxAudioBytes)
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request, kind model.Kind, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, media.TooLarge(maxBytes))
			return
		}
		writeError(w, &media.ValidationError{Field: "body", Reason: "expected multipart form with a file field"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, &media.ValidationError{Field: "file", Reason: "missing"})
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = media.TypeByExtension(filepath.Ext(header.Filename))
	}

	state, err := h.app.Controller.Translate(r.Context(), app.Request{
		Email:          userEmail(r),
		Kind:           kind,
		Source:         capture.ReaderSource{Reader: file, MIMEType: mimeType},
		TargetLanguage: r.FormValue("targetLanguage"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Controller.Status(userEmail(r)))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Controller.Reset(userEmail(r)))
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.History.ListForUser(r.Context(), userEmail(r)))
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	item, ok := h.app.History.Get(r.Context(), userEmail(r), chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, app.Failure{Kind: "not_found", Message: "No such record."})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.app.History.ClearForUser(r.Context(), userEmail(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.app.History.DeleteOne(r.Context(), userEmail(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
