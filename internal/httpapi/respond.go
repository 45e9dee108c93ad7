package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"lenslingua/internal/app"
	"lenslingua/internal/logging"
)

var statusByKind = map[app.Kind]int{
	app.KindValidation:        http.StatusBadRequest,
	app.KindUnauthorized:      http.StatusUnauthorized,
	app.KindPermissionDenied:  http.StatusForbidden,
	app.KindDuplicateUser:     http.StatusConflict,
	app.KindBusy:              http.StatusConflict,
	app.KindMalformedResponse: http.StatusUnprocessableEntity,
	app.KindProviderError:     http.StatusBadGateway,
	app.KindCanceled:          http.StatusConflict,
	app.KindInternal:          http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.NewLogger(context.Background()).Warnf("encode response: %v", err)
	}
}

func writeFailure(w http.ResponseWriter, f app.Failure) {
	status, ok := statusByKind[f.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, f)
}

func writeError(w http.ResponseWriter, err error) {
	writeFailure(w, app.Classify(err))
}
