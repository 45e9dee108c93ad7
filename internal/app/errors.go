package app

import (
	"context"
	"errors"
	"net/http"

	"lenslingua/internal/auth"
	"lenslingua/internal/capture"
	"lenslingua/internal/extract"
	"lenslingua/internal/history"
	"lenslingua/internal/llm"
	"lenslingua/internal/media"
)

var (
	ErrBusy         = errors.New("a translation is already in progress")
	ErrUnauthorized = errors.New("invalid email or password")
	ErrPanic        = errors.New("translation crashed")
)

// Kind names a failure class shown to users and written to the audit log.
type Kind string

const (
	KindPermissionDenied  Kind = "permission_denied"
	KindProviderError     Kind = "provider_error"
	KindMalformedResponse Kind = "malformed_response"
	KindDuplicateUser     Kind = "duplicate_user"
	KindValidation        Kind = "validation_error"
	KindBusy              Kind = "busy"
	KindUnauthorized      Kind = "unauthorized"
	KindCanceled          Kind = "canceled"
	KindInternal          Kind = "internal"
)

type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (f Failure) Error() string { return string(f.Kind) + ": " + f.Message }

// Classify maps any error to a user-facing failure.
func Classify(err error) Failure {
	var (
		providerErr *llm.ProviderError
		validErr    *media.ValidationError
		failure     Failure
	)
	switch {
	case err == nil:
		return Failure{}
	case errors.As(err, &failure):
		return failure
	case errors.Is(err, ErrBusy):
		return Failure{Kind: KindBusy, Message: "A translation is already running. Wait for it to finish or reset."}
	case errors.Is(err, context.Canceled):
		return Failure{Kind: KindCanceled, Message: "The translation was canceled."}
	case errors.Is(err, capture.ErrPermissionDenied):
		return Failure{Kind: KindPermissionDenied, Message: "Access to the camera, microphone or file was denied. Grant permission and try again."}
	case errors.Is(err, ErrUnauthorized):
		return Failure{Kind: KindUnauthorized, Message: "Invalid email or password."}
	case errors.Is(err, auth.ErrDuplicateUser):
		return Failure{Kind: KindDuplicateUser, Message: "An account with this email already exists."}
	case errors.As(err, &validErr):
		return Failure{Kind: KindValidation, Message: "Cannot process this input: " + validErr.Error() + "."}
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, history.ErrInvalidRecord):
		return Failure{Kind: KindValidation, Message: err.Error()}
	case errors.Is(err, extract.ErrMalformedResponse):
		return Failure{Kind: KindMalformedResponse, Message: "The translation service returned an unreadable answer. Try again."}
	case errors.Is(err, context.DeadlineExceeded):
		return Failure{Kind: KindProviderError, Message: "The translation service took too long to respond. Try again."}
	case errors.As(err, &providerErr):
		return Failure{Kind: KindProviderError, Message: providerMessage(providerErr)}
	default:
		return Failure{Kind: KindInternal, Message: "Something went wrong. Try again."}
	}
}

func providerMessage(e *llm.ProviderError) string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return "The translation service rejected the configured credentials."
	case e.StatusCode == http.StatusTooManyRequests:
		return "The free quota or rate limit was reached. Wait a moment and try again."
	case e.StatusCode == 0:
		return "Could not reach the translation service. Check the connection and try again."
	default:
		return "The translation service failed: " + e.Message
	}
}
