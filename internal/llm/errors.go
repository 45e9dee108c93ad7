package llm

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ProviderError is an upstream failure: auth, quota, rate limit or network.
// StatusCode is 0 when no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func wrapOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	pe := &ProviderError{Provider: ProviderOpenAI, Message: err.Error(), Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.Message = apiErr.Message
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
		if len(reqErr.Body) > 0 {
			pe.Message = string(reqErr.Body)
		}
	}
	return pe
}

func wrapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	pe := &ProviderError{Provider: ProviderGemini, Message: err.Error(), Err: err}
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.Code
		pe.Message = apiErr.Message
	case errors.As(err, &apiErrPtr):
		pe.StatusCode = apiErrPtr.Code
		pe.Message = apiErrPtr.Message
	}
	return pe
}
