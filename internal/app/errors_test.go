package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"lenslingua/internal/auth"
	"lenslingua/internal/capture"
	"lenslingua/internal/extract"
	"lenslingua/internal/history"
	"lenslingua/internal/llm"
	"lenslingua/internal/media"
)

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want Kind
	}{
		"busy":           {ErrBusy, KindBusy},
		"canceled":       {fmt.Errorf("read capture: %w", context.Canceled), KindCanceled},
		"permission":     {fmt.Errorf("open: %w", capture.ErrPermissionDenied), KindPermissionDenied},
		"unauthorized":   {ErrUnauthorized, KindUnauthorized},
		"duplicate":      {auth.ErrDuplicateUser, KindDuplicateUser},
		"media":          {&media.ValidationError{Field: "payload", Reason: "empty"}, KindValidation},
		"auth input":     {fmt.Errorf("%w: email is required", auth.ErrInvalidInput), KindValidation},
		"history input":  {history.ErrInvalidRecord, KindValidation},
		"malformed":      {&extract.MalformedResponseError{Reason: "no JSON object found"}, KindMalformedResponse},
		"provider":       {fmt.Errorf("extract image: %w", &llm.ProviderError{Provider: "openai", StatusCode: 503}), KindProviderError},
		"deadline":       {&llm.ProviderError{Provider: "gemini", Err: context.DeadlineExceeded}, KindProviderError},
		"already failed": {Failure{Kind: KindBusy, Message: "x"}, KindBusy},
		"other":          {errors.New("disk on fire"), KindInternal},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err).Kind, name)
		assert.NotEmpty(t, Classify(tc.err).Message, name)
	}
	assert.Equal(t, Failure{}, Classify(nil))
}

func TestClassify_ProviderMessages(t *testing.T) {
	quota := Classify(&llm.ProviderError{Provider: "openai", StatusCode: 429})
	assert.Contains(t, quota.Message, "rate limit")

	creds := Classify(&llm.ProviderError{Provider: "openai", StatusCode: 401})
	assert.Contains(t, creds.Message, "credentials")

	network := Classify(&llm.ProviderError{Provider: "openai", Message: "dial tcp: refused"})
	assert.Contains(t, network.Message, "Could not reach")
}
