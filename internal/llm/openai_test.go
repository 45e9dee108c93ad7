package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lenslingua/internal/media"
)

func chatCompletionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func TestOpenAI_ImageRequestShape(t *testing.T) {
	var captured map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini", Referrer: "https://lens.example", Title: "LensLingua"})
	resp, err := c.Generate(context.Background(), Request{
		SystemPrompt: "system",
		Prompt:       "translate",
		Media:        &Media{Kind: MediaImage, Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"},
		Schema:       map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, resp.Content)
	assert.Equal(t, 15, resp.TotalTokens)

	assert.Equal(t, "https://lens.example", headers.Get("HTTP-Referer"))
	assert.Equal(t, "LensLingua", headers.Get("X-Title"))

	assert.Equal(t, "json_object", captured["response_format"].(map[string]any)["type"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", imageURL)
}

func TestOpenAI_AudioIsTranscribedWithDerivedExtension(t *testing.T) {
	var filename, chatPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/audio/transcriptions":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, fh, err := r.FormFile("file")
			require.NoError(t, err)
			filename = fh.Filename
			_, _ = io.WriteString(w, `{"text":" una cerveza, por favor "}`)
		case "/chat/completions":
			var body struct {
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			chatPrompt = body.Messages[len(body.Messages)-1].Content
			_, _ = io.WriteString(w, chatCompletionBody(`{"items":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	_, err := c.Generate(context.Background(), Request{
		Prompt: "translate",
		Media:  &Media{Kind: MediaAudio, Data: []byte("opus"), MIMEType: "audio/webm;codecs=opus", Format: "webm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "audio.webm", filename)
	assert.True(t, strings.HasSuffix(chatPrompt, "una cerveza, por favor"), chatPrompt)
}

func TestOpenAI_AudioFormatFromMIMEType(t *testing.T) {
	var filename string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/audio/transcriptions":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, fh, err := r.FormFile("file")
			require.NoError(t, err)
			filename = fh.Filename
			_, _ = io.WriteString(w, `{"text":"hola"}`)
		default:
			_, _ = io.WriteString(w, chatCompletionBody(`{"items":[]}`))
		}
	}))
	defer srv.Close()
	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"})

	_, err := c.Generate(context.Background(), Request{
		Prompt: "translate",
		Media:  &Media{Kind: MediaAudio, Data: []byte("ogg"), MIMEType: "audio/ogg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "audio.ogg", filename)

	calls.Store(0)
	_, err = c.Generate(context.Background(), Request{
		Prompt: "translate",
		Media:  &Media{Kind: MediaAudio, Data: []byte("???"), MIMEType: "application/octet-stream"},
	})
	var verr *media.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "mimeType", verr.Field)
	assert.Zero(t, calls.Load(), "nothing is sent without a known format")
}

func TestOpenAI_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit exceeded","type":"rate_limit_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := c.Generate(context.Background(), Request{Prompt: "hi"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ProviderOpenAI, pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, "Rate limit exceeded", pe.Message)
}

func TestOpenAI_NetworkErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: url, Model: "m"})
	_, err := c.Generate(context.Background(), Request{Prompt: "hi"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Zero(t, pe.StatusCode)
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := &Factory{}
	_, err := f.CreateClient(context.Background(), "yandex", "m")
	assert.Error(t, err)

	c, err := f.CreateClient(context.Background(), " OpenAI ", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, c.Provider())
	assert.Equal(t, "gpt-4o-mini", c.Model())
}
