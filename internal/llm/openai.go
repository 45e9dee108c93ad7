package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"lenslingua/internal/logging"
	"lenslingua/internal/media"
)

// OpenAIClient talks to any OpenAI-compatible endpoint, OpenRouter included.
// Images go inline as data URLs; audio is transcribed first and the
// transcript is sent as text.
type OpenAIClient struct {
	client             *openai.Client
	model              string
	transcriptionModel string
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone request to avoid mutating the original
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

type OpenAIOptions struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Referrer           string
	Title              string
}

func NewOpenAI(opts OpenAIOptions) *OpenAIClient {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	// OpenRouter attribution headers
	if opts.Referrer != "" || opts.Title != "" {
		h := http.Header{}
		if opts.Referrer != "" {
			h.Set("HTTP-Referer", opts.Referrer)
		}
		if opts.Title != "" {
			h.Set("X-Title", opts.Title)
		}
		config.HTTPClient = &http.Client{Transport: headerTransport{rt: http.DefaultTransport, headers: h}}
	}
	transcription := opts.TranscriptionModel
	if transcription == "" {
		transcription = openai.Whisper1
	}
	return &OpenAIClient{
		client:             openai.NewClientWithConfig(config),
		model:              opts.Model,
		transcriptionModel: transcription,
	}
}

func (c *OpenAIClient) Provider() string { return ProviderOpenAI }
func (c *OpenAIClient) Model() string    { return c.model }

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	switch {
	case req.Media == nil:
		user.Content = req.Prompt
	case req.Media.Kind == MediaImage:
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Media.MIMEType, base64.StdEncoding.EncodeToString(req.Media.Data))
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto}},
		}
	case req.Media.Kind == MediaAudio:
		transcript, err := c.transcribe(ctx, req.Media)
		if err != nil {
			return Response{}, err
		}
		user.Content = req.Prompt + "\n\nAudio transcript:\n" + transcript
	default:
		return Response{}, fmt.Errorf("unsupported media kind %q", req.Media.Kind)
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, user)

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.Schema != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return Response{}, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, &ProviderError{Provider: ProviderOpenAI, Message: "response has no choices"}
	}

	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *OpenAIClient) transcribe(ctx context.Context, m *Media) (string, error) {
	format := m.Format
	if format == "" {
		f, ok := media.AudioFormat(m.MIMEType)
		if !ok {
			return "", &media.ValidationError{Field: "mimeType", Reason: fmt.Sprintf("cannot derive an audio format from %q", m.MIMEType)}
		}
		format = f
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: "audio." + format,
		Reader:   bytes.NewReader(m.Data),
	})
	if err != nil {
		return "", wrapOpenAIError(err)
	}
	logging.NewLogger(ctx).WithField("format", format).Debugf("transcribed %d bytes of audio", len(m.Data))
	return strings.TrimSpace(resp.Text), nil
}
