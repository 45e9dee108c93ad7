// Package extract turns a captured image or audio clip into translated items
// by prompting a multimodal model and validating its reply.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lenslingua/internal/llm"
	"lenslingua/internal/logging"
	"lenslingua/internal/media"
	"lenslingua/internal/model"
)

type Options struct {
	DefaultTargetLanguage string
	MaxImageBytes         int64
	MaxAudioBytes         int64
}

type Client struct {
	llm    llm.Client
	opts   Options
	schema map[string]any
}

func NewClient(client llm.Client, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.DefaultTargetLanguage) == "" {
		opts.DefaultTargetLanguage = "English"
	}
	schema, err := ResponseSchema()
	if err != nil {
		return nil, err
	}
	return &Client{llm: client, opts: opts, schema: schema}, nil
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType, targetLanguage string) (model.Extraction, error) {
	if err := media.ValidateImage(image, mimeType, c.opts.MaxImageBytes); err != nil {
		return model.Extraction{}, err
	}
	lang := c.language(targetLanguage)
	return c.run(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		Prompt:       imagePrompt(lang),
		Media:        &llm.Media{Kind: llm.MediaImage, Data: image, MIMEType: mimeType},
		Schema:       c.schema,
	})
}

// ExtractFromAudio passes the container format derived from mimeType, e.g.
// "audio/webm;codecs=opus" is sent as webm.
func (c *Client) ExtractFromAudio(ctx context.Context, audio []byte, mimeType, targetLanguage string) (model.Extraction, error) {
	if err := media.ValidateAudio(audio, mimeType, c.opts.MaxAudioBytes); err != nil {
		return model.Extraction{}, err
	}
	format, _ := media.AudioFormat(mimeType)
	lang := c.language(targetLanguage)
	return c.run(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		Prompt:       audioPrompt(lang, format),
		Media:        &llm.Media{Kind: llm.MediaAudio, Data: audio, MIMEType: mimeType, Format: format},
		Schema:       c.schema,
	})
}

func (c *Client) language(target string) string {
	if t := strings.TrimSpace(target); t != "" {
		return t
	}
	return c.opts.DefaultTargetLanguage
}

func (c *Client) run(ctx context.Context, req llm.Request) (model.Extraction, error) {
	log := logging.NewLogger(ctx).
		WithField("provider", c.llm.Provider()).
		WithField("model", c.llm.Model()).
		WithField("media", string(req.Media.Kind))

	start := time.Now()
	resp, err := c.llm.Generate(ctx, req)
	if err != nil {
		log.Warnf("generate failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		return model.Extraction{}, fmt.Errorf("extract %s: %w", req.Media.Kind, err)
	}

	out, err := ParseResponse(resp.Content)
	if err != nil {
		log.Warnf("unparseable reply (%d chars): %v", len(resp.Content), err)
		return model.Extraction{}, err
	}
	log.Infof("extracted %d items in %s, tokens=%d", len(out.Items), time.Since(start).Round(time.Millisecond), resp.TotalTokens)
	return out, nil
}
