package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient sends image and audio parts inline with their exact MIME type
// and asks for schema-constrained JSON.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, baseURL, model string) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  strings.TrimSpace(apiKey),
	}
	if u := strings.TrimSpace(baseURL); u != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: u}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Provider() string { return ProviderGemini }
func (c *GeminiClient) Model() string    { return c.model }

func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Media != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Media.Data, req.Media.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = req.Schema
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Response{}, wrapGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return Response{}, &ProviderError{Provider: ProviderGemini, Message: "response has no candidates"}
	}

	out := Response{Content: resp.Text(), Model: c.model}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}
