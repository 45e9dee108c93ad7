package llm

import "context"

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// Media is an inline binary part sent alongside the prompt.
type Media struct {
	Kind     MediaKind
	Data     []byte
	MIMEType string
	// Format is the container name derived from MIMEType, e.g. "webm".
	Format string
}

type Request struct {
	SystemPrompt string
	Prompt       string
	Media        *Media
	// Schema is the JSON schema the reply must follow. Providers without
	// structured output only get a JSON-object hint.
	Schema map[string]any
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Provider() string
	Model() string
}
