package providers

import "context"

// Message is a single chat turn sent to the completion endpoint.
type Message struct {
	Role    string
	Content string
}

// Provider abstracts the text-completion backend so the synthesis pipeline
// can run against OpenAI in production and a deterministic stub in tests.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
	Model() string
}
