package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Provider is a chat-completion backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error)
}

type ChatOptions struct {
	Temperature *float64
	MaxTokens   int
}

type ChatOption func(*ChatOptions)

func WithTemperature(t float64) ChatOption {
	return func(o *ChatOptions) { o.Temperature = &t }
}

func WithMaxTokens(n int) ChatOption {
	return func(o *ChatOptions) { o.MaxTokens = n }
}

func collectOptions(opts []ChatOption) ChatOptions {
	var o ChatOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
