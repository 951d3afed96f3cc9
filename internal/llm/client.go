package llm

import "context"

// Client is the chat-completion backend contract consumed by the
// conversation loop. Implementations retry transient transport
// failures internally; an error from Chat is terminal for the round.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
