// Package llm abstracts the chat-completion API used to generate
// summaries.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimited marks a completion refused because the upstream API is
// throttling us. The request handler turns it into a user-facing
// high-demand message rather than retrying.
var ErrRateLimited = errors.New("completion api rate limited")

// Message is one chat turn sent to the completion API.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client produces a chat completion for an ordered list of messages.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
