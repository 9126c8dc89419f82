// Package llm wraps the hosted model provider. The rest of the system treats
// completions as opaque calls that return text or fail; prompt content and
// reasoning live with the callers.
package llm

import "context"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the completion interface used by all agents.
type Client interface {
	// Complete sends a single user prompt under a system instruction.
	Complete(ctx context.Context, system, prompt string) (string, error)
	// Chat sends a full conversation history.
	Chat(ctx context.Context, system string, messages []Message) (string, error)
}
