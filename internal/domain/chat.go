package domain

import "context"

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// ChatModel is the hosted language model behind the storefront assistant.
type ChatModel interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
}
