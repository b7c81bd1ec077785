package repository

import (
	"context"
	"errors"
)

// ErrOracleRateLimited marks a rejected oracle call due to rate limiting.
var ErrOracleRateLimited = errors.New("oracle rate limited")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    Role
	Content string
}

// Oracle is a language model answering a single chat-style request.
type Oracle interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
