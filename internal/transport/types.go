// Package transport defines the narrow chat boundary the core talks
// through, keeping Telegram specifics out of the scheduling engine.
package transport

import (
	"context"
	"fmt"
	"strconv"
)

// Message is an incoming chat message (commands only; media is ignored).
type Message struct {
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

// ChatTarget addresses an outgoing message.
type ChatTarget struct {
	ChatID int64
}

// TargetFromOwner converts a stored owner id back into a chat target.
// Owner ids are decimal chat ids; anything else is a persisted-data bug.
func TargetFromOwner(owner string) (ChatTarget, error) {
	id, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return ChatTarget{}, fmt.Errorf("owner %q is not a chat id: %w", owner, err)
	}
	return ChatTarget{ChatID: id}, nil
}

// OwnerFromChat is the inverse: chat id to owner key.
func OwnerFromChat(chatID int64) string { return strconv.FormatInt(chatID, 10) }

type SendOptions struct {
	DisablePreview bool
}

// Adapter is the chat transport consumed by the core.
type Adapter interface {
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
