package domain

import "context"

// Messenger delivers a formatted text to an external chat identifier.
type Messenger interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}
