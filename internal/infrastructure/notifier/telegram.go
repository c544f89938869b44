package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendTimeout = 10 * time.Second

// TelegramMessenger delivers Markdown messages through the Bot API.
type TelegramMessenger struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramMessenger(token string) (*TelegramMessenger, error) {
	return NewTelegramMessengerWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewTelegramMessengerWithEndpoint points the bot at a custom API endpoint,
// formatted like tgbotapi.APIEndpoint.
func NewTelegramMessengerWithEndpoint(token, endpoint string) (*TelegramMessenger, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: sendTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &TelegramMessenger{bot: bot}, nil
}

func (m *TelegramMessenger) SendMessage(ctx context.Context, chatID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("send to %s: %w", chatID, err)
	}
	return nil
}

func (m *TelegramMessenger) BotName() string {
	return m.bot.Self.UserName
}
