package notify

import (
	"context"
	"log"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const sendTimeout = 10 * time.Second

// Notifier delivers a short message to the user. Delivery failures are
// logged by the implementation and never returned.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Nop discards every message
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// Telegram sends HTML messages to a single chat through the Bot API
type Telegram struct {
	bot    *bot.Bot
	chatID string
	logger *log.Logger
}

// NewTelegram returns a Telegram notifier, or Nop when the bot token or chat
// id is missing. serverURL overrides the Bot API endpoint when non-empty.
func NewTelegram(token, chatID, serverURL string, logger *log.Logger) (Notifier, error) {
	if token == "" || chatID == "" {
		return Nop{}, nil
	}
	if logger == nil {
		logger = log.Default()
	}

	opts := []bot.Option{bot.WithSkipGetMe()}
	if serverURL != "" {
		opts = append(opts, bot.WithServerURL(serverURL))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		t.logger.Printf("telegram send failed: %v", err)
	}
}
