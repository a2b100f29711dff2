// internal/infra/telegram/client.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain Notifier using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// Notify sends a plain text message to the chat.
func (tba *TelebotAdapter) Notify(chatID int64, text string) error {
	_, err := tba.bot.Send(&telebot.Chat{ID: chatID}, text)
	return err
}
