// internal/infra/telegram/client.go
package telegram

import (
	domainTelegram "guardian_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to a chat or, for positive ids, a user.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) (domainTelegram.SentMessage, error) {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	msg, err := tba.bot.Send(telebot.ChatID(chatID), text, options)
	if err != nil {
		return domainTelegram.SentMessage{}, err
	}
	return domainTelegram.SentMessage{ChatID: msg.Chat.ID, MessageID: msg.ID}, nil
}
