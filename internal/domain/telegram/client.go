package telegram

import (
	"fmt"

	"gopkg.in/telebot.v3"
)

// SentMessage identifies a delivered message.
type SentMessage struct {
	ChatID    int64
	MessageID int
}

// Ref is the stored form of a delivered message, "chat:message".
func (m SentMessage) Ref() string {
	return fmt.Sprintf("%d:%d", m.ChatID, m.MessageID)
}

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot library.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) (SentMessage, error)
}
