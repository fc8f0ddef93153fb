package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for delivering outbound messages via a
// Telegram bot. It decouples the application services from the concrete bot
// library and from the retry policy wrapped around it.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
