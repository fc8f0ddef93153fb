// internal/infra/telegram/response_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"diet_follow_up_bot/internal/app"
	"diet_follow_up_bot/internal/domain/chat"
	"diet_follow_up_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterResponseHandlers wires the inbound event endpoints the state
// machine consumes: button callbacks (choice events) and free-form text or
// photo messages. When the mention trigger strategy is configured, group
// messages mentioning the bot register the chat instead of being routed.
func RegisterResponseHandlers(
	ctx context.Context,
	b *telebot.Bot,
	followUpService app.FollowUpService,
	regService *app.RegistrationService,
	cfg *config.AppConfig,
	baseLogger *logrus.Entry,
) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimPrefix(c.Callback().Data, "\f")
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler": "callback",
			"chat_id": c.Chat().ID,
			"data":    data,
		})

		token, err := chat.ParseAnswerToken(data)
		if err != nil {
			logCtx.Warn("Malformed callback payload")
			return c.Respond(&telebot.CallbackResponse{Text: "Invalid response."})
		}

		err = followUpService.ProcessChoice(ctx, c.Chat().ID, token.QuestionIndex, token.Choice)
		switch {
		case errors.Is(err, chat.ErrNotRegistered):
			return c.Respond(&telebot.CallbackResponse{Text: "This group is not registered. Please register it first."})
		case errors.Is(err, app.ErrChoiceOutOfTurn):
			return c.Respond(&telebot.CallbackResponse{Text: "Invalid response."})
		case err != nil:
			c.Bot().OnError(fmt.Errorf("processing choice for chat %d: %w", c.Chat().ID, err), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Something went wrong. Please try again."})
		}
		return c.Respond()
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		if cfg.RegistrationTrigger == config.TriggerMention && messageMentionsBot(c.Message(), c.Bot().Me) {
			logCtx := baseLogger.WithFields(logrus.Fields{
				"handler":   "mention",
				"chat_id":   c.Chat().ID,
				"sender_id": c.Sender().ID,
			})
			logCtx.Info("Bot mentioned, attempting registration")
			err := registerChatFrom(ctx, c, regService)
			if errors.Is(err, app.ErrNotGroupChat) {
				return nil // mentions outside groups carry no meaning
			}
			return replyRegistrationResult(c, err)
		}
		return routeMessage(ctx, c, followUpService, false, c.Text(), baseLogger)
	})

	b.Handle(telebot.OnPhoto, func(c telebot.Context) error {
		// A caption is not an explanation: when the chat owes a text
		// explanation, a captioned photo still re-prompts for text.
		return routeMessage(ctx, c, followUpService, true, "", baseLogger)
	})
}

func routeMessage(
	ctx context.Context,
	c telebot.Context,
	followUpService app.FollowUpService,
	hasPhoto bool,
	text string,
	baseLogger *logrus.Entry,
) error {
	if err := followUpService.ProcessMessage(ctx, c.Chat().ID, hasPhoto, text); err != nil {
		baseLogger.WithError(err).WithFields(logrus.Fields{
			"handler": "message",
			"chat_id": c.Chat().ID,
		}).Error("Failed to process inbound message")
	}
	return nil
}

// messageMentionsBot reports whether the message mentions the bot, either
// by @username or via a text mention of the bot's account. Entity offsets
// are UTF-16 code units, so the text is extracted with EntityText rather
// than sliced by bytes.
func messageMentionsBot(msg *telebot.Message, me *telebot.User) bool {
	if msg == nil || me == nil {
		return false
	}
	for _, entity := range msg.Entities {
		switch entity.Type {
		case telebot.EntityMention:
			if strings.EqualFold(msg.EntityText(entity), "@"+me.Username) {
				return true
			}
		case telebot.EntityTMention:
			if entity.User != nil && entity.User.ID == me.ID {
				return true
			}
		}
	}
	return false
}
