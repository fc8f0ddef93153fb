// internal/infra/telegram/command_handlers.go
package telegram

import (
	"context"
	"fmt"

	"diet_follow_up_bot/internal/app"
	"diet_follow_up_bot/internal/domain/chat"
	"diet_follow_up_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterCommandHandlers registers /start and, when the command trigger
// strategy is configured, the /register command. /unregister is always
// available to a chat's master.
func RegisterCommandHandlers(
	ctx context.Context,
	b *telebot.Bot,
	regService *app.RegistrationService,
	cfg *config.AppConfig,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "/start",
			"sender_id": c.Sender().ID,
		})
		logCtx.Info("Command received")

		var activation string
		if cfg.RegistrationTrigger == config.TriggerCommand {
			activation = "Then send /register in the group chat to activate daily follow-ups."
		} else {
			activation = "Then mention/tag me in the group chat to activate daily follow-ups."
		}
		return c.Send(fmt.Sprintf(
			"Hello! Create a group with your client and add me (@%s).\n%s",
			b.Me.Username, activation))
	})

	if cfg.RegistrationTrigger == config.TriggerCommand {
		b.Handle("/register", func(c telebot.Context) error {
			logCtx := baseLogger.WithFields(logrus.Fields{
				"handler":   "/register",
				"chat_id":   c.Chat().ID,
				"sender_id": c.Sender().ID,
			})
			logCtx.Info("Command received")
			return replyRegistrationResult(c, registerChatFrom(ctx, c, regService))
		})
	}

	b.Handle("/unregister", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "/unregister",
			"chat_id":   c.Chat().ID,
			"sender_id": c.Sender().ID,
		})
		logCtx.Info("Command received")

		err := regService.UnregisterChat(ctx, c.Chat().ID, c.Sender().ID)
		switch {
		case err == nil:
			return c.Send("Group unregistered. Daily follow-ups are stopped.")
		case err == chat.ErrNotRegistered:
			return c.Send("This group is not registered.")
		case err == app.ErrMasterNotAuthorized:
			return c.Send("Only the master who registered this group can unregister it.")
		default:
			logCtx.WithError(err).Error("Failed to unregister chat")
			return c.Send("Something went wrong while unregistering. Please try again.")
		}
	})
}

// registerChatFrom funnels a registration trigger (command or mention) into
// the registration service.
func registerChatFrom(ctx context.Context, c telebot.Context, regService *app.RegistrationService) error {
	displayName := c.Chat().Title
	if displayName == "" {
		displayName = fmt.Sprintf("%d", c.Chat().ID)
	}
	return regService.RegisterChat(ctx, c.Chat().ID, c.Sender().ID, string(c.Chat().Type), displayName)
}

func replyRegistrationResult(c telebot.Context, err error) error {
	switch {
	case err == nil:
		return c.Send("Group registered successfully! I will now take over the conversation to perform daily follow-ups with the client.")
	case err == app.ErrNotGroupChat:
		return c.Send("Registration only works in a group chat.")
	case err == app.ErrMasterNotAuthorized:
		return c.Send("Sorry, you are not authorized to register this bot in groups.")
	case err == app.ErrChatAlreadyRegistered:
		return c.Send("This group is already registered.")
	default:
		return c.Send("Something went wrong during registration. Please try again.")
	}
}
