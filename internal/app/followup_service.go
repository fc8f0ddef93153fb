// internal/app/followup_service.go
package app

import (
	"context"
	"errors"
	"fmt"

	"diet_follow_up_bot/internal/domain/chat"
	"diet_follow_up_bot/internal/domain/question"
	domainTelegram "diet_follow_up_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ErrChoiceOutOfTurn reports a button press that does not correlate with
// the question the chat is currently expected to answer (stale, duplicate,
// or out-of-catalog). The caller replies "Invalid response."
var ErrChoiceOutOfTurn = fmt.Errorf("choice does not match the expected question")

// Chat-facing reply texts.
const (
	photoReceivedText       = "✅ Photo received, thank you!"
	photoRepromptText       = "Please send a photo as requested."
	explanationReceivedText = "✅ Explanation received, thank you!"
	explanationRepromptText = "Please send a text explanation."
)

// Master-facing notification formats.
const (
	deviationAlertFormat     = "⚠️ Deviation alert from group '%s':\nQuestion: %s\nClient answered NO."
	explanationForwardFormat = "⚠️ Explanation from group '%s':\nQuestion: %s\nExplanation: %s"
)

// FollowUpService runs one daily check-in cycle per chat: dispatching the
// scheduled question and routing the chat's answers through the
// conversation state machine.
type FollowUpService interface {
	// AskQuestion delivers the catalog question to the chat and, on
	// confirmed delivery, moves the chat to AwaitingAnswer.
	AskQuestion(ctx context.Context, chatID, masterID int64, questionIndex int) error
	// ProcessChoice handles a Yes/No button press correlated to a question.
	ProcessChoice(ctx context.Context, chatID int64, questionIndex int, choice chat.Choice) error
	// ProcessMessage handles a free-form inbound message, interpreted
	// contextually as a photo or an explanation.
	ProcessMessage(ctx context.Context, chatID int64, hasPhoto bool, text string) error
}

// FollowUpServiceImpl implements the FollowUpService interface.
type FollowUpServiceImpl struct {
	registry *chat.Registry
	catalog  *question.Catalog
	client   domainTelegram.Client
	logger   *logrus.Entry

	// strictCallbacks rejects presses whose embedded question index does
	// not match the chat's current AwaitingAnswer state. When false, any
	// press with a well-formed token transitions state.
	strictCallbacks bool
}

func NewFollowUpService(
	registry *chat.Registry,
	catalog *question.Catalog,
	client domainTelegram.Client,
	logger *logrus.Entry,
	strictCallbacks bool,
) *FollowUpServiceImpl {
	return &FollowUpServiceImpl{
		registry:        registry,
		catalog:         catalog,
		client:          client,
		logger:          logger,
		strictCallbacks: strictCallbacks,
	}
}

// AskQuestion is invoked by the scheduler at a question's fire time. State
// is committed only after the prompt is confirmed sent: a chat whose prompt
// never arrived must not sit in AwaitingAnswer.
func (s *FollowUpServiceImpl) AskQuestion(ctx context.Context, chatID, masterID int64, questionIndex int) error {
	logCtx := s.logger.WithFields(logrus.Fields{
		"chat_id":        chatID,
		"question_index": questionIndex,
	})

	q, ok := s.catalog.Get(questionIndex)
	if !ok {
		// Only the scheduler supplies this index, so an out-of-range value
		// is a programming error rather than a user-facing condition.
		logCtx.Error("Question index outside catalog range")
		return fmt.Errorf("question index %d outside catalog range", questionIndex)
	}

	if _, registered := s.registry.Get(chatID); !registered {
		logCtx.Info("Chat no longer registered. Skipping scheduled question.")
		return nil
	}

	markup := &telebot.ReplyMarkup{}
	btnYes := markup.Data("Yes", chat.AnswerToken{QuestionIndex: questionIndex, Choice: chat.ChoiceYes}.Encode())
	btnNo := markup.Data("No", chat.AnswerToken{QuestionIndex: questionIndex, Choice: chat.ChoiceNo}.Encode())
	markup.Inline(markup.Row(btnYes, btnNo))

	err := s.client.SendMessage(chatID, q.Prompt, &telebot.SendOptions{ReplyMarkup: markup})
	if err != nil {
		logCtx.WithError(err).Error("Failed to send scheduled question")
		return fmt.Errorf("failed to send question %d to chat %d: %w", questionIndex, chatID, err)
	}

	if err := s.registry.SetState(chatID, chat.AwaitingAnswer(questionIndex)); err != nil {
		if errors.Is(err, chat.ErrNotRegistered) {
			// Unregistered while the send was in flight; nothing to track.
			logCtx.Info("Chat unregistered during question delivery")
			return nil
		}
		return err
	}
	logCtx.Info("Question sent, awaiting answer")
	return nil
}

// ProcessChoice transitions AwaitingAnswer(i) to AwaitingPhoto(i) on Yes or
// AwaitingExplanation(i) on No, notifying the chat's master on the "No"
// branch.
func (s *FollowUpServiceImpl) ProcessChoice(ctx context.Context, chatID int64, questionIndex int, choice chat.Choice) error {
	logCtx := s.logger.WithFields(logrus.Fields{
		"chat_id":        chatID,
		"question_index": questionIndex,
		"choice":         string(choice),
	})

	q, ok := s.catalog.Get(questionIndex)
	if !ok {
		// The index came from a callback payload; fail closed.
		logCtx.Warn("Choice references a question outside the catalog")
		return ErrChoiceOutOfTurn
	}

	prev, err := s.registry.UpdateState(chatID, func(st chat.State) (chat.State, error) {
		if s.strictCallbacks && (st.Phase != chat.PhaseAwaitingAnswer || st.QuestionIndex != questionIndex) {
			return st, ErrChoiceOutOfTurn
		}
		if choice == chat.ChoiceYes {
			return chat.AwaitingPhoto(questionIndex), nil
		}
		return chat.AwaitingExplanation(questionIndex), nil
	})
	if err != nil {
		if errors.Is(err, ErrChoiceOutOfTurn) {
			logCtx.WithField("state", prev.State.Phase).Warn("Stale or duplicate choice rejected")
		}
		return err
	}

	if choice == chat.ChoiceYes {
		if err := s.client.SendMessage(chatID, q.YesFollowUp, nil); err != nil {
			logCtx.WithError(err).Error("Failed to send yes follow-up")
		}
		logCtx.Info("Chat answered YES, awaiting photo")
		return nil
	}

	if err := s.client.SendMessage(chatID, q.NoFollowUp, nil); err != nil {
		logCtx.WithError(err).Error("Failed to send no follow-up")
	}
	alert := fmt.Sprintf(deviationAlertFormat, prev.DisplayName, q.Prompt)
	if err := s.client.SendMessage(prev.MasterID, alert, nil); err != nil {
		logCtx.WithError(err).WithField("master_id", prev.MasterID).Error("Failed to send deviation alert to master")
	}
	logCtx.Info("Chat answered NO, awaiting explanation; master alerted")
	return nil
}

// ProcessMessage interprets a free-form message under the chat's current
// state. Messages for unregistered chats, or chats with no outstanding
// request, are ignored.
func (s *FollowUpServiceImpl) ProcessMessage(ctx context.Context, chatID int64, hasPhoto bool, text string) error {
	prev, err := s.registry.UpdateState(chatID, func(st chat.State) (chat.State, error) {
		switch st.Phase {
		case chat.PhaseAwaitingPhoto:
			if hasPhoto {
				return chat.Idle(), nil
			}
		case chat.PhaseAwaitingExplanation:
			if text != "" {
				return chat.Idle(), nil
			}
		}
		return st, nil
	})
	if err != nil {
		if errors.Is(err, chat.ErrNotRegistered) {
			return nil
		}
		return err
	}

	logCtx := s.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"state":   prev.State.Phase,
	})

	switch prev.State.Phase {
	case chat.PhaseAwaitingPhoto:
		if !hasPhoto {
			if err := s.client.SendMessage(chatID, photoRepromptText, nil); err != nil {
				logCtx.WithError(err).Error("Failed to send photo re-prompt")
			}
			return nil
		}
		if err := s.client.SendMessage(chatID, photoReceivedText, nil); err != nil {
			logCtx.WithError(err).Error("Failed to acknowledge photo")
		}
		logCtx.Info("Photo received, cycle complete")

	case chat.PhaseAwaitingExplanation:
		if text == "" {
			if err := s.client.SendMessage(chatID, explanationRepromptText, nil); err != nil {
				logCtx.WithError(err).Error("Failed to send explanation re-prompt")
			}
			return nil
		}
		if err := s.client.SendMessage(chatID, explanationReceivedText, nil); err != nil {
			logCtx.WithError(err).Error("Failed to acknowledge explanation")
		}
		q, ok := s.catalog.Get(prev.State.QuestionIndex)
		if !ok {
			logCtx.Error("Recorded question index outside catalog range")
			return fmt.Errorf("question index %d outside catalog range", prev.State.QuestionIndex)
		}
		forward := fmt.Sprintf(explanationForwardFormat, prev.DisplayName, q.Prompt, text)
		if err := s.client.SendMessage(prev.MasterID, forward, nil); err != nil {
			logCtx.WithError(err).WithField("master_id", prev.MasterID).Error("Failed to forward explanation to master")
		}
		logCtx.Info("Explanation received and forwarded, cycle complete")
	}
	return nil
}
