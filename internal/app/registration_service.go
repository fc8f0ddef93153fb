package app

import (
	"context"
	"errors"
	"fmt"

	"diet_follow_up_bot/internal/domain/chat"
	idb "diet_follow_up_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for the registration service
var ErrMasterNotAuthorized = fmt.Errorf("user is not authorized to register chats")
var ErrChatAlreadyRegistered = fmt.Errorf("chat is already registered")
var ErrNotGroupChat = fmt.Errorf("registration is only available in group chats")

// QuestionScheduler is the scheduling capability the registration flow
// drives: arming a chat's daily timers on registration and cancelling them
// on unregistration.
type QuestionScheduler interface {
	Arm(chatID, masterID int64)
	Disarm(chatID int64)
}

// RegistrationService owns the chat registration lifecycle: authorization
// against the master allow-list, registry and persistence updates, and
// (re)arming the scheduler.
type RegistrationService struct {
	registry       *chat.Registry
	repo           chat.Repository
	scheduler      QuestionScheduler
	allowedMasters []int64
	logger         *logrus.Entry
}

func NewRegistrationService(
	registry *chat.Registry,
	repo chat.Repository,
	scheduler QuestionScheduler,
	allowedMasters []int64,
	logger *logrus.Entry,
) *RegistrationService {
	return &RegistrationService{
		registry:       registry,
		repo:           repo,
		scheduler:      scheduler,
		allowedMasters: allowedMasters,
		logger:         logger,
	}
}

func (s *RegistrationService) isAllowedMaster(userID int64) bool {
	for _, id := range s.allowedMasters {
		if id == userID {
			return true
		}
	}
	return false
}

// RegisterChat registers a group chat on behalf of requesterID. The
// requester must be on the master allow-list and becomes the chat's master;
// re-registration attempts are rejected, not merged.
func (s *RegistrationService) RegisterChat(ctx context.Context, chatID, requesterID int64, chatType, displayName string) error {
	logCtx := s.logger.WithFields(logrus.Fields{
		"chat_id":      chatID,
		"requester_id": requesterID,
		"chat_type":    chatType,
	})

	if chatType != "group" && chatType != "supergroup" {
		return ErrNotGroupChat
	}
	if !s.isAllowedMaster(requesterID) {
		logCtx.Warn("Registration attempt by non-master user")
		return ErrMasterNotAuthorized
	}

	if err := s.registry.Register(chatID, requesterID, displayName); err != nil {
		if errors.Is(err, chat.ErrAlreadyRegistered) {
			return ErrChatAlreadyRegistered
		}
		return fmt.Errorf("failed to register chat %d: %w", chatID, err)
	}

	conv, _ := s.registry.Get(chatID)
	if err := s.repo.Create(ctx, &conv); err != nil {
		// Keep the in-memory registry consistent with the store.
		s.registry.Remove(chatID)
		if errors.Is(err, idb.ErrDuplicateChatID) {
			return ErrChatAlreadyRegistered
		}
		logCtx.WithError(err).Error("Failed to persist chat registration")
		return fmt.Errorf("failed to persist registration for chat %d: %w", chatID, err)
	}

	s.scheduler.Arm(chatID, requesterID)
	logCtx.WithField("display_name", displayName).Info("Chat registered and timers armed")
	return nil
}

// UnregisterChat removes a chat's registration. Only the chat's recorded
// master may unregister it.
func (s *RegistrationService) UnregisterChat(ctx context.Context, chatID, requesterID int64) error {
	conv, ok := s.registry.Get(chatID)
	if !ok {
		return chat.ErrNotRegistered
	}
	if conv.MasterID != requesterID {
		s.logger.WithFields(logrus.Fields{
			"chat_id":      chatID,
			"requester_id": requesterID,
			"master_id":    conv.MasterID,
		}).Warn("Unregistration attempt by a user other than the chat's master")
		return ErrMasterNotAuthorized
	}

	if err := s.repo.Delete(ctx, chatID); err != nil && !errors.Is(err, idb.ErrChatNotFound) {
		return fmt.Errorf("failed to delete registration for chat %d: %w", chatID, err)
	}
	s.scheduler.Disarm(chatID)
	s.registry.Remove(chatID)
	s.logger.WithField("chat_id", chatID).Info("Chat unregistered and timers disarmed")
	return nil
}

// RestoreRegisteredChats rehydrates the registry from persistence on
// startup and re-arms every chat's timers. Conversation state always
// restarts Idle; it is not durable. Returns the number of restored chats.
func (s *RegistrationService) RestoreRegisteredChats(ctx context.Context) (int, error) {
	chats, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list registered chats: %w", err)
	}

	for _, conv := range chats {
		conv.State = chat.Idle()
		s.registry.Restore(*conv)
		s.scheduler.Arm(conv.ChatID, conv.MasterID)
		s.logger.WithFields(logrus.Fields{
			"chat_id":   conv.ChatID,
			"master_id": conv.MasterID,
		}).Debug("Restored chat registration")
	}

	s.logger.WithField("count", len(chats)).Info("Registered chats restored and timers re-armed")
	return len(chats), nil
}
