// internal/domain/chat/registry.go
package chat

import (
	"fmt"
	"sync"
)

// Custom errors
var ErrAlreadyRegistered = fmt.Errorf("chat is already registered")
var ErrNotRegistered = fmt.Errorf("chat is not registered")

// Registry owns all mutable per-chat conversation state. It is the single
// shared mutable structure in the system; every mutation happens under its
// lock, so a read-modify-write on one conversation is never interleaved
// with another mutation on the same chat.
type Registry struct {
	mu    sync.Mutex
	chats map[int64]*Conversation
}

func NewRegistry() *Registry {
	return &Registry{chats: make(map[int64]*Conversation)}
}

// Register creates a new Conversation in the Idle state. A chat may be
// registered at most once: re-registration is rejected, never merged, and
// the first registration's master is left untouched.
func (r *Registry) Register(chatID, masterID int64, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chats[chatID]; exists {
		return ErrAlreadyRegistered
	}
	r.chats[chatID] = &Conversation{
		ChatID:      chatID,
		MasterID:    masterID,
		DisplayName: displayName,
		State:       Idle(),
	}
	return nil
}

// Restore inserts or overwrites a conversation during startup rehydration.
// Unlike Register it is idempotent, since rehydration may legitimately see
// the same chat twice.
func (r *Registry) Restore(conv Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := conv
	r.chats[conv.ChatID] = &c
}

// Get returns a snapshot copy of the conversation for chatID.
func (r *Registry) Get(chatID int64) (Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.chats[chatID]
	if !ok {
		return Conversation{}, false
	}
	return *conv, true
}

// SetState atomically replaces the conversation state; no partial update is
// observable.
func (r *Registry) SetState(chatID int64, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.chats[chatID]
	if !ok {
		return ErrNotRegistered
	}
	conv.State = state
	return nil
}

// UpdateState runs fn on the current state under the registry lock and
// commits the state fn returns. When fn returns an error the state is left
// unchanged and the error is propagated. The returned Conversation is a
// snapshot taken before the transition, so callers can still see the state
// they transitioned out of.
func (r *Registry) UpdateState(chatID int64, fn func(State) (State, error)) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.chats[chatID]
	if !ok {
		return Conversation{}, ErrNotRegistered
	}
	prev := *conv
	next, err := fn(conv.State)
	if err != nil {
		return prev, err
	}
	conv.State = next
	return prev, nil
}

// Remove deletes the conversation, reporting whether it existed. Not part
// of the normal cycle; used by unregistration.
func (r *Registry) Remove(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.chats[chatID]
	delete(r.chats, chatID)
	return ok
}

// Len returns the number of registered chats.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}
