// Package state holds the client-side view of conversation state. It is the
// single owning component for messages, typing indicators, presence and the
// active chat; all mutation flows through the event router and the outbound
// intent API, never through readers.
package state

import (
	"sync"

	"github.com/google/uuid"
	"github.com/parleychat/parley/internal/chat"
	"go.uber.org/zap"
)

// Store is the in-memory conversation state for one session.
type Store struct {
	logger *zap.Logger

	mu         sync.RWMutex
	messages   []chat.Message
	typing     map[string]bool
	online     map[string]bool
	activeChat *chat.ActiveChat
	activeCall *chat.ActiveCall

	listeners map[string]func()
}

// NewStore creates an empty state store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger:    logger.Named("chat.state"),
		typing:    make(map[string]bool),
		online:    make(map[string]bool),
		listeners: make(map[string]func()),
	}
}

// Subscribe registers a change listener and returns its cancel function.
// Listeners are invoked after every mutation, outside the store lock.
func (s *Store) Subscribe(fn func()) func() {
	id := uuid.New().String()
	s.mu.Lock()
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// AddMessage appends a message. Ordering is append-only: insertion order is
// display order, and no dedup is performed here.
func (s *Store) AddMessage(msg chat.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
}

// SetMessages replaces the entire message list, preserving the given order.
func (s *Store) SetMessages(msgs []chat.Message) {
	s.mu.Lock()
	s.messages = append([]chat.Message(nil), msgs...)
	s.mu.Unlock()
	s.notify()
}

// Messages returns a snapshot of the message list.
func (s *Store) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Message(nil), s.messages...)
}

// SetTyping records whether a user is typing. Last write wins.
func (s *Store) SetTyping(userID string, isTyping bool) {
	s.mu.Lock()
	s.typing[userID] = isTyping
	s.mu.Unlock()
	s.notify()
}

// IsTyping reports the last known typing state for a user.
func (s *Store) IsTyping(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing[userID]
}

// SetOnline records a user's online state. Last write wins.
func (s *Store) SetOnline(userID string, online bool) {
	s.mu.Lock()
	s.online[userID] = online
	s.mu.Unlock()
	s.notify()
}

// SetOnlineBulk marks every listed user online, e.g. from a presence
// snapshot delivered at connect time.
func (s *Store) SetOnlineBulk(userIDs []string) {
	s.mu.Lock()
	for _, id := range userIDs {
		s.online[id] = true
	}
	s.mu.Unlock()
	s.notify()
}

// IsOnline reports the last known online state for a user.
func (s *Store) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online[userID]
}

// SetActiveChat selects the conversation the UI is showing. Passing nil
// clears the selection. Changing the active chat does not tear down call
// state; callers end calls explicitly.
func (s *Store) SetActiveChat(c *chat.ActiveChat) {
	s.mu.Lock()
	s.activeChat = c
	s.mu.Unlock()
	s.notify()
}

// ActiveChat returns the currently selected conversation, or nil.
func (s *Store) ActiveChat() *chat.ActiveChat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeChat == nil {
		return nil
	}
	c := *s.activeChat
	return &c
}

// SetActiveCall records the call the local user is part of; nil clears it.
func (s *Store) SetActiveCall(c *chat.ActiveCall) {
	s.mu.Lock()
	s.activeCall = c
	s.mu.Unlock()
	s.notify()
}

// UpdateCallStatus advances the active call's signaling status. A stray
// update with no active call is logged and dropped.
func (s *Store) UpdateCallStatus(status chat.CallStatus) {
	s.mu.Lock()
	if s.activeCall == nil {
		s.mu.Unlock()
		s.logger.Debug("call status update with no active call", zap.String("status", string(status)))
		return
	}
	s.activeCall.Status = status
	s.mu.Unlock()
	s.notify()
}

// ActiveCall returns the call the local user is part of, or nil.
func (s *Store) ActiveCall() *chat.ActiveCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeCall == nil {
		return nil
	}
	c := *s.activeCall
	return &c
}
