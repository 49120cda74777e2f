package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/parleychat/parley/internal/chat"
	"github.com/parleychat/parley/internal/common/cnst"
	"go.uber.org/zap"
)

// requireConnected gates every outbound intent. Intents issued while
// disconnected are logged and dropped; there is no offline queue.
func (m *Manager) requireConnected(intent string) bool {
	if m.IsConnected() {
		return true
	}
	m.logger.Warn("socket not connected, dropping intent", zap.String("intent", intent))
	return false
}

// SendMessage appends the message to local state immediately, then emits
// the send. No acknowledgement is awaited and a failed send is not rolled
// back.
func (m *Manager) SendMessage(msg chat.Message) {
	if !m.requireConnected("sendMessage") {
		return
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == "" {
		msg.CreatedAt = time.Now().Format(time.RFC3339)
	}
	if msg.Type == "" {
		msg.Type = chat.MessageTypeText
	}

	m.store.AddMessage(msg)

	m.emit(cnst.EventSendMessage, chat.SendMessagePayload{
		Content:    msg.Content,
		ReceiverID: msg.ReceiverID,
		GroupID:    msg.GroupID,
		Type:       msg.Type,
		FileURL:    msg.FileURL,
	})
}

// SetTyping reports the local user's typing state for a chat. Debouncing is
// the caller's responsibility.
func (m *Manager) SetTyping(isTyping bool, chatID string) {
	if !m.requireConnected("typing") {
		return
	}
	m.emit(cnst.EventTyping, chat.TypingPayload{IsTyping: isTyping, ChatID: chatID})
}

// JoinGroup subscribes the session to a group's events.
func (m *Manager) JoinGroup(groupID string) {
	if !m.requireConnected("joinGroup") {
		return
	}
	m.emit(cnst.EventJoinGroup, groupID)
}

// LeaveGroup unsubscribes the session from a group's events.
func (m *Manager) LeaveGroup(groupID string) {
	if !m.requireConnected("leaveGroup") {
		return
	}
	m.emit(cnst.EventLeaveGroup, groupID)
}

// StartCall rings a peer or group and records the active call locally.
// Exactly one of receiverID and groupID must be set.
func (m *Manager) StartCall(receiverID, groupID string, kind chat.CallType) {
	if !m.requireConnected("call") {
		return
	}

	target := receiverID
	if target == "" {
		target = groupID
	}
	m.store.SetActiveCall(&chat.ActiveCall{PeerID: target, Type: kind, Status: chat.CallStatusRinging})

	m.emit(cnst.EventCall, chat.CallPayload{
		ReceiverID: receiverID,
		GroupID:    groupID,
		Type:       kind,
		Status:     chat.CallStatusRinging,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

// EndCall hangs up and clears the active call.
func (m *Manager) EndCall(receiverID, groupID string, kind chat.CallType) {
	if !m.requireConnected("call") {
		return
	}

	m.store.SetActiveCall(nil)

	m.emit(cnst.EventCall, chat.CallPayload{
		ReceiverID: receiverID,
		GroupID:    groupID,
		Type:       kind,
		Status:     chat.CallStatusEnded,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

// LoadMessages requests conversation history. The reply arrives through the
// messagesLoaded event, not as a return value.
func (m *Manager) LoadMessages(receiverID, groupID string) {
	if !m.requireConnected("loadMessages") {
		return
	}
	m.emit(cnst.EventLoadMessages, chat.LoadMessagesPayload{ReceiverID: receiverID, GroupID: groupID})
}

// RegisterCallHandler installs the call handler for a peer, replacing any
// existing one.
func (m *Manager) RegisterCallHandler(peerID string, fn func(chat.CallEvent)) {
	m.calls.Register(peerID, fn)
}

// UnregisterCallHandler removes the call handler for a peer.
func (m *Manager) UnregisterCallHandler(peerID string) {
	m.calls.Unregister(peerID)
}
