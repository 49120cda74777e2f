package chat

import "encoding/json"

// MessageType describes the payload carried by a message.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
	MessageTypeCall MessageType = "call"
)

// CallType distinguishes audio from video calls. Only signaling is carried
// here; media transport is outside this layer.
type CallType string

const (
	CallTypeVideo CallType = "video"
	CallTypeAudio CallType = "audio"
)

// CallStatus is the signaling state of a call.
type CallStatus string

const (
	CallStatusRinging  CallStatus = "ringing"
	CallStatusAccepted CallStatus = "accepted"
	CallStatusRejected CallStatus = "rejected"
	CallStatusEnded    CallStatus = "ended"
)

// ChatKind selects the addressing mode of a conversation.
type ChatKind string

const (
	ChatKindPrivate ChatKind = "private"
	ChatKindGroup   ChatKind = "group"
)

// Sender identifies the author of a message.
type Sender struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Message is a single chat message. Exactly one of ReceiverID and GroupID
// is set, matching the addressing mode of the conversation. Messages are
// immutable once created; ordering is insertion order.
type Message struct {
	ID         string      `json:"_id"`
	Sender     Sender      `json:"sender"`
	ReceiverID string      `json:"receiver,omitempty"`
	GroupID    string      `json:"group,omitempty"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	FileURL    string      `json:"fileUrl,omitempty"`
	CreatedAt  string      `json:"createdAt"`
}

// CallEvent is an inbound call signaling event. It is transient: it exists
// only long enough to be routed to a registered handler.
type CallEvent struct {
	From   string     `json:"from"`
	Type   CallType   `json:"type"`
	Status CallStatus `json:"status"`
}

// ActiveChat is the conversation currently selected by the UI collaborator.
type ActiveChat struct {
	Kind ChatKind `json:"kind"`
	ID   string   `json:"id"`
}

// ActiveCall tracks the call the local user is currently part of.
type ActiveCall struct {
	PeerID string     `json:"peerId"`
	Type   CallType   `json:"type"`
	Status CallStatus `json:"status"`
}

// Envelope is the wire frame exchanged with the server: an event name plus
// its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TypingEvent reports that a user started or stopped typing in a chat.
type TypingEvent struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// PresenceEvent reports a single user's online state change.
type PresenceEvent struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// PresenceSnapshot lists every user currently online.
type PresenceSnapshot struct {
	Users []string `json:"users"`
}

// DisconnectNotice carries the server's reason for tearing down a session.
type DisconnectNotice struct {
	Reason string `json:"reason"`
}

// ConnectAck is the server's reply to a successful handshake.
type ConnectAck struct {
	UserID string `json:"userId"`
}

// ConnectError is the server's reply to a rejected handshake.
type ConnectError struct {
	Message string `json:"message"`
}
