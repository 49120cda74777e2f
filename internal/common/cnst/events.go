package cnst

// EventName identifies a wire event exchanged with the messaging server.
// The values must match the server's event names exactly.
type EventName string

// Inbound events.
const (
	EventConnect          EventName = "connect"
	EventDisconnect       EventName = "disconnect"
	EventConnectError     EventName = "connect_error"
	EventReconnectAttempt EventName = "reconnect_attempt"
	EventNewMessage       EventName = "newMessage"
	EventTyping           EventName = "typing"
	EventOnlineStatus     EventName = "onlineStatus"
	EventOnlineUsers      EventName = "onlineUsers"
	EventCall             EventName = "call"
	EventMessagesLoaded   EventName = "messagesLoaded"
)

// Outbound events.
const (
	EventSendMessage  EventName = "sendMessage"
	EventJoinGroup    EventName = "joinGroup"
	EventLeaveGroup   EventName = "leaveGroup"
	EventLoadMessages EventName = "loadMessages"
)

func (e EventName) String() string {
	return string(e)
}

// DisconnectReasonServer is the disconnect reason sent when the server
// forcibly closed the session; the client must reconnect immediately
// instead of waiting for the backoff timer.
const DisconnectReasonServer = "io server disconnect"

// AuthErrorMarker appears in connect_error messages when the handshake was
// rejected for bad credentials. Such failures are not transient and must
// not be retried.
const AuthErrorMarker = "Authentication error"
