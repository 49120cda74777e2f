package cnst

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventNameString(t *testing.T) {
	assert.Equal(t, "newMessage", EventNewMessage.String())
	assert.Equal(t, "connect_error", EventConnectError.String())
}

func TestWireEventNames(t *testing.T) {
	// these names are server interop; they must never drift
	cases := map[EventName]string{
		EventConnect:          "connect",
		EventDisconnect:       "disconnect",
		EventConnectError:     "connect_error",
		EventReconnectAttempt: "reconnect_attempt",
		EventNewMessage:       "newMessage",
		EventTyping:           "typing",
		EventOnlineStatus:     "onlineStatus",
		EventOnlineUsers:      "onlineUsers",
		EventCall:             "call",
		EventMessagesLoaded:   "messagesLoaded",
		EventSendMessage:      "sendMessage",
		EventJoinGroup:        "joinGroup",
		EventLeaveGroup:       "leaveGroup",
		EventLoadMessages:     "loadMessages",
	}
	for event, want := range cases {
		assert.Equal(t, want, string(event))
	}
}
