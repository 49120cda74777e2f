package chat

// AuthRequest is the first frame the client sends after the socket opens.
// The token carries the "Bearer " prefix.
type AuthRequest struct {
	Token string `json:"token"`
}

// SendMessagePayload is the outbound sendMessage event body. Exactly one of
// ReceiverID and GroupID is set.
type SendMessagePayload struct {
	Content    string      `json:"content"`
	ReceiverID string      `json:"receiverId,omitempty"`
	GroupID    string      `json:"groupId,omitempty"`
	Type       MessageType `json:"type"`
	FileURL    string      `json:"fileUrl,omitempty"`
}

// TypingPayload is the outbound typing event body.
type TypingPayload struct {
	IsTyping bool   `json:"isTyping"`
	ChatID   string `json:"chatId"`
}

// CallPayload is the outbound call event body. Exactly one of ReceiverID
// and GroupID is set.
type CallPayload struct {
	ReceiverID string     `json:"receiverId,omitempty"`
	GroupID    string     `json:"groupId,omitempty"`
	Type       CallType   `json:"type"`
	Status     CallStatus `json:"status"`
	Timestamp  string     `json:"timestamp"`
}

// LoadMessagesPayload is the outbound loadMessages event body. The reply
// arrives asynchronously as a messagesLoaded event.
type LoadMessagesPayload struct {
	ReceiverID string `json:"receiverId,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
}
