package state

import (
	"testing"

	"github.com/parleychat/parley/internal/chat"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMessagesAppendAndReplace(t *testing.T) {
	s := NewStore(zap.NewNop())

	s.AddMessage(chat.Message{ID: "m1", Content: "hi"})
	s.AddMessage(chat.Message{ID: "m2", Content: "there"})

	msgs := s.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "there", msgs[1].Content)

	// history load replaces the list wholesale
	s.SetMessages([]chat.Message{{ID: "m3", Content: "history"}})
	msgs = s.Messages()
	assert.Len(t, msgs, 1)
	assert.Equal(t, "history", msgs[0].Content)
}

func TestMessagesSnapshotIsACopy(t *testing.T) {
	s := NewStore(zap.NewNop())
	s.AddMessage(chat.Message{ID: "m1", Content: "hi"})

	msgs := s.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "hi", s.Messages()[0].Content)
}

func TestTypingLastWriteWins(t *testing.T) {
	s := NewStore(zap.NewNop())

	assert.False(t, s.IsTyping("u2"))
	s.SetTyping("u2", true)
	assert.True(t, s.IsTyping("u2"))
	s.SetTyping("u2", false)
	assert.False(t, s.IsTyping("u2"))
}

func TestOnlineSingleAndBulk(t *testing.T) {
	s := NewStore(zap.NewNop())

	s.SetOnline("u2", true)
	assert.True(t, s.IsOnline("u2"))
	s.SetOnline("u2", false)
	assert.False(t, s.IsOnline("u2"))

	s.SetOnlineBulk([]string{"u3", "u4"})
	assert.True(t, s.IsOnline("u3"))
	assert.True(t, s.IsOnline("u4"))
	assert.False(t, s.IsOnline("u5"))
}

func TestActiveChatAndCall(t *testing.T) {
	s := NewStore(zap.NewNop())

	assert.Nil(t, s.ActiveChat())
	s.SetActiveChat(&chat.ActiveChat{Kind: chat.ChatKindPrivate, ID: "u2"})
	got := s.ActiveChat()
	assert.Equal(t, chat.ChatKindPrivate, got.Kind)
	assert.Equal(t, "u2", got.ID)

	// changing the active chat leaves call state alone
	s.SetActiveCall(&chat.ActiveCall{PeerID: "u2", Type: chat.CallTypeAudio, Status: chat.CallStatusRinging})
	s.SetActiveChat(&chat.ActiveChat{Kind: chat.ChatKindGroup, ID: "g1"})
	assert.NotNil(t, s.ActiveCall())

	s.UpdateCallStatus(chat.CallStatusAccepted)
	assert.Equal(t, chat.CallStatusAccepted, s.ActiveCall().Status)

	s.SetActiveCall(nil)
	assert.Nil(t, s.ActiveCall())

	// status update with no active call is dropped
	s.UpdateCallStatus(chat.CallStatusEnded)
	assert.Nil(t, s.ActiveCall())
}

func TestSubscribeNotifiesAndUnsubscribes(t *testing.T) {
	s := NewStore(zap.NewNop())

	var calls int
	cancel := s.Subscribe(func() { calls++ })

	s.AddMessage(chat.Message{ID: "m1"})
	s.SetTyping("u2", true)
	assert.Equal(t, 2, calls)

	cancel()
	s.AddMessage(chat.Message{ID: "m2"})
	assert.Equal(t, 2, calls)
}
