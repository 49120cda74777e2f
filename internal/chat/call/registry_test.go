package call

import (
	"testing"

	"github.com/parleychat/parley/internal/chat"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatchRoutesByPeer(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var gotA, gotB []chat.CallEvent
	r.Register("peerA", func(e chat.CallEvent) { gotA = append(gotA, e) })
	r.Register("peerB", func(e chat.CallEvent) { gotB = append(gotB, e) })

	r.Dispatch(chat.CallEvent{From: "peerB", Type: chat.CallTypeVideo, Status: chat.CallStatusRinging})

	// only peerB's handler fires
	assert.Empty(t, gotA)
	assert.Len(t, gotB, 1)
	assert.Equal(t, chat.CallStatusRinging, gotB[0].Status)
}

func TestDispatchUnregisteredPeerIsDropped(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	assert.NotPanics(t, func() {
		r.Dispatch(chat.CallEvent{From: "stranger", Status: chat.CallStatusRinging})
	})
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var first, second int
	r.Register("peerA", func(chat.CallEvent) { first++ })
	r.Register("peerA", func(chat.CallEvent) { second++ })

	r.Dispatch(chat.CallEvent{From: "peerA"})
	assert.Zero(t, first, "last registration wins")
	assert.Equal(t, 1, second)
}

func TestUnregister(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var calls int
	r.Register("peerA", func(chat.CallEvent) { calls++ })
	r.Unregister("peerA")
	r.Dispatch(chat.CallEvent{From: "peerA"})
	assert.Zero(t, calls)

	// unregistering an absent peer is safe
	assert.NotPanics(t, func() { r.Unregister("ghost") })
}

func TestClearRemovesAllHandlers(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var calls int
	r.Register("peerA", func(chat.CallEvent) { calls++ })
	r.Register("peerB", func(chat.CallEvent) { calls++ })
	assert.Equal(t, 2, r.Len())

	r.Clear()
	assert.Zero(t, r.Len())

	r.Dispatch(chat.CallEvent{From: "peerA"})
	r.Dispatch(chat.CallEvent{From: "peerB"})
	assert.Zero(t, calls, "cleared handlers must never fire")
}
