package session

import (
	"encoding/json"

	"github.com/parleychat/parley/internal/chat"
	"github.com/parleychat/parley/internal/chat/call"
	"github.com/parleychat/parley/internal/chat/state"
	"github.com/parleychat/parley/internal/common/cnst"
	"go.uber.org/zap"
)

// lifecycle receives the transport-level events the router does not apply
// to the state store itself.
type lifecycle interface {
	onConnected(ack chat.ConnectAck)
	onConnectError(msg string)
	onServerDisconnect(reason string)
}

// Router translates each inbound transport event into exactly one state
// mutation. Handlers must tolerate duplicate delivery: transports may
// redeliver after a reconnect, and no dedup is performed beyond the
// self-echo filter on newMessage.
type Router struct {
	logger   *zap.Logger
	store    *state.Store
	calls    *call.Registry
	selfID   func() string
	life     lifecycle
}

func newRouter(logger *zap.Logger, store *state.Store, calls *call.Registry, selfID func() string, life lifecycle) *Router {
	return &Router{
		logger: logger.Named("chat.router"),
		store:  store,
		calls:  calls,
		selfID: selfID,
		life:   life,
	}
}

// Route applies one inbound envelope. A panicking handler must not take
// down the read loop, so panics are recovered and logged here.
func (r *Router) Route(env chat.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event handler panicked",
				zap.String("event", env.Event),
				zap.Any("panic", rec))
		}
	}()

	switch cnst.EventName(env.Event) {
	case cnst.EventConnect:
		var ack chat.ConnectAck
		if !r.decode(env, &ack) {
			return
		}
		r.life.onConnected(ack)

	case cnst.EventConnectError:
		var ce chat.ConnectError
		if !r.decode(env, &ce) {
			return
		}
		r.life.onConnectError(ce.Message)

	case cnst.EventDisconnect:
		var dn chat.DisconnectNotice
		if !r.decode(env, &dn) {
			return
		}
		r.life.onServerDisconnect(dn.Reason)

	case cnst.EventReconnectAttempt:
		r.logger.Info("server acknowledged reconnect attempt")

	case cnst.EventNewMessage:
		var msg chat.Message
		if !r.decode(env, &msg) {
			return
		}
		// The sender's own message was already appended optimistically at
		// send time; appending the echo would duplicate it.
		if msg.Sender.ID == r.selfID() {
			return
		}
		r.store.AddMessage(msg)

	case cnst.EventTyping:
		var te chat.TypingEvent
		if !r.decode(env, &te) {
			return
		}
		r.store.SetTyping(te.UserID, te.IsTyping)

	case cnst.EventOnlineStatus:
		var pe chat.PresenceEvent
		if !r.decode(env, &pe) {
			return
		}
		r.store.SetOnline(pe.UserID, pe.IsOnline)

	case cnst.EventOnlineUsers:
		var ps chat.PresenceSnapshot
		if !r.decode(env, &ps) {
			return
		}
		r.store.SetOnlineBulk(ps.Users)

	case cnst.EventCall:
		var ce chat.CallEvent
		if !r.decode(env, &ce) {
			return
		}
		r.calls.Dispatch(ce)

	case cnst.EventMessagesLoaded:
		var msgs []chat.Message
		if !r.decode(env, &msgs) {
			return
		}
		r.store.SetMessages(msgs)

	default:
		r.logger.Debug("dropping unknown event", zap.String("event", env.Event))
	}
}

// decode unmarshals the envelope payload. Malformed payloads are logged and
// dropped; the connection stays live.
func (r *Router) decode(env chat.Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		r.logger.Warn("dropping malformed event payload",
			zap.String("event", env.Event),
			zap.Error(err))
		return false
	}
	return true
}
