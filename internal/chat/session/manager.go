// Package session owns the transport connection to the messaging server:
// the authenticated handshake, reconnection with backoff and token renewal,
// and the outbound intent API. One Manager holds at most one live
// connection at a time.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parleychat/parley/internal/chat"
	"github.com/parleychat/parley/internal/chat/call"
	"github.com/parleychat/parley/internal/chat/state"
	"github.com/parleychat/parley/internal/common/cnst"
	"github.com/parleychat/parley/internal/common/config"
	"go.uber.org/zap"
)

// TokenSource supplies a valid access token, refreshing it when needed.
// *auth.Provider satisfies it.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

// Manager is the connection/session manager. It exclusively owns the
// websocket handle; every other component goes through it.
type Manager struct {
	logger *zap.Logger
	tokens TokenSource
	store  *state.Store
	calls  *call.Registry
	router *Router
	dialer *websocket.Dialer

	server    config.ServerConfig
	reconnect config.ReconnectConfig

	mu        sync.Mutex
	ctx       context.Context
	conn      *websocket.Conn
	connected bool
	dialing   bool
	manual    bool
	attempts  int
	gen       uint64
	timer     *time.Timer
	selfID    string

	// wmu serializes writes; gorilla connections allow one writer at a time.
	wmu sync.Mutex
}

// NewManager creates a session manager. The state store and call registry
// are shared with the UI collaborator; the manager is their only mutator
// besides the collaborator's active-chat selection.
func NewManager(logger *zap.Logger, tokens TokenSource, store *state.Store, calls *call.Registry, server config.ServerConfig, reconnect config.ReconnectConfig) *Manager {
	m := &Manager{
		logger:    logger.Named("chat.session"),
		tokens:    tokens,
		store:     store,
		calls:     calls,
		server:    server,
		reconnect: reconnect,
		ctx:       context.Background(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: server.HandshakeTimeout,
		},
	}
	m.router = newRouter(logger, store, calls, m.CurrentUserID, m)
	return m
}

// FormatBearer normalizes a raw or already-prefixed token into the
// "Bearer <token>" form the handshake expects.
func FormatBearer(token string) string {
	clean := token
	if len(clean) >= 7 && strings.EqualFold(clean[:7], "bearer ") {
		clean = strings.TrimSpace(clean[7:])
	}
	return "Bearer " + clean
}

// Connect opens the transport. A live connection makes this a no-op; an
// empty token is rejected with a log line. Dial failures are retried with
// the reconnect backoff rather than surfaced to the caller.
func (m *Manager) Connect(ctx context.Context, token string) {
	if token == "" {
		m.logger.Error("no token provided for socket connection")
		return
	}

	m.mu.Lock()
	if m.conn != nil || m.dialing {
		m.mu.Unlock()
		m.logger.Info("socket already connected")
		return
	}
	m.manual = false
	m.ctx = ctx
	m.dialing = true
	m.mu.Unlock()

	// Always derive the freshest credential; the passed token may have
	// aged while the caller held it.
	if fresh, err := m.tokens.GetValidToken(ctx); err == nil && fresh != "" {
		token = fresh
	}

	m.dial(token)
}

// Disconnect tears down the transport, clears the call handler registry and
// resets the reconnect state. Idempotent; safe to call from any state,
// including mid-reconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.dialing = false
	m.attempts = 0
	m.gen++
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		m.logger.Info("disconnected from socket server")
	}
	m.calls.Clear()
}

// IsConnected reports whether the authenticated handshake has completed on
// a live connection.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && m.conn != nil
}

// CurrentUserID is the identity confirmed by the server's connect ack; it
// drives the self-echo filter.
func (m *Manager) CurrentUserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selfID
}

// Attempts returns the current reconnect attempt counter.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// backoffDelay is the wait before the given attempt: linear in the attempt
// number, not exponential.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	return m.reconnect.BaseDelay * time.Duration(attempt)
}

// dial opens the socket and sends the authentication payload. The read
// loop starts before the auth frame goes out so no inbound event can be
// lost between open and handshake completion.
func (m *Manager) dial(token string) {
	conn, _, err := m.dialer.Dial(m.server.SocketURL, nil)

	m.mu.Lock()
	m.dialing = false
	if err != nil {
		m.logger.Error("socket connection error", zap.Error(err))
		m.scheduleReconnect()
		m.mu.Unlock()
		return
	}
	if m.manual {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.readLoop(conn, gen)

	if err := m.writeJSON(chat.AuthRequest{Token: FormatBearer(token)}); err != nil {
		m.logger.Error("failed to send auth payload", zap.Error(err))
	}
}

// readLoop drains the connection, feeding every envelope to the router in
// transport delivery order. It exits when the socket closes.
func (m *Manager) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.onReadLoopExit(gen, err)
			return
		}

		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		m.router.Route(env)
	}
}

// onReadLoopExit runs when the socket closed underneath a read loop. A
// stale generation means the close was deliberate (disconnect or a
// connection replacement) and needs no reaction.
func (m *Manager) onReadLoopExit(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.manual {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.connected = false
	m.gen++
	m.mu.Unlock()

	m.logger.Warn("socket closed unexpectedly", zap.Error(err))
	m.mu.Lock()
	m.scheduleReconnect()
	m.mu.Unlock()
}

// scheduleReconnect arms the backoff timer for the next attempt. Callers
// must hold m.mu. Past the attempt cap it gives up silently: report only,
// no automatic redirect.
func (m *Manager) scheduleReconnect() {
	if m.manual {
		return
	}
	m.attempts++
	if m.attempts > m.reconnect.MaxAttempts {
		m.logger.Error("max reconnection attempts reached")
		return
	}

	delay := m.backoffDelay(m.attempts)
	m.logger.Info("scheduling reconnect",
		zap.Int("attempt", m.attempts),
		zap.Int("max", m.reconnect.MaxAttempts),
		zap.Duration("delay", delay))
	m.timer = time.AfterFunc(delay, m.redial)
}

// redial re-derives a fresh bearer credential and dials again. A stale
// access token must never be replayed on a reconnect handshake.
func (m *Manager) redial() {
	m.mu.Lock()
	if m.manual || m.conn != nil || m.dialing {
		m.mu.Unlock()
		return
	}
	m.dialing = true
	ctx := m.ctx
	m.mu.Unlock()

	token, err := m.tokens.GetValidToken(ctx)
	if err != nil || token == "" {
		// The session is unrecoverable without a credential; stop retrying.
		m.logger.Error("cannot reconnect without a valid token", zap.Error(err))
		m.mu.Lock()
		m.dialing = false
		m.attempts = m.reconnect.MaxAttempts
		m.mu.Unlock()
		return
	}

	m.dial(token)
}

// onConnected handles the server's connect ack.
func (m *Manager) onConnected(ack chat.ConnectAck) {
	m.mu.Lock()
	m.connected = true
	m.attempts = 0
	if ack.UserID != "" {
		m.selfID = ack.UserID
	}
	m.mu.Unlock()
	m.logger.Info("connected to socket server", zap.String("userId", ack.UserID))
}

// onConnectError handles a rejected handshake. Authentication failures are
// not transient: the attempt counter jumps to the cap so no further retry
// fires.
func (m *Manager) onConnectError(msg string) {
	m.logger.Error("socket connection error", zap.String("message", msg))

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.gen++

	if strings.Contains(msg, cnst.AuthErrorMarker) {
		m.attempts = m.reconnect.MaxAttempts
		m.mu.Unlock()
		m.logger.Error("authentication failed, please login again")
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	m.scheduleReconnect()
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// onServerDisconnect handles the server's disconnect notice. A forced
// server-side close is redialed immediately instead of waiting for the
// backoff timer.
func (m *Manager) onServerDisconnect(reason string) {
	m.logger.Info("disconnected from socket server", zap.String("reason", reason))
	if reason != cnst.DisconnectReasonServer {
		// The socket close that follows is handled by the read loop.
		return
	}

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.gen++
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	go m.redial()
}

// writeJSON sends one frame; gorilla allows a single concurrent writer.
func (m *Manager) writeJSON(v any) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}

	m.wmu.Lock()
	defer m.wmu.Unlock()
	return conn.WriteJSON(v)
}

// emit sends an envelope, fire-and-forget. Write failures are logged, not
// retried; the send is not reconciled against the optimistic state.
func (m *Manager) emit(event cnst.EventName, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		m.logger.Error("failed to marshal outbound event",
			zap.String("event", event.String()),
			zap.Error(err))
		return
	}
	if err := m.writeJSON(chat.Envelope{Event: event.String(), Data: payload}); err != nil {
		m.logger.Error("failed to emit event",
			zap.String("event", event.String()),
			zap.Error(err))
	}
}
