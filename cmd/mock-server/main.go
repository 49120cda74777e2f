// mock-server is a development stand-in for the messaging server: it
// implements the auth endpoints, the upload endpoint and the websocket
// wire protocol so the client layer can be exercised end to end.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/parleychat/parley/internal/auth/jwt"
	"github.com/parleychat/parley/internal/chat"
	"github.com/parleychat/parley/internal/common/cnst"
	"github.com/parleychat/parley/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultSecret = "mock-server-secret-key-for-dev-use-only"

type user struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// hub tracks connected clients and the in-memory message history.
type hub struct {
	logger     *zap.Logger
	accessSvc  *jwt.Service
	refreshSvc *jwt.Service

	mu       sync.Mutex
	users    map[string]*user // by email
	conns    map[string]*websocket.Conn
	messages []chat.Message
	groups   map[string]map[string]bool // groupID -> member userIDs
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mock-server",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mock-server version %s\n", version.Get())
	},
}

var rootCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Mock Messaging Server",
	Long:  `Mock Messaging Server implements the auth, upload and websocket surfaces of the chat backend`,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func run() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("MOCK_JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	accessSvc, err := jwt.NewService(jwt.Config{SecretKey: secret, Duration: 15 * time.Minute})
	if err != nil {
		logger.Fatal("failed to create access token service", zap.Error(err))
	}
	refreshSvc, err := jwt.NewService(jwt.Config{SecretKey: secret, Duration: 7 * 24 * time.Hour})
	if err != nil {
		logger.Fatal("failed to create refresh token service", zap.Error(err))
	}

	h := &hub{
		logger:     logger.Named("hub"),
		accessSvc:  accessSvc,
		refreshSvc: refreshSvc,
		users:      make(map[string]*user),
		conns:      make(map[string]*websocket.Conn),
		groups:     make(map[string]map[string]bool),
	}

	logger.Info("starting mock-server", zap.String("version", version.Get()))

	router := gin.Default()
	router.POST("/auth/signup", h.handleSignup)
	router.POST("/auth/login", h.handleLogin)
	router.POST("/auth/refresh-token", h.handleRefresh)
	router.POST("/auth/logout", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/upload", h.handleUpload)
	router.GET("/ws", h.handleSocket)

	addr := os.Getenv("MOCK_SERVER_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	if err := router.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func (h *hub) issueTokens(u *user) (access, refresh string, err error) {
	access, err = h.accessSvc.GenerateToken(u.ID, u.Email)
	if err != nil {
		return "", "", err
	}
	refresh, err = h.refreshSvc.GenerateToken(u.ID, u.Email)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (h *hub) handleSignup(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	if _, exists := h.users[req.Email]; exists {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}
	u := &user{ID: uuid.New().String(), Name: req.Name, Email: req.Email}
	h.users[req.Email] = u
	h.mu.Unlock()

	access, refresh, err := h.issueTokens(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u, "accessToken": access, "refreshToken": refresh})
}

func (h *hub) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// any password is accepted; unknown users are created on the fly
	h.mu.Lock()
	u, ok := h.users[req.Email]
	if !ok {
		u = &user{ID: uuid.New().String(), Name: req.Email, Email: req.Email}
		h.users[req.Email] = u
	}
	h.mu.Unlock()

	access, refresh, err := h.issueTokens(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok", "user": u, "accessToken": access, "refreshToken": refresh})
}

func (h *hub) handleRefresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.refreshSvc.ValidateToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	u := &user{ID: claims.UserID, Email: claims.Email}
	access, refresh, err := h.issueTokens(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "refreshToken": refresh})
}

func (h *hub) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	// content is discarded; only the URL matters to the client flow
	c.JSON(http.StatusOK, gin.H{"fileUrl": "/files/" + uuid.New().String() + "-" + file.Filename})
}

var upgrader = websocket.Upgrader{
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

func (h *hub) handleSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	// first frame is the auth payload
	var auth chat.AuthRequest
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	claims, err := h.accessSvc.ValidateToken(stripBearer(auth.Token))
	if err != nil {
		h.send(conn, cnst.EventConnectError, chat.ConnectError{Message: "Authentication error: invalid token"})
		return
	}
	userID := claims.UserID

	h.mu.Lock()
	if old, ok := h.conns[userID]; ok {
		// the session moved to a new connection; force the old one out
		h.sendLocked(old, cnst.EventDisconnect, chat.DisconnectNotice{Reason: cnst.DisconnectReasonServer})
		_ = old.Close()
	}
	h.conns[userID] = conn
	online := make([]string, 0, len(h.conns))
	for id := range h.conns {
		online = append(online, id)
	}
	h.mu.Unlock()

	h.send(conn, cnst.EventConnect, chat.ConnectAck{UserID: userID})
	h.send(conn, cnst.EventOnlineUsers, chat.PresenceSnapshot{Users: online})
	h.broadcast(userID, cnst.EventOnlineStatus, chat.PresenceEvent{UserID: userID, IsOnline: true})
	h.logger.Info("client connected", zap.String("userId", userID))

	defer func() {
		h.mu.Lock()
		if h.conns[userID] == conn {
			delete(h.conns, userID)
		}
		h.mu.Unlock()
		h.broadcast(userID, cnst.EventOnlineStatus, chat.PresenceEvent{UserID: userID, IsOnline: false})
		h.logger.Info("client disconnected", zap.String("userId", userID))
	}()

	for {
		var env chat.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		h.route(conn, userID, claims.Email, env)
	}
}

func (h *hub) route(conn *websocket.Conn, userID, email string, env chat.Envelope) {
	switch cnst.EventName(env.Event) {
	case cnst.EventSendMessage:
		var p chat.SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.logger.Warn("malformed sendMessage", zap.Error(err))
			return
		}
		msg := chat.Message{
			ID:         uuid.New().String(),
			Sender:     chat.Sender{ID: userID, Email: email},
			ReceiverID: p.ReceiverID,
			GroupID:    p.GroupID,
			Content:    p.Content,
			Type:       p.Type,
			FileURL:    p.FileURL,
			CreatedAt:  time.Now().Format(time.RFC3339),
		}
		h.mu.Lock()
		h.messages = append(h.messages, msg)
		h.mu.Unlock()
		// everyone gets the event, the sender included; clients filter
		// their own echo
		h.broadcast("", cnst.EventNewMessage, msg)

	case cnst.EventTyping:
		var p chat.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.broadcast(userID, cnst.EventTyping, chat.TypingEvent{UserID: userID, IsTyping: p.IsTyping})

	case cnst.EventJoinGroup:
		var groupID string
		if err := json.Unmarshal(env.Data, &groupID); err != nil {
			return
		}
		h.mu.Lock()
		if h.groups[groupID] == nil {
			h.groups[groupID] = make(map[string]bool)
		}
		h.groups[groupID][userID] = true
		h.mu.Unlock()

	case cnst.EventLeaveGroup:
		var groupID string
		if err := json.Unmarshal(env.Data, &groupID); err != nil {
			return
		}
		h.mu.Lock()
		delete(h.groups[groupID], userID)
		h.mu.Unlock()

	case cnst.EventCall:
		var p chat.CallPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		event := chat.CallEvent{From: userID, Type: p.Type, Status: p.Status}
		if p.ReceiverID != "" {
			h.sendTo(p.ReceiverID, cnst.EventCall, event)
			return
		}
		h.mu.Lock()
		members := h.groups[p.GroupID]
		targets := make([]string, 0, len(members))
		for id := range members {
			if id != userID {
				targets = append(targets, id)
			}
		}
		h.mu.Unlock()
		for _, id := range targets {
			h.sendTo(id, cnst.EventCall, event)
		}

	case cnst.EventLoadMessages:
		var p chat.LoadMessagesPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.mu.Lock()
		history := make([]chat.Message, 0)
		for _, m := range h.messages {
			switch {
			case p.GroupID != "" && m.GroupID == p.GroupID:
				history = append(history, m)
			case p.ReceiverID != "" && m.GroupID == "" &&
				((m.Sender.ID == userID && m.ReceiverID == p.ReceiverID) ||
					(m.Sender.ID == p.ReceiverID && m.ReceiverID == userID)):
				history = append(history, m)
			}
		}
		h.mu.Unlock()
		h.send(conn, cnst.EventMessagesLoaded, history)

	default:
		h.logger.Debug("dropping unknown event", zap.String("event", env.Event))
	}
}

// send writes one envelope; the hub lock serializes writers per connection.
func (h *hub) send(conn *websocket.Conn, event cnst.EventName, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(conn, event, data)
}

func (h *hub) sendLocked(conn *websocket.Conn, event cnst.EventName, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("event", event.String()), zap.Error(err))
		return
	}
	if err := conn.WriteJSON(chat.Envelope{Event: event.String(), Data: payload}); err != nil {
		h.logger.Warn("failed to write event", zap.String("event", event.String()), zap.Error(err))
	}
}

// broadcast sends an event to every connected client except the excluded
// user; an empty exclusion reaches everyone.
func (h *hub) broadcast(excludeUserID string, event cnst.EventName, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		if id == excludeUserID {
			continue
		}
		h.sendLocked(conn, event, data)
	}
}

func (h *hub) sendTo(userID string, event cnst.EventName, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[userID]; ok {
		h.sendLocked(conn, event, data)
	}
}

func stripBearer(token string) string {
	if len(token) >= 7 && (token[:7] == "Bearer " || token[:7] == "bearer ") {
		return token[7:]
	}
	return token
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
