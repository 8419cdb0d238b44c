package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"f2f-dating-app/internal/models"
	"f2f-dating-app/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
	commandTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by the CORS middleware
	},
}

// Session is the part of a viewer's coordinator a socket can drive.
type Session interface {
	OpenSession(ctx context.Context, id string) (models.ChatSession, error)
	CloseSession(ctx context.Context) error
	SendMessage(ctx context.Context, text string) (models.Message, error)
}

// AcquireFunc returns the viewer's session and a release func.
type AcquireFunc func(ctx context.Context, viewerID string) (Session, func(), error)

// Hub fans coordinator signals out to every socket a viewer has open.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     *logrus.Entry
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	session Session
	closed  bool
}

// Envelope is one frame pushed to the client.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Command is one frame sent by the client.
type Command struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

const (
	CommandOpenSession  = "open_session"
	CommandCloseSession = "close_session"
	CommandSendMessage  = "send_message"

	frameError   = "error"
	frameSent    = "message_sent"
	frameSession = "session"
)

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log.WithField("component", "websocket"),
	}
}

// Deliver implements session.Sink. It never blocks; a client that cannot
// keep up is disconnected.
func (h *Hub) Deliver(userID string, sig session.Signal) {
	msg, err := json.Marshal(Envelope{Type: string(sig.Type), Payload: sig.Payload})
	if err != nil {
		h.log.WithError(err).WithField("type", sig.Type).Error("encode signal")
		return
	}
	h.BroadcastToUser(userID, msg)
}

func (h *Hub) BroadcastToUser(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
			h.removeLocked(client)
		}
	}
}

// Connected reports how many sockets userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}
	h.log.WithField("user_id", client.userID).Info("client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	close(client.send)
	set := h.clients[client.userID]
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	h.log.WithField("user_id", client.userID).Info("client disconnected")
}

// Handler upgrades an authenticated request and binds the socket to the
// viewer's session for as long as it stays open.
func (h *Hub) Handler(acquire AcquireFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		sess, release, err := acquire(c.Request.Context(), userID)
		if err != nil {
			h.log.WithError(err).WithField("user_id", userID).Warn("acquire session")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			release()
			h.log.WithError(err).Warn("websocket upgrade")
			return
		}

		client := &Client{
			hub:     h,
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			userID:  userID,
			session: sess,
		}
		h.register(client)

		go client.writePump()
		go func() {
			defer release()
			client.readPump()
		}()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("websocket read")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(frameError, gin.H{"error": "Invalid frame"})
			continue
		}
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd Command) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Type {
	case CommandOpenSession:
		cs, err := c.session.OpenSession(ctx, cmd.SessionID)
		if err != nil {
			c.reply(frameError, gin.H{"error": err.Error(), "command": cmd.Type})
			return
		}
		c.reply(frameSession, cs)
	case CommandCloseSession:
		if err := c.session.CloseSession(ctx); err != nil {
			c.reply(frameError, gin.H{"error": err.Error(), "command": cmd.Type})
		}
	case CommandSendMessage:
		msg, err := c.session.SendMessage(ctx, cmd.Text)
		if err != nil {
			c.reply(frameError, gin.H{"error": err.Error(), "command": cmd.Type})
			return
		}
		c.reply(frameSent, msg)
	default:
		c.reply(frameError, gin.H{"error": "Unknown command", "command": cmd.Type})
	}
}

// reply answers this socket only.
func (c *Client) reply(typ string, payload any) {
	msg, err := json.Marshal(Envelope{Type: typ, Payload: payload})
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.removeLocked(c)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("websocket write")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
