package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

const (
	maxFrameBytes  = 16 * 1024
	defaultBuffer  = 64
	requestTimeout = 10 * time.Second
)

// ChatGateway is the chat behaviour the socket needs. Implementations persist
// messages and publish the resulting events themselves.
type ChatGateway interface {
	AuthorizeParticipant(ctx context.Context, chatID, userID string) error
	SendMessage(ctx context.Context, chatID, senderID, content string) error
	MarkRead(ctx context.Context, chatID, userID string) error
}

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	chat   ChatGateway
	logger *zap.Logger

	userID string
	name   string
	role   string

	// rooms is guarded by hub.mu.
	rooms map[string]struct{}

	mu     sync.Mutex
	send   chan []byte
	closed bool

	pingInterval  time.Duration
	writeDeadline time.Duration
}

// ClientOptions tunes connection behaviour.
type ClientOptions struct {
	SendBuffer    int
	PingInterval  time.Duration
	WriteDeadline time.Duration
}

func newClient(hub *Hub, conn *websocket.Conn, chat ChatGateway, who Identity, opts ClientOptions, logger *zap.Logger) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteDeadline <= 0 {
		opts.WriteDeadline = 10 * time.Second
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		chat:          chat,
		logger:        logger.With(zap.String("user_id", who.UserID)),
		userID:        who.UserID,
		name:          who.Name,
		role:          who.Role,
		rooms:         make(map[string]struct{}),
		send:          make(chan []byte, opts.SendBuffer),
		pingInterval:  opts.PingInterval,
		writeDeadline: opts.WriteDeadline,
	}
}

// enqueue queues frame without blocking and reports whether it was accepted.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// inbound is a client to server frame.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chatFrame struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// readPump consumes frames until the connection fails, then unregisters.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pingInterval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pingInterval * 2))
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handle(msg)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(msg inbound) {
	var frame chatFrame
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			c.reply(EventError, map[string]string{"event": msg.Event, "message": "malformed payload"})
			return
		}
	}
	if frame.ChatID == "" {
		c.reply(EventError, map[string]string{"event": msg.Event, "message": "chatId is required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	room := ChatRoom(frame.ChatID)
	switch msg.Event {
	case ClientJoinChat:
		if err := c.chat.AuthorizeParticipant(ctx, frame.ChatID, c.userID); err != nil {
			c.fail(msg.Event, err)
			return
		}
		c.hub.Join(c, room)
		c.reply(EventChatJoined, map[string]string{"chatId": frame.ChatID})
	case ClientLeaveChat:
		c.hub.Leave(c, room)
	case ClientSendMessage:
		if err := c.chat.SendMessage(ctx, frame.ChatID, c.userID, frame.Content); err != nil {
			c.fail(msg.Event, err)
		}
	case ClientTypingStart, ClientTypingStop:
		if !c.hub.InRoom(c, room) {
			c.reply(EventError, map[string]string{"event": msg.Event, "message": "join the chat first"})
			return
		}
		name := EventUserTyping
		if msg.Event == ClientTypingStop {
			name = EventUserStopTyping
		}
		c.hub.Publish(ToChat(name, frame.ChatID, map[string]string{
			"chatId":   frame.ChatID,
			"userId":   c.userID,
			"userName": c.name,
		}, c.userID))
	case ClientMarkRead:
		if err := c.chat.MarkRead(ctx, frame.ChatID, c.userID); err != nil {
			c.fail(msg.Event, err)
		}
	default:
		c.reply(EventError, map[string]string{"event": msg.Event, "message": "unknown event"})
	}
}

func (c *Client) fail(event string, err error) {
	c.reply(EventError, map[string]string{"event": event, "message": publicMessage(err)})
}

func (c *Client) reply(name string, data interface{}) {
	frame, err := json.Marshal(Event{Name: name, Data: data})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

// publicMessage hides internal failures from clients.
func publicMessage(err error) string {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		return appErrors.ErrInternal.Message
	}
	return appErr.Message
}
