package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cybershield/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client wraps one websocket connection for a participant. Outbound payloads
// go through a buffered channel drained by WritePump so the hub never writes
// to the socket from two goroutines.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewClient(h *Hub, conn *websocket.Conn, userID int64, logger *zap.Logger) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		logger: logger,
	}
}

// Send marshals v and queues it for the write pump. A full queue or a closed
// client counts as a dead connection. The queue push happens under the same
// mutex Close takes, so a concurrent delivery can never hit a closed channel.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

// Close shuts the outbound queue down; WritePump drains it and closes the
// socket. Safe to call more than once and concurrently with Send.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump consumes inbound frames until the connection dies, feeding each
// message envelope into the hub pipeline. Teardown removes the client from
// the live-connection map immediately; in-flight processing of already
// accepted messages completes regardless.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.dropIfCurrent(c.userID, c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Unexpected websocket close", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var in models.InboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			c.logger.Warn("Dropping malformed inbound message", zap.Int64("user_id", c.userID), zap.Error(err))
			continue
		}

		if err := c.hub.HandleInbound(c.userID, in); err != nil {
			c.logger.Error("Inbound message pipeline failed", zap.Int64("user_id", c.userID), zap.Error(err))
		}
	}
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
