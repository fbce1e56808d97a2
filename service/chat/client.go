package chat

import (
	"sync"
	"time"

	"QChat/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// Client represents one websocket connection of one user. A user may hold
// several clients at once (multiple tabs/devices), each tracked separately.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte // outbound queue, consumed by a single writer goroutine

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Close is idempotent; it stops the writer and closes the socket, which in
// turn unblocks the read loop.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}

func (c *Client) Done() <-chan struct{} { return c.done }

// deliver enqueues without blocking. A full queue or closed client loses the
// payload for this client only; the next broadcast self-corrects.
func (c *Client) deliver(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// writePump is the single writer for the connection: it drains the send queue
// and keeps the ping/pong cycle alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("ws write failed, closing client " + c.ConnID)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
