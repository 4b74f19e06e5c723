package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one websocket connection owned by a user.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan Event
}

// NewClient wraps an upgraded connection. The caller runs Serve.
func NewClient(userID string, conn *websocket.Conn) *Client {
	c := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan Event, 64),
	}
	return c
}

// UserID returns the owning user's id.
func (c *Client) UserID() string { return c.userID }

func (c *Client) close() {
	_ = c.conn.Close()
}

// Serve pumps queued events to the connection and keeps it alive with
// pings. It returns when the connection drops.
func (c *Client) Serve() {
	done := make(chan struct{})
	go func() {
		// drain reads so pongs and close frames are processed
		defer close(done)
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
