package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// client is one connected viewer. Outbound messages flow through a buffered
// channel drained by writePump; a client whose buffer is full simply misses
// messages enqueued while it is behind. Delivery favors freshness over
// completeness.
type client struct {
	id        string
	conn      *websocket.Conn
	send      chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan interface{}, buffer),
		done: make(chan struct{}),
	}
}

// trySend enqueues a message without blocking. It reports false when the
// client's buffer is full and the message was dropped.
func (c *client) trySend(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close shuts the connection down. Safe to call multiple times.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with pings. It exits on the first write error or when
// the client is closed.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
