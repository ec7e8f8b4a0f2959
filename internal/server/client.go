package server

import (
	"net"
	"sync"
	"time"

	"github.com/damelLP/atmd/internal/core"
)

// sendQueueSize bounds how many outgoing messages can be queued for a
// single client before it's considered too slow to keep up.
const sendQueueSize = 100

// writeTimeout bounds a single message write; a client that can't
// absorb one message in this long is disconnected rather than allowed
// to stall the broadcaster.
const writeTimeout = 10 * time.Second

// readIdleTimeout disconnects a client that's sent nothing -- not even
// a ping -- in this long.
const readIdleTimeout = 300 * time.Second

// maxMessageSize bounds a single incoming JSON line.
const maxMessageSize = 1 << 20 // 1MB

// clientConn is one accepted connection: its own outgoing queue and
// writer goroutine, plus whatever subscription filter it's asked for.
type clientConn struct {
	id   string
	conn net.Conn
	send chan []byte

	mu          sync.RWMutex
	subscribed  bool
	filterBy    core.SessionId // empty means "all sessions"
}

func newClientConn(id string, conn net.Conn) *clientConn {
	c := &clientConn{id: id, conn: conn, send: make(chan []byte, sendQueueSize)}
	go c.writePump()
	return c
}

// writePump is the sole writer to c.conn, draining c.send until it's
// closed. One goroutine per client avoids interleaving writes from the
// broadcaster and the per-connection handler.
func (c *clientConn) writePump() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(msg); err != nil {
			c.conn.Close()
			return
		}
	}
}

func (c *clientConn) close() {
	close(c.send)
	c.conn.Close()
}

// enqueue attempts a non-blocking send; returns false if the client's
// queue is full, meaning it should be dropped as too slow.
func (c *clientConn) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *clientConn) subscribe(sessionID core.SessionId) {
	c.mu.Lock()
	c.subscribed = true
	c.filterBy = sessionID
	c.mu.Unlock()
}

func (c *clientConn) unsubscribe() {
	c.mu.Lock()
	c.subscribed = false
	c.filterBy = ""
	c.mu.Unlock()
}

// wants reports whether this client should receive an update for
// sessionID: it must be subscribed, and either filtering for nothing in
// particular or for this exact session.
func (c *clientConn) wants(sessionID core.SessionId) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.subscribed {
		return false
	}
	return c.filterBy == "" || c.filterBy == sessionID
}
