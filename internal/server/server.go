// Package server listens on a Unix domain socket and speaks the atmd
// client protocol: each connection negotiates a protocol version, then
// exchanges newline-delimited JSON envelopes (internal/protocol) until
// it disconnects. A single broadcaster goroutine fans registry events
// out to every subscribed connection.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/protocol"
	"github.com/damelLP/atmd/internal/registry"
	"github.com/damelLP/atmd/internal/session"
)

// maxSubscribers bounds concurrent subscribers, not connections: a
// client may connect, list sessions, and ping without ever counting
// against this cap. Only an active Subscribe claims a slot, and only
// the 11th concurrent Subscribe is rejected.
const maxSubscribers = 10

// DiscoverFunc runs one discovery sweep synchronously and reports how
// many processes the registry accepted (already-tracked ones included)
// versus how many it failed to register. A nil DiscoverFunc means no discoverer is wired in (e.g. a
// test that doesn't exercise discovery); handleDiscover then reports
// 0/0 without scanning anything.
type DiscoverFunc func(ctx context.Context) (discovered, failed int)

// Server owns the listener, the registry handle every connection
// dispatches commands through, and the set of currently connected
// clients.
type Server struct {
	handle   registry.Handle
	logger   *zap.Logger
	privacy  *session.PrivacyFilter
	discover DiscoverFunc

	listener net.Listener

	mu          sync.Mutex
	clients     map[string]*clientConn
	subscribers map[string]bool
}

// New constructs a Server bound to handle. Call Listen to bind the
// socket and Serve to start accepting connections. privacy may be nil,
// meaning no masking or path filtering is applied. discover may be nil,
// meaning a client's Discover request always reports 0 discovered / 0
// failed rather than running a scan.
func New(handle registry.Handle, logger *zap.Logger, privacy *session.PrivacyFilter, discover DiscoverFunc) *Server {
	if privacy == nil {
		privacy = &session.PrivacyFilter{}
	}
	return &Server{
		handle:      handle,
		logger:      logger,
		privacy:     privacy,
		discover:    discover,
		clients:     make(map[string]*clientConn),
		subscribers: make(map[string]bool),
	}
}

// Listen binds the Unix domain socket at socketPath, removing a stale
// socket file left behind by a previous run and creating the parent
// directory if needed.
func (s *Server) Listen(socketPath string) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	if err := removeStaleSocket(socketPath); err != nil {
		return fmt.Errorf("clearing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("restricting socket permissions: %w", err)
	}
	s.listener = ln
	return nil
}

// removeStaleSocket deletes socketPath if nothing is listening on it.
// A live daemon already bound to the path makes net.Listen fail
// naturally; this only clears the debris of a daemon that exited
// without cleaning up.
func removeStaleSocket(socketPath string) error {
	if _, err := os.Stat(socketPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	conn, err := net.Dial("unix", socketPath)
	if err == nil {
		conn.Close()
		return fmt.Errorf("socket %s already has a live listener", socketPath)
	}
	return os.Remove(socketPath)
}

// Serve runs the broadcaster and the accept loop until ctx is
// cancelled or the listener is closed. events is the registry's event
// stream, typically the second return value of registry.Spawn.
func (s *Server) Serve(ctx context.Context, events <-chan registry.Event) error {
	go s.broadcastLoop(ctx, events)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.handleConn(ctx, conn)
	}
}

// Close stops accepting connections and drops every client.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Lock()
	for id, c := range s.clients {
		c.close()
		delete(s.clients, id)
	}
	s.mu.Unlock()
	return err
}

func (s *Server) addClient(c *clientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	c, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
	}
	delete(s.subscribers, id)
	s.mu.Unlock()
	if ok {
		c.close()
	}
}

// trySubscribe claims a subscriber slot for clientID, enforcing
// maxSubscribers. Re-subscribing (e.g. changing the session filter)
// doesn't claim a second slot. Returns false if the cap is already
// reached and clientID isn't already counted.
func (s *Server) trySubscribe(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[clientID] {
		return true
	}
	if len(s.subscribers) >= maxSubscribers {
		return false
	}
	s.subscribers[clientID] = true
	return true
}

func (s *Server) markUnsubscribed(clientID string) {
	s.mu.Lock()
	delete(s.subscribers, clientID)
	s.mu.Unlock()
}

func (s *Server) snapshotClients() []*clientConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*clientConn, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// broadcastLoop drains the registry's event channel and fans
// Updated/Removed events out to every subscribed client, dropping any
// client whose send queue is full rather than blocking on it -- the
// same non-blocking-send-then-drop policy a websocket broadcaster uses
// against a slow reader.
func (s *Server) broadcastLoop(ctx context.Context, events <-chan registry.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.dispatchEvent(ev)
		}
	}
}

func (s *Server) dispatchEvent(ev registry.Event) {
	var sessionID core.SessionId
	var payload []byte

	switch e := ev.(type) {
	case registry.UpdatedEvent:
		if !s.privacy.IsAllowed(e.View.WorkingDir) {
			return
		}
		sessionID = core.SessionId(e.View.SessionID)
		view := s.privacy.Apply(e.View)
		msg, err := json.Marshal(protocol.SessionUpdated(view))
		if err != nil {
			s.logger.Warn("marshal session_updated failed", zap.Error(err))
			return
		}
		payload = append(msg, '\n')
	case registry.RemovedEvent:
		sessionID = e.SessionID
		id := s.privacy.MaskSessionID(string(e.SessionID))
		msg, err := json.Marshal(protocol.SessionRemoved(id))
		if err != nil {
			s.logger.Warn("marshal session_removed failed", zap.Error(err))
			return
		}
		payload = append(msg, '\n')
	default:
		// RegisteredEvent carries no standalone wire message; it is
		// always immediately followed by an UpdatedEvent.
		return
	}

	for _, c := range s.snapshotClients() {
		if !c.wants(sessionID) {
			continue
		}
		if !c.enqueue(payload) {
			s.logger.Warn("dropping slow client", zap.String("client_id", c.id))
			s.removeClient(c.id)
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	reader := bufio.NewReaderSize(conn, maxMessageSize)

	clientID, ok := s.handshake(conn, reader)
	if !ok {
		conn.Close()
		return
	}

	c := newClientConn(clientID, conn)
	s.addClient(c)
	defer s.removeClient(clientID)

	s.runMessageLoop(ctx, c, reader)
}

// clientSeq numbers connections that didn't supply their own client_id
// on connect; it only ever increases for the life of the server.
var clientSeq atomic.Uint64

// nextClientID synthesizes a "client-<N>" id from clientSeq.
func nextClientID() string { return fmt.Sprintf("client-%d", clientSeq.Add(1)) }

// uuidFor generates a fresh correlation id that tags a connection's log
// lines.
func uuidFor() string { return uuid.NewString() }
