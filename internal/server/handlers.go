package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/damelLP/atmd/internal/atmerr"
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/parse"
	"github.com/damelLP/atmd/internal/protocol"
	"github.com/damelLP/atmd/internal/registry"
	"github.com/damelLP/atmd/internal/session"
)

// handshake reads the first line a new connection sends, validates it
// as a Connect message with a compatible protocol version, and replies
// Connected or Rejected. It returns the negotiated client id.
func (s *Server) handshake(conn net.Conn, reader *bufio.Reader) (string, bool) {
	conn.SetReadDeadline(time.Now().Add(writeTimeout))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return "", false
	}

	var msg protocol.ClientMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		s.writeRaw(conn, protocol.Rejected("malformed handshake"))
		return "", false
	}
	if msg.Type != protocol.ClientConnect {
		s.writeRaw(conn, protocol.Rejected("first message must be connect"))
		return "", false
	}
	if !protocol.Current.IsCompatibleWith(msg.ProtocolVersion) {
		s.writeRaw(conn, protocol.Rejected("incompatible protocol version: "+msg.ProtocolVersion.String()))
		return "", false
	}

	clientID := msg.ClientID
	if clientID == "" {
		clientID = nextClientID()
	}
	s.writeRaw(conn, protocol.Connected(clientID))
	return clientID, true
}

func (s *Server) writeRaw(conn net.Conn, msg protocol.DaemonMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.Write(append(raw, '\n'))
}

// runMessageLoop reads one JSON line at a time from c's connection
// until it errs, the idle timeout fires, or ctx is cancelled,
// dispatching each to the registry.
func (s *Server) runMessageLoop(ctx context.Context, c *clientConn, reader *bufio.Reader) {
	log := s.logger.With(zap.String("client_id", c.id), zap.String("conn_id", uuidFor()))
	for {
		c.conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		if len(line) > maxMessageSize {
			s.sendError(c, "message too large", "message_too_large")
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			s.sendError(c, "malformed message", "bad_request")
			continue
		}

		if err := s.dispatch(ctx, c, msg); err != nil {
			if msg.Type == protocol.ClientDisconnect {
				return
			}
			log.Debug("dispatch failed", zap.String("type", string(msg.Type)), zap.Error(err))
			s.sendError(c, err.Error(), errorCode(err))
		}
		if msg.Type == protocol.ClientDisconnect {
			return
		}
	}
}

func (s *Server) sendError(c *clientConn, message, code string) {
	raw, err := json.Marshal(protocol.ErrorMessage(message, code))
	if err != nil {
		return
	}
	c.enqueue(append(raw, '\n'))
}

func errorCode(err error) string {
	if kind, ok := atmerr.KindOf(err); ok {
		return string(kind)
	}
	return "internal_error"
}

// dispatch applies one client message to the registry (or to c's own
// subscription state) and enqueues any direct reply it produces.
func (s *Server) dispatch(ctx context.Context, c *clientConn, msg protocol.ClientMessage) error {
	switch msg.Type {
	case protocol.ClientStatusUpdate:
		return s.handleStatusUpdate(ctx, msg)
	case protocol.ClientHookEvent:
		return s.handleHookEvent(ctx, msg)
	case protocol.ClientListSessions:
		return s.handleListSessions(ctx, c)
	case protocol.ClientSubscribe:
		return s.handleSubscribe(ctx, c, core.SessionId(msg.SessionID))
	case protocol.ClientUnsubscribe:
		c.unsubscribe()
		s.markUnsubscribed(c.id)
		return nil
	case protocol.ClientPing:
		return s.handlePing(c, msg.Seq)
	case protocol.ClientDisconnect:
		return nil
	case protocol.ClientDiscover:
		return s.handleDiscover(ctx, c)
	default:
		return atmerr.New(atmerr.KindParseError, "unknown message type: "+string(msg.Type))
	}
}

func (s *Server) handleStatusUpdate(ctx context.Context, msg protocol.ClientMessage) error {
	raw, err := parse.ParseStatusLine(msg.Data)
	if err != nil {
		return atmerr.Wrap(atmerr.KindParseError, "parsing status update", err)
	}
	return s.handle.UpdateFromStatusLine(ctx, raw.ToStatusLineData())
}

func (s *Server) handleHookEvent(ctx context.Context, msg protocol.ClientMessage) error {
	raw, kind, err := parse.ParseHookEvent(msg.Data)
	if err != nil {
		return atmerr.Wrap(atmerr.KindParseError, "parsing hook event", err)
	}
	return s.handle.ApplyHookEvent(ctx, registry.HookEventParams{
		SessionID:        core.SessionId(raw.SessionID),
		Kind:             kind,
		ToolName:         raw.ToolName,
		ToolUseID:        core.ToolUseId(raw.ToolUseID),
		NotificationType: raw.NotificationType,
		AgentType:        raw.AgentType,
		PID:              raw.ProcessID(),
		Cwd:              raw.Cwd,
		Pane:             raw.TmuxPane,
		TranscriptPath:   core.TranscriptPath(raw.AgentTranscriptPath),
	})
}

// handleSubscribe claims c a subscriber slot (rejecting it with
// atmerr.KindTooManySubscribers if maxSubscribers is already reached),
// sets its filter, and sends the initial SessionList snapshot a new
// subscriber is owed before any broadcast update.
func (s *Server) handleSubscribe(ctx context.Context, c *clientConn, sessionID core.SessionId) error {
	if !s.trySubscribe(c.id) {
		return atmerr.New(atmerr.KindTooManySubscribers, "subscriber limit reached")
	}
	c.subscribe(sessionID)
	return s.handleListSessions(ctx, c)
}

func (s *Server) handleListSessions(ctx context.Context, c *clientConn) error {
	views, err := s.handle.GetAllSessions(ctx)
	if err != nil {
		return err
	}
	views = s.privacy.FilterViews(views)
	if views == nil {
		views = []session.SessionView{}
	}
	raw, err := json.Marshal(protocol.SessionList(views))
	if err != nil {
		return err
	}
	c.enqueue(append(raw, '\n'))
	return nil
}

func (s *Server) handlePing(c *clientConn, seq uint64) error {
	raw, err := json.Marshal(protocol.Pong(seq))
	if err != nil {
		return err
	}
	c.enqueue(append(raw, '\n'))
	return nil
}

// handleDiscover runs a synchronous discovery sweep via the server's
// wired DiscoverFunc and reports the tally. If no DiscoverFunc was
// wired (s.discover == nil), it reports 0/0 without scanning anything.
func (s *Server) handleDiscover(ctx context.Context, c *clientConn) error {
	var discovered, failed int
	if s.discover != nil {
		discovered, failed = s.discover(ctx)
	}
	raw, err := json.Marshal(protocol.DiscoveryComplete(uint32(discovered), uint32(failed)))
	if err != nil {
		return err
	}
	c.enqueue(append(raw, '\n'))
	return nil
}
