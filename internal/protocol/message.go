package protocol

import (
	"encoding/json"

	"github.com/damelLP/atmd/internal/session"
)

// ClientMessageType is the discriminator for ClientMessage.Type, one
// per message kind a client may send.
type ClientMessageType string

const (
	ClientConnect       ClientMessageType = "connect"
	ClientStatusUpdate  ClientMessageType = "status_update"
	ClientHookEvent     ClientMessageType = "hook_event"
	ClientListSessions  ClientMessageType = "list_sessions"
	ClientSubscribe     ClientMessageType = "subscribe"
	ClientUnsubscribe   ClientMessageType = "unsubscribe"
	ClientPing          ClientMessageType = "ping"
	ClientDisconnect    ClientMessageType = "disconnect"
	ClientDiscover      ClientMessageType = "discover"
)

// ClientMessage is the envelope every client-to-daemon message carries.
// Fields other than ProtocolVersion and Type are populated only for the
// message kinds that use them, matching the Rust original's internally-
// tagged enum flattened onto one JSON object.
type ClientMessage struct {
	ProtocolVersion Version           `json:"protocol_version"`
	Type            ClientMessageType `json:"type"`

	ClientID  string          `json:"client_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
}

func newClientMessage(t ClientMessageType) ClientMessage {
	return ClientMessage{ProtocolVersion: Current, Type: t}
}

func NewConnect(clientID string) ClientMessage {
	m := newClientMessage(ClientConnect)
	m.ClientID = clientID
	return m
}

func NewStatusUpdate(data json.RawMessage) ClientMessage {
	m := newClientMessage(ClientStatusUpdate)
	m.Data = data
	return m
}

func NewHookEvent(data json.RawMessage) ClientMessage {
	m := newClientMessage(ClientHookEvent)
	m.Data = data
	return m
}

func NewListSessions() ClientMessage { return newClientMessage(ClientListSessions) }

func NewSubscribe(sessionID string) ClientMessage {
	m := newClientMessage(ClientSubscribe)
	m.SessionID = sessionID
	return m
}

func NewUnsubscribe() ClientMessage { return newClientMessage(ClientUnsubscribe) }

func NewPing(seq uint64) ClientMessage {
	m := newClientMessage(ClientPing)
	m.Seq = seq
	return m
}

func NewDisconnect() ClientMessage { return newClientMessage(ClientDisconnect) }

func NewDiscover() ClientMessage { return newClientMessage(ClientDiscover) }

// DaemonMessageType is the discriminator for DaemonMessage.Type.
type DaemonMessageType string

const (
	DaemonConnected        DaemonMessageType = "connected"
	DaemonRejected         DaemonMessageType = "rejected"
	DaemonSessionList      DaemonMessageType = "session_list"
	DaemonSessionUpdated   DaemonMessageType = "session_updated"
	DaemonSessionRemoved   DaemonMessageType = "session_removed"
	DaemonPong             DaemonMessageType = "pong"
	DaemonError            DaemonMessageType = "error"
	DaemonDiscoveryComplete DaemonMessageType = "discovery_complete"
)

// DaemonMessage is the envelope every daemon-to-client message carries.
type DaemonMessage struct {
	Type DaemonMessageType `json:"type"`

	ProtocolVersion *Version `json:"protocol_version,omitempty"`
	ClientID        string   `json:"client_id,omitempty"`
	Reason          string   `json:"reason,omitempty"`

	Sessions []session.SessionView `json:"sessions,omitempty"`
	Session  *session.SessionView  `json:"session,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`

	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`

	Discovered uint32 `json:"discovered,omitempty"`
	Failed     uint32 `json:"failed,omitempty"`
}

func Connected(clientID string) DaemonMessage {
	v := Current
	return DaemonMessage{Type: DaemonConnected, ProtocolVersion: &v, ClientID: clientID}
}

func Rejected(reason string) DaemonMessage {
	v := Current
	return DaemonMessage{Type: DaemonRejected, ProtocolVersion: &v, Reason: reason}
}

func SessionList(sessions []session.SessionView) DaemonMessage {
	return DaemonMessage{Type: DaemonSessionList, Sessions: sessions}
}

func SessionUpdated(view session.SessionView) DaemonMessage {
	return DaemonMessage{Type: DaemonSessionUpdated, Session: &view}
}

func SessionRemoved(sessionID string) DaemonMessage {
	return DaemonMessage{Type: DaemonSessionRemoved, SessionID: sessionID}
}

func Pong(seq uint64) DaemonMessage {
	return DaemonMessage{Type: DaemonPong, Seq: seq}
}

func ErrorMessage(message, code string) DaemonMessage {
	return DaemonMessage{Type: DaemonError, Message: message, Code: code}
}

func DiscoveryComplete(discovered, failed uint32) DaemonMessage {
	return DaemonMessage{Type: DaemonDiscoveryComplete, Discovered: discovered, Failed: failed}
}
