package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/damelLP/atmd/internal/atmerr"
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/protocol"
	"github.com/damelLP/atmd/internal/registry"
)

func alwaysAlive(core.ProcessId) (uint64, bool) { return 1, true }

func startTestServer(t *testing.T) (*Server, string, func()) {
	t.Helper()
	return startTestServerWithDiscover(t, nil)
}

func startTestServerWithDiscover(t *testing.T, discover DiscoverFunc) (*Server, string, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	handle, events := registry.Spawn(ctx, zap.NewNop(), alwaysAlive)
	srv := New(handle, zap.NewNop(), nil, discover)

	sockPath := filepath.Join(t.TempDir(), "atmd.sock")
	if err := srv.Listen(sockPath); err != nil {
		cancel()
		t.Fatalf("Listen: %v", err)
	}

	go srv.Serve(ctx, events)

	cleanup := func() {
		cancel()
		srv.Close()
		os.Remove(sockPath)
	}
	return srv, sockPath, cleanup
}

func dialAndConnect(t *testing.T, sockPath string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	reader := bufio.NewReader(conn)

	req := protocol.NewConnect("test-client")
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal connect: %v", err)
	}
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		t.Fatalf("write connect: %v", err)
	}

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read connected reply: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal connected reply: %v", err)
	}
	if reply.Type != protocol.DaemonConnected {
		t.Fatalf("reply.Type = %v, want connected", reply.Type)
	}
	return conn, reader
}

func TestHandshakeAccepted(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	conn, _ := dialAndConnect(t, sockPath)
	defer conn.Close()
}

func TestHandshakeRejectsIncompatibleVersion(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	reader := bufio.NewReader(conn)

	req := protocol.ClientMessage{ProtocolVersion: protocol.Version{Major: 99, Minor: 0}, Type: protocol.ClientConnect}
	raw, _ := json.Marshal(req)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write(append(raw, '\n'))

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read rejected reply: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Type != protocol.DaemonRejected {
		t.Fatalf("reply.Type = %v, want rejected", reply.Type)
	}
}

func TestListSessionsEmpty(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	conn, reader := dialAndConnect(t, sockPath)
	defer conn.Close()

	req := protocol.NewListSessions()
	raw, _ := json.Marshal(req)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write(append(raw, '\n'))

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read list_sessions reply: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Type != protocol.DaemonSessionList {
		t.Fatalf("reply.Type = %v, want session_list", reply.Type)
	}
	if len(reply.Sessions) != 0 {
		t.Errorf("Sessions = %+v, want empty", reply.Sessions)
	}
}

func TestPingPong(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	conn, reader := dialAndConnect(t, sockPath)
	defer conn.Close()

	req := protocol.NewPing(42)
	raw, _ := json.Marshal(req)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write(append(raw, '\n'))

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Type != protocol.DaemonPong || reply.Seq != 42 {
		t.Fatalf("reply = %+v, want pong seq=42", reply)
	}
}

func TestStatusUpdateThenSubscribeReceivesUpdate(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	conn, reader := dialAndConnect(t, sockPath)
	defer conn.Close()

	sub := protocol.NewSubscribe("")
	raw, _ := json.Marshal(sub)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write(append(raw, '\n'))

	// Subscribe owes the client an initial snapshot before any broadcast.
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	var snapshot protocol.DaemonMessage
	if err := json.Unmarshal(line, &snapshot); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snapshot.Type != protocol.DaemonSessionList {
		t.Fatalf("snapshot.Type = %v, want session_list", snapshot.Type)
	}

	statusData := []byte(`{"session_id":"sess-1","model":{"id":"claude-sonnet-4-5","display_name":"Sonnet 4.5"}}`)
	upd := protocol.NewStatusUpdate(statusData)
	raw, _ = json.Marshal(upd)
	conn.Write(append(raw, '\n'))

	line, err = reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read broadcast update: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Type != protocol.DaemonSessionUpdated {
		t.Fatalf("reply.Type = %v, want session_updated", reply.Type)
	}
	if reply.Session == nil || reply.Session.SessionID != "sess-1" {
		t.Errorf("Session = %+v", reply.Session)
	}
}

func TestSubscribeSendsInitialSnapshot(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	conn, reader := dialAndConnect(t, sockPath)
	defer conn.Close()

	sub := protocol.NewSubscribe("")
	raw, _ := json.Marshal(sub)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write(append(raw, '\n'))

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Type != protocol.DaemonSessionList {
		t.Fatalf("reply.Type = %v, want session_list", reply.Type)
	}
	if len(reply.Sessions) != 0 {
		t.Errorf("Sessions = %+v, want empty", reply.Sessions)
	}
}

// subscribeAndReadSnapshot sends Subscribe on conn/reader and consumes the
// initial session_list snapshot every successful subscribe is owed,
// returning the reply actually received (which may be an error instead, if
// the subscriber cap rejected it).
func subscribeAndReadSnapshot(t *testing.T, conn net.Conn, reader *bufio.Reader) protocol.DaemonMessage {
	t.Helper()
	sub := protocol.NewSubscribe("")
	raw, _ := json.Marshal(sub)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read subscribe reply: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return reply
}

// TestTooManySubscribersRejected asserts the cap binds on concurrent
// Subscribe requests, not on connection count: an 11th connection is
// accepted and can list/ping freely, and only its Subscribe is rejected.
func TestTooManySubscribersRejected(t *testing.T) {
	_, sockPath, cleanup := startTestServer(t)
	defer cleanup()

	var conns []net.Conn
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i := 0; i < maxSubscribers; i++ {
		conn, reader := dialAndConnect(t, sockPath)
		conns = append(conns, conn)
		reply := subscribeAndReadSnapshot(t, conn, reader)
		if reply.Type != protocol.DaemonSessionList {
			t.Fatalf("subscriber %d reply = %+v, want session_list", i, reply)
		}
	}

	// An 11th connection still completes its handshake: the cap never
	// touches connection accept.
	conn, reader := dialAndConnect(t, sockPath)
	defer conn.Close()

	reply := subscribeAndReadSnapshot(t, conn, reader)
	if reply.Type != protocol.DaemonError {
		t.Fatalf("11th subscribe reply = %+v, want error", reply)
	}
	if reply.Code != string(atmerr.KindTooManySubscribers) {
		t.Errorf("reply.Code = %q, want %q", reply.Code, atmerr.KindTooManySubscribers)
	}
}

// TestDiscoverInvokesWiredScan asserts ClientDiscover runs the server's
// wired DiscoverFunc synchronously and reports its tally back, rather than
// always replying 0/0.
func TestDiscoverInvokesWiredScan(t *testing.T) {
	called := false
	discover := func(ctx context.Context) (int, int) {
		called = true
		return 3, 1
	}

	_, sockPath, cleanup := startTestServerWithDiscover(t, discover)
	defer cleanup()

	conn, reader := dialAndConnect(t, sockPath)
	defer conn.Close()

	req := protocol.NewDiscover()
	raw, _ := json.Marshal(req)
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	conn.Write(append(raw, '\n'))

	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read discovery_complete: %v", err)
	}
	var reply protocol.DaemonMessage
	if err := json.Unmarshal(line, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Type != protocol.DaemonDiscoveryComplete {
		t.Fatalf("reply.Type = %v, want discovery_complete", reply.Type)
	}
	if !called {
		t.Error("expected wired DiscoverFunc to be invoked")
	}
	if reply.Discovered != 3 || reply.Failed != 1 {
		t.Errorf("reply = %+v, want discovered=3 failed=1", reply)
	}
}
