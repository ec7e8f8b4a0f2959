package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/damelLP/atmd/internal/agentkind"
	"github.com/damelLP/atmd/internal/atmerr"
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/modelkind"
	"github.com/damelLP/atmd/internal/session"
)

func alwaysAlive(pid core.ProcessId) (uint64, bool) { return 1, true }

func newTestDomain(id string) session.Domain {
	return session.New(core.SessionId(id), agentkind.General, modelkind.Sonnet45)
}

func spawnForTest(t *testing.T) (Handle, <-chan Event, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h, events := Spawn(ctx, nil, alwaysAlive)
	return h, events, cancel
}

func drainEvents(t *testing.T, events <-chan Event, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		select {
		case e := <-events:
			out = append(out, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d/%d", i+1, n)
		}
	}
	return out
}

func TestRegisterAndGetSession(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()

	ctx := context.Background()
	dom := newTestDomain("sess-1")

	id, err := h.Register(ctx, dom, core.ProcessId(100))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id != "sess-1" {
		t.Fatalf("SessionID = %q", id)
	}
	drainEvents(t, events, 2) // Registered + Updated

	view, found, err := h.GetSession(ctx, "sess-1")
	if err != nil || !found {
		t.Fatalf("GetSession: found=%v err=%v", found, err)
	}
	if view.SessionID != "sess-1" {
		t.Errorf("view.SessionID = %q", view.SessionID)
	}
}

func TestRegisterDuplicateSessionIDRejected(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	if _, err := h.Register(ctx, newTestDomain("dup"), core.ProcessId(1)); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	drainEvents(t, events, 2)

	if _, err := h.Register(ctx, newTestDomain("dup"), core.ProcessId(2)); err == nil {
		t.Fatal("expected error registering duplicate SessionID")
	}
}

func TestRegisterDiscoveredThenUpgradeByStatusLine(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	if err := h.RegisterDiscovered(ctx, core.ProcessId(200), 42, "/home/u/proj", "%1"); err != nil {
		t.Fatalf("RegisterDiscovered: %v", err)
	}
	drainEvents(t, events, 2)

	view, found, err := h.GetSession(ctx, core.PendingSessionId(core.ProcessId(200)))
	if err != nil || !found {
		t.Fatalf("expected pending session to be found: found=%v err=%v", found, err)
	}
	if view.Pane != "%1" {
		t.Errorf("Pane = %q", view.Pane)
	}

	err = h.UpdateFromStatusLine(ctx, session.StatusLineData{
		SessionID: "real-session-id",
		ModelID:   "claude-sonnet-4-5-20250929",
		PID:       core.ProcessId(200),
	})
	if err != nil {
		t.Fatalf("UpdateFromStatusLine: %v", err)
	}
	drainEvents(t, events, 3) // Removed(pending) + Registered + Updated

	if _, found, _ := h.GetSession(ctx, core.PendingSessionId(core.ProcessId(200))); found {
		t.Fatal("expected pending session id to no longer resolve after upgrade")
	}
	view, found, err = h.GetSession(ctx, "real-session-id")
	if err != nil || !found {
		t.Fatalf("expected upgraded session to be found: found=%v err=%v", found, err)
	}
	if view.Pane != "%1" {
		t.Errorf("expected Pane to carry over through upgrade, got %q", view.Pane)
	}
}

func TestUpdateFromStatusLineWithoutModelDropsNoOp(t *testing.T) {
	h, _, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	if err := h.UpdateFromStatusLine(ctx, session.StatusLineData{SessionID: "ghost"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found, _ := h.GetSession(ctx, "ghost"); found {
		t.Fatal("expected no session to be created without a model id")
	}
}

func TestApplyHookEventSessionStartCreatesSession(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	err := h.ApplyHookEvent(ctx, HookEventParams{
		SessionID: "hook-born",
		Kind:      session.SessionStart,
		PID:       core.ProcessId(300),
	})
	if err != nil {
		t.Fatalf("ApplyHookEvent: %v", err)
	}
	drainEvents(t, events, 2) // Registered + Updated

	if _, found, _ := h.GetSession(ctx, "hook-born"); !found {
		t.Fatal("expected SessionStart to create a session")
	}
}

func TestApplyHookEventUnknownSessionDroppedExceptSessionStart(t *testing.T) {
	h, _, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	err := h.ApplyHookEvent(ctx, HookEventParams{SessionID: "nope", Kind: session.PreToolUse, ToolName: "Bash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found, _ := h.GetSession(ctx, "nope"); found {
		t.Fatal("expected non-SessionStart hook on unknown session to be a no-op")
	}
}

func TestApplyHookEventSessionEndRemoves(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	if _, err := h.Register(ctx, newTestDomain("bye"), core.ProcessId(400)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	drainEvents(t, events, 2)

	if err := h.ApplyHookEvent(ctx, HookEventParams{SessionID: "bye", Kind: session.SessionEnd, PID: core.ProcessId(400)}); err != nil {
		t.Fatalf("ApplyHookEvent SessionEnd: %v", err)
	}
	drainEvents(t, events, 1) // Removed

	if _, found, _ := h.GetSession(ctx, "bye"); found {
		t.Fatal("expected session to be removed after SessionEnd")
	}
}

func TestCleanupStaleRemovesDeadProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dead := func(pid core.ProcessId) (uint64, bool) { return 0, false }
	h, events := Spawn(ctx, nil, dead)

	if err := h.RegisterDiscovered(ctx, core.ProcessId(500), 7, "", ""); err != nil {
		t.Fatalf("RegisterDiscovered: %v", err)
	}
	drainEvents(t, events, 2)

	select {
	case e := <-events:
		removed, ok := e.(RemovedEvent)
		if !ok {
			t.Fatalf("expected RemovedEvent from cleanup sweep, got %T", e)
		}
		if removed.Reason != ProcessDied {
			t.Errorf("Reason = %v, want ProcessDied", removed.Reason)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for cleanup sweep to remove dead process")
	}
}

func TestRemoveExplicit(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	if _, err := h.Register(ctx, newTestDomain("removable"), core.ProcessId(600)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	drainEvents(t, events, 2)

	if err := h.Remove(ctx, "removable"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := h.Remove(ctx, "removable"); err == nil {
		t.Fatal("expected NotFound removing an already-removed session")
	}
}

func TestRegisterAtCapacityFailsWithFull(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	for i := 0; i < MaxSessions; i++ {
		id := core.SessionId(fmt.Sprintf("sess-%d", i))
		if _, err := h.Register(ctx, newTestDomain(string(id)), core.ProcessId(1000+i)); err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
		drainEvents(t, events, 2)
	}

	// The (MaxSessions+1)th registration must fail with Full, and must
	// not evict or otherwise touch any existing entry.
	_, err := h.Register(ctx, newTestDomain("one-too-many"), core.ProcessId(9999))
	if !errors.Is(err, atmerr.Full) {
		t.Fatalf("Register at capacity: err = %v, want atmerr.Full", err)
	}
	if _, found, _ := h.GetSession(ctx, "one-too-many"); found {
		t.Fatal("expected rejected registration to not be tracked")
	}
	if _, found, _ := h.GetSession(ctx, "sess-0"); !found {
		t.Fatal("expected existing entry to survive a rejected registration, not be evicted")
	}

	// Freeing exactly one slot lets the next registration through.
	if err := h.Remove(ctx, "sess-0"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := h.Register(ctx, newTestDomain("fits-now"), core.ProcessId(9999)); err != nil {
		t.Fatalf("Register after freeing a slot: %v", err)
	}
}

func TestGetAllSessionsOrderedByStartedAt(t *testing.T) {
	h, events, cancel := spawnForTest(t)
	defer cancel()
	ctx := context.Background()

	first := newTestDomain("first")
	first.StartedAt = time.Now().Add(-time.Hour)
	second := newTestDomain("second")

	if _, err := h.Register(ctx, first, core.ProcessId(700)); err != nil {
		t.Fatal(err)
	}
	drainEvents(t, events, 2)
	if _, err := h.Register(ctx, second, core.ProcessId(701)); err != nil {
		t.Fatal(err)
	}
	drainEvents(t, events, 2)

	views, err := h.GetAllSessions(ctx)
	if err != nil {
		t.Fatalf("GetAllSessions: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	if views[0].SessionID != "first" {
		t.Errorf("views[0].SessionID = %q, want first (oldest StartedAt)", views[0].SessionID)
	}
}
