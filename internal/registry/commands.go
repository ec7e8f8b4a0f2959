package registry

import (
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/session"
)

// command is the actor's sole entry point: every public Handle method
// builds one of these and sends it down cmdCh, then blocks on its own
// reply channel. apply runs exclusively on the actor goroutine, so it
// may touch s's maps without locking.
type command interface {
	apply(s *store)
}

// registerCmd creates a brand-new session from a status-line payload
// that already carries a real SessionId. pid is the OS process behind
// it, if known; zero means synthetic (test/fixture registration).
type registerCmd struct {
	Domain session.Domain
	PID    core.ProcessId
	Reply  chan registerResult
}

type registerResult struct {
	SessionID core.SessionId
	Err       error
}

func (c registerCmd) apply(s *store) { c.Reply <- s.register(c.Domain, c.PID) }

// registerDiscoveredCmd creates a "pending-<pid>" placeholder entry for
// a process discovery found before any status-line or hook message
// named its real SessionId.
type registerDiscoveredCmd struct {
	PID        core.ProcessId
	StartTicks uint64
	Cwd        string
	Pane       string
	Reply      chan error
}

func (c registerDiscoveredCmd) apply(s *store) { c.Reply <- s.registerDiscovered(c) }

// updateFromStatusLineCmd applies a status-line ping to the session
// named by data.SessionID, creating it first if it doesn't exist yet
// and data carries a model id (see session.FromStatusLine).
type updateFromStatusLineCmd struct {
	Data  session.StatusLineData
	Reply chan error
}

func (c updateFromStatusLineCmd) apply(s *store) { c.Reply <- s.updateFromStatusLine(c.Data) }

// applyHookEventCmd applies one hook event to the named session. If the
// session doesn't exist and pid identifies a pending placeholder, the
// placeholder is upgraded to sessionID first.
type applyHookEventCmd struct {
	SessionID        core.SessionId
	Kind             session.HookEventKind
	ToolName         string
	ToolUseID        core.ToolUseId
	NotificationType string
	AgentType        string
	PID              core.ProcessId
	Cwd              string
	Pane             string
	TranscriptPath   core.TranscriptPath
	Reply            chan error
}

func (c applyHookEventCmd) apply(s *store) { c.Reply <- s.applyHookEvent(c) }

type getSessionCmd struct {
	SessionID core.SessionId
	Reply     chan getSessionResult
}

type getSessionResult struct {
	View  session.SessionView
	Found bool
}

func (c getSessionCmd) apply(s *store) {
	view, ok := s.get(c.SessionID)
	c.Reply <- getSessionResult{View: view, Found: ok}
}

type getAllSessionsCmd struct {
	Reply chan []session.SessionView
}

func (c getAllSessionsCmd) apply(s *store) { c.Reply <- s.getAll() }

type removeCmd struct {
	SessionID core.SessionId
	Reason    RemovalReason
	Reply     chan error
}

func (c removeCmd) apply(s *store) { c.Reply <- s.remove(c.SessionID, c.Reason) }

// cleanupStaleCmd sweeps every entry, removing any whose backing
// process is no longer alive (exited, or PID reused by an unrelated
// process). Fired by a ticker goroutine started alongside the actor; it
// never originates from a Handle call.
type cleanupStaleCmd struct {
	Liveness LivenessChecker
}

func (c cleanupStaleCmd) apply(s *store) { s.cleanupStale(c.Liveness) }

// LivenessChecker reports whether pid is still the same process the
// registry recorded, returning its current start-time in clock ticks
// alongside whether it was found alive at all. Supplied by the caller
// that spawns the registry (internal/discovery's /proc-backed
// implementation in production, a fake in tests).
type LivenessChecker func(pid core.ProcessId) (startTicks uint64, alive bool)
