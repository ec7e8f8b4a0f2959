package registry

import (
	"github.com/damelLP/atmd/internal/agentkind"
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/session"
)

// RemovalReason records why an entry left the registry.
type RemovalReason int

const (
	Explicit RemovalReason = iota
	// Stale is legacy: the 8-hour-inactivity notion from an earlier
	// design. Never emitted by CleanupStale; kept only so a rendering
	// layer can still reference it as a pure hint, per design note (a).
	Stale
	SessionEnded
	ProcessDied
	Upgraded
)

func (r RemovalReason) String() string {
	switch r {
	case Stale:
		return "stale"
	case SessionEnded:
		return "session_ended"
	case ProcessDied:
		return "process_died"
	case Upgraded:
		return "upgraded"
	default:
		return "explicit"
	}
}

// Event is the sum type published once per mutation: Registered,
// Updated, or Removed. The connection server's broadcaster reads these
// from the event channel Spawn returns and fans Updated/Removed out to
// subscribers;
// Registered is never forwarded on its own (it is always immediately
// followed by an Updated carrying the first view).
type Event interface {
	isEvent()
}

type RegisteredEvent struct {
	SessionID core.SessionId
	Agent     agentkind.AgentKind
}

type UpdatedEvent struct {
	View session.SessionView
}

type RemovedEvent struct {
	SessionID core.SessionId
	Reason    RemovalReason
}

func (RegisteredEvent) isEvent() {}
func (UpdatedEvent) isEvent()    {}
func (RemovedEvent) isEvent()    {}
