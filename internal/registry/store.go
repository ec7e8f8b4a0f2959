package registry

import (
	"sort"

	"go.uber.org/zap"

	"github.com/damelLP/atmd/internal/agentkind"
	"github.com/damelLP/atmd/internal/atmerr"
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/modelkind"
	"github.com/damelLP/atmd/internal/session"
)

// MaxSessions bounds the registry's size. Once reached, registering a
// new session fails with atmerr.Full and the store is left unmutated;
// removing any one tracked session (explicitly, via SessionEnd, or once
// its process dies) frees a slot for the next registration attempt.
const MaxSessions = 100

// store holds the registry's actual state. Every method runs
// exclusively on the actor goroutine (see Registry.run), so none of
// them take a lock.
type store struct {
	entries     map[core.ProcessId]*session.Entry
	bySessionID map[core.SessionId]core.ProcessId

	maxSessions   int
	nextSynthetic core.ProcessId

	events chan<- Event
	logger *zap.Logger
}

func newStore(events chan<- Event, logger *zap.Logger) *store {
	return &store{
		entries:       make(map[core.ProcessId]*session.Entry),
		bySessionID:   make(map[core.SessionId]core.ProcessId),
		maxSessions:   MaxSessions,
		nextSynthetic: core.ProcessId(1 << 31),
		events:        events,
		logger:        logger,
	}
}

func (s *store) publish(e Event) {
	select {
	case s.events <- e:
	default:
		s.logger.Warn("dropping registry event, subscriber channel full", zap.Any("event", e))
	}
}

func (s *store) publishUpdated(e session.Entry) {
	s.publish(UpdatedEvent{View: session.Project(e)})
}

func (s *store) nextSyntheticPID() core.ProcessId {
	pid := s.nextSynthetic
	s.nextSynthetic++
	return pid
}

// atCapacity reports whether the registry already holds maxSessions
// entries, the condition under which a new registration must be
// rejected with atmerr.Full rather than proceed.
func (s *store) atCapacity() bool {
	return len(s.entries) >= s.maxSessions
}

func (s *store) removeInternal(pid core.ProcessId, id core.SessionId, reason RemovalReason) {
	delete(s.entries, pid)
	delete(s.bySessionID, id)
	s.publish(RemovedEvent{SessionID: id, Reason: reason})
}

func (s *store) register(d session.Domain, pid core.ProcessId) registerResult {
	if _, exists := s.bySessionID[d.SessionID]; exists {
		return registerResult{Err: atmerr.AlreadyExists}
	}
	if pid.Valid() {
		if _, exists := s.entries[pid]; exists {
			return registerResult{Err: atmerr.AlreadyExists}
		}
	}
	if s.atCapacity() {
		return registerResult{Err: atmerr.Full}
	}
	if !pid.Valid() {
		pid = s.nextSyntheticPID()
	}

	entry := &session.Entry{Domain: d, Infra: session.Infrastructure{PID: pid}}
	s.entries[pid] = entry
	s.bySessionID[d.SessionID] = pid

	s.publish(RegisteredEvent{SessionID: d.SessionID, Agent: d.Agent})
	s.publishUpdated(*entry)
	return registerResult{SessionID: d.SessionID}
}

func (s *store) registerDiscovered(c registerDiscoveredCmd) error {
	if !c.PID.Valid() {
		return atmerr.New(atmerr.KindParseError, "registerDiscovered: invalid pid")
	}
	if _, exists := s.entries[c.PID]; exists {
		return nil
	}
	if s.atCapacity() {
		return atmerr.Full
	}

	id := core.PendingSessionId(c.PID)
	d := session.New(id, agentkind.General, modelkind.Unknown)
	d.WorkingDir = c.Cwd
	d.Pane = c.Pane

	entry := &session.Entry{
		Domain: d,
		Infra:  session.Infrastructure{PID: c.PID, StartTicks: c.StartTicks},
	}
	s.entries[c.PID] = entry
	s.bySessionID[id] = c.PID

	s.publish(RegisteredEvent{SessionID: id, Agent: d.Agent})
	s.publishUpdated(*entry)
	return nil
}

func (s *store) updateFromStatusLine(data session.StatusLineData) error {
	sessionID := core.SessionId(data.SessionID)

	if pid, ok := s.bySessionID[sessionID]; ok {
		entry := s.entries[pid]
		entry.Domain.UpdateFromStatusLine(data)
		entry.Infra.UpdateCount++
		s.publishUpdated(*entry)
		return nil
	}

	if data.PID.Valid() {
		if entry, ok := s.entries[data.PID]; ok && entry.Domain.SessionID.IsPending() {
			return s.upgradePending(entry, data)
		}
	}

	if data.ModelID == "" {
		// No model id and no pending placeholder to upgrade: a bare
		// status-line ping never creates a session on its own.
		return nil
	}

	d, ok := session.FromStatusLine(data)
	if !ok {
		return nil
	}
	return s.register(d, data.PID).Err
}

// upgradePending promotes a discovery placeholder to a real session
// once a status-line payload reveals its model and SessionId, carrying
// Infrastructure (PID, StartTicks, tool history) across the swap
// untouched -- only Domain is replaced.
func (s *store) upgradePending(entry *session.Entry, data session.StatusLineData) error {
	d, ok := session.FromStatusLine(data)
	if !ok {
		entry.Domain.UpdateFromStatusLine(data)
		s.publishUpdated(*entry)
		return nil
	}

	oldID := entry.Domain.SessionID
	d.StartedAt = entry.Domain.StartedAt
	if entry.Domain.Pane != "" && d.Pane == "" {
		d.Pane = entry.Domain.Pane
	}
	entry.Domain = d

	delete(s.bySessionID, oldID)
	s.bySessionID[d.SessionID] = entry.Infra.PID
	s.publish(RemovedEvent{SessionID: oldID, Reason: Upgraded})
	s.publish(RegisteredEvent{SessionID: d.SessionID, Agent: d.Agent})
	s.publishUpdated(*entry)
	return nil
}

func (s *store) applyHookEvent(c applyHookEventCmd) error {
	pid, ok := s.bySessionID[c.SessionID]
	var entry *session.Entry
	if ok {
		entry = s.entries[pid]
	} else if c.PID.Valid() {
		if pending, found := s.entries[c.PID]; found && pending.Domain.SessionID.IsPending() {
			entry = s.upgradePendingForHook(pending, c)
		}
	}

	if entry == nil {
		if c.Kind != session.SessionStart {
			return nil // permissive drop: unknown session, not a fresh start
		}
		var err error
		entry, err = s.createFromHook(c)
		if err != nil {
			return err
		}
	}

	if c.Kind == session.SessionEnd {
		s.removeInternal(entry.Infra.PID, entry.Domain.SessionID, SessionEnded)
		return nil
	}

	if c.Kind == session.Notification {
		entry.Domain.ApplyNotification(c.NotificationType)
	} else {
		entry.Domain.ApplyHookEvent(c.Kind, c.ToolName)
	}

	if c.Kind == session.PreToolUse && c.ToolUseID != "" {
		entry.Infra.RecordToolUse(c.ToolUseID, c.ToolName)
	}
	if c.TranscriptPath != "" {
		entry.Infra.TranscriptPath = c.TranscriptPath
	}
	entry.Infra.HookEventCount++

	s.publishUpdated(*entry)
	return nil
}

func (s *store) upgradePendingForHook(pending *session.Entry, c applyHookEventCmd) *session.Entry {
	oldID := pending.Domain.SessionID
	agent := agentkind.FromSubagentType(c.AgentType)
	d := session.New(c.SessionID, agent, modelkind.Unknown)
	d.StartedAt = pending.Domain.StartedAt
	if c.Cwd != "" {
		d.WorkingDir = c.Cwd
	}
	if c.Pane != "" {
		d.Pane = c.Pane
	} else {
		d.Pane = pending.Domain.Pane
	}
	pending.Domain = d

	delete(s.bySessionID, oldID)
	s.bySessionID[c.SessionID] = pending.Infra.PID
	s.publish(RemovedEvent{SessionID: oldID, Reason: Upgraded})
	s.publish(RegisteredEvent{SessionID: c.SessionID, Agent: agent})
	return pending
}

func (s *store) createFromHook(c applyHookEventCmd) (*session.Entry, error) {
	if s.atCapacity() {
		return nil, atmerr.Full
	}

	agent := agentkind.FromSubagentType(c.AgentType)
	d := session.New(c.SessionID, agent, modelkind.Unknown)
	d.WorkingDir = c.Cwd
	d.Pane = c.Pane

	pid := c.PID
	if !pid.Valid() {
		pid = s.nextSyntheticPID()
	}

	entry := &session.Entry{Domain: d, Infra: session.Infrastructure{PID: pid}}
	s.entries[pid] = entry
	s.bySessionID[c.SessionID] = pid

	s.publish(RegisteredEvent{SessionID: c.SessionID, Agent: agent})
	return entry, nil
}

func (s *store) get(id core.SessionId) (session.SessionView, bool) {
	pid, ok := s.bySessionID[id]
	if !ok {
		return session.SessionView{}, false
	}
	return session.Project(*s.entries[pid]), true
}

func (s *store) getAll() []session.SessionView {
	views := make([]session.SessionView, 0, len(s.entries))
	for _, e := range s.entries {
		views = append(views, session.Project(*e))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].StartedAt < views[j].StartedAt })
	return views
}

func (s *store) remove(id core.SessionId, reason RemovalReason) error {
	pid, ok := s.bySessionID[id]
	if !ok {
		return atmerr.NotFound
	}
	s.removeInternal(pid, id, reason)
	return nil
}

// cleanupStale sweeps every entry backed by a real (non-synthetic) PID,
// removing any whose process is no longer the one recorded at
// registration -- either it exited, or the OS recycled its PID into an
// unrelated process.
func (s *store) cleanupStale(liveness LivenessChecker) {
	if liveness == nil {
		return
	}
	for pid, entry := range s.entries {
		if pid.IsSynthetic() {
			continue
		}
		ticks, alive := liveness(pid)
		if alive && entry.Infra.StartTicks == 0 {
			entry.Infra.StartTicks = ticks
		}
		if !entry.Infra.IsProcessAlive(ticks, alive) {
			s.removeInternal(pid, entry.Domain.SessionID, ProcessDied)
		}
	}
}
