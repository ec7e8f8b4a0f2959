package session

import (
	"github.com/damelLP/atmd/internal/core"
)

// toolHistoryCap bounds the per-session FIFO of recent tool uses.
const toolHistoryCap = 50

// ToolUseRecord is one entry in a session's recent tool-use history.
type ToolUseRecord struct {
	ID   core.ToolUseId
	Tool string
}

// Infrastructure is the registry-owned portion of a session's state
// tied to the OS process behind it, rather than the assistant's view of
// the conversation. Infrastructure survives a SessionId upgrade: only
// Domain is replaced when a pending session becomes real.
type Infrastructure struct {
	PID core.ProcessId

	// StartTicks is the process start time in clock ticks, captured at
	// registration when known (discovery) and otherwise on the first
	// cleanup sweep that finds the process alive, then compared on every
	// later sweep to detect PID reuse.
	StartTicks uint64

	SocketPath     string
	TranscriptPath core.TranscriptPath

	toolHistory []ToolUseRecord

	UpdateCount    uint64
	HookEventCount uint64
	LastError      string
}

// RecordToolUse appends to the bounded tool-use FIFO, dropping the
// oldest entry once the cap of 50 is reached.
func (i *Infrastructure) RecordToolUse(id core.ToolUseId, tool string) {
	i.toolHistory = append(i.toolHistory, ToolUseRecord{ID: id, Tool: tool})
	if len(i.toolHistory) > toolHistoryCap {
		i.toolHistory = i.toolHistory[len(i.toolHistory)-toolHistoryCap:]
	}
}

// ToolHistory returns a defensive copy of the recent tool-use FIFO.
func (i *Infrastructure) ToolHistory() []ToolUseRecord {
	out := make([]ToolUseRecord, len(i.toolHistory))
	copy(out, i.toolHistory)
	return out
}

// IsProcessAlive reports whether the process at i.PID is still the same
// process captured at registration, by comparing its current start-time
// in clock ticks against the one recorded here. Equality of both PID and
// start-time defeats PID reuse: if the OS recycles PID into an unrelated
// process, its start-time will differ and this reports false.
func (i *Infrastructure) IsProcessAlive(currentStartTicks uint64, alive bool) bool {
	if !alive {
		return false
	}
	return currentStartTicks == i.StartTicks
}
