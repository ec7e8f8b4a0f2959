package session

import (
	"time"

	"github.com/damelLP/atmd/internal/agentkind"
	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/modelkind"
)

// StatusLineData is the normalized form of a status-line payload, after
// the permissive JSON parser has filled in defaults for absent optional
// fields. SessionID is always set; ModelID and the other string fields
// are empty when the payload lacked them, and every numeric field
// defaults to zero (ContextWindowSize to the default window) rather than
// being left undefined.
type StatusLineData struct {
	SessionID string
	ModelID   string // empty means "no model in this payload"
	ModelDisplayName string

	CostUSD         float64
	TotalDurationMs uint64
	APIDurationMs   uint64
	LinesAdded      uint64
	LinesRemoved    uint64

	TotalInputTokens  uint64
	TotalOutputTokens uint64
	ContextWindowSize uint32

	CurrentInputTokens  uint64
	CurrentOutputTokens uint64
	CacheCreationTokens uint64
	CacheReadTokens     uint64

	Cwd     string
	Version string

	PID      core.ProcessId
	TmuxPane string
}

// ActivityDetail describes what a Working or AttentionNeeded session is
// currently doing: a tool name, or free text like "Compacting"/"Setup",
// paired with when that activity began.
type ActivityDetail struct {
	Text      string
	StartedAt time.Time
}

// Domain is the mutable, registry-owned portion of a session's state
// that's specific to the assistant's view of the session (as opposed to
// Infrastructure, which is about the OS process backing it).
type Domain struct {
	SessionID core.SessionId
	Agent     agentkind.AgentKind
	Model     modelkind.Model
	// ModelDisplayOverride holds a fallback display name for Unknown
	// models, derived from the assistant's own display_name or a
	// date-suffix-stripped model id.
	ModelDisplayOverride string

	Context  core.ContextUsage
	Cost     core.Money
	Duration core.SessionDuration
	Lines    core.LinesChanged

	StartedAt    time.Time
	LastActivity time.Time
	Status       Status
	Activity     *ActivityDetail

	WorkingDir string
	Version    string
	Pane       string // terminal-multiplexer pane id, empty if unknown
}

// New constructs a fresh Domain for a session that's just been created,
// either from a status line/hook (agent/model known) or by discovery
// (agent=General, model=Unknown).
func New(id core.SessionId, agent agentkind.AgentKind, model modelkind.Model) Domain {
	now := time.Now()
	return Domain{
		SessionID:    id,
		Agent:        agent,
		Model:        model,
		Context:      core.NewContextUsage(),
		StartedAt:    now,
		LastActivity: now,
		Status:       Idle,
	}
}

// FromStatusLine builds a new Domain from a status line payload. It
// returns ok=false if data carries no ModelID -- the session model
// refuses to create state without a model identifier, per the registry
// contract that a status line alone can update but never create a
// session when the model is absent.
func FromStatusLine(data StatusLineData) (Domain, bool) {
	if data.ModelID == "" {
		return Domain{}, false
	}
	d := New(core.SessionId(data.SessionID), agentkind.General, modelkind.FromID(data.ModelID))
	d.applyModelID(data.ModelID, data.ModelDisplayName)
	d.updateFromStatusLineFields(data)
	return d, true
}

// applyModelID resolves data's model id to a Model, setting
// ModelDisplayOverride when the model is Unknown so clients still get a
// sensible label.
func (d *Domain) applyModelID(modelID, displayName string) {
	m := modelkind.FromID(modelID)
	d.Model = m
	if m.IsUnknown() && modelID != "" {
		if displayName != "" {
			d.ModelDisplayOverride = displayName
		} else {
			d.ModelDisplayOverride = modelkind.DeriveDisplayName(modelID)
		}
	} else {
		d.ModelDisplayOverride = ""
	}
}

// UpdateFromStatusLine refreshes every field present in data, stamps
// LastActivity, and upgrades Status to Working unless the session is
// currently AttentionNeeded -- preserving the blocking-on-user signal
// during a race with a concurrent status-line ping.
func (d *Domain) UpdateFromStatusLine(data StatusLineData) {
	if data.ModelID != "" {
		d.applyModelID(data.ModelID, data.ModelDisplayName)
	}
	d.updateFromStatusLineFields(data)
}

func (d *Domain) updateFromStatusLineFields(data StatusLineData) {
	d.Cost = core.MoneyFromUSD(data.CostUSD)
	d.Duration = core.SessionDuration{TotalMs: data.TotalDurationMs, APIMs: data.APIDurationMs}
	d.Lines = core.LinesChanged{Added: data.LinesAdded, Removed: data.LinesRemoved}

	windowSize := data.ContextWindowSize
	if windowSize == 0 {
		windowSize = core.DefaultContextWindowSize
	}
	d.Context = core.ContextUsage{
		TotalInputTokens:    core.TokenCount(data.TotalInputTokens),
		TotalOutputTokens:   core.TokenCount(data.TotalOutputTokens),
		ContextWindowSize:   windowSize,
		CurrentInputTokens:  core.TokenCount(data.CurrentInputTokens),
		CurrentOutputTokens: core.TokenCount(data.CurrentOutputTokens),
		CacheCreationTokens: core.TokenCount(data.CacheCreationTokens),
		CacheReadTokens:     core.TokenCount(data.CacheReadTokens),
	}

	if data.Cwd != "" {
		d.WorkingDir = data.Cwd
	}
	if data.Version != "" {
		d.Version = data.Version
	}
	if data.TmuxPane != "" {
		d.Pane = data.TmuxPane
	}

	d.LastActivity = time.Now()
	if d.Status != AttentionNeeded {
		d.Status = Working
	}
}

// ApplyHookEvent transitions Status per the hook state machine and
// updates Activity/LastActivity accordingly. tool is the tool_name
// field, relevant only for PreToolUse.
func (d *Domain) ApplyHookEvent(kind HookEventKind, tool string) {
	now := time.Now()
	d.LastActivity = now

	switch kind {
	case PreToolUse:
		if IsInteractiveTool(tool) {
			d.Status = AttentionNeeded
		} else {
			d.Status = Working
		}
		d.Activity = &ActivityDetail{Text: tool, StartedAt: now}
	case PostToolUse, PostToolUseFailure:
		d.Status = Working
	case UserPromptSubmit:
		d.Status = Working
	case Stop, SessionStart:
		d.Status = Idle
		d.Activity = nil
	case PreCompact:
		d.Status = Working
		d.Activity = &ActivityDetail{Text: "Compacting", StartedAt: now}
	case Setup:
		d.Status = Working
		d.Activity = &ActivityDetail{Text: "Setup", StartedAt: now}
	case SubagentStart, SubagentStop, SessionEnd, Notification:
		// SessionEnd is handled by the registry (entry removal), not a
		// status transition. SubagentStart/Stop track agent lifecycle
		// without moving the primary session's status. Notification is
		// handled separately via ApplyNotification.
	}
}

// ApplyNotification transitions Status for the two notification types
// that carry state-machine meaning; any other type (including empty) is
// a no-op for status purposes.
func (d *Domain) ApplyNotification(notificationType string) {
	switch notificationType {
	case NotificationPermissionPrompt, NotificationElicitationDialog:
		d.Status = AttentionNeeded
	case NotificationIdlePrompt:
		d.Status = Idle
	}
	d.LastActivity = time.Now()
}

// ApplyStatusLinePing upgrades Status to Working unless it is currently
// AttentionNeeded, matching the state machine's status-line-arrival
// transition without touching any other field.
func (d *Domain) ApplyStatusLinePing() {
	d.LastActivity = time.Now()
	if d.Status != AttentionNeeded {
		d.Status = Working
	}
}

// Age is how long ago the session started.
func (d Domain) Age() time.Duration { return time.Since(d.StartedAt) }

// TimeSinceActivity is how long ago the session last produced any
// status-line or hook activity.
func (d Domain) TimeSinceActivity() time.Duration { return time.Since(d.LastActivity) }

// NeedsContextAttention reports whether context usage alone (independent
// of Status) has entered the Warning or Critical band.
func (d Domain) NeedsContextAttention() bool {
	return d.Context.IsWarning()
}
