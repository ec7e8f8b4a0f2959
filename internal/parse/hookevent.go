package parse

import (
	"encoding/json"
	"fmt"

	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/session"
)

// RawHookEvent mirrors the assistant's hook JSON: a flat structure with
// every event-type-specific field optional. Required: SessionID and
// HookEventName. The parser does not enforce which fields belong to
// which event kind -- that's the domain model's job.
type RawHookEvent struct {
	SessionID      string `json:"session_id"`
	HookEventName  string `json:"hook_event_name"`
	Cwd            string `json:"cwd,omitempty"`
	PermissionMode string `json:"permission_mode,omitempty"`

	// Injected by the hook script.
	PID      uint32 `json:"pid,omitempty"`
	TmuxPane string `json:"tmux_pane,omitempty"`

	// Tool events.
	ToolName     string          `json:"tool_name,omitempty"`
	ToolInput    json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`

	// UserPromptSubmit.
	Prompt string `json:"prompt,omitempty"`

	// Stop / SubagentStop.
	StopHookActive *bool `json:"stop_hook_active,omitempty"`

	// Subagent events.
	AgentID              string `json:"agent_id,omitempty"`
	AgentType            string `json:"agent_type,omitempty"`
	AgentTranscriptPath  string `json:"agent_transcript_path,omitempty"`

	// Session events.
	Source string `json:"source,omitempty"`
	Reason string `json:"reason,omitempty"`
	Model  string `json:"model,omitempty"`

	// Compaction/Setup.
	Trigger            string `json:"trigger,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`

	// Notification.
	NotificationType string `json:"notification_type,omitempty"`
	Message          string `json:"message,omitempty"`
}

// ParseHookEvent unmarshals a single hook-event JSON line and validates
// that hook_event_name is one of the 12 known kinds.
func ParseHookEvent(raw []byte) (RawHookEvent, session.HookEventKind, error) {
	var r RawHookEvent
	if err := json.Unmarshal(raw, &r); err != nil {
		return RawHookEvent{}, 0, fmt.Errorf("parsing hook event: %w", err)
	}
	if r.SessionID == "" {
		return RawHookEvent{}, 0, fmt.Errorf("parsing hook event: missing session_id")
	}
	kind, ok := session.HookEventKindFromName(r.HookEventName)
	if !ok {
		return RawHookEvent{}, 0, fmt.Errorf("parsing hook event: unknown hook_event_name %q", r.HookEventName)
	}
	return r, kind, nil
}

func (r RawHookEvent) ProcessID() core.ProcessId { return core.ProcessId(r.PID) }

// ToolDetail best-effort extracts a short human-readable summary of the
// tool invocation from ToolInput, tailored per tool name. It returns ""
// when ToolInput is absent or the tool isn't one we know how to
// summarize -- callers fall back to the bare tool name in that case.
func (r RawHookEvent) ToolDetail() string {
	if len(r.ToolInput) == 0 {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(r.ToolInput, &fields); err != nil {
		return ""
	}
	get := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}

	switch r.ToolName {
	case "Bash":
		cmd := get("command")
		if len(cmd) > 80 {
			cmd = cmd[:80] + "..."
		}
		return cmd
	case "Edit", "Write", "Read":
		return baseName(get("file_path"))
	case "Glob", "Grep":
		return get("pattern")
	case "Task":
		return get("description")
	default:
		return ""
	}
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
