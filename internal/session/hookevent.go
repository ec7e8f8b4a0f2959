package session

// HookEventKind is the closed set of 12 hook event names the assistant
// emits. An unrecognized hook_event_name maps to (ok=false) so the
// parser can reject it outright.
type HookEventKind int

const (
	PreToolUse HookEventKind = iota
	PostToolUse
	PostToolUseFailure
	UserPromptSubmit
	Stop
	SubagentStart
	SubagentStop
	SessionStart
	SessionEnd
	PreCompact
	Setup
	Notification
)

var hookEventNames = map[string]HookEventKind{
	"PreToolUse":         PreToolUse,
	"PostToolUse":        PostToolUse,
	"PostToolUseFailure": PostToolUseFailure,
	"UserPromptSubmit":   UserPromptSubmit,
	"Stop":               Stop,
	"SubagentStart":      SubagentStart,
	"SubagentStop":       SubagentStop,
	"SessionStart":       SessionStart,
	"SessionEnd":         SessionEnd,
	"PreCompact":         PreCompact,
	"Setup":              Setup,
	"Notification":       Notification,
}

// HookEventKindFromName resolves a raw hook_event_name to a
// HookEventKind, ok=false if it's not one of the 12 known kinds.
func HookEventKindFromName(name string) (HookEventKind, bool) {
	k, ok := hookEventNames[name]
	return k, ok
}

func (k HookEventKind) String() string {
	for name, kind := range hookEventNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Notification type strings recognized by ApplyNotification.
const (
	NotificationPermissionPrompt = "permission_prompt"
	NotificationElicitationDialog = "elicitation_dialog"
	NotificationIdlePrompt       = "idle_prompt"
)
