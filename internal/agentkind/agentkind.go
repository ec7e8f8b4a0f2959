// Package agentkind classifies which kind of agent is running a
// session: the main assistant loop, or one of its subagent roles.
package agentkind

import "strings"

// Kind is the closed set of known agent roles, plus Custom for anything
// that doesn't match a known alias.
type Kind int

const (
	GeneralPurpose Kind = iota
	Explore
	Plan
	CodeReviewer
	FileSearch
	Custom
)

// AgentKind pairs a Kind with its raw label. Name is set only for
// Custom, where it carries the original subagent_type string, the only
// information we have; for every known Kind it is empty.
type AgentKind struct {
	Kind Kind
	Name string
}

// General is the default AgentKind for sessions with no subagent
// context (the main assistant loop, or a discovery-created entry).
var General = AgentKind{Kind: GeneralPurpose}

func (k Kind) shortName() string {
	switch k {
	case Explore:
		return "explore"
	case Plan:
		return "plan"
	case CodeReviewer:
		return "reviewer"
	case FileSearch:
		return "search"
	case Custom:
		return "custom"
	default:
		return "agent"
	}
}

// ShortName is a compact identifier suitable for narrow displays.
func (a AgentKind) ShortName() string {
	if a.Kind == Custom && a.Name != "" {
		return a.Name
	}
	return a.Kind.shortName()
}

func (k Kind) label() string {
	switch k {
	case Explore:
		return "Explore"
	case Plan:
		return "Plan"
	case CodeReviewer:
		return "Code Reviewer"
	case FileSearch:
		return "File Search"
	case Custom:
		return "Custom"
	default:
		return "General Purpose"
	}
}

// Label is a human-readable name for client display.
func (a AgentKind) Label() string {
	if a.Kind == Custom && a.Name != "" {
		return a.Name
	}
	return a.Kind.label()
}

// aliases maps lowercased subagent_type strings (as emitted by
// SubagentStart hook events) to a known Kind. Anything unmatched
// becomes Custom with the original string preserved.
var aliases = map[string]Kind{
	"general-purpose": GeneralPurpose,
	"general_purpose": GeneralPurpose,
	"explore":         Explore,
	"plan":            Plan,
	"code-reviewer":   CodeReviewer,
	"code_reviewer":   CodeReviewer,
	"reviewer":        CodeReviewer,
	"file-search":     FileSearch,
	"file_search":     FileSearch,
	"search":          FileSearch,
}

// FromSubagentType resolves a hook's raw agent_type string to an
// AgentKind, falling back to Custom with the original string preserved
// when it doesn't match a known alias. An empty string resolves to
// General.
func FromSubagentType(raw string) AgentKind {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return General
	}
	if kind, ok := aliases[strings.ToLower(trimmed)]; ok {
		return AgentKind{Kind: kind}
	}
	return AgentKind{Kind: Custom, Name: trimmed}
}
