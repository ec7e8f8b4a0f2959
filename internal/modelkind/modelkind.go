// Package modelkind resolves assistant model identifiers (e.g.
// "claude-opus-4-5-20251101") to a closed taxonomy with known context
// window sizes, per-token pricing, and display names.
package modelkind

import "sort"

// Model is the closed enumeration of known model identifiers, plus
// Unknown for anything unrecognized.
type Model int

const (
	Unknown Model = iota
	Opus46
	Opus45
	Sonnet45
	Sonnet4
	Haiku45
	Haiku35
	Sonnet35V2
)

type modelInfo struct {
	prefix               string
	displayName          string
	contextWindowSize    uint32
	inputCostPerMillion  float64
	outputCostPerMillion float64
}

// prefixes is ordered longest-prefix-first so that, e.g., the more
// specific "claude-sonnet-4-5" is tested before "claude-sonnet-4".
// Built once at init time by sorting registry below.
var prefixes []struct {
	model Model
	info  modelInfo
}

var registry = map[Model]modelInfo{
	Opus46:     {prefix: "claude-opus-4-6", displayName: "Opus 4.6", contextWindowSize: 200_000, inputCostPerMillion: 15, outputCostPerMillion: 75},
	Opus45:     {prefix: "claude-opus-4-5", displayName: "Opus 4.5", contextWindowSize: 200_000, inputCostPerMillion: 15, outputCostPerMillion: 75},
	Sonnet45:   {prefix: "claude-sonnet-4-5", displayName: "Sonnet 4.5", contextWindowSize: 200_000, inputCostPerMillion: 3, outputCostPerMillion: 15},
	Sonnet4:    {prefix: "claude-sonnet-4", displayName: "Sonnet 4", contextWindowSize: 200_000, inputCostPerMillion: 3, outputCostPerMillion: 15},
	Haiku45:    {prefix: "claude-haiku-4-5", displayName: "Haiku 4.5", contextWindowSize: 200_000, inputCostPerMillion: 1, outputCostPerMillion: 5},
	Haiku35:    {prefix: "claude-haiku-3-5", displayName: "Haiku 3.5", contextWindowSize: 200_000, inputCostPerMillion: 0.8, outputCostPerMillion: 4},
	Sonnet35V2: {prefix: "claude-3-5-sonnet", displayName: "Sonnet 3.5", contextWindowSize: 200_000, inputCostPerMillion: 3, outputCostPerMillion: 15},
}

func init() {
	for m, info := range registry {
		prefixes = append(prefixes, struct {
			model Model
			info  modelInfo
		}{m, info})
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(prefixes[i].info.prefix) > len(prefixes[j].info.prefix)
	})
}

// FromID resolves a raw model identifier to a Model using longest-
// prefix-first matching, falling back to Unknown.
func FromID(id string) Model {
	for _, p := range prefixes {
		if hasPrefix(id, p.info.prefix) {
			return p.model
		}
	}
	return Unknown
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// DisplayName returns the model's human-readable name, or "" for Unknown
// (callers should use a display override or DeriveDisplayName instead).
func (m Model) DisplayName() string {
	if info, ok := registry[m]; ok {
		return info.displayName
	}
	return ""
}

// ContextWindowSize returns the model's maximum context tokens, or the
// package default for Unknown.
func (m Model) ContextWindowSize() uint32 {
	if info, ok := registry[m]; ok {
		return info.contextWindowSize
	}
	return 200_000
}

// InputCostPerMillion returns the $/1M input tokens, 0 for Unknown.
func (m Model) InputCostPerMillion() float64 {
	return registry[m].inputCostPerMillion
}

// OutputCostPerMillion returns the $/1M output tokens, 0 for Unknown.
func (m Model) OutputCostPerMillion() float64 {
	return registry[m].outputCostPerMillion
}

// IsUnknown reports whether this Model failed to match any known prefix.
func (m Model) IsUnknown() bool { return m == Unknown }

// DeriveDisplayName strips an eight-digit trailing date suffix from a
// raw model id (e.g. "claude-opus-4-5-20251101" -> "claude-opus-4-5"),
// for use as a fallback display label when the model is Unknown and the
// assistant supplied no display_name of its own.
func DeriveDisplayName(id string) string {
	if len(id) <= 9 {
		return id
	}
	tail := id[len(id)-8:]
	for _, c := range tail {
		if c < '0' || c > '9' {
			return id
		}
	}
	if id[len(id)-9] != '-' {
		return id
	}
	return id[:len(id)-9]
}
