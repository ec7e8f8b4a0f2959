// Package parse turns the assistant's permissive status-line and hook
// JSON payloads into normalized values the session and registry
// packages can consume. Both parsers require only a minimal set of
// fields and default everything else -- never fabricating data that
// wasn't present.
package parse

import (
	"encoding/json"
	"fmt"

	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/session"
)

// RawStatusLine mirrors the assistant's status-line JSON. Only
// SessionID is required; everything else is optional and defaulted on
// conversion to session.StatusLineData.
type RawStatusLine struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path,omitempty"`
	Cwd            string         `json:"cwd,omitempty"`
	Model          *RawModel      `json:"model,omitempty"`
	Workspace      *RawWorkspace  `json:"workspace,omitempty"`
	Version        string         `json:"version,omitempty"`
	Cost           *RawCost       `json:"cost,omitempty"`
	ContextWindow  *RawContextWin `json:"context_window,omitempty"`

	// PID is injected by the status-line script via $PPID, not emitted
	// by the assistant itself.
	PID uint32 `json:"pid,omitempty"`
	// TmuxPane is injected by the hook script via $TMUX_PANE.
	TmuxPane string `json:"tmux_pane,omitempty"`
}

type RawModel struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

type RawWorkspace struct {
	CurrentDir string `json:"current_dir,omitempty"`
	ProjectDir string `json:"project_dir,omitempty"`
}

type RawCost struct {
	TotalCostUSD       float64 `json:"total_cost_usd"`
	TotalDurationMs    uint64  `json:"total_duration_ms"`
	TotalAPIDurationMs uint64  `json:"total_api_duration_ms,omitempty"`
	TotalLinesAdded    uint64  `json:"total_lines_added,omitempty"`
	TotalLinesRemoved  uint64  `json:"total_lines_removed,omitempty"`
}

type RawContextWin struct {
	TotalInputTokens  uint64          `json:"total_input_tokens,omitempty"`
	TotalOutputTokens uint64          `json:"total_output_tokens,omitempty"`
	ContextWindowSize uint32          `json:"context_window_size,omitempty"`
	CurrentUsage      *RawCurrentUsage `json:"current_usage,omitempty"`
}

type RawCurrentUsage struct {
	InputTokens              uint64 `json:"input_tokens,omitempty"`
	OutputTokens             uint64 `json:"output_tokens,omitempty"`
	CacheCreationInputTokens uint64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     uint64 `json:"cache_read_input_tokens,omitempty"`
}

// ParseStatusLine unmarshals a single status-line JSON line.
func ParseStatusLine(raw []byte) (RawStatusLine, error) {
	var r RawStatusLine
	if err := json.Unmarshal(raw, &r); err != nil {
		return RawStatusLine{}, fmt.Errorf("parsing status line: %w", err)
	}
	if r.SessionID == "" {
		return RawStatusLine{}, fmt.Errorf("parsing status line: missing session_id")
	}
	return r, nil
}

// ToStatusLineData normalizes r into a session.StatusLineData, filling
// in the documented defaults (200,000-token window, zeroed counters) for
// every absent optional field.
func (r RawStatusLine) ToStatusLineData() session.StatusLineData {
	data := session.StatusLineData{
		SessionID:         r.SessionID,
		Cwd:               r.Cwd,
		Version:           r.Version,
		ContextWindowSize: core.DefaultContextWindowSize,
		PID:               core.ProcessId(r.PID),
		TmuxPane:          r.TmuxPane,
	}

	if r.Model != nil {
		data.ModelID = r.Model.ID
		data.ModelDisplayName = r.Model.DisplayName
	}

	if r.Cost != nil {
		data.CostUSD = r.Cost.TotalCostUSD
		data.TotalDurationMs = r.Cost.TotalDurationMs
		data.APIDurationMs = r.Cost.TotalAPIDurationMs
		data.LinesAdded = r.Cost.TotalLinesAdded
		data.LinesRemoved = r.Cost.TotalLinesRemoved
	}

	if r.ContextWindow != nil {
		data.TotalInputTokens = r.ContextWindow.TotalInputTokens
		data.TotalOutputTokens = r.ContextWindow.TotalOutputTokens
		if r.ContextWindow.ContextWindowSize != 0 {
			data.ContextWindowSize = r.ContextWindow.ContextWindowSize
		}
		if r.ContextWindow.CurrentUsage != nil {
			cu := r.ContextWindow.CurrentUsage
			data.CurrentInputTokens = cu.InputTokens
			data.CurrentOutputTokens = cu.OutputTokens
			data.CacheCreationTokens = cu.CacheCreationInputTokens
			data.CacheReadTokens = cu.CacheReadInputTokens
		}
	}

	return data
}

// HasModel reports whether this payload carries a model id -- the
// registry's UpdateFromStatusLine path uses this to decide whether a
// brand-new session may be created from it.
func (r RawStatusLine) HasModel() bool {
	return r.Model != nil && r.Model.ID != ""
}
