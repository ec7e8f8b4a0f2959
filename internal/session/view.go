package session

import (
	"path/filepath"
	"time"

	"github.com/damelLP/atmd/internal/core"
)

// SessionView is a plain, fully-computed record containing everything a
// client needs to render a session without further computation. It is
// produced from a Domain+Infrastructure snapshot at the moment of
// publication and never mutated afterward.
type SessionView struct {
	SessionID  string `json:"session_id"`
	ShortID    string `json:"short_id"`
	AgentLabel string `json:"agent_label"`

	ModelDisplay string `json:"model_display"`

	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	StatusIcon  string `json:"status_icon"`

	ActivityDetail string `json:"activity_detail,omitempty"`
	ShouldBlink    bool   `json:"should_blink"`

	ContextPercentage float64 `json:"context_percentage"`
	ContextDisplay    string  `json:"context_display"`
	ContextWarning    bool    `json:"context_warning"`
	ContextCritical   bool    `json:"context_critical"`

	CostDisplay string  `json:"cost_display"`
	CostUSD     float64 `json:"cost_usd"`

	DurationDisplay string  `json:"duration_display"`
	DurationSeconds float64 `json:"duration_seconds"`

	LinesChangedDisplay string `json:"lines_changed_display"`

	WorkingDirShort string `json:"working_dir_short,omitempty"`

	NeedsAttention bool `json:"needs_attention"`

	LastActivityDisplay string `json:"last_activity_display"`
	AgeDisplay          string `json:"age_display"`

	StartedAt    string `json:"started_at"`
	LastActivity string `json:"last_activity"`

	Pane string `json:"pane,omitempty"`

	// WorkingDir is the session's full working directory, carried for
	// server-side privacy-filter evaluation only -- never serialized to
	// clients, who only ever see WorkingDirShort.
	WorkingDir string `json:"-"`
}

// Entry is a full registry record: the assistant-facing Domain plus the
// OS-process-facing Infrastructure for the same session.
type Entry struct {
	Domain Domain
	Infra  Infrastructure
}

// Project builds a SessionView from a snapshot of e. All formatting
// happens here, once, at publication time -- clients do no further
// computation.
func Project(e Entry) SessionView {
	d := e.Domain

	modelDisplay := d.Model.DisplayName()
	if d.Model.IsUnknown() {
		if d.ModelDisplayOverride != "" {
			modelDisplay = d.ModelDisplayOverride
		} else {
			modelDisplay = "Unknown"
		}
	}

	activityDetail := ""
	if d.Activity != nil {
		activityDetail = d.Activity.Text
	}

	needsAttention := d.Status == AttentionNeeded || d.NeedsContextAttention()

	return SessionView{
		SessionID:  string(d.SessionID),
		ShortID:    d.SessionID.ShortID(),
		AgentLabel: d.Agent.Label(),

		ModelDisplay: modelDisplay,

		Status:      d.Status.String(),
		StatusLabel: d.Status.Label(),
		StatusIcon:  d.Status.Icon(),

		ActivityDetail: activityDetail,
		ShouldBlink:    d.Status.ShouldBlink(),

		ContextPercentage: d.Context.UsagePercentage(),
		ContextDisplay:    d.Context.Format(),
		ContextWarning:    d.Context.IsWarning(),
		ContextCritical:   d.Context.IsCritical(),

		CostDisplay: d.Cost.Format(),
		CostUSD:     d.Cost.AsUSD(),

		DurationDisplay: d.Duration.Format(),
		DurationSeconds: d.Duration.Seconds(),

		LinesChangedDisplay: d.Lines.Format(),

		WorkingDirShort: shortenPath(d.WorkingDir),

		NeedsAttention: needsAttention,

		LastActivityDisplay: formatElapsed(d.TimeSinceActivity()),
		AgeDisplay:          formatElapsed(d.Age()),

		StartedAt:    d.StartedAt.UTC().Format(time.RFC3339),
		LastActivity: d.LastActivity.UTC().Format(time.RFC3339),

		Pane: d.Pane,

		WorkingDir: d.WorkingDir,
	}
}

// shortenPath returns just the final path component, e.g.
// "/home/u/project" -> "project". Empty input returns empty.
func shortenPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}

// formatElapsed renders a duration the way SessionDuration.Format does,
// for the age/last-activity display fields.
func formatElapsed(d time.Duration) string {
	return core.SessionDuration{TotalMs: uint64(d.Milliseconds())}.Format()
}
