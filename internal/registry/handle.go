package registry

import (
	"context"

	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/session"
)

// Handle is a cheap, copyable reference to a running Registry. Every
// method sends one command and waits for its reply, respecting ctx
// cancellation on both the send and the receive side.
type Handle struct {
	cmdCh chan<- command
}

// Register creates a new session from an already-known Domain (built by
// session.FromStatusLine or equivalent). pid is the owning OS process,
// or zero to have the registry assign a synthetic one.
func (h Handle) Register(ctx context.Context, d session.Domain, pid core.ProcessId) (core.SessionId, error) {
	reply := make(chan registerResult, 1)
	if err := h.send(ctx, registerCmd{Domain: d, PID: pid, Reply: reply}); err != nil {
		return "", err
	}
	select {
	case res := <-reply:
		return res.SessionID, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RegisterDiscovered creates a "pending-<pid>" placeholder for a
// process found by internal/discovery before any status-line or hook
// payload has named its real session id.
func (h Handle) RegisterDiscovered(ctx context.Context, pid core.ProcessId, startTicks uint64, cwd, pane string) error {
	reply := make(chan error, 1)
	cmd := registerDiscoveredCmd{PID: pid, StartTicks: startTicks, Cwd: cwd, Pane: pane, Reply: reply}
	if err := h.send(ctx, cmd); err != nil {
		return err
	}
	return h.wait(ctx, reply)
}

// UpdateFromStatusLine applies a status-line ping, creating the session
// if data carries a model id and none is tracked yet, silently dropping
// the update otherwise.
func (h Handle) UpdateFromStatusLine(ctx context.Context, data session.StatusLineData) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, updateFromStatusLineCmd{Data: data, Reply: reply}); err != nil {
		return err
	}
	return h.wait(ctx, reply)
}

// HookEventParams bundles everything ApplyHookEvent needs to know about
// a single hook invocation beyond its kind.
type HookEventParams struct {
	SessionID        core.SessionId
	Kind             session.HookEventKind
	ToolName         string
	ToolUseID        core.ToolUseId
	NotificationType string
	AgentType        string
	PID              core.ProcessId
	Cwd              string
	Pane             string
	TranscriptPath   core.TranscriptPath
}

// ApplyHookEvent applies one hook event, upgrading a pending placeholder
// or creating a new entry (SessionStart only) as needed.
func (h Handle) ApplyHookEvent(ctx context.Context, p HookEventParams) error {
	reply := make(chan error, 1)
	cmd := applyHookEventCmd{
		SessionID:        p.SessionID,
		Kind:             p.Kind,
		ToolName:         p.ToolName,
		ToolUseID:        p.ToolUseID,
		NotificationType: p.NotificationType,
		AgentType:        p.AgentType,
		PID:              p.PID,
		Cwd:              p.Cwd,
		Pane:             p.Pane,
		TranscriptPath:   p.TranscriptPath,
		Reply:            reply,
	}
	if err := h.send(ctx, cmd); err != nil {
		return err
	}
	return h.wait(ctx, reply)
}

// GetSession returns the current view of id, if tracked.
func (h Handle) GetSession(ctx context.Context, id core.SessionId) (session.SessionView, bool, error) {
	reply := make(chan getSessionResult, 1)
	if err := h.send(ctx, getSessionCmd{SessionID: id, Reply: reply}); err != nil {
		return session.SessionView{}, false, err
	}
	select {
	case res := <-reply:
		return res.View, res.Found, nil
	case <-ctx.Done():
		return session.SessionView{}, false, ctx.Err()
	}
}

// GetAllSessions returns every tracked session's current view, ordered
// by StartedAt.
func (h Handle) GetAllSessions(ctx context.Context) ([]session.SessionView, error) {
	reply := make(chan []session.SessionView, 1)
	if err := h.send(ctx, getAllSessionsCmd{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove explicitly removes a session, e.g. on client-initiated cleanup.
func (h Handle) Remove(ctx context.Context, id core.SessionId) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, removeCmd{SessionID: id, Reason: Explicit, Reply: reply}); err != nil {
		return err
	}
	return h.wait(ctx, reply)
}

func (h Handle) send(ctx context.Context, cmd command) error {
	select {
	case h.cmdCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h Handle) wait(ctx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
