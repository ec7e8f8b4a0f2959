package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/damelLP/atmd/internal/core"
	"github.com/damelLP/atmd/internal/registry"
)

// defaultScanInterval matches the cadence a status-line ping would
// otherwise take to reveal a brand-new session; discovery exists so a
// client sees the process before its first status-line update arrives.
const defaultScanInterval = 3 * time.Second

// Discoverer periodically scans /proc for assistant processes the
// registry doesn't yet know about and registers them as pending
// placeholders, resolving each one's tmux pane along the way.
type Discoverer struct {
	cfg      Config
	interval time.Duration
	handle   registry.Handle
	logger   *zap.Logger
}

// New builds a Discoverer. cfg.Binaries/NodeMarkers/IgnoreDirPrefixes
// default to DefaultConfig's values when cfg is the zero value.
func New(handle registry.Handle, cfg Config, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Binaries) == 0 && len(cfg.NodeMarkers) == 0 {
		cfg = DefaultConfig()
	}
	return &Discoverer{cfg: cfg, interval: defaultScanInterval, logger: logger, handle: handle}
}

// Run scans immediately, then on every tick until ctx is canceled.
func (d *Discoverer) Run(ctx context.Context) {
	d.ScanOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ScanOnce(ctx)
		}
	}
}

// ScanOnce runs a single /proc sweep synchronously and registers every
// process it finds, returning how many the registry accepted versus how
// many it rejected (an invalid PID, or the registry reporting an error
// such as being at capacity). A PID the registry already tracks is
// accepted without change and counts as discovered. It's both Run's
// per-tick body and the seam a connection server's on-demand Discover
// request invokes directly.
func (d *Discoverer) ScanOnce(ctx context.Context) (discovered, failed int) {
	found, err := Scan(d.cfg)
	if err != nil {
		d.logger.Warn("discovery scan failed", zap.Error(err))
		return 0, 0
	}

	resolver := NewTmuxResolver()

	for _, f := range found {
		pane := resolvePane(resolver, f.PID)
		if err := d.handle.RegisterDiscovered(ctx, f.PID, f.StartTicks, f.Cwd, pane); err != nil {
			d.logger.Debug("registerDiscovered failed",
				zap.Uint32("pid", uint32(f.PID)), zap.Error(err))
			failed++
			continue
		}
		discovered++
	}
	return discovered, failed
}

// resolvePane is a small seam kept separate from ScanOnce so tests can
// exercise pane resolution against a fixed PID without standing up a
// real tmux session.
func resolvePane(r *TmuxResolver, pid core.ProcessId) string {
	if r == nil {
		return ""
	}
	target, ok := r.Resolve(int(pid))
	if !ok {
		return ""
	}
	return target
}
