// Package registry is the single-writer authority over session state.
// One goroutine (Registry.run) owns every map; all access from the rest
// of the daemon goes through Handle, which serializes requests onto a
// bounded command channel. Every mutation publishes an Event onto a
// second bounded channel that the connection server's broadcaster
// drains to fan out to subscribed clients.
package registry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	cmdBufferSize   = 100
	eventBufferSize = 100
	cleanupInterval = 2 * time.Second
)

// Registry runs the actor loop. It is never used directly outside this
// package; callers interact with it exclusively through Handle.
type Registry struct {
	cmdCh  chan command
	s      *store
	logger *zap.Logger
}

// Spawn starts the registry actor and its periodic stale-session sweep,
// both tied to ctx's lifetime, and returns the Handle callers use to
// issue commands plus the read-only event stream the connection server
// subscribes to.
func Spawn(ctx context.Context, logger *zap.Logger, liveness LivenessChecker) (Handle, <-chan Event) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eventsCh := make(chan Event, eventBufferSize)
	r := &Registry{
		cmdCh:  make(chan command, cmdBufferSize),
		s:      newStore(eventsCh, logger),
		logger: logger,
	}

	go r.run(ctx)
	go r.runCleanupLoop(ctx, liveness)

	return Handle{cmdCh: r.cmdCh}, eventsCh
}

func (r *Registry) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmdCh:
			cmd.apply(r.s)
		}
	}
}

func (r *Registry) runCleanupLoop(ctx context.Context, liveness LivenessChecker) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case r.cmdCh <- cleanupStaleCmd{Liveness: liveness}:
			default:
				r.logger.Warn("cleanup sweep dropped, command queue full")
			}
		}
	}
}
