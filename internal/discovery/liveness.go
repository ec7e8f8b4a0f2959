package discovery

import (
	ps "github.com/mitchellh/go-ps"

	"github.com/damelLP/atmd/internal/core"
)

// CheckLiveness implements registry.LivenessChecker: it reports pid's
// current start-time in clock ticks and whether the process still
// exists. go-ps.FindProcess is the existence check (it returns nil,
// nil for a gone PID without erroring); startTicksOf supplies the
// value the registry compares against what it captured at
// registration to catch PID reuse.
func CheckLiveness(pid core.ProcessId) (startTicks uint64, alive bool) {
	proc, err := ps.FindProcess(int(pid))
	if err != nil || proc == nil {
		return 0, false
	}
	ticks, ok := startTicksOf(int(pid))
	if !ok {
		return 0, false
	}
	return ticks, true
}
