package discovery

import (
	"bufio"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// maxAncestorWalk bounds how many parent hops Resolve will follow
// before giving up, well past any realistic shell/tmux/process-manager
// nesting depth.
const maxAncestorWalk = 20

// TmuxResolver maps a process PID to the tmux pane target
// ("session:window.pane") that contains it, by walking up the process
// tree until an ancestor's PID matches a pane's shell PID.
type TmuxResolver struct {
	targetByShellPID map[int]string
}

// NewTmuxResolver queries tmux for every pane across every session.
// Returns a nil resolver, not an error, when tmux isn't installed or
// isn't running -- tmux integration is optional, never required. Built
// fresh on every discovery sweep rather than cached, since pane layouts
// and shell PIDs can churn between scans as windows split or close.
func NewTmuxResolver() *TmuxResolver {
	targetByShellPID, err := queryPanesByShellPID()
	if err != nil || len(targetByShellPID) == 0 {
		return nil
	}
	return &TmuxResolver{targetByShellPID: targetByShellPID}
}

// Resolve walks the process tree from pid upward via parentPID (shared
// with procstat.go's /proc/<pid>/stat reader), up to maxAncestorWalk
// hops, looking for an ancestor PID that owns a tmux pane.
func (r *TmuxResolver) Resolve(pid int) (string, bool) {
	if r == nil {
		return "", false
	}
	current := pid
	for hops := 0; hops < maxAncestorWalk; hops++ {
		if target, ok := r.targetByShellPID[current]; ok {
			return target, true
		}
		parent := parentPID(current)
		if parent <= 1 || parent == current {
			break
		}
		current = parent
	}
	return "", false
}

// queryPanesByShellPID shells out to `tmux list-panes` and returns a
// map from each pane's shell PID to its "session:window.pane" target.
func queryPanesByShellPID() (map[int]string, error) {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return nil, err
	}
	out, err := exec.Command(path, "list-panes", "-a", "-F",
		"#{pane_pid}\t#{session_name}\t#{window_index}\t#{pane_index}").Output()
	if err != nil {
		return nil, err
	}
	return parsePaneTargets(string(out)), nil
}

// parsePaneTargets parses the tab-separated "pid\tsession\twindow\tpane"
// lines tmux list-panes emits into a shell-PID -> target map, skipping
// any line that doesn't parse cleanly rather than failing the whole
// query over one malformed pane.
func parsePaneTargets(output string) map[int]string {
	targets := make(map[int]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		winIdx, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		paneIdx, err := strconv.Atoi(fields[3])
		if err != nil {
			continue
		}
		targets[pid] = fmt.Sprintf("%s:%d.%d", fields[1], winIdx, paneIdx)
	}
	return targets
}
