// Package discovery finds assistant processes that haven't yet
// announced themselves through a status-line or hook payload, and
// resolves which tmux pane (if any) a given PID is running inside.
package discovery

import (
	"os"
	"strconv"
	"strings"
)

// statFields splits the content of /proc/<pid>/stat into the
// space-separated fields following comm, which is itself parenthesized
// and may contain spaces or even its own parens -- so the split point
// is the stat line's *last* ')', not its first. fields[0] is state
// (field 3), fields[1] is ppid (field 4), and so on; field N (1-indexed)
// lands at fields[N-3].
func statFields(stat string) ([]string, bool) {
	idx := strings.LastIndex(stat, ")")
	if idx < 0 || idx+2 >= len(stat) {
		return nil, false
	}
	fields := strings.Fields(strings.TrimSpace(stat[idx+1:]))
	return fields, true
}

func readStat(pid int) (string, error) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parentPID reads /proc/<pid>/stat and extracts ppid (field 4), or 0 on
// any read/parse failure.
func parentPID(pid int) int {
	stat, err := readStat(pid)
	if err != nil {
		return 0
	}
	fields, ok := statFields(stat)
	if !ok || len(fields) < 2 {
		return 0
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return ppid
}

// startTicks reads /proc/<pid>/stat and extracts starttime (field 22,
// clock ticks since boot), the value used to detect PID reuse: the
// kernel never reassigns a start time to two different processes that
// share a PID. ok is false if pid no longer exists or the field can't
// be parsed.
func startTicksOf(pid int) (ticks uint64, ok bool) {
	stat, err := readStat(pid)
	if err != nil {
		return 0, false
	}
	fields, fieldsOK := statFields(stat)
	if !fieldsOK || len(fields) < 20 {
		return 0, false
	}
	v, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
