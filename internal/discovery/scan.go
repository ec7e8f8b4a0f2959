package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/damelLP/atmd/internal/core"
)

// Found describes one assistant process located by a Scan, not yet
// known to the registry under a real SessionId.
type Found struct {
	PID        core.ProcessId
	Cwd        string
	StartTicks uint64
}

// Config controls which processes Scan considers assistant processes
// and which working directories it ignores (the daemon's own install
// directory, typically).
type Config struct {
	// Binaries lists the exact executable basenames that identify an
	// assistant process directly, e.g. "claude", "codex", "gemini".
	Binaries []string
	// NodeMarkers lists substrings that, found in a node-launched
	// process's argv, identify it as running one of the binaries above
	// (assistants commonly ship as a JS entrypoint under node).
	NodeMarkers []string
	// IgnoreDirPrefixes excludes any process whose cwd starts with one
	// of these prefixes (e.g. the assistant's own config directory).
	IgnoreDirPrefixes []string
}

// DefaultConfig matches the assistant binaries and ignores its own
// config directory under the user's home.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	cfg := Config{
		Binaries:    []string{"claude", "claude-code"},
		NodeMarkers: []string{"claude"},
	}
	if home != "" {
		cfg.IgnoreDirPrefixes = []string{filepath.Join(home, ".claude")}
	}
	return cfg
}

// Scan walks /proc once, returning every process that matches cfg's
// binary rules and isn't excluded by an ignored working directory.
func Scan(cfg Config) ([]Found, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("reading /proc: %w", err)
	}

	var found []Found
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
		if err != nil {
			continue
		}
		if !cfg.matches(string(cmdline)) {
			continue
		}

		cwd, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
		if err != nil {
			continue
		}
		if cfg.ignored(cwd) {
			continue
		}

		ticks, _ := startTicksOf(pid)
		found = append(found, Found{PID: core.ProcessId(pid), Cwd: cwd, StartTicks: ticks})
	}
	return found, nil
}

func (cfg Config) matches(cmdline string) bool {
	parts := strings.Split(cmdline, "\x00")
	if len(parts) == 0 || parts[0] == "" {
		return false
	}
	exe := filepath.Base(parts[0])

	for _, b := range cfg.Binaries {
		if exe == b {
			return true
		}
	}

	if exe == "node" {
		for _, part := range parts[1:] {
			if strings.Contains(part, "node_modules/.bin") {
				continue
			}
			for _, marker := range cfg.NodeMarkers {
				if strings.Contains(part, marker) {
					return true
				}
			}
		}
	}
	return false
}

func (cfg Config) ignored(cwd string) bool {
	for _, prefix := range cfg.IgnoreDirPrefixes {
		if cwd == prefix || strings.HasPrefix(cwd, prefix+"/") {
			return true
		}
	}
	return false
}
