package session

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
)

// PrivacyFilter applies masking and path-based filtering to a
// SessionView before it is broadcast to clients. The zero value is a
// no-op filter.
type PrivacyFilter struct {
	MaskWorkingDirs bool
	MaskSessionIDs  bool
	// MaskPIDs is carried for config-schema parity but currently has no
	// effect: SessionView never exposes a raw PID to clients in the
	// first place.
	MaskPIDs        bool
	MaskTmuxTargets bool
	AllowedPaths    []string
	BlockedPaths    []string
}

// IsAllowed reports whether a session with the given working directory should
// be broadcast. An empty working directory is always allowed (the session
// hasn't resolved its path yet). When AllowedPaths is non-empty, the path
// must match at least one pattern. If it passes the allowlist, it must not
// match any BlockedPaths pattern.
func (f *PrivacyFilter) IsAllowed(workingDir string) bool {
	if workingDir == "" {
		return true
	}

	if len(f.AllowedPaths) > 0 {
		allowed := false
		for _, pattern := range f.AllowedPaths {
			if matchPathOrParent(pattern, workingDir) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	for _, pattern := range f.BlockedPaths {
		if matchPathOrParent(pattern, workingDir) {
			return false
		}
	}

	return true
}

// matchPathOrParent checks if pattern matches path or any of its parent
// directories. This allows patterns like "/home/user/*" to match deeply
// nested paths like "/home/user/work/project-a" because the parent
// "/home/user/work" matches the glob.
func matchPathOrParent(pattern, path string) bool {
	for p := path; p != "." && p != "" && p != filepath.Dir(p); p = filepath.Dir(p) {
		if matched, _ := filepath.Match(pattern, p); matched {
			return true
		}
	}
	return false
}

// Apply returns a copy of v with sensitive fields masked according to
// the filter configuration. The original view is never modified.
func (f *PrivacyFilter) Apply(v SessionView) SessionView {
	masked := v

	if f.MaskWorkingDirs {
		masked.WorkingDirShort = ""
	}

	if f.MaskSessionIDs && masked.SessionID != "" {
		masked.SessionID = shortHash(masked.SessionID)
		masked.ShortID = masked.SessionID
	}

	if f.MaskTmuxTargets {
		masked.Pane = ""
	}

	masked.WorkingDir = ""
	return masked
}

// MaskSessionID returns the masked form of a raw session id, the same
// transform Apply uses for SessionView.SessionID -- used by the server
// to keep a RemovedEvent's id consistent with whatever masked id a
// prior SessionUpdated carried for the same session.
func (f *PrivacyFilter) MaskSessionID(id string) string {
	if !f.MaskSessionIDs || id == "" {
		return id
	}
	return shortHash(id)
}

// FilterViews returns a new slice containing only the allowed views,
// with privacy masking applied to each. The input slice is not modified.
func (f *PrivacyFilter) FilterViews(views []SessionView) []SessionView {
	result := make([]SessionView, 0, len(views))
	for _, v := range views {
		if !f.IsAllowed(v.WorkingDir) {
			continue
		}
		result = append(result, f.Apply(v))
	}
	return result
}

// IsNoop reports whether the filter does nothing (no masking, no path filtering).
func (f *PrivacyFilter) IsNoop() bool {
	return !f.MaskWorkingDirs && !f.MaskSessionIDs && !f.MaskTmuxTargets &&
		len(f.AllowedPaths) == 0 && len(f.BlockedPaths) == 0
}

// shortHash returns a truncated SHA-256 hex digest for an opaque identifier.
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
