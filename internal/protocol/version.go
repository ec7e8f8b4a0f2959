// Package protocol defines the wire messages exchanged between atmd
// and its connected clients over the Unix socket: a version-tagged
// envelope in each direction, newline-delimited JSON on the wire.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/damelLP/atmd/internal/atmerr"
)

// Version is the client-daemon protocol version. Major bumps are
// breaking; minor bumps are additive and backward compatible.
type Version struct {
	Major uint16 `json:"major"`
	Minor uint16 `json:"minor"`
}

// Current is the protocol version this build of atmd speaks.
var Current = Version{Major: 1, Minor: 0}

// ParseVersion parses a "major.minor" string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return Version{}, atmerr.New(atmerr.KindParseError, fmt.Sprintf("invalid protocol version %q", s))
	}
	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return Version{}, atmerr.New(atmerr.KindParseError, fmt.Sprintf("invalid protocol version %q", s))
	}
	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Version{}, atmerr.New(atmerr.KindParseError, fmt.Sprintf("invalid protocol version %q", s))
	}
	return Version{Major: uint16(major), Minor: uint16(minor)}, nil
}

// IsCompatibleWith reports whether v and other can speak to each
// other: major must match exactly, minor is ignored in either
// direction.
func (v Version) IsCompatibleWith(other Version) bool {
	return v.Major == other.Major
}

// IsNewerThan compares (major, minor) lexicographically.
func (v Version) IsNewerThan(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	return v.Minor > other.Minor
}

// IsCurrent reports whether v is exactly the version this build speaks.
func (v Version) IsCurrent() bool { return v == Current }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
