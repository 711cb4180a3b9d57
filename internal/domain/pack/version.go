package pack

import (
	"fmt"
	"strings"

	"github.com/coreos/go-semver/semver"
)

// Runtime floors: the oldest game release that requires each Java major.
var (
	java21Floor = semver.Version{Major: 1, Minor: 20, Patch: 5}
	java17Floor = semver.Version{Major: 1, Minor: 18}
	java16Floor = semver.Version{Major: 1, Minor: 17}
)

// newestRuntimeMajor is used for snapshots and other unparseable game
// versions, which always track the newest runtime requirement.
const newestRuntimeMajor = 21

// ParseVersion parses a version string leniently: missing minor or patch
// parts are padded with zeros, so "9.6" compares as "9.6.0".
// Pre-release and build metadata suffixes are preserved.
func ParseVersion(s string) (*semver.Version, error) {
	s = strings.TrimSpace(s)

	base, suffix := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		base, suffix = s[:i], s[i:]
	}

	switch strings.Count(base, ".") {
	case 0:
		base += ".0.0"
	case 1:
		base += ".0"
	}

	v, err := semver.NewVersion(base + suffix)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, err)
	}

	return v, nil
}

// RuntimeMajorFor returns the Java major version a game release needs.
// Snapshots and other non-release ids get the newest runtime.
func RuntimeMajorFor(gameVersion string) int {
	v, err := ParseVersion(gameVersion)
	if err != nil {
		return newestRuntimeMajor
	}

	switch {
	case !v.LessThan(java21Floor):
		return 21
	case !v.LessThan(java17Floor):
		return 17
	case !v.LessThan(java16Floor):
		return 16
	default:
		return 8
	}
}
