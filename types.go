// Package reltag derives release versions from Git tag history and
// publishes them: git tags, GitHub releases and commit statuses, and
// Discord announcements. The version calculation is a pure function over
// tag strings; everything that touches a repository or the network is
// injected as a collaborator.
package reltag

import (
	"context"
	"fmt"
)

// DefaultTag is the tag assumed when a repository has no release tag yet.
const DefaultTag = "v0.0.0"

// SemVer is a parsed release version of the form vMAJOR.MINOR.PATCH[-rc.N].
// Pre is the release-candidate counter; zero means a stable version.
type SemVer struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   uint64
}

// IsPreRelease reports whether the version carries an rc suffix.
func (v SemVer) IsPreRelease() bool {
	return v.Pre > 0
}

// Base returns the version with any rc suffix stripped.
func (v SemVer) Base() SemVer {
	v.Pre = 0
	return v
}

// String renders the canonical tag form, always with a leading "v".
func (v SemVer) String() string {
	if v.Pre > 0 {
		return fmt.Sprintf("v%d.%d.%d-rc.%d", v.Major, v.Minor, v.Patch, v.Pre)
	}
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MarshalJSON renders the version as its canonical tag string.
func (v SemVer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

// UnmarshalJSON parses a canonical tag string.
func (v *SemVer) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("version must be a JSON string")
	}
	parsed, err := ParseTag(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Bump selects which component a stable release increments.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
)

// ParseBump validates a bump name. The empty string defaults to minor,
// matching NextStable.
func ParseBump(s string) (Bump, error) {
	switch Bump(s) {
	case "":
		return BumpMinor, nil
	case BumpMajor, BumpMinor, BumpPatch:
		return Bump(s), nil
	}
	return "", fmt.Errorf("unrecognized bump %q: must be one of major, minor, patch", s)
}

// VersionDecision is the outcome of one calculation: the tag the decision
// was derived from, the version to publish, and the stable version it is
// built on. Bump is set only when NextStable applied an increment.
type VersionDecision struct {
	CurrentTag  string `json:"current_tag"`
	NewVersion  SemVer `json:"new_version"`
	BaseVersion SemVer `json:"base_version"`
	Bump        Bump   `json:"bump,omitempty"`
}

// MalformedVersionError reports a tag string that does not satisfy the
// release tag grammar.
type MalformedVersionError struct {
	Tag    string
	Reason string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version tag %q: %s (expected vMAJOR.MINOR.PATCH[-rc.N])",
		e.Tag, e.Reason)
}

// TagSource supplies the most recent release tag reachable from the
// current commit, or DefaultTag when none exists.
type TagSource interface {
	Describe() (string, error)
}

// TagPublisher creates a tag, replacing any existing tag of the same name.
type TagPublisher interface {
	PublishTag(version, message string) error
}

// Release identifies a published release.
type Release struct {
	ID      int64
	TagName string
	URL     string
}

// ReleasePublisher publishes a release for a tag, replacing any existing
// release for the same tag.
type ReleasePublisher interface {
	PublishRelease(ctx context.Context, version, body string, draft, prerelease bool) (*Release, error)
}

// Notifier announces a published release.
type Notifier interface {
	Announce(ctx context.Context, decision *VersionDecision, releaseURL string) error
}
