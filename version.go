package reltag

import (
	"strings"

	"github.com/blang/semver"
)

// ParseTag parses a release tag into a structured version. The accepted
// grammar is an optional leading "v", three dot-separated non-negative
// integers, and an optional "-rc.N" suffix with N >= 1. Anything else is
// rejected with a *MalformedVersionError; ParseTag never coerces input.
func ParseTag(raw string) (SemVer, error) {
	parsed, err := semver.Parse(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return SemVer{}, &MalformedVersionError{Tag: raw, Reason: err.Error()}
	}

	if len(parsed.Build) > 0 {
		return SemVer{}, &MalformedVersionError{Tag: raw, Reason: "build metadata is not allowed"}
	}

	out := SemVer{
		Major: parsed.Major,
		Minor: parsed.Minor,
		Patch: parsed.Patch,
	}

	switch len(parsed.Pre) {
	case 0:
		// Stable.
	case 2:
		if parsed.Pre[0].IsNum || parsed.Pre[0].VersionStr != "rc" || !parsed.Pre[1].IsNum {
			return SemVer{}, &MalformedVersionError{Tag: raw, Reason: "pre-release suffix must be rc.N"}
		}
		if parsed.Pre[1].VersionNum < 1 {
			return SemVer{}, &MalformedVersionError{Tag: raw, Reason: "rc counter must be positive"}
		}
		out.Pre = parsed.Pre[1].VersionNum
	default:
		return SemVer{}, &MalformedVersionError{Tag: raw, Reason: "pre-release suffix must be rc.N"}
	}

	return out, nil
}

// NextPreRelease derives the next release candidate from currentTag.
// A stable tag (or the DefaultTag fallback) opens a new candidate series
// at the next minor version; an rc tag advances its counter.
func NextPreRelease(currentTag string) (*VersionDecision, error) {
	current, err := ParseTag(currentTag)
	if err != nil {
		return nil, err
	}

	next := current
	if current.IsPreRelease() {
		next.Pre = current.Pre + 1
	} else {
		next.Minor++
		next.Patch = 0
		next.Pre = 1
	}

	return &VersionDecision{
		CurrentTag:  currentTag,
		NewVersion:  next,
		BaseVersion: next.Base(),
	}, nil
}

// NextStable derives the next stable release from currentTag. An rc tag is
// promoted unchanged, ignoring bump. A stable tag is incremented according
// to bump; the empty bump defaults to minor, any other unknown value is
// rejected rather than silently returning the version unmodified.
func NextStable(currentTag string, bump Bump) (*VersionDecision, error) {
	current, err := ParseTag(currentTag)
	if err != nil {
		return nil, err
	}

	if current.IsPreRelease() {
		promoted := current.Base()
		return &VersionDecision{
			CurrentTag:  currentTag,
			NewVersion:  promoted,
			BaseVersion: promoted,
		}, nil
	}

	bump, err = ParseBump(string(bump))
	if err != nil {
		return nil, err
	}

	next := current
	switch bump {
	case BumpMajor:
		next.Major++
		next.Minor = 0
		next.Patch = 0
	case BumpMinor:
		next.Minor++
		next.Patch = 0
	case BumpPatch:
		next.Patch++
	}

	return &VersionDecision{
		CurrentTag:  currentTag,
		NewVersion:  next,
		BaseVersion: next,
		Bump:        bump,
	}, nil
}
