package reltag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Releaser runs one release cut end to end: read the current tag,
// calculate the next version, publish the tag, publish the release and
// announce it. All collaborators are injected; Source and Tags are
// required, Releases and Notifiers are optional.
type Releaser struct {
	Source    TagSource
	Tags      TagPublisher
	Releases  ReleasePublisher
	Notifiers []Notifier
	Log       zerolog.Logger
}

// CutPreRelease publishes the next release candidate.
func (r *Releaser) CutPreRelease(ctx context.Context) (*VersionDecision, error) {
	return r.cut(ctx, NextPreRelease, true)
}

// CutStable publishes the next stable release.
func (r *Releaser) CutStable(ctx context.Context, bump Bump) (*VersionDecision, error) {
	return r.cut(ctx, func(tag string) (*VersionDecision, error) {
		return NextStable(tag, bump)
	}, false)
}

func (r *Releaser) cut(ctx context.Context, calculate func(string) (*VersionDecision, error), prerelease bool) (*VersionDecision, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("tag source is required")
	}
	if r.Tags == nil {
		return nil, fmt.Errorf("tag publisher is required")
	}

	currentTag, err := r.Source.Describe()
	if err != nil {
		return nil, fmt.Errorf("reading current tag: %w", err)
	}
	if currentTag == "" {
		currentTag = DefaultTag
	}

	decision, err := calculate(currentTag)
	if err != nil {
		return nil, err
	}

	version := decision.NewVersion.String()
	r.Log.Info().
		Str("current", currentTag).
		Str("next", version).
		Bool("prerelease", prerelease).
		Msg("calculated next version")

	if err := r.Tags.PublishTag(version, releaseMessage(decision)); err != nil {
		return nil, fmt.Errorf("publishing tag %s: %w", version, err)
	}
	r.Log.Info().Str("tag", version).Msg("published tag")

	var releaseURL string
	if r.Releases != nil {
		release, err := r.Releases.PublishRelease(ctx, version, releaseBody(decision), false, prerelease)
		if err != nil {
			return nil, fmt.Errorf("publishing release %s: %w", version, err)
		}
		releaseURL = release.URL
		r.Log.Info().Str("tag", version).Str("url", releaseURL).Msg("published release")
	}

	// The tag and release exist at this point; a failed announcement is
	// not a failed cut.
	for _, notifier := range r.Notifiers {
		if err := notifier.Announce(ctx, decision, releaseURL); err != nil {
			r.Log.Warn().Err(err).Str("tag", version).Msg("release announcement failed")
		}
	}

	return decision, nil
}

func releaseMessage(decision *VersionDecision) string {
	return fmt.Sprintf("Release %s", decision.NewVersion)
}

func releaseBody(decision *VersionDecision) string {
	body := fmt.Sprintf("## %s\n\nPrevious tag: `%s`\n", decision.NewVersion, decision.CurrentTag)
	if decision.NewVersion.IsPreRelease() {
		body += fmt.Sprintf("Release candidate for `%s`.\n", decision.BaseVersion)
	} else if decision.Bump != "" {
		body += fmt.Sprintf("Bump: %s.\n", decision.Bump)
	} else {
		body += fmt.Sprintf("Promoted from `%s`.\n", decision.CurrentTag)
	}
	return body
}
