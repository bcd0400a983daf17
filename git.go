package reltag

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// OpenRepository opens a Git repository at the specified path.
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// GitTags reads and writes release tags of a repository. It implements
// TagSource and TagPublisher.
//
// Tagger is used for annotated tags; when nil, PublishTag creates
// lightweight tags.
type GitTags struct {
	repo   *git.Repository
	Tagger *object.Signature
}

// NewGitTags wraps a repository.
func NewGitTags(repo *git.Repository) *GitTags {
	return &GitTags{repo: repo}
}

// Describe returns the most recent release tag reachable from HEAD,
// or DefaultTag when no commit carries one. Tags that do not satisfy the
// release tag grammar (vMAJOR.MINOR.PATCH[-rc.N]) are ignored.
func (g *GitTags) Describe() (string, error) {
	if g.repo == nil {
		return "", fmt.Errorf("repository is required")
	}

	head, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Empty repository, nothing tagged yet.
			return DefaultTag, nil
		}
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	found, ref, err := g.mostRecentReleaseTag(head.Hash())
	if err != nil {
		return "", fmt.Errorf("walking tag history: %w", err)
	}
	if !found {
		return DefaultTag, nil
	}

	return ref.Name().Short(), nil
}

// PublishTag tags HEAD with the given version, replacing any existing tag
// of the same name so that retrying a release is a no-op retag.
func (g *GitTags) PublishTag(version, message string) error {
	if g.repo == nil {
		return fmt.Errorf("repository is required")
	}

	head, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}

	if _, err := g.repo.Tag(version); err == nil {
		if err := g.repo.DeleteTag(version); err != nil {
			return fmt.Errorf("deleting existing tag %q: %w", version, err)
		}
	}

	var opts *git.CreateTagOptions
	if g.Tagger != nil {
		tagger := *g.Tagger
		if tagger.When.IsZero() {
			tagger.When = time.Now()
		}
		opts = &git.CreateTagOptions{Tagger: &tagger, Message: message}
	}

	if _, err := g.repo.CreateTag(version, head.Hash(), opts); err != nil {
		return fmt.Errorf("creating tag %q: %w", version, err)
	}

	return nil
}

// releaseTagAt returns the release tag pointing at hash, if any. Both
// annotated and lightweight tags are considered.
func (g *GitTags) releaseTagAt(hash plumbing.Hash) (bool, *plumbing.Reference, error) {
	tags, err := g.repo.Tags()
	if err != nil {
		return false, nil, fmt.Errorf("listing tags: %w", err)
	}

	var match *plumbing.Reference
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		if _, err := ParseTag(ref.Name().Short()); err != nil {
			return nil
		}

		obj, err := g.repo.TagObject(ref.Hash())
		switch err {
		case nil:
			// Annotated tag
			if obj.Target == hash {
				match = ref
				return storer.ErrStop
			}
		case plumbing.ErrObjectNotFound:
			// Lightweight tag
			if ref.Hash() == hash {
				match = ref
				return storer.ErrStop
			}
		default:
			return err
		}

		return nil
	})

	return match != nil, match, err
}

// mostRecentReleaseTag walks the commit history from ref in preorder and
// returns the first release tag encountered.
func (g *GitTags) mostRecentReleaseTag(ref plumbing.Hash) (bool, *plumbing.Reference, error) {
	commit, err := g.repo.CommitObject(ref)
	if err != nil {
		return false, nil, fmt.Errorf("getting commit object: %w", err)
	}

	var recent *plumbing.Reference
	walker := object.NewCommitPreorderIter(commit, nil, nil)

	err = walker.ForEach(func(commit *object.Commit) error {
		found, tag, err := g.releaseTagAt(commit.Hash)
		if err != nil {
			return err
		}

		if found {
			recent = tag
			return storer.ErrStop
		}

		return nil
	})

	return recent != nil, recent, err
}
