package lfs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitattributes"
)

// Tracker answers whether paths in a work tree are routed through the LFS
// filter by .gitattributes.
type Tracker struct {
	root    string
	matcher gitattributes.Matcher
}

// OpenTracker reads every .gitattributes file of the work tree containing dir.
func OpenTracker(dir string) (*Tracker, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repo at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	patterns, err := gitattributes.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("reading .gitattributes: %w", err)
	}
	return &Tracker{
		root:    wt.Filesystem.Root(),
		matcher: gitattributes.NewMatcher(patterns),
	}, nil
}

// Root returns the work tree root.
func (t *Tracker) Root() string {
	return t.root
}

// IsTracked reports whether path has filter=lfs. Relative paths are
// resolved against the current directory.
func (t *Tracker) IsTracked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(t.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	attrs, matched := t.matcher.Match(parts, []string{"filter"})
	if !matched {
		return false
	}
	filter, ok := attrs["filter"]
	return ok && filter.IsValueSet() && filter.Value() == "lfs"
}
