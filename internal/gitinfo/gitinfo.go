// Package gitinfo derives article publication dates from git history.
package gitinfo

import (
	"fmt"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
)

// Dates looks up last-commit times for files under a source directory.
type Dates struct {
	repo *git.Repository
	root string // work tree root
}

// Open locates the repository containing dir. It returns an error when dir is
// not inside a git work tree.
func Open(dir string) (*Dates, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolve work tree: %w", err)
	}
	return &Dates{repo: repo, root: wt.Filesystem.Root()}, nil
}

// LastCommitTime returns the committer time of the most recent commit that
// touched path. ok is false when the file has no history.
func (d *Dates) LastCommitTime(path string) (time.Time, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, false, err
	}
	rel, err := filepath.Rel(d.root, abs)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("path outside work tree: %w", err)
	}
	rel = filepath.ToSlash(rel)

	iter, err := d.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return time.Time{}, false, nil
	}
	return commit.Committer.When, true, nil
}
