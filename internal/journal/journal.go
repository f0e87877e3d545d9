// Package journal records project mutations as git commits using go-git, so
// a project directory carries a browsable change log alongside the store's
// own snapshot history. The journal is an optional add-on: the store is fully
// functional without it.
package journal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Journal is a git repository at a project root that receives one commit per
// store mutation.
type Journal struct {
	dir   string
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex
}

// Commit describes one recorded mutation.
type Commit struct {
	Hash    string
	Message string
	Author  string
	Email   string
	When    time.Time
}

// Open opens the git repository at dir, initializing it if none exists.
// name and email identify the committer; empty values get neutral defaults.
func Open(dir, name, email string) (*Journal, error) {
	if name == "" {
		name = "inkdb"
	}
	if email == "" {
		email = "inkdb@localhost"
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize journal repository: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read journal config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write journal config: %w", err)
		}
	}

	return &Journal{dir: dir, name: name, email: email, repo: repo}, nil
}

// OpenExisting opens the journal at dir, failing when none exists. It never
// initializes a repository, so read-only consumers can check a project for a
// journal without leaving one behind.
func OpenExisting(dir string) (*Journal, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("no journal at %s: %w", dir, err)
	}
	return &Journal{dir: dir, name: "inkdb", email: "inkdb@localhost", repo: repo}, nil
}

// Record stages the given root-relative files (including deletions) and
// commits them with msg. Recording nothing, or files whose staging leaves the
// worktree clean, is a no-op.
func (j *Journal) Record(msg string, files ...string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(files) == 0 {
		return nil
	}

	w, err := j.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	for _, f := range files {
		if _, err := w.Add(f); err != nil {
			return fmt.Errorf("failed to stage %s: %w", f, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	now := time.Now()
	sig := &object.Signature{Name: j.name, Email: j.email, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// History returns the commits touching path (the whole project when path is
// empty), newest first, limited to n entries. n is capped at 1000 and
// defaults to 1000 when non-positive. A repository with no commits yet has an
// empty history.
func (j *Journal) History(path string, n int) ([]*Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}

	opts := &gogit.LogOptions{}
	if path != "" && path != "." {
		opts.FileName = &path
	}
	iter, err := j.repo.Log(opts)
	if err != nil {
		return nil, nil
	}
	defer iter.Close()

	var commits []*Commit
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
		})
	}
	return commits, nil
}

// FileAt retrieves the content of a root-relative file at a specific commit.
// "HEAD" resolves to the current head commit.
func (j *Journal) FileAt(hash, path string) ([]byte, error) {
	h := plumbing.NewHash(hash)
	if hash == "HEAD" {
		ref, err := j.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		h = ref.Hash()
	}

	c, err := j.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	f, err := c.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s at commit %s: %w", path, hash, err)
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}
