// Package scmtest provides an in-memory scm.Connector for tests.
package scmtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

// Connector serves repositories held in memory. Files are keyed by reference
// name and path without the leading slash.
type Connector struct {
	mu    sync.Mutex
	repos map[string]*Repo
	// Err, when set, is returned by every call.
	Err error
	// OnList, when set, runs at the start of every ListReferences call.
	OnList func()
	reads  int
}

type Repo struct {
	Refs  []scm.Reference
	Files map[string]map[string]string
}

func New() *Connector {
	return &Connector{repos: make(map[string]*Repo)}
}

func (c *Connector) repo(r scm.RepoCoordinate) *Repo {
	key := r.FullName()
	rp, ok := c.repos[key]
	if !ok {
		rp = &Repo{Files: make(map[string]map[string]string)}
		c.repos[key] = rp
	}
	return rp
}

// SetRef adds or moves a reference.
func (c *Connector) SetRef(r scm.RepoCoordinate, name string, refType types.ReferenceType, commitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rp := c.repo(r)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range rp.Refs {
		if rp.Refs[i].Name == name {
			rp.Refs[i].Type = refType
			rp.Refs[i].CommitID = commitID
			return
		}
	}
	rp.Refs = append(rp.Refs, scm.Reference{Name: name, Type: refType, CommitID: commitID, CommitDate: &now})
}

// RemoveRef deletes a reference and its files.
func (c *Connector) RemoveRef(r scm.RepoCoordinate, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rp := c.repo(r)
	refs := rp.Refs[:0]
	for _, ref := range rp.Refs {
		if ref.Name != name {
			refs = append(refs, ref)
		}
	}
	rp.Refs = refs
	delete(rp.Files, name)
}

func (c *Connector) SetFile(r scm.RepoCoordinate, ref, path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rp := c.repo(r)
	files, ok := rp.Files[ref]
	if !ok {
		files = make(map[string]string)
		rp.Files[ref] = files
	}
	files[strings.TrimPrefix(path, "/")] = content
}

func (c *Connector) DeleteFile(r scm.RepoCoordinate, ref, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.repo(r).Files[ref], strings.TrimPrefix(path, "/"))
}

// Reads returns the number of successful and failed ReadFile calls.
func (c *Connector) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *Connector) ResetReads() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = 0
}

func (c *Connector) ListReferences(ctx context.Context, r scm.RepoCoordinate) ([]scm.Reference, error) {
	c.mu.Lock()
	hook := c.OnList
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	rp, ok := c.repos[r.FullName()]
	if !ok {
		return nil, scm.ErrRepositoryNotFound.Msg("repository " + r.FullName() + " not found")
	}
	return append([]scm.Reference(nil), rp.Refs...), nil
}

func (c *Connector) ReadFile(ctx context.Context, r scm.RepoCoordinate, path, ref string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.Err != nil {
		return nil, c.Err
	}
	rp, ok := c.repos[r.FullName()]
	if !ok {
		return nil, scm.ErrRepositoryNotFound.Msg("repository " + r.FullName() + " not found")
	}
	content, ok := rp.Files[ref][strings.TrimPrefix(path, "/")]
	if !ok {
		return nil, scm.ErrFileNotFound.Msg(path + " not found")
	}
	return []byte(content), nil
}
