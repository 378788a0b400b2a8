package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mugiliam/hatchdockstore/pkg/types"
)

const githubPageSize = 100

// maxPages bounds reference listing on every host. A repository with more
// references fails the listing rather than yielding a partial one.
const maxPages = 50

type GitHub struct {
	apiBase string
	client  *http.Client
}

func NewGitHub(apiBase string, client *http.Client) *GitHub {
	return &GitHub{apiBase: strings.TrimRight(apiBase, "/"), client: client}
}

type githubRef struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

func (g *GitHub) ListReferences(ctx context.Context, repo RepoCoordinate) ([]Reference, error) {
	branches, err := g.list(ctx, repo, "branches", types.ReferenceTypeBranch)
	if err != nil {
		return nil, err
	}
	tags, err := g.list(ctx, repo, "tags", types.ReferenceTypeTag)
	if err != nil {
		return nil, err
	}
	return append(branches, tags...), nil
}

func (g *GitHub) list(ctx context.Context, repo RepoCoordinate, kind string, refType types.ReferenceType) ([]Reference, error) {
	var refs []Reference
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, tooManyPages(repo, kind)
		}
		u := fmt.Sprintf("%s/repos/%s/%s/%s?per_page=%d&page=%d", g.apiBase,
			url.PathEscape(repo.Organization), url.PathEscape(repo.Repository), kind, githubPageSize, page)
		body, status, err := get(ctx, g.client, u, "application/vnd.github.v3+json")
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, statusError(status, body, ErrRepositoryNotFound, "repository "+repo.FullName())
		}
		var items []githubRef
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, ErrUpstreamUnavailable.MsgErr("decoding "+kind+" of "+repo.FullName(), err)
		}
		for _, it := range items {
			refs = append(refs, Reference{Name: it.Name, Type: refType, CommitID: it.Commit.SHA})
		}
		if len(items) < githubPageSize {
			return refs, nil
		}
	}
}

// ReadFile uses the contents API with the raw media type.
func (g *GitHub) ReadFile(ctx context.Context, repo RepoCoordinate, path, ref string) ([]byte, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", g.apiBase,
		url.PathEscape(repo.Organization), url.PathEscape(repo.Repository),
		escapePath(path), url.QueryEscape(ref))
	body, status, err := get(ctx, g.client, u, "application/vnd.github.v3.raw")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status, body, ErrFileNotFound, path)
	}
	return body, nil
}

// escapePath escapes every segment of a repository path and drops the leading slash.
func escapePath(p string) string {
	segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
