package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mugiliam/hatchdockstore/pkg/types"
)

const gitlabPageSize = 100

// GitLab talks to the GitLab v4 API. Projects are addressed by their url
// encoded full path.
type GitLab struct {
	apiBase string
	client  *http.Client
}

func NewGitLab(apiBase string, client *http.Client) *GitLab {
	return &GitLab{apiBase: strings.TrimRight(apiBase, "/"), client: client}
}

type gitlabRef struct {
	Name   string `json:"name"`
	Commit struct {
		ID            string     `json:"id"`
		CommittedDate *time.Time `json:"committed_date"`
	} `json:"commit"`
}

func (g *GitLab) project(repo RepoCoordinate) string {
	return url.PathEscape(repo.FullName())
}

func (g *GitLab) ListReferences(ctx context.Context, repo RepoCoordinate) ([]Reference, error) {
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

func (g *GitLab) list(ctx context.Context, repo RepoCoordinate, kind string, refType types.ReferenceType) ([]Reference, error) {
	var refs []Reference
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, tooManyPages(repo, kind)
		}
		u := fmt.Sprintf("%s/projects/%s/repository/%s?per_page=%d&page=%d", g.apiBase, g.project(repo), kind, gitlabPageSize, page)
		body, status, err := get(ctx, g.client, u, "application/json")
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, statusError(status, body, ErrRepositoryNotFound, "repository "+repo.FullName())
		}
		var items []gitlabRef
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, ErrUpstreamUnavailable.MsgErr("decoding "+kind+" of "+repo.FullName(), err)
		}
		for _, it := range items {
			refs = append(refs, Reference{Name: it.Name, Type: refType, CommitID: it.Commit.ID, CommitDate: it.Commit.CommittedDate})
		}
		if len(items) < gitlabPageSize {
			return refs, nil
		}
	}
}

func (g *GitLab) ReadFile(ctx context.Context, repo RepoCoordinate, path, ref string) ([]byte, error) {
	u := fmt.Sprintf("%s/projects/%s/repository/files/%s/raw?ref=%s", g.apiBase, g.project(repo),
		url.PathEscape(strings.TrimPrefix(path, "/")), url.QueryEscape(ref))
	body, status, err := get(ctx, g.client, u, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status, body, ErrFileNotFound, path)
	}
	return body, nil
}
