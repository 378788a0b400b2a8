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

// Bitbucket talks to the Bitbucket Cloud 2.0 API.
type Bitbucket struct {
	apiBase string
	client  *http.Client
}

func NewBitbucket(apiBase string, client *http.Client) *Bitbucket {
	return &Bitbucket{apiBase: strings.TrimRight(apiBase, "/"), client: client}
}

type bitbucketRefPage struct {
	Values []struct {
		Name   string `json:"name"`
		Target struct {
			Hash string    `json:"hash"`
			Date time.Time `json:"date"`
		} `json:"target"`
	} `json:"values"`
	Next string `json:"next"`
}

func (b *Bitbucket) ListReferences(ctx context.Context, repo RepoCoordinate) ([]Reference, error) {
	branches, err := b.list(ctx, repo, "branches", types.ReferenceTypeBranch)
	if err != nil {
		return nil, err
	}
	tags, err := b.list(ctx, repo, "tags", types.ReferenceTypeTag)
	if err != nil {
		return nil, err
	}
	return append(branches, tags...), nil
}

func (b *Bitbucket) list(ctx context.Context, repo RepoCoordinate, kind string, refType types.ReferenceType) ([]Reference, error) {
	var refs []Reference
	next := fmt.Sprintf("%s/repositories/%s/%s/refs/%s?pagelen=100", b.apiBase,
		url.PathEscape(repo.Organization), url.PathEscape(repo.Repository), kind)
	for page := 0; next != "" && page < maxPages; page++ {
		body, status, err := get(ctx, b.client, next, "application/json")
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, statusError(status, body, ErrRepositoryNotFound, "repository "+repo.FullName())
		}
		var p bitbucketRefPage
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, ErrUpstreamUnavailable.MsgErr("decoding "+kind+" of "+repo.FullName(), err)
		}
		for _, v := range p.Values {
			ref := Reference{Name: v.Name, Type: refType, CommitID: v.Target.Hash}
			if !v.Target.Date.IsZero() {
				d := v.Target.Date
				ref.CommitDate = &d
			}
			refs = append(refs, ref)
		}
		next = p.Next
	}
	if next != "" {
		return nil, tooManyPages(repo, kind)
	}
	return refs, nil
}

func (b *Bitbucket) ReadFile(ctx context.Context, repo RepoCoordinate, path, ref string) ([]byte, error) {
	u := fmt.Sprintf("%s/repositories/%s/%s/src/%s/%s", b.apiBase,
		url.PathEscape(repo.Organization), url.PathEscape(repo.Repository), url.PathEscape(ref), escapePath(path))
	body, status, err := get(ctx, b.client, u, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status, body, ErrFileNotFound, path)
	}
	return body, nil
}
