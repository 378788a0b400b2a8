// Package scm reads branches, tags and files from source control hosts.
package scm

import (
	"context"
	"net/http"
	"time"

	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

var (
	ErrSCM                 apperrors.Error = apperrors.New("source control error").SetStatusCode(http.StatusBadGateway)
	ErrFileNotFound        apperrors.Error = ErrSCM.New("file not found").SetStatusCode(http.StatusNotFound)
	ErrRepositoryNotFound  apperrors.Error = ErrSCM.New("repository not found").SetStatusCode(http.StatusBadRequest)
	ErrUpstreamUnavailable apperrors.Error = ErrSCM.New("source control unavailable").SetStatusCode(http.StatusBadGateway)
	ErrUnsupported         apperrors.Error = ErrSCM.New("unsupported source control").SetStatusCode(http.StatusBadRequest)
)

// RepoCoordinate names a repository on a source control host.
type RepoCoordinate struct {
	SourceControl types.SourceControl
	Organization  string
	Repository    string
}

func (r RepoCoordinate) FullName() string {
	return r.Organization + "/" + r.Repository
}

func (r RepoCoordinate) String() string {
	return string(r.SourceControl) + "/" + r.FullName()
}

// Reference is a branch or tag together with the commit it points at.
// CommitDate is nil when the host does not report it.
type Reference struct {
	Name       string
	Type       types.ReferenceType
	CommitID   string
	CommitDate *time.Time
}

type Connector interface {
	// ListReferences returns all branches followed by all tags.
	ListReferences(ctx context.Context, repo RepoCoordinate) ([]Reference, error)
	// ReadFile returns the content of path at ref. A missing file yields ErrFileNotFound.
	ReadFile(ctx context.Context, repo RepoCoordinate, path, ref string) ([]byte, error)
}
