package scm

import (
	"sync"

	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

// Registry maps a source control host to its connector.
type Registry struct {
	mu         sync.RWMutex
	connectors map[types.SourceControl]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: make(map[types.SourceControl]Connector)}
}

// NewRegistryFromConfig registers the GitHub, Bitbucket and GitLab connectors.
func NewRegistryFromConfig(cfg config.SCMConfig) *Registry {
	r := NewRegistry()
	r.Register(types.SourceControlGitHub, NewGitHub(cfg.GitHubAPIBase, NewHTTPClient(cfg.GitHubToken, cfg.Timeout())))
	r.Register(types.SourceControlBitbucket, NewBitbucket(cfg.BitbucketAPIBase, NewHTTPClient(cfg.BitbucketToken, cfg.Timeout())))
	r.Register(types.SourceControlGitLab, NewGitLab(cfg.GitLabAPIBase, NewHTTPClient(cfg.GitLabToken, cfg.Timeout())))
	return r
}

func (r *Registry) Register(sc types.SourceControl, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[sc] = c
}

func (r *Registry) Connector(sc types.SourceControl) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[sc]
	if !ok {
		return nil, ErrUnsupported.Msg("no connector for " + string(sc))
	}
	return c, nil
}
