// Package versionsync reconciles the stored versions of an entry with the
// branches and tags of its upstream repository.
//
// A refresh lists the upstream references and only refetches versions that are
// new, whose commit moved, whose commit is unknown or that were desynced by a
// descriptor path change. Everything a refresh decides is returned as a
// RefreshChangeSet, which the caller persists in one transaction.
package versionsync

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/imageregistry"
	"github.com/mugiliam/hatchdockstore/internal/language"
	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRefresh         apperrors.Error = apperrors.New("refresh failed").SetStatusCode(http.StatusInternalServerError)
	ErrVersionNotFound apperrors.Error = ErrRefresh.New("version not found").SetStatusCode(http.StatusBadRequest)
	ErrHostedEntry     apperrors.Error = ErrRefresh.New("hosted entries cannot be refreshed").SetStatusCode(http.StatusBadRequest)
)

// Connectors resolves the connector of a source control host.
type Connectors interface {
	Connector(sc types.SourceControl) (scm.Connector, error)
}

// AccessChecker decides whether the files a test parameter file points at are public.
type AccessChecker interface {
	PublicAccessible(ctx context.Context, lang types.DescriptorLanguage, fileInputs []string, testParamJSON []byte) *bool
}

type Options struct {
	// FetchConcurrency bounds how many versions are fetched at once.
	FetchConcurrency int
	MaxImportDepth   int
}

type Synchronizer struct {
	connectors Connectors
	checker    AccessChecker
	images     imageregistry.Resolver
	opts       Options
	now        func() time.Time
}

// New returns a Synchronizer. checker and images may be nil. Without a checker
// a version with File inputs keeps its stored public accessibility, without
// images the stored image metadata is kept.
func New(connectors Connectors, checker AccessChecker, images imageregistry.Resolver, opts Options) *Synchronizer {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 1
	}
	if opts.MaxImportDepth <= 0 {
		opts.MaxImportDepth = 10
	}
	return &Synchronizer{
		connectors: connectors,
		checker:    checker,
		images:     images,
		opts:       opts,
		now:        time.Now,
	}
}

// RefreshEntry reconciles every version of entry. Versions no longer present
// upstream are marked stale. hard refetches versions that are already synced.
func (s *Synchronizer) RefreshEntry(ctx context.Context, entry *models.Entry, stored []models.Version, hard bool) (*models.RefreshChangeSet, error) {
	return s.refresh(ctx, entry, stored, "", hard)
}

// RefreshVersion reconciles the single version called name. It fails with
// ErrVersionNotFound when there is no such branch or tag upstream.
func (s *Synchronizer) RefreshVersion(ctx context.Context, entry *models.Entry, stored []models.Version, name string, hard bool) (*models.RefreshChangeSet, error) {
	if name == "" {
		return nil, ErrVersionNotFound.Msg("version name cannot be empty")
	}
	return s.refresh(ctx, entry, stored, name, hard)
}

type plan struct {
	ref      scm.Reference
	existing *models.Version
}

func needsRefresh(v *models.Version, ref scm.Reference, hard bool) bool {
	switch {
	case hard, v == nil, v.CommitID == nil:
		return true
	case *v.CommitID != ref.CommitID:
		return true
	default:
		return !v.Synced
	}
}

func (s *Synchronizer) refresh(ctx context.Context, entry *models.Entry, stored []models.Version, only string, hard bool) (*models.RefreshChangeSet, error) {
	if entry.IsHosted() {
		return nil, ErrHostedEntry
	}
	plugin, err := language.For(entry.DescriptorLanguage)
	if err != nil {
		return nil, err
	}
	conn, err := s.connectors.Connector(entry.SourceControl)
	if err != nil {
		return nil, err
	}
	repo := scm.RepoCoordinate{
		SourceControl: entry.SourceControl,
		Organization:  entry.Organization,
		Repository:    entry.Repository,
	}
	logger := log.Ctx(ctx).With().Str("entry", entry.Path).Logger()

	refs, err := conn.ListReferences(ctx, repo)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list references")
		return nil, err
	}

	byName := make(map[string]*models.Version, len(stored))
	for i := range stored {
		byName[stored[i].Name] = &stored[i]
	}

	var (
		plans   []plan
		upstr   = make(map[string]bool, len(refs))
		skipped int
	)
	for _, ref := range refs {
		if only != "" && ref.Name != only {
			continue
		}
		// a name listed as both branch and tag keeps the first, which is the branch
		if upstr[ref.Name] {
			continue
		}
		upstr[ref.Name] = true
		existing := byName[ref.Name]
		if !needsRefresh(existing, ref, hard) {
			skipped++
			continue
		}
		plans = append(plans, plan{ref: ref, existing: existing})
	}
	if only != "" && !upstr[only] {
		return nil, ErrVersionNotFound.Msg("version " + only + " does not exist in " + repo.String())
	}

	results := make([]builtVersion, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, p := range plans {
		g.Go(func() error {
			b, err := s.buildVersion(gctx, conn, repo, plugin, entry, p)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("refresh aborted")
		return nil, err
	}

	cs := &models.RefreshChangeSet{
		EntryID:     entry.EntryID,
		SourceFiles: make(map[uuid.UUID][]models.SourceFile, len(results)),
	}
	var added []string
	for _, b := range results {
		cs.Versions = append(cs.Versions, b.version)
		cs.SourceFiles[b.version.VersionID] = b.files
		if b.isNew {
			added = append(added, b.version.Name)
		}
	}
	if only == "" {
		for i := range stored {
			if !upstr[stored[i].Name] {
				cs.StaleVersionIDs = append(cs.StaleVersionIDs, stored[i].VersionID)
			}
		}
	}
	for _, name := range added {
		n := name
		cs.Events = append(cs.Events, models.Event{
			EventID:     uuid.New(),
			EntryID:     entry.EntryID,
			VersionName: &n,
			Type:        types.EventTypeAddVersion,
		})
	}
	details, _ := json.Marshal(map[string]any{
		"hard":      hard,
		"version":   only,
		"refreshed": len(cs.Versions),
		"skipped":   skipped,
		"deleted":   len(cs.StaleVersionIDs),
	})
	cs.Events = append(cs.Events, models.Event{
		EventID: uuid.New(),
		EntryID: entry.EntryID,
		Type:    types.EventTypeRefresh,
		Details: details,
	})

	logger.Info().
		Int("refreshed", len(cs.Versions)).
		Int("skipped", skipped).
		Int("deleted", len(cs.StaleVersionIDs)).
		Bool("hard", hard).
		Msg("refresh computed")
	return cs, nil
}
