package entrymanager

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/memdb"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/dockstoreyml"
	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/internal/scm/scmtest"
	"github.com/mugiliam/hatchdockstore/internal/versionsync"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowCWL = `cwlVersion: v1.0
class: Workflow
doc: Counts lines.
inputs: []
outputs: []
steps: []
`

const toolCWL = `cwlVersion: v1.0
class: CommandLineTool
baseCommand: echo
inputs: []
outputs: []
`

var repo = scm.RepoCoordinate{
	SourceControl: types.SourceControlGitHub,
	Organization:  "DockstoreTestUser2",
	Repository:    "hello-dockstore-workflow",
}

func setup(t *testing.T) (context.Context, *Manager, *scmtest.Connector) {
	t.Helper()
	db.UseMemory(memdb.New())
	ctx := db.ConnCtx(log.Logger.WithContext(context.Background()))
	conn := scmtest.New()
	reg := scm.NewRegistry()
	reg.Register(types.SourceControlGitHub, conn)
	return ctx, New(reg, versionsync.New(reg, nil, nil, versionsync.Options{})), conn
}

func seed(conn *scmtest.Connector) {
	conn.SetRef(repo, "master", types.ReferenceTypeBranch, "c1")
	conn.SetFile(repo, "master", "/Dockstore.cwl", workflowCWL)
	conn.SetRef(repo, "develop", types.ReferenceTypeBranch, "c2")
	conn.SetFile(repo, "develop", "/Dockstore.cwl", workflowCWL)
	conn.SetRef(repo, "broken", types.ReferenceTypeBranch, "c3")
	conn.SetFile(repo, "broken", "/Dockstore.cwl", toolCWL)
}

func registerRequest(name string) *RegisterRequest {
	return &RegisterRequest{
		SourceControl:      string(repo.SourceControl),
		Organization:       repo.Organization,
		Repository:         repo.Repository,
		EntryName:          name,
		EntryType:          string(types.EntryTypeWorkflow),
		DescriptorLanguage: "cwl",
		DescriptorPath:     "/Dockstore.cwl",
	}
}

func registerAndRefresh(t *testing.T, ctx context.Context, m *Manager, name string) *Detail {
	t.Helper()
	e, err := m.Register(ctx, registerRequest(name))
	require.NoError(t, err)
	d, err := m.Refresh(ctx, e.EntryID, false)
	require.NoError(t, err)
	return d
}

func versionByName(d *Detail, name string) *models.Version {
	for i := range d.Versions {
		if d.Versions[i].Name == name {
			return &d.Versions[i]
		}
	}
	return nil
}

func eventTypes(events []models.Event) []types.EventType {
	var out []types.EventType
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestRegister(t *testing.T) {
	ctx, m, _ := setup(t)

	e, err := m.Register(ctx, registerRequest(""))
	require.NoError(t, err)
	assert.Equal(t, "github.com/DockstoreTestUser2/hello-dockstore-workflow", e.Path)
	assert.Equal(t, types.WorkflowModeFull, e.Mode)
	assert.Equal(t, types.DescriptorLanguageCWL, e.DescriptorLanguage)

	_, err = m.Register(ctx, registerRequest(""))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	req := registerRequest("other")
	req.DescriptorPath = "Dockstore.cwl"
	_, err = m.Register(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "descriptor_path")

	req = registerRequest("other")
	req.SourceControl = string(types.SourceControlDockstore)
	_, err = m.Register(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	entries, err := m.List(ctx, types.SourceControlGitHub, repo.Organization)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = m.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestRefresh(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)

	d := registerAndRefresh(t, ctx, m, "")
	require.Len(t, d.Versions, 3)
	assert.True(t, versionByName(d, "master").Valid)
	assert.False(t, versionByName(d, "broken").Valid)

	_, err := m.RefreshVersion(ctx, d.Entry.EntryID, "missing", false)
	assert.ErrorIs(t, err, versionsync.ErrVersionNotFound)

	conn.RemoveRef(repo, "develop")
	d, err = m.Refresh(ctx, d.Entry.EntryID, false)
	require.NoError(t, err)
	assert.Len(t, d.Versions, 2)
	assert.Nil(t, versionByName(d, "develop"))

	events, err := m.ListEvents(ctx, d.Entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, types.EventTypeRegister, events[0].Type)
	assert.Contains(t, eventTypes(events), types.EventTypeAddVersion)
	assert.Contains(t, eventTypes(events), types.EventTypeRefresh)
}

func TestRefreshKeepsConcurrentEdits(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)
	d := registerAndRefresh(t, ctx, m, "")
	id := d.Entry.EntryID
	_, err := m.SetDefaultVersion(ctx, id, "master")
	require.NoError(t, err)

	// edits land while the refresh is reading upstream
	conn.OnList = func() {
		_, err := m.SetDefaultVersion(ctx, id, "develop")
		require.NoError(t, err)
		_, err = m.SetVersionHidden(ctx, id, "master", true)
		require.NoError(t, err)
		_, err = m.UpdateDefaultDescriptorPath(ctx, id, "/other.cwl")
		require.NoError(t, err)
	}
	d, err = m.Refresh(ctx, id, true)
	conn.OnList = nil
	require.NoError(t, err)

	require.NotNil(t, d.Entry.DefaultVersion)
	assert.Equal(t, "develop", *d.Entry.DefaultVersion)
	assert.Equal(t, "/other.cwl", d.Entry.DefaultDescriptorPath)
	master := versionByName(d, "master")
	assert.True(t, master.Hidden)
	// validated against the old path, so not synced with the new one
	assert.False(t, master.Synced)
	assert.False(t, versionByName(d, "develop").Synced)

	d, err = m.Refresh(ctx, id, false)
	require.NoError(t, err)
	master = versionByName(d, "master")
	assert.True(t, master.Synced)
	assert.Equal(t, "/other.cwl", master.DescriptorPath)
	assert.False(t, master.Valid)
	assert.True(t, versionByName(d, "master").Hidden)
	assert.Equal(t, "develop", *d.Entry.DefaultVersion)
}

func TestHiddenDefaultVersion(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)
	d := registerAndRefresh(t, ctx, m, "")
	id := d.Entry.EntryID

	e, err := m.SetDefaultVersion(ctx, id, "master")
	require.NoError(t, err)
	assert.Equal(t, "master", *e.DefaultVersion)
	assert.Equal(t, "Counts lines.", e.Description)

	_, err = m.SetVersionHidden(ctx, id, "master", true)
	assert.ErrorIs(t, err, ErrHiddenDefaultVersion)

	v, err := m.SetVersionHidden(ctx, id, "develop", true)
	require.NoError(t, err)
	assert.True(t, v.Hidden)

	_, err = m.SetDefaultVersion(ctx, id, "develop")
	assert.ErrorIs(t, err, ErrHiddenDefaultVersion)

	_, err = m.SetDefaultVersion(ctx, id, "nope")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	d, err = m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "master", *d.Entry.DefaultVersion)
	assert.False(t, versionByName(d, "master").Hidden)
}

func TestDescriptorPaths(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)
	d := registerAndRefresh(t, ctx, m, "")
	id := d.Entry.EntryID

	v, err := m.UpdateVersionDescriptorPath(ctx, id, "master", "/other.cwl")
	require.NoError(t, err)
	assert.True(t, v.DirtyBit)
	assert.False(t, v.Synced)
	assert.Equal(t, "/other.cwl", *v.DescriptorPathOverride)

	d, err = m.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, versionByName(d, "develop").Synced)

	d, err = m.Refresh(ctx, id, false)
	require.NoError(t, err)
	master := versionByName(d, "master")
	assert.False(t, master.Valid)
	assert.Contains(t, master.ValidationMessage, "/other.cwl")

	v, err = m.UpdateVersionDescriptorPath(ctx, id, "master", "/Dockstore.cwl")
	require.NoError(t, err)
	assert.False(t, v.DirtyBit)
	assert.Nil(t, v.DescriptorPathOverride)

	_, err = m.UpdateVersionDescriptorPath(ctx, id, "master", "/a/../b.cwl")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	n, err := m.UpdateDefaultDescriptorPath(ctx, id, "/moved.cwl")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPublish(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)

	e, err := m.Register(ctx, registerRequest(""))
	require.NoError(t, err)
	_, err = m.Publish(ctx, e.EntryID)
	assert.ErrorIs(t, err, ErrNoValidVersion)

	_, err = m.Refresh(ctx, e.EntryID, false)
	require.NoError(t, err)
	e, err = m.Publish(ctx, e.EntryID)
	require.NoError(t, err)
	assert.True(t, e.IsPublished)
	_, err = m.Publish(ctx, e.EntryID)
	require.NoError(t, err)

	n, err := m.CountPublished(ctx, types.EntryTypeWorkflow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = m.CountPublished(ctx, types.EntryTypeTool)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, m.Delete(ctx, e.EntryID), ErrPublishedEntry)

	_, err = m.Unpublish(ctx, e.EntryID)
	require.NoError(t, err)
	events, err := m.ListEvents(ctx, e.EntryID)
	require.NoError(t, err)
	publishes := 0
	for _, ev := range events {
		if ev.Type == types.EventTypePublish {
			publishes++
		}
	}
	assert.Equal(t, 1, publishes)
	assert.Contains(t, eventTypes(events), types.EventTypeUnpublish)

	require.NoError(t, m.Delete(ctx, e.EntryID))
	_, err = m.Get(ctx, e.EntryID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestCheckerWorkflows(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)
	a, err := m.Register(ctx, registerRequest("a"))
	require.NoError(t, err)
	b, err := m.Register(ctx, registerRequest("b"))
	require.NoError(t, err)

	checker, err := m.AddCheckerWorkflow(ctx, a.EntryID, &AddCheckerRequest{DescriptorPath: "/checker.cwl"})
	require.NoError(t, err)
	assert.True(t, checker.IsChecker)
	assert.Equal(t, "a_cwl_checker", checker.EntryName)

	_, err = m.AddCheckerWorkflow(ctx, a.EntryID, &AddCheckerRequest{DescriptorPath: "/checker.cwl"})
	assert.ErrorIs(t, err, ErrInvalidChecker)

	_, err = m.AssignChecker(ctx, b.EntryID, checker.EntryID)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = m.AssignChecker(ctx, b.EntryID, a.EntryID)
	assert.ErrorIs(t, err, ErrInvalidChecker)

	_, err = m.AssignChecker(ctx, b.EntryID, b.EntryID)
	assert.ErrorIs(t, err, ErrInvalidChecker)

	d, err := m.Get(ctx, a.EntryID)
	require.NoError(t, err)
	require.NotNil(t, d.Entry.CheckerID)
	assert.Equal(t, checker.EntryID, *d.Entry.CheckerID)

	events, err := m.ListEvents(ctx, a.EntryID)
	require.NoError(t, err)
	assert.Contains(t, eventTypes(events), types.EventTypeAddChecker)
}

func content(s string) types.NullableString {
	return types.NewNullableString(s)
}

// removed is the explicit null content that deletes a hosted file.
var removed = types.NullableString{Set: true}

func TestHostedEdits(t *testing.T) {
	ctx, m, _ := setup(t)

	e, err := m.CreateHosted(ctx, &CreateHostedRequest{
		Organization:       "jane",
		Name:               "counter",
		EntryType:          string(types.EntryTypeWorkflow),
		DescriptorLanguage: "CWL",
	})
	require.NoError(t, err)
	assert.Equal(t, types.SourceControlDockstore, e.SourceControl)
	assert.Equal(t, "/Dockstore.cwl", e.DefaultDescriptorPath)

	v, err := m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/Dockstore.cwl", Content: content(workflowCWL)},
	}})
	require.NoError(t, err)
	assert.Equal(t, "1", v.Name)
	assert.True(t, v.Valid, v.ValidationMessage)
	assert.Equal(t, types.ReferenceTypeNone, v.ReferenceType)

	_, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/Dockstore.cwl", Content: content(workflowCWL)},
	}})
	assert.ErrorIs(t, err, ErrNoChanges)

	v, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/notes.cwl", Content: content(toolCWL)},
	}})
	require.NoError(t, err)
	assert.Equal(t, "2", v.Name)
	files, err := db.DB(ctx).ListSourceFiles(ctx, v.VersionID)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	v, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/notes.cwl", Content: removed},
	}})
	require.NoError(t, err)
	assert.Equal(t, "3", v.Name)
	files, err = db.DB(ctx).ListSourceFiles(ctx, v.VersionID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	d, err := m.Get(ctx, e.EntryID)
	require.NoError(t, err)
	assert.Len(t, d.Versions, 3)
	assert.Equal(t, "3", *d.Entry.DefaultVersion)
	assert.Equal(t, "Counts lines.", d.Entry.Description)

	_, err = m.Refresh(ctx, e.EntryID, false)
	assert.ErrorIs(t, err, versionsync.ErrHostedEntry)

	_, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// an absent content only retypes a file that already exists
	_, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/missing.cwl", Type: types.FileTypeCWL},
	}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// editingStore runs onList once, in the middle of the next hosted edit, after
// that edit has read the latest version.
type editingStore struct {
	*memdb.MemDB
	onList func()
}

func (s *editingStore) ListSourceFiles(ctx context.Context, versionID uuid.UUID) ([]models.SourceFile, error) {
	if f := s.onList; f != nil {
		s.onList = nil
		f()
	}
	return s.MemDB.ListSourceFiles(ctx, versionID)
}

func TestConcurrentHostedEdits(t *testing.T) {
	_, m, _ := setup(t)
	store := &editingStore{MemDB: memdb.New()}
	ctx := db.WithDB(log.Logger.WithContext(context.Background()), store)

	e, err := m.CreateHosted(ctx, &CreateHostedRequest{
		Organization:       "jane",
		Name:               "counter",
		EntryType:          string(types.EntryTypeWorkflow),
		DescriptorLanguage: "CWL",
	})
	require.NoError(t, err)
	_, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/Dockstore.cwl", Content: content(workflowCWL)},
	}})
	require.NoError(t, err)

	store.onList = func() {
		v, err := m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
			{Path: "/first.cwl", Content: content(toolCWL)},
		}})
		require.NoError(t, err)
		assert.Equal(t, "2", v.Name)
	}
	_, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/second.cwl", Content: content(toolCWL)},
	}})
	assert.ErrorIs(t, err, ErrConcurrentEdit)

	versions, err := store.ListVersions(ctx, e.EntryID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	files, err := store.ListSourceFiles(ctx, versions[1].VersionID)
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.AbsolutePath)
	}
	assert.Equal(t, []string{"/Dockstore.cwl", "/first.cwl"}, paths)
}

func TestEditNonHostedEntry(t *testing.T) {
	ctx, m, _ := setup(t)
	e, err := m.Register(ctx, registerRequest(""))
	require.NoError(t, err)
	_, err = m.EditHosted(ctx, e.EntryID, &EditHostedRequest{Files: []HostedFile{
		{Path: "/Dockstore.cwl", Content: content(workflowCWL)},
	}})
	assert.ErrorIs(t, err, ErrNotHosted)
}

func TestRefreshOrganization(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)
	_, err := m.Register(ctx, registerRequest(""))
	require.NoError(t, err)
	req := registerRequest("")
	req.Repository = "gone"
	_, err = m.Register(ctx, req)
	require.NoError(t, err)

	res, err := m.RefreshOrganization(ctx, types.SourceControlGitHub, repo.Organization)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "github.com/DockstoreTestUser2/gone", res.Errors[0].EntryPath)
}

const dockstoreYml = `version: 1.2
workflows:
  - name: counter
    subclass: CWL
    primaryDescriptorPath: /Dockstore.cwl
    publish: true
    authors:
      - name: Jane Doe
        email: jane@example.org
    filters:
      branches: [master]
`

func TestDiscoverEntries(t *testing.T) {
	ctx, m, conn := setup(t)
	seed(conn)
	conn.SetFile(repo, "master", dockstoreyml.Path, dockstoreYml)
	conn.SetFile(repo, "develop", dockstoreyml.Path, dockstoreYml)

	req := &DiscoverRequest{
		SourceControl: string(repo.SourceControl),
		Organization:  repo.Organization,
		Repository:    repo.Repository,
		Reference:     "master",
	}
	entries, err := m.DiscoverEntries(ctx, req)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "github.com/DockstoreTestUser2/hello-dockstore-workflow/counter", e.Path)
	assert.Equal(t, types.WorkflowModeDockstoreYml, e.Mode)
	assert.True(t, e.IsPublished)

	req.Reference = "develop"
	_, err = m.DiscoverEntries(ctx, req)
	require.NoError(t, err)
	d, err := m.Get(ctx, e.EntryID)
	require.NoError(t, err)
	require.Len(t, d.Versions, 1)
	assert.Equal(t, "master", d.Versions[0].Name)

	req.Reference = "broken"
	_, err = m.DiscoverEntries(ctx, req)
	assert.ErrorIs(t, err, dockstoreyml.ErrInvalidDockstoreYml)

	req.Reference = "nope"
	_, err = m.DiscoverEntries(ctx, req)
	assert.ErrorIs(t, err, ErrVersionNotFound)
}
