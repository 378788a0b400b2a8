//go:build database

// To run these tests start a Postgres container, e.g.
//
//	docker run --rm --name=db-test -e POSTGRES_PASSWORD=postgres -p 5432:5432 postgres:15
//
// and run "go test -tags database ./internal/db/...".

package db

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/db/postgresql"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var initOnce sync.Once

func newDb(c ...context.Context) context.Context {
	ctx := log.Logger.WithContext(context.Background())
	if len(c) > 0 {
		ctx = c[0]
	}
	initOnce.Do(func() {
		cfg := config.DefaultConfig().DB
		cfg.Driver = "postgresql"
		if host := os.Getenv("HATCH_DB_HOST"); host != "" {
			cfg.Host = host
		}
		cfg.Password = "postgres"
		if pw := os.Getenv("HATCH_DB_PASSWORD"); pw != "" {
			cfg.Password = pw
		}
		if err := Init(ctx, cfg); err != nil {
			panic(err)
		}
		conn := Conn(ctx)
		if conn == nil {
			panic("no database connection")
		}
		defer conn.Close(ctx)
		if err := postgresql.ApplySchema(ctx, conn); err != nil {
			panic(err)
		}
	})
	return ConnCtx(ctx)
}

func testEntry() *models.Entry {
	return &models.Entry{
		EntryType:             types.EntryTypeWorkflow,
		SourceControl:         types.SourceControlBitbucket,
		Organization:          "DockstoreTestUser2",
		Repository:            "dockstore-workflow",
		EntryName:             uuid.NewString()[:8],
		DescriptorLanguage:    types.DescriptorLanguageCWL,
		DefaultDescriptorPath: "/Dockstore.cwl",
	}
}

func TestCreateEntry(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)

	e := testEntry()
	err := DB(ctx).CreateEntry(ctx, e)
	assert.NoError(t, err)
	defer DB(ctx).DeleteEntry(ctx, e.EntryID)

	dup := testEntry()
	dup.EntryName = e.EntryName
	err = DB(ctx).CreateEntry(ctx, dup)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	got, err := DB(ctx).GetEntryByPath(ctx, e.Path)
	require.NoError(t, err)
	assert.Equal(t, e.EntryID, got.EntryID)
	assert.Equal(t, types.WorkflowModeFull, got.Mode)

	_, err = DB(ctx).GetEntry(ctx, uuid.New())
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestVersionsAndRefresh(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)

	e := testEntry()
	require.NoError(t, DB(ctx).CreateEntry(ctx, e))
	defer DB(ctx).DeleteEntry(ctx, e.EntryID)

	master := &models.Version{EntryID: e.EntryID, Name: "master", Reference: "master",
		ReferenceType: types.ReferenceTypeBranch, Synced: true, TestParameterPaths: []string{"/test.json"}}
	require.NoError(t, DB(ctx).CreateVersion(ctx, master, []models.SourceFile{
		{Type: types.FileTypeCWL, AbsolutePath: "/Dockstore.cwl", Content: "class: Workflow"},
	}))
	err := DB(ctx).CreateVersion(ctx, &models.Version{EntryID: e.EntryID, Name: "master",
		ReferenceType: types.ReferenceTypeBranch}, nil)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	files, err := DB(ctx).ListSourceFiles(ctx, master.VersionID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "class: Workflow", files[0].Content)

	n, err := DB(ctx).UpdateDefaultDescriptorPath(ctx, e.EntryID, "/new.cwl")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := DB(ctx).GetVersion(ctx, e.EntryID, "master")
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.Equal(t, []string{"/test.json"}, got.TestParameterPaths)

	proposed := uuid.New()
	cs := &models.RefreshChangeSet{
		EntryID: e.EntryID,
		Versions: []models.Version{{VersionID: proposed, Name: "master", Reference: "master",
			ReferenceType: types.ReferenceTypeBranch, Valid: true, Synced: true, DescriptorPath: "/new.cwl",
			ImageMetadata: &models.ImageMetadata{ImageID: "sha256:abc", Size: 10}}},
		SourceFiles: map[uuid.UUID][]models.SourceFile{
			proposed: {{Type: types.FileTypeCWL, AbsolutePath: "/new.cwl", Content: "class: Workflow\n"}},
		},
		Events: []models.Event{{Type: types.EventTypeRefresh}},
	}
	require.NoError(t, DB(ctx).SaveRefresh(ctx, cs))

	versions, err := DB(ctx).ListVersions(ctx, e.EntryID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, master.VersionID, versions[0].VersionID)
	assert.True(t, versions[0].Synced)
	require.NotNil(t, versions[0].ImageMetadata)
	assert.Equal(t, "sha256:abc", versions[0].ImageMetadata.ImageID)

	files, err = DB(ctx).ListSourceFiles(ctx, master.VersionID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/new.cwl", files[0].AbsolutePath)

	events, err := DB(ctx).ListEvents(ctx, e.EntryID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSetChecker(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)

	a, b, checker := testEntry(), testEntry(), testEntry()
	checker.IsChecker = true
	for _, e := range []*models.Entry{a, b, checker} {
		require.NoError(t, DB(ctx).CreateEntry(ctx, e))
		defer DB(ctx).DeleteEntry(ctx, e.EntryID)
	}

	require.NoError(t, DB(ctx).SetChecker(ctx, a.EntryID, checker.EntryID))
	err := DB(ctx).SetChecker(ctx, b.EntryID, checker.EntryID)
	assert.ErrorIs(t, err, dberror.ErrConstraintViolation)

	got, err := DB(ctx).GetEntry(ctx, a.EntryID)
	require.NoError(t, err)
	require.NotNil(t, got.CheckerID)
	assert.Equal(t, checker.EntryID, *got.CheckerID)
}

func TestSaveRefreshKeepsUserEdits(t *testing.T) {
	ctx := newDb()
	defer DB(ctx).Close(ctx)

	e := testEntry()
	require.NoError(t, DB(ctx).CreateEntry(ctx, e))
	defer DB(ctx).DeleteEntry(ctx, e.EntryID)

	master := &models.Version{EntryID: e.EntryID, Name: "master", ReferenceType: types.ReferenceTypeBranch}
	require.NoError(t, DB(ctx).CreateVersion(ctx, master, nil))
	gone := &models.Version{EntryID: e.EntryID, Name: "gone", ReferenceType: types.ReferenceTypeBranch}
	require.NoError(t, DB(ctx).CreateVersion(ctx, gone, nil))
	e.DefaultVersion = &gone.Name
	require.NoError(t, DB(ctx).UpdateEntry(ctx, e))

	master.Hidden = true
	require.NoError(t, DB(ctx).UpdateVersion(ctx, master))
	_, err := DB(ctx).UpdateDefaultDescriptorPath(ctx, e.EntryID, "/other.cwl")
	require.NoError(t, err)

	cs := &models.RefreshChangeSet{
		EntryID: e.EntryID,
		Versions: []models.Version{{VersionID: uuid.New(), Name: "master", Reference: "master",
			ReferenceType: types.ReferenceTypeBranch, Valid: true, Synced: true, DescriptorPath: "/Dockstore.cwl"}},
		StaleVersionIDs: []uuid.UUID{gone.VersionID},
	}
	require.NoError(t, DB(ctx).SaveRefresh(ctx, cs))

	got, err := DB(ctx).GetVersion(ctx, e.EntryID, "master")
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.True(t, got.Valid)
	assert.False(t, got.Synced)

	stored, err := DB(ctx).GetEntry(ctx, e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "/other.cwl", stored.DefaultDescriptorPath)
	assert.Nil(t, stored.DefaultVersion)

	cs = &models.RefreshChangeSet{
		EntryID:    e.EntryID,
		Versions:   []models.Version{{VersionID: uuid.New(), Name: "master", ReferenceType: types.ReferenceTypeBranch}},
		InsertOnly: true,
	}
	assert.ErrorIs(t, DB(ctx).SaveRefresh(ctx, cs), dberror.ErrAlreadyExists)
}
