package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/memdb"
	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/internal/scm/scmtest"
	"github.com/mugiliam/hatchdockstore/internal/versionsync"
	"github.com/mugiliam/hatchdockstore/pkg/types"
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

var repo = scm.RepoCoordinate{
	SourceControl: types.SourceControlGitHub,
	Organization:  "DockstoreTestUser2",
	Repository:    "hello-dockstore-workflow",
}

type testEnv struct {
	server *HatchDockstoreServer
	conn   *scmtest.Connector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db.UseMemory(memdb.New())
	conn := scmtest.New()
	reg := scm.NewRegistry()
	reg.Register(types.SourceControlGitHub, conn)
	m := entrymanager.New(reg, versionsync.New(reg, nil, nil, versionsync.Options{}))

	s, err := CreateNewServer(m)
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	return &testEnv{
		server: s,
		conn:   conn,
	}
}

func (env *testEnv) execute(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	env.server.Router.ServeHTTP(rr, req)
	return rr
}

func checkHeader(t *testing.T, h http.Header) {
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get("X-Request-ID"), "No Request Id")
}
