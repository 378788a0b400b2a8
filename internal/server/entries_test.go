package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func registerBody(t *testing.T) string {
	t.Helper()
	body := `{"entry_type": "workflow", "descriptor_language": "CWL"}`
	var err error
	for k, v := range map[string]string{
		"source_control":  string(repo.SourceControl),
		"organization":    repo.Organization,
		"repository":      repo.Repository,
		"descriptor_path": "/Dockstore.cwl",
	} {
		body, err = sjson.Set(body, k, v)
		require.NoError(t, err)
	}
	return body
}

func TestEntryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.conn.SetRef(repo, "master", types.ReferenceTypeBranch, "c1")
	env.conn.SetFile(repo, "master", "/Dockstore.cwl", workflowCWL)
	env.conn.SetRef(repo, "develop", types.ReferenceTypeBranch, "c2")
	env.conn.SetFile(repo, "develop", "/Dockstore.cwl", workflowCWL)

	rsp := env.execute(t, http.MethodPost, "/api/v1/entries", registerBody(t))
	require.Equal(t, http.StatusCreated, rsp.Code, rsp.Body.String())
	checkHeader(t, rsp.Result().Header)
	id := gjson.Get(rsp.Body.String(), "id").String()
	assert.Equal(t, "/api/v1/entries/"+id, rsp.Header().Get("Location"))
	assert.Equal(t, "FULL", gjson.Get(rsp.Body.String(), "mode").String())

	rsp = env.execute(t, http.MethodPost, "/api/v1/entries", registerBody(t))
	assert.Equal(t, http.StatusConflict, rsp.Code)

	base := "/api/v1/entries/" + id
	rsp = env.execute(t, http.MethodPost, base+"/refresh", "")
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	assert.Equal(t, int64(2), gjson.Get(rsp.Body.String(), "versions.#").Int())
	assert.True(t, gjson.Get(rsp.Body.String(), `versions.#(name=="master").valid`).Bool())

	rsp = env.execute(t, http.MethodPut, base+"/default-version", `{"name": "master"}`)
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	assert.Equal(t, "Counts lines.", gjson.Get(rsp.Body.String(), "description").String())

	rsp = env.execute(t, http.MethodPut, base+"/versions/master", `{"hidden": true}`)
	assert.Equal(t, http.StatusBadRequest, rsp.Code)
	assert.Contains(t, gjson.Get(rsp.Body.String(), "error").String(), "cannot be hidden")

	rsp = env.execute(t, http.MethodPut, base+"/versions/develop", `{"hidden": true, "descriptor_path": "/other.cwl"}`)
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	develop := gjson.Get(rsp.Body.String(), `versions.#(name=="develop")`)
	assert.True(t, develop.Get("hidden").Bool())
	assert.True(t, develop.Get("dirty_bit").Bool())
	assert.Equal(t, "/other.cwl", develop.Get("descriptor_path").String())

	rsp = env.execute(t, http.MethodPost, base+"/publish", "")
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	assert.True(t, gjson.Get(rsp.Body.String(), "is_published").Bool())

	rsp = env.execute(t, http.MethodGet, "/api/v1/metrics/published?type=workflow", "")
	require.Equal(t, http.StatusOK, rsp.Code)
	assert.Equal(t, int64(1), gjson.Get(rsp.Body.String(), "count").Int())

	rsp = env.execute(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	rsp = env.execute(t, http.MethodDelete, base+"/publish", "")
	require.Equal(t, http.StatusOK, rsp.Code)

	rsp = env.execute(t, http.MethodGet, base+"/events", "")
	require.Equal(t, http.StatusOK, rsp.Code)
	kinds := gjson.Get(rsp.Body.String(), "#.type").Array()
	require.NotEmpty(t, kinds)
	assert.Equal(t, "REGISTER_ENTRY", kinds[0].String())

	rsp = env.execute(t, http.MethodGet, "/api/v1/organizations/github.com/DockstoreTestUser2/entries", "")
	require.Equal(t, http.StatusOK, rsp.Code)
	assert.Equal(t, int64(1), gjson.Get(rsp.Body.String(), "#").Int())

	rsp = env.execute(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rsp.Code)

	rsp = env.execute(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rsp.Code)
}

func TestInvalidRequests(t *testing.T) {
	env := newTestEnv(t)

	rsp := env.execute(t, http.MethodGet, "/api/v1/entries/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	rsp = env.execute(t, http.MethodPost, "/api/v1/entries", `{"source_control": `)
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	body, err := sjson.Set(registerBody(t), "descriptor_path", "Dockstore.cwl")
	require.NoError(t, err)
	rsp = env.execute(t, http.MethodPost, "/api/v1/entries", body)
	assert.Equal(t, http.StatusBadRequest, rsp.Code)
	assert.Contains(t, gjson.Get(rsp.Body.String(), "error").String(), "descriptor_path")

	rsp = env.execute(t, http.MethodPost, "/api/v1/entries", registerBody(t))
	require.Equal(t, http.StatusCreated, rsp.Code)
	id := gjson.Get(rsp.Body.String(), "id").String()

	env.conn.SetRef(repo, "master", types.ReferenceTypeBranch, "c1")
	rsp = env.execute(t, http.MethodPost, "/api/v1/entries/"+id+"/versions/missing/refresh", "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	rsp = env.execute(t, http.MethodPost, "/api/v1/entries/"+id+"/refresh?hard=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	rsp = env.execute(t, http.MethodPost, "/api/v1/entries/"+id+"/publish", "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	rsp = env.execute(t, http.MethodGet, "/api/v1/organizations/svn.example.org/x/entries", "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)
}

func TestVersionNameWithSlash(t *testing.T) {
	env := newTestEnv(t)
	env.conn.SetRef(repo, "feature/x", types.ReferenceTypeBranch, "c1")
	env.conn.SetFile(repo, "feature/x", "/Dockstore.cwl", workflowCWL)

	rsp := env.execute(t, http.MethodPost, "/api/v1/entries", registerBody(t))
	require.Equal(t, http.StatusCreated, rsp.Code, rsp.Body.String())
	base := "/api/v1/entries/" + gjson.Get(rsp.Body.String(), "id").String()

	rsp = env.execute(t, http.MethodPost, base+"/versions/feature%2Fx/refresh", "")
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	assert.True(t, gjson.Get(rsp.Body.String(), `versions.#(name=="feature/x").valid`).Bool())

	rsp = env.execute(t, http.MethodPut, base+"/versions/feature%2Fx", `{"hidden": true}`)
	require.Equal(t, http.StatusOK, rsp.Code, rsp.Body.String())
	assert.True(t, gjson.Get(rsp.Body.String(), `versions.#(name=="feature/x").hidden`).Bool())
}

func TestHostedEntries(t *testing.T) {
	env := newTestEnv(t)

	rsp := env.execute(t, http.MethodPost, "/api/v1/hosted",
		`{"organization": "jane", "name": "counter", "entry_type": "workflow", "descriptor_language": "cwl"}`)
	require.Equal(t, http.StatusCreated, rsp.Code, rsp.Body.String())
	assert.Equal(t, "HOSTED", gjson.Get(rsp.Body.String(), "mode").String())
	id := gjson.Get(rsp.Body.String(), "id").String()

	edit, err := sjson.Set(`{"files": [{"path": "/Dockstore.cwl"}]}`, "files.0.content", workflowCWL)
	require.NoError(t, err)
	rsp = env.execute(t, http.MethodPost, "/api/v1/hosted/"+id+"/versions", edit)
	require.Equal(t, http.StatusCreated, rsp.Code, rsp.Body.String())
	assert.Equal(t, "1", gjson.Get(rsp.Body.String(), "name").String())
	assert.True(t, gjson.Get(rsp.Body.String(), "valid").Bool())

	rsp = env.execute(t, http.MethodPost, "/api/v1/hosted/"+id+"/versions", edit)
	assert.Equal(t, http.StatusBadRequest, rsp.Code)

	rsp = env.execute(t, http.MethodPost, "/api/v1/entries/"+id+"/refresh", "")
	assert.Equal(t, http.StatusBadRequest, rsp.Code)
}

func TestCORS(t *testing.T) {
	prev := config.Config()
	c := *prev
	c.Server.HandleCORS = true
	c.Server.CORSOrigin = "http://localhost:4200"
	config.SetConfig(&c)
	t.Cleanup(func() { config.SetConfig(prev) })

	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/entries", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	env.server.Router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:4200", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
}
