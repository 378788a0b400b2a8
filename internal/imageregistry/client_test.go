package imageregistry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/types"
	"github.com/docker/distribution/manifest/schema2"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestJSON = `{
  "schemaVersion": 2,
  "mediaType": "application/vnd.docker.distribution.manifest.v2+json",
  "config": {"mediaType": "application/vnd.docker.container.image.v1+json", "size": 100,
    "digest": "sha256:1111111111111111111111111111111111111111111111111111111111111111"},
  "layers": [
    {"mediaType": "application/vnd.docker.image.rootfs.diff.tar.gzip", "size": 1000,
      "digest": "sha256:2222222222222222222222222222222222222222222222222222222222222222"},
    {"mediaType": "application/vnd.docker.image.rootfs.diff.tar.gzip", "size": 234,
      "digest": "sha256:3333333333333333333333333333333333333333333333333333333333333333"}
  ]
}`

const manifestDigest = "sha256:4444444444444444444444444444444444444444444444444444444444444444"

func host(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestGetImageBasicAuth(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	var auth, accept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/ns/tool/manifests/1.0":
			auth = r.Header.Get("Authorization")
			accept = r.Header.Get("Accept")
			w.Header().Set("Docker-Content-Digest", manifestDigest)
			w.Write([]byte(manifestJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	cf := configfile.New("")
	cf.AuthConfigs[host(ts)] = types.AuthConfig{Username: "user", Password: "pass"}
	c := NewClient(cf, "http", time.Second)

	md, err := c.GetImage(ctx, ImageRef{Registry: host(ts), Namespace: "ns", Name: "tool", Tag: "1.0"})
	require.NoError(t, err)
	assert.Equal(t, manifestDigest, md.ImageID)
	assert.Equal(t, int64(1234), md.Size)
	require.Len(t, md.Checksums, 2)
	assert.Equal(t, "sha256", md.Checksums[0].Type)
	assert.Equal(t, strings.Repeat("2", 64), md.Checksums[0].Checksum)
	assert.Equal(t, schema2.MediaTypeManifest, accept)
	assert.True(t, strings.HasPrefix(auth, "Basic "))

	_, err = c.GetImage(ctx, ImageRef{Registry: host(ts), Namespace: "ns", Name: "tool", Tag: "2.0"})
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestGetImageBearerRetry(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	var ts *httptest.Server
	var tokenQuery string
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokenQuery = r.URL.RawQuery
			json.NewEncoder(w).Encode(map[string]string{"token": "abc"})
		case "/v2/library/ubuntu/manifests/22.04":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+ts.URL+`/token",service="registry",scope="repository:library/ubuntu:pull"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(manifestJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := NewClient(nil, "http", time.Second)
	md, err := c.GetImage(ctx, ImageRef{Registry: host(ts), Namespace: "library", Name: "ubuntu", Tag: "22.04"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md.ImageID, "sha256:"))
	assert.Contains(t, tokenQuery, "service=registry")
	assert.Contains(t, tokenQuery, "scope=repository%3Alibrary%2Fubuntu%3Apull")
}

func TestGetImageUnavailable(t *testing.T) {
	ctx := log.Logger.WithContext(context.Background())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(nil, "http", time.Second)
	_, err := c.GetImage(ctx, ImageRef{Registry: host(ts), Namespace: "ns", Name: "tool", Tag: "1"})
	assert.ErrorIs(t, err, ErrRegistryUnavailable)

	_, err = c.GetImage(ctx, ImageRef{Registry: "127.0.0.1:1", Namespace: "ns", Name: "tool", Tag: "1"})
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
}

func TestImageRef(t *testing.T) {
	assert.Equal(t, "registry-1.docker.io/library/ubuntu:latest", ImageRef{Registry: "docker.io", Name: "ubuntu", Tag: "latest"}.String())
	assert.Equal(t, "quay.io/biocontainers/samtools:1.9", ImageRef{Registry: "quay.io", Namespace: "biocontainers", Name: "samtools", Tag: "1.9"}.String())
}

func TestLoadDockerConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"auths": {"quay.io": {"auth": "dXNlcjpwYXNz"}}}`), 0o600))

	cf, err := LoadDockerConfig(p)
	require.NoError(t, err)
	ac, err := cf.GetAuthConfig("quay.io")
	require.NoError(t, err)
	assert.Equal(t, "user", ac.Username)
	assert.Equal(t, "pass", ac.Password)

	_, err = LoadDockerConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
