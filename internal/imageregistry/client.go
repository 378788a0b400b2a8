// Package imageregistry reads container image manifests from Docker Registry
// HTTP API v2 registries to record the image behind each tool version.
package imageregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/distribution/manifest/schema2"
	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/opencontainers/go-digest"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var (
	ErrRegistry            apperrors.Error = apperrors.New("image registry error").SetStatusCode(http.StatusBadGateway)
	ErrImageNotFound       apperrors.Error = ErrRegistry.New("image not found").SetStatusCode(http.StatusNotFound)
	ErrRegistryUnavailable apperrors.Error = ErrRegistry.New("image registry unavailable").SetStatusCode(http.StatusBadGateway)
)

const (
	dockerHub        = "docker.io"
	dockerHubHost    = "registry-1.docker.io"
	dockerHubAuthKey = "https://index.docker.io/v1/"
	maxManifestBytes = 4 << 20
)

// ImageRef names one tag of an image.
type ImageRef struct {
	Registry  string
	Namespace string
	Name      string
	Tag       string
}

func (r ImageRef) repository() string {
	ns := r.Namespace
	if ns == "" && (r.Registry == dockerHub || r.Registry == "") {
		ns = "library"
	}
	if ns == "" {
		return r.Name
	}
	return ns + "/" + r.Name
}

func (r ImageRef) host() string {
	if r.Registry == "" || r.Registry == dockerHub {
		return dockerHubHost
	}
	return r.Registry
}

func (r ImageRef) String() string {
	return r.host() + "/" + r.repository() + ":" + r.Tag
}

// Resolver returns the metadata of an image tag.
type Resolver interface {
	GetImage(ctx context.Context, ref ImageRef) (*models.ImageMetadata, error)
}

// Client talks to registries using credentials from a docker config file.
type Client struct {
	client       *http.Client
	dockerConfig *configfile.ConfigFile
	scheme       string
	now          func() time.Time
}

func NewClient(dockerConfig *configfile.ConfigFile, scheme string, timeout time.Duration) *Client {
	if dockerConfig == nil {
		dockerConfig = configfile.New("")
	}
	if scheme == "" {
		scheme = "https"
	}
	return &Client{
		client:       &http.Client{Timeout: timeout},
		dockerConfig: dockerConfig,
		scheme:       scheme,
		now:          time.Now,
	}
}

// NewClientFromConfig loads the configured docker config file.
func NewClientFromConfig(cfg config.RegistryConfig) (*Client, error) {
	dc, err := LoadDockerConfig(cfg.DockerConfigFile)
	if err != nil {
		return nil, err
	}
	return NewClient(dc, cfg.Scheme, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
}

// LoadDockerConfig reads a docker config file. An empty path falls back to
// ~/.docker/config.json, and a missing default file yields no credentials.
func LoadDockerConfig(path string) (*configfile.ConfigFile, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return configfile.New(""), nil
		}
		path = filepath.Join(home, ".docker", "config.json")
	}
	cf := configfile.New(path)
	f, err := os.Open(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cf, nil
		}
		return nil, fmt.Errorf("opening docker config %s: %w", path, err)
	}
	defer f.Close()
	if err := cf.LoadFromReader(f); err != nil {
		return nil, fmt.Errorf("parsing docker config %s: %w", path, err)
	}
	return cf, nil
}

func (c *Client) basicAuth(req *http.Request, host string) {
	key := host
	if host == dockerHubHost {
		key = dockerHubAuthKey
	}
	ac, err := c.dockerConfig.GetAuthConfig(key)
	if err != nil || ac.Username == "" {
		return
	}
	req.SetBasicAuth(ac.Username, ac.Password)
}

func addHeaders(req *http.Request, auth string) {
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("User-Agent", "hatchdockstore")
	req.Header.Set("Accept", schema2.MediaTypeManifest)
}

// GetImage fetches the schema2 manifest of ref. Registries that answer 401 are
// retried once with a bearer token from the realm named in WWW-Authenticate.
func (c *Client) GetImage(ctx context.Context, ref ImageRef) (*models.ImageMetadata, error) {
	host := ref.host()
	url := fmt.Sprintf("%s://%s/v2/%s/manifests/%s", c.scheme, host, ref.repository(), ref.Tag)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrRegistry.MsgErr("invalid manifest url", err)
	}
	addHeaders(req, "")
	c.basicAuth(req, host)
	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("image", ref.String()).Msg("failed to get manifest")
		return nil, ErrRegistryUnavailable.Err(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		challenge := resp.Header.Get("WWW-Authenticate")
		resp.Body.Close()
		token, err := c.bearerToken(ctx, host, challenge, req.Header.Get("Authorization"))
		if err != nil {
			return nil, err
		}
		req, _ = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		addHeaders(req, "Bearer "+token)
		resp, err = c.client.Do(req)
		if err != nil {
			return nil, ErrRegistryUnavailable.Err(err)
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrImageNotFound.Msg(ref.String() + " not found")
	default:
		log.Ctx(ctx).Error().Int("status", resp.StatusCode).Str("image", ref.String()).Msg("failed to get a good response")
		return nil, ErrRegistryUnavailable.Msg(fmt.Sprintf("%s: HTTP %d", ref.String(), resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, ErrRegistryUnavailable.MsgErr("reading manifest", err)
	}
	var m schema2.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, ErrRegistry.MsgErr("invalid manifest for "+ref.String(), err)
	}

	id := digest.Digest(resp.Header.Get("Docker-Content-Digest"))
	if id.Validate() != nil {
		id = digest.FromBytes(body)
	}
	md := &models.ImageMetadata{
		ImageID:   id.String(),
		UpdatedAt: c.now().UTC(),
	}
	for _, l := range m.Layers {
		md.Checksums = append(md.Checksums, models.Checksum{
			Type:     string(l.Digest.Algorithm()),
			Checksum: l.Digest.Encoded(),
		})
		md.Size += l.Size
	}
	log.Ctx(ctx).Debug().Str("image", ref.String()).Str("id", md.ImageID).Msg("image manifest")
	return md, nil
}

var challengeParamRe = regexp.MustCompile(`(\w+)="([^"]*)"`)

func (c *Client) bearerToken(ctx context.Context, host, challenge, basic string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(challenge), "bearer ") {
		return "", ErrRegistryUnavailable.Msg("unauthorized by " + host)
	}
	params := make(map[string]string)
	for _, m := range challengeParamRe.FindAllStringSubmatch(challenge, -1) {
		params[strings.ToLower(m[1])] = m[2]
	}
	realm := params["realm"]
	if realm == "" {
		return "", ErrRegistryUnavailable.Msg("bearer challenge without realm from " + host)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, realm, nil)
	if err != nil {
		return "", ErrRegistry.MsgErr("invalid token realm", err)
	}
	q := req.URL.Query()
	if s := params["service"]; s != "" {
		q.Set("service", s)
	}
	if s := params["scope"]; s != "" {
		q.Set("scope", s)
	}
	req.URL.RawQuery = q.Encode()
	if basic != "" {
		req.Header.Set("Authorization", basic)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", ErrRegistryUnavailable.Err(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", ErrRegistryUnavailable.Msg(fmt.Sprintf("token request to %s: HTTP %d", realm, resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return "", ErrRegistryUnavailable.Err(err)
	}
	for _, key := range []string{"token", "access_token"} {
		if t := gjson.GetBytes(body, key).String(); t != "" {
			return t, nil
		}
	}
	return "", ErrRegistryUnavailable.Msg("token response without token from " + realm)
}
