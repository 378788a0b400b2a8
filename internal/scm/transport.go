package scm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/rs/zerolog/log"
)

const maxResponseBytes = 32 << 20

// tokenTransport adds the Authorization header to every request.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

// NewHTTPClient returns a client that authenticates with token when it is set.
// Without a token requests are anonymous, which is enough for public repositories.
func NewHTTPClient(token string, timeout time.Duration) *http.Client {
	c := &http.Client{Timeout: timeout}
	if token != "" {
		c.Transport = &tokenTransport{token: token, base: http.DefaultTransport}
	}
	return c
}

// get performs a GET and returns the body and status code. Transport failures
// map to ErrUpstreamUnavailable.
func get(ctx context.Context, client *http.Client, url, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, ErrSCM.MsgErr("invalid request url", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	log.Ctx(ctx).Debug().Str("url", url).Msg("scm request")
	resp, err := client.Do(req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("url", url).Msg("scm request failed")
		return nil, 0, ErrUpstreamUnavailable.Err(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, ErrUpstreamUnavailable.MsgErr("reading response", err)
	}
	return body, resp.StatusCode, nil
}

// statusError converts a non-200 status. notFound is returned for 404.
func statusError(status int, body []byte, notFound apperrors.Error, what string) apperrors.Error {
	if status == http.StatusNotFound {
		return notFound.Msg(what + " not found")
	}
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return ErrUpstreamUnavailable.Msg(fmt.Sprintf("%s: HTTP %d %s", what, status, snippet))
}

func tooManyPages(repo RepoCoordinate, kind string) apperrors.Error {
	return ErrUpstreamUnavailable.Msg(fmt.Sprintf("%s of %s span more than %d pages", kind, repo.FullName(), maxPages))
}
