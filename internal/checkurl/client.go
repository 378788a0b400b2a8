// Package checkurl decides whether the files a test parameter file points at
// are publicly downloadable.
package checkurl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// URLChecker asks an external service whether every URL is open.
type URLChecker interface {
	CheckURLs(ctx context.Context, urls []string) types.OpenStatus
}

// Client posts {"urls": [...]} to the check-url service and reads
// {"status": "ALL_OPEN" | "NOT_ALL_OPEN" | "UNKNOWN"}. Anything else,
// including an unreachable service, is UNKNOWN.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

func (c *Client) CheckURLs(ctx context.Context, urls []string) types.OpenStatus {
	if c.endpoint == "" {
		return types.OpenStatusUnknown
	}
	body, err := json.Marshal(map[string][]string{"urls": urls})
	if err != nil {
		return types.OpenStatusUnknown
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("endpoint", c.endpoint).Msg("invalid check-url endpoint")
		return types.OpenStatusUnknown
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("check-url service unreachable")
		return types.OpenStatusUnknown
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).Warn().Int("status", resp.StatusCode).Msg("check-url service failed")
		return types.OpenStatusUnknown
	}
	rsp, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return types.OpenStatusUnknown
	}
	switch s := types.OpenStatus(gjson.GetBytes(rsp, "status").String()); s {
	case types.OpenStatusAllOpen, types.OpenStatusNotAllOpen:
		return s
	}
	return types.OpenStatusUnknown
}
