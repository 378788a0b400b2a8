package cli

import (
	"time"

	"github.com/mugiliam/hatchdockstore/internal/checkurl"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/entrymanager"
	"github.com/mugiliam/hatchdockstore/internal/imageregistry"
	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/internal/versionsync"
)

// newManager assembles the entry manager from the configuration. The
// check-url service is only consulted when an endpoint is configured.
func newManager(c *config.ConfigParam) (*entrymanager.Manager, error) {
	connectors := scm.NewRegistryFromConfig(c.SCM)
	images, err := imageregistry.NewClientFromConfig(c.Registry)
	if err != nil {
		return nil, err
	}
	var checker versionsync.AccessChecker
	if c.CheckURL.Endpoint != "" {
		client := checkurl.NewClient(c.CheckURL.Endpoint, time.Duration(c.CheckURL.TimeoutSeconds)*time.Second)
		checker = checkurl.NewChecker(client)
	}
	sync := versionsync.New(connectors, checker, images, versionsync.Options{
		FetchConcurrency: c.Refresh.FetchConcurrency,
		MaxImportDepth:   c.Refresh.MaxImportDepth,
	})
	return entrymanager.New(connectors, sync), nil
}
