package catalog

import (
	"net/http"

	"go.uber.org/zap"

	"artdiscover/pkg/utils"
)

// FromConfig builds a client from the catalog section of cfg.
func FromConfig(cfg utils.Config, journal Recorder, log *zap.Logger) *Client {
	c := NewClient(cfg.APIKey)
	if cfg.Catalog.BaseURL != "" {
		c.BaseURL = cfg.Catalog.BaseURL
	}
	if cfg.Catalog.PageMax > 0 {
		c.PageMax = cfg.Catalog.PageMax
	}
	if cfg.Catalog.MaxAttempts > 0 {
		c.MaxAttempts = cfg.Catalog.MaxAttempts
	}
	c.BaseDelay = utils.Duration(cfg.Catalog.RetryBaseDelay, DefaultBaseDelay)
	c.MaxDelay = utils.Duration(cfg.Catalog.RetryMaxDelay, DefaultMaxDelay)
	c.HTTP = &http.Client{Timeout: utils.Duration(cfg.Catalog.HTTPTimeout, c.HTTP.Timeout)}
	c.Journal = journal
	if log != nil {
		c.Logger = log.Named("catalog")
	}
	return c
}
