package linkcheck

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"miuinotify/internal/commontypes"
)

// Checker probes ROM download links before they are announced.
type Checker struct {
	rest   *resty.Client
	logger *zap.Logger
}

func New(timeout time.Duration, logger *zap.Logger) *Checker {
	return &Checker{
		rest:   resty.New().SetTimeout(timeout),
		logger: logger,
	}
}

// Working reports whether a HEAD on link answers 2xx after redirects.
func (c *Checker) Working(ctx context.Context, link string) bool {
	resp, err := c.rest.R().SetContext(ctx).Head(link)
	if err != nil {
		c.logger.Debug("Link check failed", zap.String("link", link), zap.Error(err))
		return false
	}
	return resp.IsSuccess()
}

// Filter keeps the updates whose link is reachable.
func (c *Checker) Filter(ctx context.Context, updates []commontypes.Update) []commontypes.Update {
	working := make([]commontypes.Update, 0, len(updates))
	for _, u := range updates {
		if !c.Working(ctx, u.Link) {
			c.logger.Warn("Dropping update with broken link",
				zap.String("codename", u.Codename),
				zap.String("version", u.Version),
				zap.String("link", u.Link))
			continue
		}
		working = append(working, u)
	}
	c.logger.Info("Checked update links",
		zap.Int("total", len(updates)),
		zap.Int("working", len(working)))
	return working
}
