// Package oa answers whether a library item is openly accessible, asking
// Unpaywall by DOI and falling back to the item's own PDF attachments.
package oa

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/observe"
)

const (
	SourceNone      = "none"
	SourceCache     = "cache"
	SourceUnpaywall = "unpaywall"
	SourceLocal     = "local"

	pdfContentType = "application/pdf"
	defaultPacing  = 100 * time.Millisecond
)

type Status struct {
	IsOpenAccess bool      `json:"is_oa" yaml:"is_oa"`
	Location     string    `json:"oa_location,omitempty" yaml:"oa_location,omitempty"`
	Version      string    `json:"oa_version,omitempty" yaml:"oa_version,omitempty"`
	CheckedAt    time.Time `json:"checked_at" yaml:"checked_at"`
	Source       string    `json:"source" yaml:"source"`
}

// Settings are read on every check.
type Settings struct {
	Email    string
	CacheTTL time.Duration
	BaseURL  string
}

type SettingsFunc func() Settings

// AttachmentLister finds an item's attachments. *db.DB satisfies it.
type AttachmentLister interface {
	Attachments(ctx context.Context, parentID int64) ([]db.Item, error)
}

type Checker struct {
	settings    SettingsFunc
	cache       Cache
	attachments AttachmentLister
	http        *http.Client
	group       singleflight.Group
	logger      *zap.Logger
	metrics     *observe.Metrics
	now         func() time.Time
	pacing      time.Duration
}

type Option func(*Checker)

func WithHTTPClient(c *http.Client) Option { return func(ch *Checker) { ch.http = c } }
func WithLogger(l *zap.Logger) Option { return func(ch *Checker) { ch.logger = l } }
func WithMetrics(m *observe.Metrics) Option { return func(ch *Checker) { ch.metrics = m } }
func WithClock(now func() time.Time) Option { return func(ch *Checker) { ch.now = now } }
func WithPacing(d time.Duration) Option { return func(ch *Checker) { ch.pacing = d } }

func NewChecker(settings SettingsFunc, cache Cache, attachments AttachmentLister, opts ...Option) *Checker {
	c := &Checker{
		settings:    settings,
		cache:       cache,
		attachments: attachments,
		http:        observe.HTTPClient(),
		logger:      zap.NewNop(),
		now:         time.Now,
		pacing:      defaultPacing,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CheckItem returns the open-access status of item. Items without a DOI
// are reported closed. Unpaywall answers are cached per DOI; when no
// contact email is configured or the lookup fails, a local PDF attachment
// counts as open.
func (c *Checker) CheckItem(ctx context.Context, item db.Item) (Status, error) {
	doi := strings.TrimSpace(item.DOI)
	if doi == "" {
		c.metrics.RecordOALookup(ctx, SourceNone)
		return Status{CheckedAt: c.now(), Source: SourceNone}, nil
	}

	cfg := c.settings()
	if st, ok := c.cached(ctx, doi, cfg.CacheTTL); ok {
		c.metrics.RecordOALookup(ctx, SourceCache)
		st.Source = SourceCache
		return st, nil
	}

	if cfg.Email == "" {
		return c.localFallback(ctx, item)
	}

	v, err, _ := c.group.Do(doi, func() (any, error) {
		st, err := c.lookup(ctx, cfg.BaseURL, cfg.Email, doi)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Put(ctx, doi, st); err != nil {
			c.logger.Warn("oa cache write failed", zap.String("doi", doi), zap.Error(err))
		}
		return st, nil
	})
	if err != nil {
		c.logger.Info("unpaywall lookup failed, checking local attachments",
			zap.String("doi", doi), zap.Error(err))
		return c.localFallback(ctx, item)
	}
	c.metrics.RecordOALookup(ctx, SourceUnpaywall)
	return v.(Status), nil
}

func (c *Checker) cached(ctx context.Context, doi string, ttl time.Duration) (Status, bool) {
	st, ok, err := c.cache.Get(ctx, doi)
	if err != nil {
		c.logger.Warn("oa cache read failed", zap.String("doi", doi), zap.Error(err))
		return Status{}, false
	}
	if !ok {
		return Status{}, false
	}
	if ttl > 0 && c.now().Sub(st.CheckedAt) > ttl {
		if err := c.cache.Delete(ctx, doi); err != nil {
			c.logger.Warn("oa cache delete failed", zap.String("doi", doi), zap.Error(err))
		}
		return Status{}, false
	}
	return st, true
}

func (c *Checker) localFallback(ctx context.Context, item db.Item) (Status, error) {
	c.metrics.RecordOALookup(ctx, SourceLocal)
	st := Status{CheckedAt: c.now(), Source: SourceLocal}
	atts, err := c.attachments.Attachments(ctx, item.ID)
	if err != nil {
		return st, err
	}
	for _, a := range atts {
		if a.ContentType == pdfContentType {
			st.IsOpenAccess = true
			break
		}
	}
	return st, nil
}

// CheckItems checks items one after another, waiting the pacing interval
// between lookups. Items whose check fails are logged and left out of the
// result.
func (c *Checker) CheckItems(ctx context.Context, items []db.Item) (map[int64]Status, error) {
	results := make(map[int64]Status, len(items))
	for i, item := range items {
		if i > 0 && c.pacing > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(c.pacing):
			}
		}
		st, err := c.CheckItem(ctx, item)
		if err != nil {
			c.logger.Warn("oa check failed", zap.Int64("item", item.ID), zap.Error(err))
			continue
		}
		results[item.ID] = st
	}
	return results, ctx.Err()
}

// Prune removes expired answers when the cache supports it.
func (c *Checker) Prune(ctx context.Context) (int64, error) {
	p, ok := c.cache.(interface {
		Prune(ctx context.Context, cutoff time.Time) (int64, error)
	})
	if !ok {
		return 0, nil
	}
	return p.Prune(ctx, c.now().Add(-c.settings().CacheTTL))
}
