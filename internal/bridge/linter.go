package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/observe"
	"github.com/chris/researchhub/internal/orchestrator"
)

const (
	linterNotInstalled = "Linter plugin is not installed."
	linterRuleSet      = "standard"
	linterTimeout      = 30 * time.Second
)

// ItemUpdater writes corrected metadata back. *db.DB satisfies it.
type ItemUpdater interface {
	UpdateItem(ctx context.Context, id int64, fields map[string]any) error
}

type lintItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors,omitempty"`
	Year     string `json:"year,omitempty"`
	DOI      string `json:"doi,omitempty"`
	Abstract string `json:"abstract,omitempty"`
}

// Linter fixes citation metadata through a remote lint service.
type Linter struct {
	endpoint string
	store    ItemUpdater
	detector Detector
	http     *http.Client
	logger   *zap.Logger
}

type LinterOption func(*Linter)

func WithLinterHTTPClient(c *http.Client) LinterOption {
	return func(l *Linter) { l.http = c }
}

func WithLinterLogger(lg *zap.Logger) LinterOption {
	return func(l *Linter) { l.logger = lg }
}

func NewLinter(endpoint string, store ItemUpdater, detector Detector, opts ...LinterOption) *Linter {
	l := &Linter{
		endpoint: strings.TrimRight(endpoint, "/"),
		store:    store,
		detector: detector,
		http:     observe.HTTPClient(),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// FixCitations lints items with the standard rule set and stores the
// corrections. It never fails; problems are reported in FixResult.Errors.
func (l *Linter) FixCitations(ctx context.Context, items []db.Item) FixResult {
	if !l.available(ctx) {
		return FixResult{Errors: []string{linterNotInstalled}}
	}
	if len(items) == 0 {
		return FixResult{Errors: []string{}}
	}

	corrected, remoteErrs, err := l.lint(ctx, items)
	if err != nil {
		l.logger.Warn("lint request failed", zap.Error(err))
		return FixResult{Errors: []string{err.Error()}}
	}

	res := FixResult{Errors: remoteErrs}
	byID := make(map[int64]db.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, c := range corrected {
		orig, ok := byID[c.ID]
		if !ok {
			continue
		}
		if fields := changedFields(orig, c); len(fields) > 0 {
			if err := l.store.UpdateItem(ctx, c.ID, fields); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("item %d: %v", c.ID, err))
				continue
			}
		}
		res.Fixed++
	}
	return res
}

// Probe asks the lint service's health endpoint.
func (l *Linter) Probe(ctx context.Context) orchestrator.Availability {
	if l.endpoint == "" {
		return orchestrator.Availability{}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+"/health", nil)
	if err != nil {
		return orchestrator.Availability{}
	}
	resp, err := l.http.Do(req)
	if err != nil {
		l.logger.Debug("linter health check failed", zap.Error(err))
		return orchestrator.Availability{}
	}
	resp.Body.Close()
	ok := resp.StatusCode == http.StatusOK
	return orchestrator.Availability{Available: ok, Ready: ok}
}

func (l *Linter) available(ctx context.Context) bool {
	if l.endpoint == "" {
		return false
	}
	if l.detector.Status().Linter.Available {
		return true
	}
	return l.detector.Refresh(ctx).Linter.Available
}

func (l *Linter) lint(ctx context.Context, items []db.Item) ([]lintItem, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, linterTimeout)
	defer cancel()

	wire := make([]lintItem, len(items))
	for i, it := range items {
		wire[i] = lintItem{ID: it.ID, Title: it.Title, Authors: it.Authors, Year: it.Year, DOI: it.DOI, Abstract: it.Abstract}
	}
	body, err := sjson.SetBytes([]byte(`{}`), "rules", linterRuleSet)
	if err == nil {
		body, err = sjson.SetBytes(body, "items", wire)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("encoding lint request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint+"/lint", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("building lint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("lint request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("reading lint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, nil, fmt.Errorf("linter returned %d: %s", resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(raw) {
		return nil, nil, fmt.Errorf("lint response is not JSON")
	}

	var corrected []lintItem
	gjson.GetBytes(raw, "items").ForEach(func(_, v gjson.Result) bool {
		corrected = append(corrected, lintItem{
			ID:       v.Get("id").Int(),
			Title:    v.Get("title").String(),
			Authors:  v.Get("authors").String(),
			Year:     v.Get("year").String(),
			DOI:      v.Get("doi").String(),
			Abstract: v.Get("abstract").String(),
		})
		return true
	})
	errs := []string{}
	gjson.GetBytes(raw, "errors").ForEach(func(_, v gjson.Result) bool {
		errs = append(errs, v.String())
		return true
	})
	return corrected, errs, nil
}

// changedFields lists the non-empty corrections that differ from orig.
func changedFields(orig db.Item, c lintItem) map[string]any {
	fields := map[string]any{}
	set := func(col, before, after string) {
		if after != "" && after != before {
			fields[col] = after
		}
	}
	set("title", orig.Title, c.Title)
	set("authors", orig.Authors, c.Authors)
	set("year", orig.Year, c.Year)
	set("doi", orig.DOI, c.DOI)
	set("abstract", orig.Abstract, c.Abstract)
	return fields
}
