package oa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultUnpaywallURL = "https://api.unpaywall.org"
	lookupTimeout       = 10 * time.Second
)

// lookup asks Unpaywall about one DOI.
func (c *Checker) lookup(ctx context.Context, base, email, doi string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	if base == "" {
		base = DefaultUnpaywallURL
	}
	u := fmt.Sprintf("%s/v2/%s?email=%s",
		strings.TrimRight(base, "/"), url.PathEscape(doi), url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Status{}, fmt.Errorf("building unpaywall request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("unpaywall request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("unpaywall returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Status{}, fmt.Errorf("reading unpaywall response: %w", err)
	}
	return parseUnpaywall(body, c.now())
}

func parseUnpaywall(body []byte, now time.Time) (Status, error) {
	if !gjson.ValidBytes(body) {
		return Status{}, fmt.Errorf("unpaywall response is not JSON")
	}
	best := gjson.GetBytes(body, "best_oa_location")
	loc := best.Get("url_for_pdf").String()
	if loc == "" {
		loc = best.Get("url").String()
	}
	return Status{
		IsOpenAccess: gjson.GetBytes(body, "is_oa").Bool(),
		Location:     loc,
		Version:      best.Get("version").String(),
		CheckedAt:    now,
		Source:       SourceUnpaywall,
	}, nil
}
