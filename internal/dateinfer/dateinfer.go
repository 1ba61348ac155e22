// Package dateinfer discovers the publication date of a linked web page.
//
// The capability is treated as an opaque external helper with a readiness
// gate: initialization is memoized so concurrent callers share one setup,
// and failures degrade to an unknown date rather than an error on the
// record.
package dateinfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"media-forensics/internal/logging"
)

const maxBodyBytes = 4 << 20

// Client fetches pages and extracts publication dates.
type Client struct {
	enabled bool

	readyOnce sync.Once
	http      *http.Client
}

// New creates a Client. A disabled client resolves every lookup to "".
func New(enabled bool) *Client {
	return &Client{enabled: enabled}
}

// ensureReady performs one-time initialization shared by concurrent callers.
func (c *Client) ensureReady() {
	c.readyOnce.Do(func() {
		c.http = &http.Client{Timeout: 20 * time.Second}
		logging.Debug("date inference ready")
	})
}

// Infer returns the best publication date found on the page, in the form
// the page declares it (typically ISO-8601), or "" when nothing usable was
// found or the capability is disabled.
func (c *Client) Infer(ctx context.Context, pageURL string) string {
	if c == nil || !c.enabled || pageURL == "" {
		return ""
	}
	c.ensureReady()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		logging.Debug("date inference: bad url %s: %v", pageURL, err)
		return ""
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		logging.Debug("date inference: fetch %s failed: %v", pageURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Debug("date inference: %s returned %d", pageURL, resp.StatusCode)
		return ""
	}

	date, err := ExtractDate(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		logging.Debug("date inference: parse %s failed: %v", pageURL, err)
		return ""
	}
	return date
}

// metaSelectors are tried in priority order; each maps a selector to the
// attribute carrying the date value.
var metaSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[name="dc.date"]`, "content"},
	{`meta[name="dc.date.issued"]`, "content"},
	{`meta[property="og:updated_time"]`, "content"},
	{`time[datetime]`, "datetime"},
}

// ExtractDate parses an HTML document and returns the first declared
// publication date.
func ExtractDate(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, ms := range metaSelectors {
		if val, ok := doc.Find(ms.selector).First().Attr(ms.attr); ok {
			if date := strings.TrimSpace(val); date != "" {
				return date, nil
			}
		}
	}
	return "", nil
}
