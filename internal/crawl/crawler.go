// Package crawl implements the fetch stage: a same-domain breadth-first
// crawl that extracts ordered text segments from each page and writes them
// as page records.
package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/runs"
)

// URL paths containing these fragments are account, checkout, or legal
// plumbing with no training value.
var skipKeywords = []string{
	"login", "signup", "register", "cart", "checkout", "account",
	"search", "filter", "privacy", "terms", "policy", "cookie", "cookies",
}

var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
	".pdf", ".zip", ".mp4", ".mp3",
}

// minParagraphChars drops link stubs and button labels at extraction time.
const minParagraphChars = 30

// Crawler walks one site breadth-first, bounded by page count, and collects
// a page record per successfully fetched page.
type Crawler struct {
	client    *http.Client
	base      *url.URL
	domain    string
	maxPages  int
	delay     time.Duration
	userAgent string
	logger    *slog.Logger
}

// NewCrawler builds a crawler rooted at sourceURL using the configured
// limits. sourceURL must be absolute http or https.
func NewCrawler(cfg *config.Config, sourceURL string, logger *slog.Logger) (*Crawler, error) {
	base, err := url.Parse(strings.TrimSuffix(sourceURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("source url scheme %q is not http or https", base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("source url %q has no host", sourceURL)
	}
	return &Crawler{
		client: &http.Client{
			Timeout: time.Duration(cfg.Crawl.TimeoutSeconds) * time.Second,
		},
		base:      base,
		domain:    base.Host,
		maxPages:  cfg.Crawl.MaxPages,
		delay:     time.Duration(cfg.Crawl.DelayMillis) * time.Millisecond,
		userAgent: cfg.Crawl.UserAgent,
		logger:    logging.NewComponentLogger(logger, "crawler"),
	}, nil
}

// Crawl walks the site until the page budget is spent or the frontier is
// exhausted. Individual fetch failures are logged and skipped; the crawl
// itself only fails on context cancellation.
func (c *Crawler) Crawl(ctx context.Context) ([]runs.PageRecord, error) {
	start := c.base.String()
	queue := []string{start}
	seen := map[string]struct{}{start: {}}
	visited := make(map[string]struct{})

	var records []runs.PageRecord
	for len(queue) > 0 && len(records) < c.maxPages {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		pageURL := queue[0]
		queue = queue[1:]
		if _, ok := visited[pageURL]; ok {
			continue
		}
		visited[pageURL] = struct{}{}

		doc, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			c.logger.Warn("page fetch failed",
				logging.String("url", pageURL),
				logging.Error(err),
			)
			continue
		}

		queue = append(queue, c.extractLinks(pageURL, doc, seen)...)

		segments := extractSegments(doc)
		if len(segments) == 0 {
			continue
		}
		records = append(records, runs.PageRecord{
			SourceURL: pageURL,
			PageType:  classifyPage(doc),
			Segments:  segments,
			FetchedAt: time.Now().UTC(),
		})
		c.logger.Debug("page fetched",
			logging.String("url", pageURL),
			logging.Int("segments", len(segments)),
			logging.Int("pages", len(records)),
		)

		if c.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				return records, ctx.Err()
			case <-time.After(c.delay):
			}
		}
	}
	return records, nil
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// extractLinks returns newly discovered same-domain URLs, updating seen.
func (c *Crawler) extractLinks(pageURL string, doc *goquery.Document, seen map[string]struct{}) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var found []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		full := strings.TrimSuffix(resolved.String(), "/")

		if resolved.Host != "" && resolved.Host != c.domain {
			return
		}
		lower := strings.ToLower(full)
		for _, keyword := range skipKeywords {
			if strings.Contains(lower, keyword) {
				return
			}
		}
		for _, ext := range skipExtensions {
			if strings.HasSuffix(lower, ext) {
				return
			}
		}
		if _, ok := seen[full]; ok {
			return
		}
		seen[full] = struct{}{}
		found = append(found, full)
	})
	return found
}

// extractSegments pulls the page's text units in reading order: title,
// top-level headings, substantial paragraphs, then list items.
func extractSegments(doc *goquery.Document) []string {
	var segments []string
	appendText := func(text string) {
		text = strings.TrimSpace(text)
		if text != "" {
			segments = append(segments, text)
		}
	}

	appendText(doc.Find("title").First().Text())
	doc.Find("h1, h2").Each(func(_ int, sel *goquery.Selection) {
		appendText(sel.Text())
	})
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > minParagraphChars {
			segments = append(segments, text)
		}
	})
	doc.Find("ul li, ol li").Each(func(_ int, sel *goquery.Selection) {
		appendText(sel.Text())
	})
	return segments
}

var pageTypeRules = []struct {
	pageType string
	keywords []string
}{
	{"product", []string{"ingredient", "how to use", "benefits"}},
	{"faq", []string{"faq", "frequently asked", "shipping", "returns"}},
	{"routine", []string{"routine", "step", "cleanse", "apply"}},
}

// classifyPage buckets a page by body-text vocabulary, defaulting to
// "general".
func classifyPage(doc *goquery.Document) string {
	text := strings.ToLower(doc.Find("body").Text())
	for _, rule := range pageTypeRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				return rule.pageType
			}
		}
	}
	return "general"
}
