// Package discovery implements bounded breadth-first page discovery over
// same-origin links, plus the scope rules that keep the crawl away from
// destructive or out-of-bounds URLs.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
)

// Static asset extensions the crawler never treats as pages.
var ignoredExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".woff": {}, ".woff2": {}, ".ico": {}, ".svg": {}, ".ttf": {}, ".eot": {},
	".pdf": {}, ".zip": {}, ".map": {},
}

// Error is a fatal discovery failure: the starting URL was unreachable.
type Error struct {
	URL   string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("discovery: base URL %s unreachable: %v", e.URL, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Crawler performs the bounded BFS traversal. Navigation is strictly
// sequential through the single browser session.
type Crawler struct {
	driver  schemas.BrowserDriver
	scope   *Scope
	cfg     config.CrawlConfig
	logger  *zap.Logger
	limiter *rate.Limiter
}

// frontierEntry is a discovered-but-unvisited URL with its depth.
type frontierEntry struct {
	url   string
	depth int
}

// NewCrawler wires a crawler over the shared browser driver.
func NewCrawler(driver schemas.BrowserDriver, scope *Scope, cfg config.CrawlConfig, logger *zap.Logger) *Crawler {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	return &Crawler{
		driver:  driver,
		scope:   scope,
		cfg:     cfg,
		logger:  logger.Named("crawler"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Discover produces the run's page set starting from the authenticated
// landing URL. The visited set guarantees termination even over cyclic link
// graphs; the traversal stops when the frontier drains, depth exceeds
// MaxDepth, or the discovered set reaches MaxPages.
//
// In manual mode only the include list is used. In hybrid mode the manual
// entries are inserted before auto-discovery consumes the remaining budget,
// so they are never starved out.
func (c *Crawler) Discover(ctx context.Context, startURL string) ([]schemas.DiscoveredPage, error) {
	visited := make(map[string]struct{})
	var discovered []schemas.DiscoveredPage

	add := func(raw string, depth int) bool {
		u, err := c.normalize(raw, startURL)
		if err != nil {
			c.logger.Debug("Discarding URL.", zap.String("url", raw), zap.Error(err))
			return false
		}
		key := u.String()
		if _, seen := visited[key]; seen {
			return false
		}
		visited[key] = struct{}{}
		discovered = append(discovered, schemas.DiscoveredPage{URL: key, Depth: depth})
		c.logger.Info("Page discovered.", zap.String("url", key), zap.Int("depth", depth))
		return true
	}

	// Manual entries are seeded first in manual and hybrid modes so the
	// MaxPages budget cannot starve them out.
	if c.cfg.Mode == schemas.ModeManual || c.cfg.Mode == schemas.ModeHybrid {
		for _, include := range c.cfg.IncludePages {
			if len(discovered) >= c.cfg.MaxPages {
				break
			}
			add(include, 0)
		}
		if c.cfg.Mode == schemas.ModeManual {
			return discovered, nil
		}
	}

	frontier := []frontierEntry{}
	if add(startURL, 0) || len(discovered) > 0 {
		frontier = append(frontier, frontierEntry{url: startURL, depth: 0})
	}

	first := true
	for len(frontier) > 0 && len(discovered) < c.cfg.MaxPages {
		entry := frontier[0]
		frontier = frontier[1:]

		if entry.depth >= c.cfg.MaxDepth {
			continue
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return discovered, err
		}

		links, err := c.fetchLinks(ctx, entry.url)
		if err != nil {
			if first {
				// An unreachable starting URL is fatal; there is nothing to
				// crawl and no automatic recovery for connectivity failures.
				return nil, &Error{URL: entry.url, Cause: err}
			}
			c.logger.Warn("Could not crawl page; continuing.", zap.String("url", entry.url), zap.Error(err))
			continue
		}
		first = false

		nextDepth := entry.depth + 1
		for _, link := range links {
			if len(discovered) >= c.cfg.MaxPages {
				break
			}
			if add(link, nextDepth) {
				frontier = append(frontier, frontierEntry{url: discovered[len(discovered)-1].URL, depth: nextDepth})
			}
		}
	}

	return discovered, nil
}

// fetchLinks navigates to a page and extracts candidate links from its
// served markup.
func (c *Crawler) fetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	if _, err := c.driver.Open(ctx, pageURL); err != nil {
		return nil, err
	}
	if err := c.driver.WaitFor(ctx, schemas.WaitDOMReady); err != nil {
		c.logger.Debug("DOM-ready wait failed while crawling.", zap.String("url", pageURL), zap.Error(err))
	}
	doc, err := c.driver.Get(ctx, schemas.PropHTML)
	if err != nil {
		return nil, err
	}
	return ExtractLinks(doc), nil
}

// normalize resolves a raw link against the base, strips fragments, drops
// default ports, rejects non-HTTP schemes and static assets, and enforces
// the scope rules (same origin, exclusions, robots).
func (c *Crawler) normalize(raw, baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	if !u.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		u = base.ResolveReference(u)
	}

	u.Fragment = ""

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	host := u.Host
	if (u.Scheme == "http" && strings.HasSuffix(host, ":80")) || (u.Scheme == "https" && strings.HasSuffix(host, ":443")) {
		u.Host = u.Hostname()
	}
	if u.Path == "" {
		u.Path = "/"
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if _, ignore := ignoredExtensions[ext]; ignore {
		return nil, fmt.Errorf("static asset ignored")
	}

	if !c.scope.SameOrigin(u) {
		return nil, fmt.Errorf("different origin: %s", u.Host)
	}
	if c.scope.Excluded(u) {
		return nil, fmt.Errorf("matches exclude pattern")
	}
	if !c.scope.RobotsAllowed(u) {
		return nil, fmt.Errorf("disallowed by robots.txt")
	}

	return u, nil
}
