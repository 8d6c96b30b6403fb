package discovery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/temoto/robotstxt"
)

// Scope defines the boundary of a crawl: the origin of the base URL, the
// configured exclusion patterns, and (optionally) the platform's robots.txt.
// Exclusions exist to keep the crawler away from destructive paths (logout,
// delete) during automated traversal. Absolutely critical.
type Scope struct {
	base     *url.URL
	excludes []string
	robots   *robotstxt.RobotsData
}

// NewScope builds a scope around the base URL. excludePatterns are matched
// both as substrings and as doublestar glob patterns against the URL path.
func NewScope(baseURL string, excludePatterns []string) (*Scope, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("base URL %q must have a hostname", baseURL)
	}
	return &Scope{base: u, excludes: excludePatterns}, nil
}

// SetRobots installs parsed robots.txt rules. A nil receiver group or no
// install at all means robots rules are not consulted.
func (s *Scope) SetRobots(body []byte) error {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return fmt.Errorf("could not parse robots.txt: %w", err)
	}
	s.robots = data
	return nil
}

// SameOrigin reports whether u shares scheme and host with the base URL.
func (s *Scope) SameOrigin(u *url.URL) bool {
	return u.Scheme == s.base.Scheme && u.Host == s.base.Host
}

// Excluded reports whether the URL matches any configured exclusion, either
// as a substring of the full URL or as a glob over its path.
func (s *Scope) Excluded(u *url.URL) bool {
	full := u.String()
	for _, pattern := range s.excludes {
		if strings.Contains(full, pattern) {
			return true
		}
		if ok, err := doublestar.Match(pattern, u.Path); err == nil && ok {
			return true
		}
	}
	return false
}

// RobotsAllowed reports whether robots.txt permits fetching the path. With
// no robots data installed everything is allowed.
func (s *Scope) RobotsAllowed(u *url.URL) bool {
	if s.robots == nil {
		return true
	}
	return s.robots.TestAgent(u.Path, "prism-cli")
}

// Allows is the combined scope decision used by the crawler.
func (s *Scope) Allows(u *url.URL) bool {
	return s.SameOrigin(u) && !s.Excluded(u) && s.RobotsAllowed(u)
}

// Base returns the scope's base URL.
func (s *Scope) Base() *url.URL {
	return s.base
}
