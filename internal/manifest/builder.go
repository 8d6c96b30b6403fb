// Package manifest assembles the canonical manifest.json linking discovered
// pages to their captured artifacts, statistics, and the design token file.
// Serialization uses the JCS canonical JSON form so rebuilding a manifest
// from the same inputs yields byte-identical output aside from timestamps.
package manifest

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/capture"
	"github.com/kaidhar/prism-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Builder turns capture output into a Manifest.
type Builder struct {
	platform config.PlatformConfig
	logger   *zap.Logger
	nowFunc  func() time.Time
}

// NewBuilder wires a manifest builder for the given platform.
func NewBuilder(platform config.PlatformConfig, logger *zap.Logger) *Builder {
	return &Builder{platform: platform, logger: logger.Named("manifest"), nowFunc: time.Now}
}

// Build assembles the manifest from capture results. Pages appear in
// discovery order; pages that failed capture are omitted (they are recorded
// in the error log, not the manifest). tokensFile is the relative path of
// the design token artifact.
func (b *Builder) Build(pages []schemas.DiscoveredPage, result *capture.Result, tokensFile string) *schemas.Manifest {
	byPage := make(map[string][]schemas.CapturedArtifact)
	for _, a := range result.Artifacts {
		byPage[a.PageURL] = append(byPage[a.PageURL], a)
	}

	m := &schemas.Manifest{
		Platform: schemas.PlatformInfo{
			Name:       b.platform.Name,
			BaseURL:    b.platform.BaseURL,
			CapturedAt: b.nowFunc(),
		},
		Stats:        result.Stats,
		DesignTokens: tokensFile,
	}

	for _, page := range pages {
		artifacts := byPage[page.URL]
		if len(artifacts) == 0 {
			continue
		}
		entry := schemas.PageEntry{
			Name:         pageName(page.URL),
			URL:          page.URL,
			Screenshot:   artifacts[0].ScreenshotPath,
			HTML:         artifacts[0].HTMLPath,
			Tabs:         result.Tabs[page.URL],
			Interactions: result.Interactions[page.URL],
		}
		entry.Description = describe(entry.Name, page.URL)
		for _, a := range artifacts {
			entry.Captures = append(entry.Captures, schemas.ViewportCapture{
				Viewport:   a.Viewport,
				Screenshot: a.ScreenshotPath,
			})
		}
		m.Pages = append(m.Pages, entry)
	}

	b.logger.Info("Manifest assembled.", zap.Int("pages", len(m.Pages)), zap.String("platform", m.Platform.Name))
	return m
}

// Write serializes the manifest in canonical form to path.
func (b *Builder) Write(m *schemas.Manifest, path string) error {
	data, err := Canonical(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write manifest: %w", err)
	}
	return nil
}

// Canonical marshals any artifact value into JCS canonical JSON bytes.
// Canonical form means key ordering and number formatting are fully
// determined by the value, so equal values always produce equal bytes.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not marshal artifact: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("could not canonicalize artifact: %w", err)
	}
	return canonical, nil
}

// pageName humanizes a URL path into a display name: "/projects/42" becomes
// "Projects 42", "/" becomes "Home".
func pageName(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "Home"
	}
	words := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}

// describe derives a human-readable page description from name and URL
// heuristics. The templates are deliberately plain; they seed downstream
// generation prompts, not end-user copy.
func describe(name, pageURL string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "login") || strings.Contains(lower, "sign in") || strings.Contains(lower, "signin"):
		return "Authentication page with the platform login form."
	case strings.Contains(lower, "dashboard") || lower == "home":
		return "Dashboard overview with summary widgets and navigation."
	case strings.Contains(lower, "settings") || strings.Contains(lower, "profile") || strings.Contains(lower, "account"):
		return "Settings view for account and preference management."
	case strings.Contains(lower, "new") || strings.Contains(lower, "edit") || strings.Contains(lower, "create"):
		return fmt.Sprintf("Form view for creating or editing a record (%s).", name)
	case hasNumericSegment(pageURL) || strings.Contains(lower, "detail"):
		return fmt.Sprintf("Detail view for a single %s record.", firstWord(lower))
	case strings.Contains(lower, "list") || lastWordPlural(lower):
		return fmt.Sprintf("List view showing the %s collection.", lower)
	default:
		return fmt.Sprintf("Captured view of the %s page.", lower)
	}
}

func hasNumericSegment(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		numeric := true
		for _, r := range seg {
			if r < '0' || r > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func lastWordPlural(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	return len(last) > 3 && strings.HasSuffix(last, "s") && !strings.HasSuffix(last, "ss")
}
