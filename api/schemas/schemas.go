// Package schemas defines the shared data model of the capture pipeline:
// discovered pages, captured artifacts, the design token set, the manifest,
// and the error taxonomy. Artifact shapes here are the wire contract with
// downstream consumers and must stay bit-exact.
package schemas

import (
	"time"
)

// -- Discovery Schemas --

// DiscoveredPage is a unique, same-origin URL found during crawling.
type DiscoveredPage struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// CrawlMode selects how the discovered-page set is assembled.
type CrawlMode string

const (
	// ModeAuto discovers pages exclusively via breadth-first crawling.
	ModeAuto CrawlMode = "auto"
	// ModeManual captures only the configured include list.
	ModeManual CrawlMode = "manual"
	// ModeHybrid seeds the include list first, then crawls into the
	// remaining page budget so manual entries are never starved out.
	ModeHybrid CrawlMode = "hybrid"
)

// -- Capture Schemas --

// CapturedArtifact records one successful capture of a page at a viewport.
type CapturedArtifact struct {
	PageURL        string    `json:"pageUrl"`
	Viewport       string    `json:"viewport"`
	ScreenshotPath string    `json:"screenshot"`
	HTMLPath       string    `json:"html,omitempty"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// CaptureErrorType classifies per-page capture failures. Each class has its
// own retry ceiling because their expected recoverability differs.
type CaptureErrorType string

const (
	ErrValidationFailed   CaptureErrorType = "validation_failed"
	ErrTimeout            CaptureErrorType = "timeout"
	ErrNotFound           CaptureErrorType = "not_found"
	ErrScreenshotTooSmall CaptureErrorType = "screenshot_too_small"
	ErrHTMLTooSmall       CaptureErrorType = "html_too_small"
	ErrPageTooShort       CaptureErrorType = "page_too_short"
)

// CaptureError is one terminal per-page failure. It is appended to the run's
// error log and counted in statistics; it never aborts the crawl.
type CaptureError struct {
	Timestamp time.Time        `json:"timestamp"`
	PageURL   string           `json:"pageUrl"`
	Type      CaptureErrorType `json:"type"`
	Message   string           `json:"message"`
}

// RunStats aggregates capture counters across a run. Counters are updated
// after every terminal outcome, so the statistics are live during a run.
type RunStats struct {
	PagesDiscovered int     `json:"pagesDiscovered"`
	PagesAttempted  int     `json:"pagesAttempted"`
	PagesSucceeded  int     `json:"pagesSucceeded"`
	PagesFailed     int     `json:"pagesFailed"`
	SuccessRate     float64 `json:"successRate"`
	ColorsFound     int     `json:"colorsFound"`
	FontsFound      int     `json:"fontsFound"`
}

// -- Design Token Schemas --

// ColorSample pairs a normalized color string with its occurrence count.
type ColorSample struct {
	Color string
	Count int
}

// BackgroundColors buckets background candidates by luminance band.
type BackgroundColors struct {
	White string `json:"white"`
	Light string `json:"light"`
	Dark  string `json:"dark"`
}

// TextColors buckets foreground text candidates.
type TextColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Disabled  string `json:"disabled"`
}

// BorderColors holds border-related tokens.
type BorderColors struct {
	Default string `json:"default"`
	Focus   string `json:"focus"`
}

// StatusColors holds semantic status tokens.
type StatusColors struct {
	Success string `json:"success"`
	Warning string `json:"warning"`
	Error   string `json:"error"`
	Info    string `json:"info"`
}

// CategorizedColors is the semantic color map derived from raw frequencies.
type CategorizedColors struct {
	Primary    string           `json:"primary"`
	Secondary  string           `json:"secondary"`
	Background BackgroundColors `json:"background"`
	Text       TextColors       `json:"text"`
	Border     BorderColors     `json:"border"`
	Status     StatusColors     `json:"status"`
}

// FontTokens lists the font families observed across the run.
type FontTokens struct {
	Families []string `json:"families"`
	Primary  string   `json:"primary"`
}

// DesignTokenSet is the canonical design-tokens.json artifact. RawColors is
// frequency-sorted and that ordering is meaningful output, not an
// implementation detail. TotalColorsFound counts distinct normalized colors
// observed before any bucketing.
type DesignTokenSet struct {
	ExtractedAt      time.Time         `json:"extractedAt"`
	TotalColorsFound int               `json:"totalColorsFound"`
	Colors           CategorizedColors `json:"colors"`
	Fonts            FontTokens        `json:"fonts"`
	RawColors        []RawColor        `json:"rawColors"`
}

// RawColor is a ColorSample that serializes as a [color, count] pair to keep
// the artifact shape bit-exact with downstream consumers (see json.go).
type RawColor ColorSample

// -- Manifest Schemas --

// SubCapture is a nested capture taken after an interaction (tab click etc.).
type SubCapture struct {
	Name       string `json:"name"`
	Screenshot string `json:"screenshot"`
}

// ViewportCapture references the screenshot taken at one named viewport.
type ViewportCapture struct {
	Viewport   string `json:"viewport"`
	Screenshot string `json:"screenshot"`
}

// PageEntry is one canonical per-page record in the manifest. Name is
// required, but downstream consumers must treat its absence as a reportable
// validation issue, never as grounds for a crash.
type PageEntry struct {
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Screenshot   string            `json:"screenshot"`
	HTML         string            `json:"html,omitempty"`
	Description  string            `json:"description"`
	Captures     []ViewportCapture `json:"captures,omitempty"`
	Tabs         []SubCapture      `json:"tabs,omitempty"`
	Interactions []SubCapture      `json:"interactions,omitempty"`
}

// PlatformInfo identifies the captured platform.
type PlatformInfo struct {
	Name       string    `json:"name"`
	BaseURL    string    `json:"baseUrl"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Manifest is the canonical manifest.json artifact linking discovered pages
// to their captured artifacts and the design token file.
type Manifest struct {
	Platform     PlatformInfo `json:"platform"`
	Pages        []PageEntry  `json:"pages"`
	Stats        RunStats     `json:"stats"`
	DesignTokens string       `json:"designTokens"`
}
