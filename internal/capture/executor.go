// Package capture executes per-page, per-viewport captures with a layered
// readiness protocol, strict pre-screenshot validation, and classified
// retry-with-backoff. A single bad page never aborts the run.
package capture

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/retry"
)

// Result aggregates the capture phase's output.
type Result struct {
	Artifacts []schemas.CapturedArtifact
	// Tabs and Interactions hold sub-captures keyed by page URL: tab panel
	// states and revealed disclosure states respectively.
	Tabs         map[string][]schemas.SubCapture
	Interactions map[string][]schemas.SubCapture
	Errors       []schemas.CaptureError
	Stats        schemas.RunStats
}

// Executor drives the capture phase over the shared browser session.
type Executor struct {
	driver  schemas.BrowserDriver
	capCfg  config.CaptureConfig
	outCfg  config.OutputConfig
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewExecutor wires a capture executor.
func NewExecutor(driver schemas.BrowserDriver, capCfg config.CaptureConfig, outCfg config.OutputConfig, logger *zap.Logger) *Executor {
	return &Executor{
		driver:  driver,
		capCfg:  capCfg,
		outCfg:  outCfg,
		logger:  logger.Named("capture"),
		nowFunc: time.Now,
	}
}

// Run captures every page at every viewport, strictly in discovery order.
// Per-page failures are contained: retried per policy, then recorded as
// exactly one CaptureError and counted once in the statistics.
func (e *Executor) Run(ctx context.Context, pages []schemas.DiscoveredPage, viewports []schemas.Viewport) (*Result, error) {
	if err := os.MkdirAll(e.screenshotDir(), 0o755); err != nil {
		return nil, fmt.Errorf("could not create screenshot directory: %w", err)
	}
	if e.outCfg.SaveHTML {
		if err := os.MkdirAll(e.htmlDir(), 0o755); err != nil {
			return nil, fmt.Errorf("could not create html directory: %w", err)
		}
	}

	result := &Result{
		Tabs:         make(map[string][]schemas.SubCapture),
		Interactions: make(map[string][]schemas.SubCapture),
	}
	result.Stats.PagesDiscovered = len(pages)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Stats.PagesAttempted++
		artifacts, err := e.capturePage(ctx, page, viewports)
		if err != nil {
			f := classify(err)
			result.Stats.PagesFailed++
			result.Errors = append(result.Errors, schemas.CaptureError{
				Timestamp: e.nowFunc(),
				PageURL:   page.URL,
				Type:      f.Type,
				Message:   f.Message,
			})
			e.logger.Warn("Page capture failed terminally; continuing with next page.",
				zap.String("url", page.URL), zap.String("type", string(f.Type)))
		} else {
			result.Stats.PagesSucceeded++
			result.Artifacts = append(result.Artifacts, artifacts...)

			if e.capCfg.CaptureTabs {
				if tabs := e.captureTabs(ctx, page); len(tabs) > 0 {
					result.Tabs[page.URL] = tabs
				}
			}
			if e.capCfg.CaptureInteractions {
				if subs := e.captureInteractions(ctx, page); len(subs) > 0 {
					result.Interactions[page.URL] = subs
				}
			}
		}
		result.Stats.SuccessRate = successRate(result.Stats)
	}

	return result, nil
}

// capturePage captures one page at every viewport. The first viewport to
// fail terminally fails the whole page; partial viewport sets are not
// recorded as success.
func (e *Executor) capturePage(ctx context.Context, page schemas.DiscoveredPage, viewports []schemas.Viewport) ([]schemas.CapturedArtifact, error) {
	var artifacts []schemas.CapturedArtifact
	for _, vp := range viewports {
		artifact, err := e.captureViewport(ctx, page, vp)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, nil
}

// captureViewport runs the attempt loop for one (page, viewport) pair. The
// retry ceilings are per failure class: the attempt budget for transient
// validation glitches is larger than for a 404 that will never recover.
func (e *Executor) captureViewport(ctx context.Context, page schemas.DiscoveredPage, vp schemas.Viewport) (*schemas.CapturedArtifact, error) {
	classAttempts := make(map[schemas.CaptureErrorType]int)

	policy := retry.Policy{
		MaxAttempts: maxCeiling(e.capCfg.Retries),
		BaseDelay:   e.capCfg.BackoffBase,
		Retryable: func(err error) bool {
			f := classify(err)
			classAttempts[f.Type]++
			return classAttempts[f.Type] < e.ceilingFor(f.Type)
		},
	}

	var artifact *schemas.CapturedArtifact
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			e.logger.Info("Retrying capture.", zap.String("url", page.URL), zap.String("viewport", vp.Name), zap.Int("attempt", attempt))
		}
		a, err := e.attempt(ctx, page, vp)
		if err != nil {
			return err
		}
		artifact = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// attempt is a single capture try: navigate, readiness protocol, validation,
// screenshot, post-capture size checks. Any validation miss fails the whole
// attempt; there is no "success with caveats".
func (e *Executor) attempt(ctx context.Context, page schemas.DiscoveredPage, vp schemas.Viewport) (*schemas.CapturedArtifact, error) {
	if err := e.driver.SetViewport(ctx, vp.Width, vp.Height); err != nil {
		return nil, err
	}
	if _, err := e.driver.Open(ctx, page.URL); err != nil {
		return nil, err
	}

	// Readiness protocol, in order: fixed settle, network-idle, load,
	// DOM-ready. Idle-network and document lifecycle are complementary
	// signals (SPA XHR completion vs classic load); relying on one alone
	// under-captures either static or hydrated pages.
	if err := e.driver.Sleep(ctx, int(e.capCfg.SettleDelay.Milliseconds())); err != nil {
		return nil, err
	}
	// A wait that exceeds the per-action timeout is a capture failure and
	// enters the retry path under the timeout ceiling. Other wait errors are
	// soft: an unsettled signal still often renders a capturable page.
	for _, cond := range []schemas.WaitCondition{schemas.WaitNetworkIdle, schemas.WaitLoad, schemas.WaitDOMReady} {
		if err := e.driver.WaitFor(ctx, cond); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			if errors.Is(err, schemas.ErrDriverTimeout) {
				return nil, fmt.Errorf("readiness wait %s: %w", cond, err)
			}
			e.logger.Debug("Readiness wait did not settle.", zap.String("condition", string(cond)), zap.Error(err))
		}
	}

	if err := e.validateBeforeScreenshot(ctx, page); err != nil {
		return nil, err
	}

	slug := pageSlug(page.URL)
	screenshotPath := filepath.Join(e.screenshotDir(), fmt.Sprintf("%s__%s.png", slug, vp.Name))
	size, err := e.driver.Screenshot(ctx, screenshotPath, e.capCfg.FullPage)
	if err != nil {
		return nil, err
	}
	if size < e.capCfg.MinScreenshotBytes {
		return nil, &failure{
			Type:    schemas.ErrScreenshotTooSmall,
			Message: fmt.Sprintf("screenshot is %d bytes, minimum is %d", size, e.capCfg.MinScreenshotBytes),
		}
	}

	artifact := &schemas.CapturedArtifact{
		PageURL:        page.URL,
		Viewport:       vp.Name,
		ScreenshotPath: screenshotPath,
		CapturedAt:     e.nowFunc(),
	}

	if e.outCfg.SaveHTML {
		doc, err := e.driver.Get(ctx, schemas.PropHTML)
		if err != nil {
			return nil, err
		}
		if int64(len(doc)) < e.capCfg.MinHTMLBytes {
			return nil, &failure{
				Type:    schemas.ErrHTMLTooSmall,
				Message: fmt.Sprintf("serialized HTML is %d bytes, minimum is %d", len(doc), e.capCfg.MinHTMLBytes),
			}
		}
		htmlPath := filepath.Join(e.htmlDir(), slug+".html")
		if err := os.WriteFile(htmlPath, []byte(doc), 0o644); err != nil {
			return nil, fmt.Errorf("could not write HTML artifact: %w", err)
		}
		artifact.HTMLPath = htmlPath
	}

	return artifact, nil
}

// validateBeforeScreenshot applies the pre-screenshot checks. All must hold.
func (e *Executor) validateBeforeScreenshot(ctx context.Context, page schemas.DiscoveredPage) error {
	title, err := e.driver.Get(ctx, schemas.PropTitle)
	if err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return &failure{Type: schemas.ErrValidationFailed, Message: "page title is empty"}
	}

	hasBody, err := e.driver.Eval(ctx, `document.body ? "true" : "false"`)
	if err != nil {
		return err
	}
	if hasBody != "true" {
		return &failure{Type: schemas.ErrValidationFailed, Message: "document has no body element"}
	}

	hasLandmark, err := e.driver.Eval(ctx,
		`document.querySelector('main, nav, [role=main], #root, #app, .content, article, section') ? "true" : "false"`)
	if err != nil {
		return err
	}
	if hasLandmark != "true" {
		return &failure{Type: schemas.ErrValidationFailed, Message: "no structural landmark element found; page looks blank or broken"}
	}

	heightStr, err := e.driver.Eval(ctx, `document.body.scrollHeight`)
	if err != nil {
		return err
	}
	height, err := strconv.ParseInt(strings.TrimSpace(heightStr), 10, 64)
	if err != nil {
		return &failure{Type: schemas.ErrValidationFailed, Message: fmt.Sprintf("could not read page height (%q)", heightStr)}
	}
	if height < e.capCfg.MinPageHeight {
		return &failure{
			Type:    schemas.ErrPageTooShort,
			Message: fmt.Sprintf("rendered height %dpx is below minimum %dpx", height, e.capCfg.MinPageHeight),
		}
	}

	banner, err := e.driver.Eval(ctx, errorBannerProbe)
	if err != nil {
		return err
	}
	if banner != "" && banner != "none" {
		return &failure{Type: schemas.ErrValidationFailed, Message: fmt.Sprintf("visible error banner: %s", banner)}
	}

	return nil
}

// errorBannerProbe looks for visible error text (404, not found, alert
// roles). It returns "none" when the page looks healthy.
const errorBannerProbe = `(function() {
  const alertEl = document.querySelector('[role=alert], .error-page, .error-message');
  if (alertEl && alertEl.textContent.trim()) return alertEl.textContent.trim().slice(0, 120);
  const title = (document.title || '').toLowerCase();
  if (title.includes('404') || title.includes('not found')) return document.title;
  const h1 = document.querySelector('h1');
  if (h1) {
    const text = h1.textContent.toLowerCase();
    if (text.includes('404') || text.includes('not found') || text.includes('something went wrong')) {
      return h1.textContent.trim();
    }
  }
  return 'none';
})()`

// captureTabs clicks tab-like controls on an already-captured page and
// records one sub-capture per tab state. Tab failures are soft; a page with
// unclickable tabs is still a captured page.
func (e *Executor) captureTabs(ctx context.Context, page schemas.DiscoveredPage) []schemas.SubCapture {
	return e.captureControls(ctx, page, findTabs, "tab")
}

// captureInteractions expands collapsed disclosure controls (accordions,
// dropdown triggers) and records the revealed state. Same soft-failure
// contract as tabs.
func (e *Executor) captureInteractions(ctx context.Context, page schemas.DiscoveredPage) []schemas.SubCapture {
	return e.captureControls(ctx, page, findDisclosures, "int")
}

func (e *Executor) captureControls(ctx context.Context, page schemas.DiscoveredPage, find func(string) []control, kind string) []schemas.SubCapture {
	snapshot, err := e.driver.Snapshot(ctx, true)
	if err != nil {
		e.logger.Debug("Could not snapshot page for control discovery.", zap.String("url", page.URL), zap.Error(err))
		return nil
	}

	const maxControls = 5
	var subs []schemas.SubCapture
	for _, c := range find(snapshot) {
		if len(subs) >= maxControls {
			break
		}
		if err := e.driver.Click(ctx, c.Ref); err != nil {
			e.logger.Debug("Control click failed.", zap.String("control", c.Name), zap.Error(err))
			continue
		}
		// Give the revealed panel a moment to render.
		if err := e.driver.Sleep(ctx, 500); err != nil {
			return subs
		}

		path := filepath.Join(e.screenshotDir(), fmt.Sprintf("%s__%s-%s.png", pageSlug(page.URL), kind, slugify(c.Name)))
		if _, err := e.driver.Screenshot(ctx, path, false); err != nil {
			e.logger.Debug("Control screenshot failed.", zap.String("control", c.Name), zap.Error(err))
			continue
		}
		subs = append(subs, schemas.SubCapture{Name: c.Name, Screenshot: path})
	}
	return subs
}

func (e *Executor) screenshotDir() string {
	return filepath.Join(e.outCfg.Directory, "screenshots")
}

func (e *Executor) htmlDir() string {
	return filepath.Join(e.outCfg.Directory, "html")
}

// ceilingFor returns the retry ceiling for a failure class.
func (e *Executor) ceilingFor(t schemas.CaptureErrorType) int {
	switch t {
	case schemas.ErrTimeout:
		return e.capCfg.Retries.Timeout
	case schemas.ErrNotFound:
		return e.capCfg.Retries.NotFound
	default:
		return e.capCfg.Retries.Validation
	}
}

func maxCeiling(r config.RetryCeilings) int {
	max := r.Validation
	if r.Timeout > max {
		max = r.Timeout
	}
	if r.NotFound > max {
		max = r.NotFound
	}
	if max < 1 {
		max = 1
	}
	return max
}

func successRate(s schemas.RunStats) float64 {
	if s.PagesAttempted == 0 {
		return 0
	}
	return float64(s.PagesSucceeded) / float64(s.PagesAttempted)
}

// pageSlug derives a filesystem-safe name from a page URL. Pages differing
// only in query string get distinct slugs so their artifacts never collide.
func pageSlug(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "home"
	}
	slug := "home"
	if u.Path != "" && u.Path != "/" {
		slug = slugify(strings.Trim(u.Path, "/"))
	}
	if u.RawQuery != "" {
		h := fnv.New32a()
		h.Write([]byte(u.RawQuery))
		slug = fmt.Sprintf("%s--%08x", slug, h.Sum32())
	}
	return slug
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '/' || r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "page"
	}
	return slug
}
