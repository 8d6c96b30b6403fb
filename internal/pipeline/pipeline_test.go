package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/mocks"
)

const dashboardHTML = `<html><head><title>Dashboard</title>
<style>
  body { background: #ffffff; color: #333333; font-family: "Inter", sans-serif; }
  .btn { background: #1a73e8; }
  .accent { color: #4dabf7; }
</style></head><body>
<a href="/projects">Projects</a>
<a href="/settings">Settings</a>
<main>Dashboard content goes here.</main>
</body></html>`

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Platform: config.PlatformConfig{Name: "Acme", BaseURL: baseURL},
		Auth: config.AuthConfig{
			Email:    "qa@example.com",
			Password: "hunter2",
			Selectors: config.SelectorSet{
				Email: "#email",
			},
			SettleDelay: 1,
		},
		Crawl: config.CrawlConfig{
			Mode:              schemas.ModeAuto,
			MaxPages:          10,
			MaxDepth:          2,
			RequestsPerSecond: 1000,
			Viewports: []schemas.Viewport{
				{Name: "desktop", Width: 1440, Height: 900},
			},
		},
		Capture: config.CaptureConfig{
			Retries:            config.RetryCeilings{Validation: 2, Timeout: 2, NotFound: 1},
			MinPageHeight:      200,
			MinScreenshotBytes: 100,
			MinHTMLBytes:       10,
			FullPage:           true,
		},
		Output: config.OutputConfig{
			Directory: t.TempDir(),
			SaveHTML:  true,
		},
		Gates: config.GatesConfig{
			MinPages:  2,
			MinColors: 3,
			// Nonexistent on purpose so the post-generation gate is skipped.
			GeneratedDir:    filepath.Join(t.TempDir(), "generated"),
			ScanConcurrency: 2,
		},
	}
}

// scriptedDriver fakes a three-page app behind a login form.
func scriptedDriver(baseURL string) *mocks.FakeDriver {
	driver := mocks.NewFakeDriver()
	driver.Pages[baseURL+"/login"] = &mocks.FakePage{
		Title:      "Login",
		RedirectTo: baseURL + "/dashboard",
	}
	driver.Pages[baseURL+"/dashboard"] = &mocks.FakePage{
		Title: "Dashboard",
		HTML:  dashboardHTML,
	}
	driver.Pages[baseURL+"/projects"] = &mocks.FakePage{
		Title: "Projects",
		HTML:  "<html><head><title>Projects</title></head><body><main style=\"color: #e53935\">Project list.</main></body></html>",
	}
	driver.Pages[baseURL+"/settings"] = &mocks.FakePage{
		Title: "Settings",
		HTML:  "<html><head><title>Settings</title></head><body><main>Settings form.</main></body></html>",
	}
	driver.EvalResults["document.body ?"] = "true"
	driver.EvalResults["querySelector('main"] = "true"
	driver.EvalResults["role=alert"] = "none"
	return driver
}

func testPipeline(cfg *config.Config, driver *mocks.FakeDriver) *Pipeline {
	factory := func(ctx context.Context) (schemas.BrowserDriver, error) {
		return driver, nil
	}
	return New(cfg, zap.NewNop(), factory)
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	driver := scriptedDriver("http://app.test")
	p := testPipeline(cfg, driver)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, summary.Success(), "halted at %q", summary.HaltedAt)

	// Pre-capture, post-capture and pre-generation ran; post-generation was
	// skipped because no generated tree exists.
	require.Len(t, summary.GateResults, 3)
	for _, r := range summary.GateResults {
		assert.True(t, r.Passed, "gate %s failed: %+v", r.Phase, r.Checks)
	}

	assert.True(t, driver.Closed)
	assert.GreaterOrEqual(t, summary.Stats.PagesSucceeded, 3)
	assert.GreaterOrEqual(t, summary.Stats.ColorsFound, 3)
	assert.GreaterOrEqual(t, summary.Stats.FontsFound, 1)

	for _, name := range []string{
		"manifest.json",
		"design-tokens.json",
		"validation-pre-capture.json",
		"validation-post-capture.json",
		"validation-pre-generation.json",
	} {
		_, err := os.Stat(filepath.Join(cfg.Output.Directory, name))
		assert.NoError(t, err, name)
	}
}

func TestRunHaltsAtFailingRequiredGate(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	cfg.Gates.MinPages = 50
	driver := scriptedDriver("http://app.test")
	p := testPipeline(cfg, driver)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.Success())
	assert.Equal(t, schemas.PhasePostCapture, summary.HaltedAt)
	// Capture still happened and the browser session was released; the
	// artifacts stay on disk for inspection.
	assert.True(t, driver.Closed)
	_, statErr := os.Stat(filepath.Join(cfg.Output.Directory, "manifest.json"))
	assert.NoError(t, statErr)
}

func TestRunHaltsBeforeCaptureWithoutCredentials(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	cfg.Auth.Email = ""
	cfg.Auth.Password = ""

	launched := false
	p := New(cfg, zap.NewNop(), func(ctx context.Context) (schemas.BrowserDriver, error) {
		launched = true
		return mocks.NewFakeDriver(), nil
	})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.PhasePreCapture, summary.HaltedAt)
	assert.False(t, launched, "browser must not launch when the pre-capture gate fails")
}

func TestCaptureClosesDriverOnAuthFailure(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	driver := scriptedDriver("http://app.test")
	// No redirect after submit means the login did not take.
	driver.Pages["http://app.test/login"].RedirectTo = ""
	p := testPipeline(cfg, driver)

	_, err := p.Capture(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
	assert.True(t, driver.Closed)
}

func TestCaptureRespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /settings\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Crawl.RespectRobots = true
	driver := scriptedDriver(srv.URL)
	p := testPipeline(cfg, driver)

	stats, err := p.Capture(context.Background())
	require.NoError(t, err)

	for _, opened := range driver.Opened {
		assert.NotContains(t, opened, "/settings")
	}
	assert.Equal(t, 2, stats.PagesDiscovered)
}

func TestCaptureWritesErrorLogForFailedPages(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	driver := scriptedDriver("http://app.test")
	// A dead link in the dashboard markup produces a capture failure.
	driver.Pages["http://app.test/dashboard"].HTML = dashboardHTML +
		`<a href="/missing">Missing</a>`
	p := testPipeline(cfg, driver)

	_, err := p.Capture(context.Background())
	require.NoError(t, err)

	data, readErr := os.ReadFile(filepath.Join(cfg.Output.Directory, "capture-errors.json"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "/missing")
}

func TestValidateSinglePhase(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	p := testPipeline(cfg, mocks.NewFakeDriver())

	summary, err := p.Validate(context.Background(), "pre-capture")
	require.NoError(t, err)
	require.Len(t, summary.GateResults, 1)
	assert.Equal(t, schemas.PhasePreCapture, summary.GateResults[0].Phase)
	assert.True(t, summary.GateResults[0].Passed)
}

func TestValidateAllEvaluatesEveryPhase(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	// No credentials and no artifacts: several gates will fail.
	cfg.Auth.Email = ""
	cfg.Auth.Password = ""
	p := testPipeline(cfg, mocks.NewFakeDriver())

	summary, err := p.Validate(context.Background(), "all")
	require.NoError(t, err)

	// Every phase is evaluated and reported even though the first one
	// already failed; only the pipeline halts early, not validate.
	require.Len(t, summary.GateResults, len(schemas.GatePhases))
	for i, phase := range schemas.GatePhases {
		assert.Equal(t, phase, summary.GateResults[i].Phase)
		_, statErr := os.Stat(filepath.Join(cfg.Output.Directory,
			fmt.Sprintf("validation-%s.json", phase)))
		assert.NoError(t, statErr, "missing report for %s", phase)
	}
	assert.False(t, summary.Success())
	assert.Equal(t, schemas.PhasePreCapture, summary.HaltedAt)
}

func TestValidateUnknownPhase(t *testing.T) {
	cfg := testConfig(t, "http://app.test")
	p := testPipeline(cfg, mocks.NewFakeDriver())

	_, err := p.Validate(context.Background(), "mid-flight")
	assert.Error(t, err)
}
