package capture

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/mocks"
)

func testCaptureConfig() config.CaptureConfig {
	return config.CaptureConfig{
		SettleDelay:        0,
		ActionTimeout:      time.Second,
		BackoffBase:        time.Millisecond,
		Retries:            config.RetryCeilings{Validation: 3, Timeout: 2, NotFound: 1},
		MinPageHeight:      200,
		MinScreenshotBytes: 1000,
		MinHTMLBytes:       10,
		FullPage:           true,
	}
}

// healthyDriver scripts a driver whose pages pass every validation.
func healthyDriver(urls ...string) *mocks.FakeDriver {
	driver := mocks.NewFakeDriver()
	driver.EvalResults[`document.body ?`] = "true"
	driver.EvalResults[`querySelector('main`] = "true"
	driver.EvalResults[`role=alert`] = "none"
	for _, u := range urls {
		driver.Pages[u] = &mocks.FakePage{
			Status: 200,
			Title:  "Acme",
			HTML:   "<html><body><main>hello world</main></body></html>",
		}
	}
	return driver
}

func newTestExecutor(t *testing.T, driver schemas.BrowserDriver, capCfg config.CaptureConfig) *Executor {
	t.Helper()
	out := config.OutputConfig{Directory: t.TempDir(), SaveHTML: true}
	return NewExecutor(driver, capCfg, out, zap.NewNop())
}

var desktopAndMobile = []schemas.Viewport{
	{Name: "desktop", Width: 1440, Height: 900},
	{Name: "mobile", Width: 390, Height: 844},
}

func TestRunCapturesEveryViewport(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/dashboard")
	exec := newTestExecutor(t, driver, testCaptureConfig())

	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/dashboard"}},
		desktopAndMobile)
	require.NoError(t, err)

	require.Len(t, result.Artifacts, 2)
	assert.Equal(t, "desktop", result.Artifacts[0].Viewport)
	assert.Equal(t, "mobile", result.Artifacts[1].Viewport)
	assert.Equal(t, 1, result.Stats.PagesSucceeded)
	assert.Equal(t, 0, result.Stats.PagesFailed)
	assert.Equal(t, 1.0, result.Stats.SuccessRate)

	for _, a := range result.Artifacts {
		info, err := os.Stat(a.ScreenshotPath)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
		assert.NotEmpty(t, a.HTMLPath)
	}
}

func TestRunFailedPageProducesExactlyOneError(t *testing.T) {
	driver := healthyDriver(
		"https://app.acme.test/good-1",
		"https://app.acme.test/broken",
		"https://app.acme.test/good-2",
	)
	// The broken page renders collapsed, far below the height minimum.
	driver.Pages["https://app.acme.test/broken"].PageHeight = "50"

	exec := newTestExecutor(t, driver, testCaptureConfig())
	result, err := exec.Run(context.Background(), []schemas.DiscoveredPage{
		{URL: "https://app.acme.test/good-1"},
		{URL: "https://app.acme.test/broken"},
		{URL: "https://app.acme.test/good-2"},
	}, desktopAndMobile[:1])
	require.NoError(t, err)

	// Exactly one CaptureError for the broken page, despite multiple
	// attempts; the other pages are still captured.
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "https://app.acme.test/broken", result.Errors[0].PageURL)
	assert.Equal(t, schemas.ErrPageTooShort, result.Errors[0].Type)
	assert.Equal(t, 1, result.Stats.PagesFailed)
	assert.Equal(t, 2, result.Stats.PagesSucceeded)
	assert.Equal(t, 3, result.Stats.PagesAttempted)
	assert.InDelta(t, 2.0/3.0, result.Stats.SuccessRate, 1e-9)
}

func TestRunWaitTimeoutEntersRetryPath(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/slow")
	// Every readiness wait blows the per-action timeout.
	driver.WaitErr = schemas.ErrDriverTimeout

	exec := newTestExecutor(t, driver, testCaptureConfig())
	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/slow"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	// The timeout class gets its own ceiling (2), not the validation one.
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schemas.ErrTimeout, result.Errors[0].Type)
	assert.Equal(t, 0, result.Stats.PagesSucceeded)
	assert.Len(t, driver.Opened, 2)
}

func TestRunNotFoundUsesItsOwnCeiling(t *testing.T) {
	driver := healthyDriver() // nothing scripted: every Open 404s
	exec := newTestExecutor(t, driver, testCaptureConfig())

	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/gone"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, schemas.ErrNotFound, result.Errors[0].Type)
	// NotFound ceiling is 1: no pointless re-navigation of a missing page.
	assert.Len(t, driver.Opened, 1)
}

func TestRunRetriesTimeoutThenSucceeds(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/slow")
	driver.Pages["https://app.acme.test/slow"].FailOpens = 1

	exec := newTestExecutor(t, driver, testCaptureConfig())
	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/slow"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Stats.PagesSucceeded)
	assert.Len(t, driver.Opened, 2, "first attempt timed out, second succeeded")
}

func TestRunScreenshotTooSmallIsAFailure(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/blank")
	driver.ScreenshotBytes = 10 // partially-written / blank capture

	exec := newTestExecutor(t, driver, testCaptureConfig())
	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/blank"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, schemas.ErrScreenshotTooSmall, result.Errors[0].Type)
	assert.Equal(t, 1, result.Stats.PagesFailed)
}

func TestRunEmptyTitleFailsValidation(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/untitled")
	driver.Pages["https://app.acme.test/untitled"].Title = "   "

	exec := newTestExecutor(t, driver, testCaptureConfig())
	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/untitled"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, schemas.ErrValidationFailed, result.Errors[0].Type)
}

func TestFindTabs(t *testing.T) {
	snapshot := `- heading "Project" [level=1]
- tab "Overview" [ref=e1]
- tab "Members" [ref=e2]
- tab "Settings" [disabled] [ref=e3]
- tab "" [ref=e4]
- button "Save" [ref=e5]`

	tabs := findTabs(snapshot)
	require.Len(t, tabs, 2)
	assert.Equal(t, control{Name: "Overview", Ref: "e1"}, tabs[0])
	assert.Equal(t, control{Name: "Members", Ref: "e2"}, tabs[1])
}

func TestFindDisclosures(t *testing.T) {
	snapshot := `- heading "Projects" [level=1]
- button "Filters" [ref=e1] [expanded=false]
- button "Sort" [ref=e2] [expanded=true]
- button "Archive" [disabled] [ref=e3] [expanded=false]
- button "Save" [ref=e4]
- tab "Overview" [ref=e5]`

	// Only collapsed, enabled disclosure buttons qualify.
	controls := findDisclosures(snapshot)
	require.Len(t, controls, 1)
	assert.Equal(t, control{Name: "Filters", Ref: "e1"}, controls[0])
}

func TestPageSlug(t *testing.T) {
	testCases := []struct {
		url  string
		want string
	}{
		{"https://app.acme.test/", "home"},
		{"https://app.acme.test/projects/42", "projects-42"},
		{"https://app.acme.test/Settings/Profile", "settings-profile"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, pageSlug(tc.url), "url %s", tc.url)
	}
}

func TestPageSlugQueryStringsNeverCollide(t *testing.T) {
	base := pageSlug("https://app.acme.test/projects")
	byStatus := pageSlug("https://app.acme.test/projects?status=open")
	byOwner := pageSlug("https://app.acme.test/projects?owner=me")

	assert.NotEqual(t, base, byStatus)
	assert.NotEqual(t, base, byOwner)
	assert.NotEqual(t, byStatus, byOwner)
	// The path part stays readable in front of the query hash.
	assert.Contains(t, byStatus, "projects--")
}

func TestCaptureTabsRecordsSubCaptures(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/project")
	driver.Pages["https://app.acme.test/project"].Snapshot = `- tab "Overview" [ref=e1]
- tab "Activity" [ref=e2]`

	capCfg := testCaptureConfig()
	capCfg.CaptureTabs = true
	exec := newTestExecutor(t, driver, capCfg)

	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/project"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	subs := result.Tabs["https://app.acme.test/project"]
	require.Len(t, subs, 2)
	assert.Equal(t, "Overview", subs[0].Name)
	assert.Equal(t, []string{"e1", "e2"}, driver.Clicked)
}

func TestCaptureInteractionsRecordsRevealedStates(t *testing.T) {
	driver := healthyDriver("https://app.acme.test/projects")
	driver.Pages["https://app.acme.test/projects"].Snapshot = `- button "Filters" [ref=e1] [expanded=false]
- button "New Project" [ref=e2]
- button "Sort" [ref=e3] [expanded=true]`

	capCfg := testCaptureConfig()
	capCfg.CaptureInteractions = true
	exec := newTestExecutor(t, driver, capCfg)

	result, err := exec.Run(context.Background(),
		[]schemas.DiscoveredPage{{URL: "https://app.acme.test/projects"}},
		desktopAndMobile[:1])
	require.NoError(t, err)

	subs := result.Interactions["https://app.acme.test/projects"]
	require.Len(t, subs, 1)
	assert.Equal(t, "Filters", subs[0].Name)
	assert.Contains(t, subs[0].Screenshot, "projects__int-filters.png")
	assert.Equal(t, []string{"e1"}, driver.Clicked)

	info, statErr := os.Stat(subs[0].Screenshot)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}
