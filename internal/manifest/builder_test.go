package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/capture"
	"github.com/kaidhar/prism-cli/internal/config"
)

func testBuilder() *Builder {
	b := NewBuilder(config.PlatformConfig{Name: "acme", BaseURL: "https://app.acme.test"}, zap.NewNop())
	b.nowFunc = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func testResult() *capture.Result {
	return &capture.Result{
		Artifacts: []schemas.CapturedArtifact{
			{PageURL: "https://app.acme.test/", Viewport: "desktop", ScreenshotPath: "screenshots/home__desktop.png", HTMLPath: "html/home.html"},
			{PageURL: "https://app.acme.test/", Viewport: "mobile", ScreenshotPath: "screenshots/home__mobile.png", HTMLPath: "html/home.html"},
			{PageURL: "https://app.acme.test/projects", Viewport: "desktop", ScreenshotPath: "screenshots/projects__desktop.png"},
			{PageURL: "https://app.acme.test/projects/42", Viewport: "desktop", ScreenshotPath: "screenshots/projects-42__desktop.png"},
		},
		Tabs: map[string][]schemas.SubCapture{
			"https://app.acme.test/projects/42": {{Name: "Activity", Screenshot: "screenshots/projects-42__tab-activity.png"}},
		},
		Interactions: map[string][]schemas.SubCapture{
			"https://app.acme.test/projects": {{Name: "Filters", Screenshot: "screenshots/projects__int-filters.png"}},
		},
		Stats: schemas.RunStats{PagesDiscovered: 4, PagesAttempted: 4, PagesSucceeded: 3, PagesFailed: 1, SuccessRate: 0.75},
	}
}

var testPages = []schemas.DiscoveredPage{
	{URL: "https://app.acme.test/"},
	{URL: "https://app.acme.test/projects"},
	{URL: "https://app.acme.test/projects/42"},
	{URL: "https://app.acme.test/broken"}, // failed capture, no artifacts
}

func TestBuildJoinsPagesAndArtifacts(t *testing.T) {
	m := testBuilder().Build(testPages, testResult(), "design-tokens.json")

	assert.Equal(t, "acme", m.Platform.Name)
	assert.Equal(t, "design-tokens.json", m.DesignTokens)
	require.Len(t, m.Pages, 3, "failed page is omitted from the manifest")

	home := m.Pages[0]
	assert.Equal(t, "Home", home.Name)
	assert.Equal(t, "screenshots/home__desktop.png", home.Screenshot)
	assert.Equal(t, "html/home.html", home.HTML)
	require.Len(t, home.Captures, 2)
	assert.Equal(t, "mobile", home.Captures[1].Viewport)

	detail := m.Pages[2]
	assert.Equal(t, "Projects 42", detail.Name)
	require.Len(t, detail.Tabs, 1)
	assert.Equal(t, "Activity", detail.Tabs[0].Name)

	list := m.Pages[1]
	require.Len(t, list.Interactions, 1)
	assert.Equal(t, "Filters", list.Interactions[0].Name)
	assert.Equal(t, "screenshots/projects__int-filters.png", list.Interactions[0].Screenshot)
}

func TestBuildDescriptions(t *testing.T) {
	m := testBuilder().Build(testPages, testResult(), "design-tokens.json")

	assert.Contains(t, m.Pages[1].Description, "List view")
	assert.Contains(t, m.Pages[2].Description, "Detail view")
}

func TestBuildIsIdempotent(t *testing.T) {
	b := testBuilder()
	first, err := Canonical(b.Build(testPages, testResult(), "design-tokens.json"))
	require.NoError(t, err)
	second, err := Canonical(b.Build(testPages, testResult(), "design-tokens.json"))
	require.NoError(t, err)

	assert.Equal(t, first, second, "same inputs and clock must yield identical bytes")
}

func TestPageName(t *testing.T) {
	testCases := []struct {
		url  string
		want string
	}{
		{"https://app.acme.test/", "Home"},
		{"https://app.acme.test/projects", "Projects"},
		{"https://app.acme.test/projects/42", "Projects 42"},
		{"https://app.acme.test/user-settings", "User Settings"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, pageName(tc.url), "url %s", tc.url)
	}
}

func TestDescribeHeuristics(t *testing.T) {
	testCases := []struct {
		name string
		url  string
		want string
	}{
		{"Login", "https://x.test/login", "Authentication"},
		{"Dashboard", "https://x.test/dashboard", "Dashboard overview"},
		{"User Settings", "https://x.test/user-settings", "Settings view"},
		{"Projects New", "https://x.test/projects/new", "Form view"},
		{"Projects 42", "https://x.test/projects/42", "Detail view"},
		{"Projects", "https://x.test/projects", "List view"},
		{"About", "https://x.test/about", "Captured view"},
	}
	for _, tc := range testCases {
		assert.Contains(t, describe(tc.name, tc.url), tc.want, "name %q", tc.name)
	}
}
