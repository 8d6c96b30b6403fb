package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/mocks"
)

func loginConfig() *config.Config {
	return &config.Config{
		Platform: config.PlatformConfig{Name: "acme", BaseURL: "https://app.acme.test"},
		Auth: config.AuthConfig{
			Type:     "form",
			LoginURL: "https://app.acme.test/login",
			Email:    "capture@acme.test",
			Password: "hunter2",
		},
	}
}

func TestLoginHappyPath(t *testing.T) {
	driver := mocks.NewFakeDriver()
	driver.Pages["https://app.acme.test/login"] = &mocks.FakePage{
		Status:     200,
		Snapshot:   loginSnapshot,
		RedirectTo: "https://app.acme.test/dashboard",
	}

	landing, err := Login(context.Background(), driver, loginConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "https://app.acme.test/dashboard", landing)
	assert.Equal(t, "capture@acme.test", driver.Filled["e1"])
	assert.Equal(t, "hunter2", driver.Filled["e2"])
	assert.Equal(t, []string{"e3"}, driver.Clicked)
}

func TestLoginStillOnLoginPageIsFatal(t *testing.T) {
	driver := mocks.NewFakeDriver()
	// No redirect: the post-submit URL stays on /login.
	driver.Pages["https://app.acme.test/login"] = &mocks.FakePage{
		Status:   200,
		Snapshot: loginSnapshot,
	}

	_, err := Login(context.Background(), driver, loginConfig(), zap.NewNop())
	require.Error(t, err)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "verify", authErr.Stage)
	assert.Contains(t, authErr.Message, "not auto-recoverable")
}

func TestLoginUnresolvableFormIsFatal(t *testing.T) {
	driver := mocks.NewFakeDriver()
	driver.Pages["https://app.acme.test/login"] = &mocks.FakePage{
		Status:   200,
		Snapshot: `- heading "Under maintenance" [level=1]`,
	}

	_, err := Login(context.Background(), driver, loginConfig(), zap.NewNop())
	require.Error(t, err)

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "resolve", authErr.Stage)

	var resolveErr *ResolveError
	assert.ErrorAs(t, err, &resolveErr)
}

func TestStillOnLoginPathNormalizesTrailingSlash(t *testing.T) {
	assert.True(t, stillOnLoginPath("https://a.test/login/", "https://a.test/login"))
	assert.False(t, stillOnLoginPath("https://a.test/home", "https://a.test/login"))
}
