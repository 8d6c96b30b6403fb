package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
)

// Error is a fatal authentication failure. Credential, CAPTCHA and 2FA
// failures are not auto-recoverable, so the run aborts rather than retries.
type Error struct {
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth (%s): %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth (%s): %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Login performs the full login flow against the configured login URL and
// returns the post-login landing URL. Success is judged by URL inspection
// after a fixed settle delay: still being on the login path means the
// credentials did not work.
func Login(ctx context.Context, driver schemas.BrowserDriver, cfg *config.Config, logger *zap.Logger) (string, error) {
	log := logger.Named("auth")

	loginURL := cfg.Auth.LoginURL
	if loginURL == "" {
		loginURL = strings.TrimRight(cfg.Platform.BaseURL, "/") + "/login"
	}

	log.Info("Opening login page.", zap.String("url", loginURL))
	if _, err := driver.Open(ctx, loginURL); err != nil {
		return "", &Error{Stage: "navigate", Message: "login page unreachable", Cause: err}
	}
	if err := driver.WaitFor(ctx, schemas.WaitDOMReady); err != nil {
		log.Debug("DOM-ready wait failed on login page.", zap.Error(err))
	}

	snapshot, err := driver.Snapshot(ctx, true)
	if err != nil {
		return "", &Error{Stage: "snapshot", Message: "could not snapshot login page", Cause: err}
	}

	res, err := Resolve(snapshot, cfg.Auth.Selectors, cfg.Auth.Labels)
	if err != nil {
		return "", &Error{Stage: "resolve", Message: "login form not resolvable", Cause: err}
	}
	log.Info("Login form resolved.", zap.String("strategy", string(res.Strategy)))

	if err := driver.Fill(ctx, res.Email, cfg.Auth.Email); err != nil {
		return "", &Error{Stage: "fill", Message: "could not fill email field", Cause: err}
	}
	if res.Password != "" {
		if err := driver.Fill(ctx, res.Password, cfg.Auth.Password); err != nil {
			return "", &Error{Stage: "fill", Message: "could not fill password field", Cause: err}
		}
	}

	if res.Submit != "" {
		if err := driver.Click(ctx, res.Submit); err != nil {
			return "", &Error{Stage: "submit", Message: "could not click submit control", Cause: err}
		}
	} else {
		// No submit control found; Enter in the password field is the
		// conventional fallback.
		if err := driver.Press(ctx, "\r"); err != nil {
			return "", &Error{Stage: "submit", Message: "could not press Enter to submit", Cause: err}
		}
	}

	settle := cfg.Auth.SettleDelay
	if settle <= 0 {
		settle = 3 * time.Second
	}
	if err := driver.Sleep(ctx, int(settle.Milliseconds())); err != nil {
		return "", err
	}
	if err := driver.WaitFor(ctx, schemas.WaitNetworkIdle); err != nil {
		log.Debug("Network-idle wait failed after login submit.", zap.Error(err))
	}

	currentURL, err := driver.Get(ctx, schemas.PropURL)
	if err != nil {
		return "", &Error{Stage: "verify", Message: "could not read post-submit URL", Cause: err}
	}

	if stillOnLoginPath(currentURL, loginURL) {
		return "", &Error{
			Stage: "verify",
			Message: fmt.Sprintf(
				"still on the login page after submit (%s); check credentials, CAPTCHA or 2FA - these are not auto-recoverable",
				currentURL),
		}
	}

	log.Info("Authentication succeeded.", zap.String("landing_url", currentURL))
	return currentURL, nil
}

// stillOnLoginPath reports whether the post-submit URL still matches the
// login path, which is how a failed login presents.
func stillOnLoginPath(currentURL, loginURL string) bool {
	cur, err := url.Parse(currentURL)
	if err != nil {
		return true
	}
	login, err := url.Parse(loginURL)
	if err != nil {
		return false
	}
	return strings.TrimRight(cur.Path, "/") == strings.TrimRight(login.Path, "/")
}
