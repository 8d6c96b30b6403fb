package gates

import (
	"fmt"
	"net/url"
	"os"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// preCapture verifies the run can start at all: well-formed platform URL,
// resolvable credentials, and a writable output directory.
func (e *Engine) preCapture(r *schemas.ValidationResult) {
	u, err := url.Parse(e.cfg.Platform.BaseURL)
	wellFormed := err == nil && u.IsAbs() && u.Hostname() != ""
	addCheck(r, "platform URL is well-formed",
		"absolute http(s) URL", e.cfg.Platform.BaseURL, wellFormed, true)

	addCheck(r, "credentials are resolvable",
		"email and password set via config, .env, or PLATFORM_EMAIL/PLATFORM_PASSWORD",
		credentialState(e.cfg.HasCredentials()), e.cfg.HasCredentials(), true)

	dirErr := os.MkdirAll(e.cfg.Output.Directory, 0o755)
	actual := "writable"
	if dirErr != nil {
		actual = fmt.Sprintf("cannot create: %v", dirErr)
	}
	addCheck(r, "output directory exists or can be created",
		e.cfg.Output.Directory, actual, dirErr == nil, true)
}

func credentialState(ok bool) string {
	if ok {
		return "resolved"
	}
	return "missing"
}
