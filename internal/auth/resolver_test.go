package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaidhar/prism-cli/internal/config"
)

const loginSnapshot = `- heading "Welcome back" [level=1]
- form
- textbox "Email address" [type=email] [ref=e1]
- textbox "Password" [type=password] [ref=e2]
- button "Sign in" [ref=e3]
- link "Forgot password?" [href=/reset]`

const unlabeledSnapshot = `- heading "Login" [level=1]
- form
- textbox "" [type=text] [ref=e1]
- textbox "Password" [type=password] [ref=e2]
- button "Continue" [ref=e3]`

func TestMatchers(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		password bool
		email    bool
		submit   bool
	}{
		{
			name:  "email input by type",
			line:  `- textbox "Work email" [type=email] [ref=e1]`,
			email: true,
		},
		{
			name:  "username input by keyword",
			line:  `- textbox "Username" [type=text] [ref=e4]`,
			email: true,
		},
		{
			name:     "password input by type",
			line:     `- textbox "Secret" [type=password] [ref=e2]`,
			password: true,
		},
		{
			name:     "password input by keyword",
			line:     `- textbox "Your password" [type=text] [ref=e2]`,
			password: true,
		},
		{
			name:   "submit button by verb",
			line:   `- button "Log in" [ref=e3]`,
			submit: true,
		},
		{
			name: "disabled button is never a submit candidate",
			line: `- button "Sign in" [disabled] [ref=e3]`,
		},
		{
			name: "unrelated button",
			line: `- button "Cancel" [ref=e9]`,
		},
		{
			name: "link is not an input",
			line: `- link "email preferences" [href=/prefs]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.password, IsPasswordCandidate(tc.line), "password")
			assert.Equal(t, tc.email, IsEmailCandidate(tc.line), "email")
			assert.Equal(t, tc.submit, IsSubmitCandidate(tc.line), "submit")
		})
	}
}

func TestLineRef(t *testing.T) {
	assert.Equal(t, "e12", LineRef(`- button "Go" [ref=e12]`))
	assert.Equal(t, "", LineRef(`- heading "Hi" [level=1]`))
}

func TestResolveExplicitSelectorWinsOverHeuristic(t *testing.T) {
	selectors := config.SelectorSet{Email: "#user-email"}
	res, err := Resolve(loginSnapshot, selectors, config.LabelSet{})
	require.NoError(t, err)

	assert.Equal(t, StrategySelector, res.Strategy)
	assert.Equal(t, "#user-email", res.Email)
	// Unset selectors fall back to conventional defaults, not inference.
	assert.Equal(t, `input[type=password]`, res.Password)
	assert.Equal(t, `button[type=submit]`, res.Submit)
}

func TestResolveSnapshotHeuristic(t *testing.T) {
	res, err := Resolve(loginSnapshot, config.SelectorSet{}, config.LabelSet{})
	require.NoError(t, err)

	assert.Equal(t, StrategySnapshot, res.Strategy)
	assert.Equal(t, "e1", res.Email)
	assert.Equal(t, "e2", res.Password)
	assert.Equal(t, "e3", res.Submit)
}

func TestResolvePositionalFallback(t *testing.T) {
	// The username input is unlabeled; only its position before the password
	// field identifies it.
	res, err := Resolve(unlabeledSnapshot, config.SelectorSet{}, config.LabelSet{})
	require.NoError(t, err)

	assert.Equal(t, StrategyPositional, res.Strategy)
	assert.Equal(t, "e1", res.Email)
	assert.Equal(t, "e2", res.Password)
	assert.Equal(t, "e3", res.Submit)
}

func TestResolveLabelHints(t *testing.T) {
	snapshot := `- textbox "Mitarbeiterkennung" [type=text] [ref=e5]
- textbox "Kennwort" [type=password] [ref=e6]
- button "Anmelden" [ref=e7]`

	labels := config.LabelSet{Email: "Mitarbeiterkennung", Submit: "Anmelden"}
	res, err := Resolve(snapshot, config.SelectorSet{}, labels)
	require.NoError(t, err)

	assert.Equal(t, "e5", res.Email)
	assert.Equal(t, "e6", res.Password)
	assert.Equal(t, "e7", res.Submit)
}

func TestResolveFailureDiagnosticContract(t *testing.T) {
	snapshot := `- heading "Maintenance" [level=1]
- link "Back" [href=/]`

	_, err := Resolve(snapshot, config.SelectorSet{}, config.LabelSet{})
	require.Error(t, err)

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)

	// The diagnostic must carry the snapshot prefix and the remediation
	// config keys; it is the operator's only recovery path.
	msg := err.Error()
	assert.Contains(t, msg, `- heading "Maintenance"`)
	assert.Contains(t, msg, "auth.selectors.email")
	assert.Contains(t, msg, "auth.selectors.password")
	assert.Contains(t, msg, "auth.selectors.submit")
}

func TestResolveSnapshotPreviewIsBounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("- link \"noise\" [href=/n]\n")
	}
	_, err := Resolve(b.String(), config.SelectorSet{}, config.LabelSet{})
	require.Error(t, err)

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.LessOrEqual(t, len(strings.Split(resolveErr.SnapshotPreview, "\n")), snapshotPreviewLines)
}
