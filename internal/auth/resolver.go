// Package auth locates login form controls and executes the login flow.
// Resolution is layered: explicit CSS selectors from config, the snapshot
// line heuristic, then a positional fallback for unlabeled username inputs.
package auth

import (
	"fmt"
	"strings"

	"github.com/kaidhar/prism-cli/internal/config"
)

// Strategy names the resolution path that produced a Resolution.
type Strategy string

const (
	StrategySelector   Strategy = "explicit-selector"
	StrategySnapshot   Strategy = "snapshot-heuristic"
	StrategyPositional Strategy = "positional-fallback"
)

// Resolution holds resolvable references (snapshot refs or CSS selectors)
// for the three login controls.
type Resolution struct {
	Email    string
	Password string
	Submit   string
	Strategy Strategy
}

// snapshotPreviewLines bounds the diagnostic snapshot excerpt.
const snapshotPreviewLines = 25

// ResolveError is the diagnostic produced when the login form cannot be
// resolved. Its content is part of the contract: the snapshot prefix and the
// remediation keys are the only recovery path an operator has.
type ResolveError struct {
	Missing         string
	SnapshotPreview string
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "auth: could not resolve the %s field on the login page\n", e.Missing)
	b.WriteString("Snapshot prefix of the page as seen by the resolver:\n")
	b.WriteString(e.SnapshotPreview)
	b.WriteString("\nRemediation: set explicit selectors in the config, e.g.\n")
	b.WriteString("  auth.selectors.email:    \"#email\"\n")
	b.WriteString("  auth.selectors.password: \"input[type=password]\"\n")
	b.WriteString("  auth.selectors.submit:   \"button[type=submit]\"\n")
	b.WriteString("or label hints via auth.labels.email / auth.labels.password / auth.labels.submit")
	return b.String()
}

// Resolve produces references for the email, password and submit controls
// from a login-page snapshot. Strategy order, first success wins:
//
//  1. Explicit CSS selectors from config (used verbatim).
//  2. Snapshot line heuristic via the matcher predicates.
//  3. Positional fallback: nearest preceding textbox before the password.
//
// Only a missing email field is a hard resolution failure; password and
// submit can fall back to sensible defaults downstream.
func Resolve(snapshot string, selectors config.SelectorSet, labels config.LabelSet) (Resolution, error) {
	// Strategy 1: explicit selectors, no inference whatsoever.
	if selectors.Email != "" {
		res := Resolution{
			Email:    selectors.Email,
			Password: selectors.Password,
			Submit:   selectors.Submit,
			Strategy: StrategySelector,
		}
		if res.Password == "" {
			res.Password = `input[type=password]`
		}
		if res.Submit == "" {
			res.Submit = `button[type=submit]`
		}
		return res, nil
	}

	lines := strings.Split(snapshot, "\n")

	var res Resolution
	passwordIdx := -1
	for i, line := range lines {
		switch {
		case res.Password == "" && (IsPasswordCandidate(line) || MatchesLabel(line, labels.Password) && IsTextInput(line)):
			if ref := LineRef(line); ref != "" {
				res.Password = ref
				passwordIdx = i
			}
		case res.Email == "" && (IsEmailCandidate(line) || MatchesLabel(line, labels.Email) && IsTextInput(line)):
			if ref := LineRef(line); ref != "" {
				res.Email = ref
			}
		case res.Submit == "" && (IsSubmitCandidate(line) || MatchesLabel(line, labels.Submit)):
			if ref := LineRef(line); ref != "" {
				res.Submit = ref
			}
		}
	}
	res.Strategy = StrategySnapshot

	// Strategy 3: a password field with no email field usually means an
	// unlabeled username input precedes it. Walk backward from the password
	// line to the nearest preceding textbox that is not the password itself.
	if res.Email == "" && passwordIdx >= 0 {
		for i := passwordIdx - 1; i >= 0; i-- {
			line := lines[i]
			if IsTextInput(line) && !IsPasswordCandidate(line) {
				if ref := LineRef(line); ref != "" {
					res.Email = ref
					res.Strategy = StrategyPositional
					break
				}
			}
		}
	}

	if res.Email == "" {
		return Resolution{}, &ResolveError{
			Missing:         "email/username",
			SnapshotPreview: preview(lines),
		}
	}
	return res, nil
}

func preview(lines []string) string {
	if len(lines) > snapshotPreviewLines {
		lines = lines[:snapshotPreviewLines]
	}
	return strings.Join(lines, "\n")
}
