package auth

import (
	"regexp"
	"strings"
)

// The matcher predicates below scan individual snapshot lines. They are the
// explicit, testable form of what used to be ad hoc pattern matching: the
// keyword lists are the contract, the regexes only pull structure out of the
// line shape.

var refPattern = regexp.MustCompile(`\[ref=(e\d+)\]`)

// emailKeywords marks a textbox as an email/username candidate.
var emailKeywords = []string{"email", "e-mail", "username", "user name", "login", "account"}

// passwordKeywords marks a textbox as a password candidate.
var passwordKeywords = []string{"password", "passwd", "passphrase"}

// submitVerbs marks a button as a login submit candidate.
var submitVerbs = []string{"sign in", "log in", "login", "continue", "submit", "next"}

// LineRef extracts the snapshot ref from a line, or "" when the line carries
// none.
func LineRef(line string) string {
	m := refPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsTextInput reports whether the line declares any textbox control.
func IsTextInput(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "- textbox")
}

// IsPasswordCandidate reports whether the line declares a password input
// type or mentions a password-related keyword.
func IsPasswordCandidate(line string) bool {
	if !IsTextInput(line) {
		return false
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "[type=password]") {
		return true
	}
	return containsAny(lower, passwordKeywords)
}

// IsEmailCandidate reports whether the line declares an email input type or
// mentions one of the account/login/username keywords. Password candidates
// are never email candidates, whatever their labels say.
func IsEmailCandidate(line string) bool {
	if !IsTextInput(line) || IsPasswordCandidate(line) {
		return false
	}
	lower := strings.ToLower(line)
	if strings.Contains(lower, "[type=email]") {
		return true
	}
	return containsAny(lower, emailKeywords)
}

// IsSubmitCandidate reports whether the line is a non-disabled button whose
// visible text contains one of the submit verbs.
func IsSubmitCandidate(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "- button") {
		return false
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "[disabled]") {
		return false
	}
	return containsAny(lower, submitVerbs)
}

// MatchesLabel reports whether the line's visible text contains the
// configured label text (case-insensitive). An empty label matches nothing.
func MatchesLabel(line, label string) bool {
	if label == "" {
		return false
	}
	return strings.Contains(strings.ToLower(line), strings.ToLower(label))
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
