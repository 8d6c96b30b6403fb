package capture

import (
	"regexp"
	"strings"
)

// control is a clickable element found in the page snapshot.
type control struct {
	Name string
	Ref  string
}

var (
	tabLine        = regexp.MustCompile(`^- tab "([^"]*)".*\[ref=(e\d+)\]`)
	disclosureLine = regexp.MustCompile(`^- button "([^"]*)".*\[ref=(e\d+)\]`)
)

// findTabs parses tab controls out of a snapshot. Disabled tabs and tabs
// without refs are skipped.
func findTabs(snapshot string) []control {
	return findControls(snapshot, tabLine, nil)
}

// findDisclosures parses collapsed disclosure buttons (accordions, dropdown
// triggers) out of a snapshot. Only controls explicitly marked collapsed are
// returned; clicking an already-expanded one would hide state the base
// screenshot shows.
func findDisclosures(snapshot string) []control {
	return findControls(snapshot, disclosureLine, func(line string) bool {
		return strings.Contains(line, "[expanded=false]")
	})
}

func findControls(snapshot string, pattern *regexp.Regexp, keep func(string) bool) []control {
	var controls []control
	for _, line := range strings.Split(snapshot, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "[disabled]") {
			continue
		}
		if keep != nil && !keep(trimmed) {
			continue
		}
		m := pattern.FindStringSubmatch(trimmed)
		if m == nil || m[1] == "" {
			continue
		}
		controls = append(controls, control{Name: m[1], Ref: m[2]})
	}
	return controls
}
