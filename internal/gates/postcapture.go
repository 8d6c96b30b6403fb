package gates

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// postCapture verifies the persisted capture artifacts are complete enough
// to generate from: manifest and token file exist and match their schemas,
// minimum page and color counts hold, and every screenshot reference
// resolves to a real file.
func (e *Engine) postCapture(r *schemas.ValidationResult) {
	m, err := e.loadManifest()
	if err != nil {
		addCheck(r, "manifest exists and matches schema", "valid manifest.json", err.Error(), false, true)
	} else {
		addCheck(r, "manifest exists and matches schema", "valid manifest.json", "valid", true, true)
	}

	if m != nil {
		// Expected/Actual are bare counts so the pair stays machine-comparable.
		addCheck(r, "minimum page count",
			strconv.Itoa(e.cfg.Gates.MinPages),
			strconv.Itoa(len(m.Pages)),
			len(m.Pages) >= e.cfg.Gates.MinPages, true)

		missing := e.missingScreenshots(m)
		addCheck(r, "screenshot references resolve",
			"every manifest screenshot exists on disk",
			screenshotState(missing),
			len(missing) == 0, true)

		if e.cfg.Output.SaveHTML {
			htmlCount := 0
			for _, p := range m.Pages {
				if p.HTML != "" {
					htmlCount++
				}
			}
			addCheck(r, "HTML artifacts present",
				"at least one HTML artifact when HTML capture is enabled",
				strconv.Itoa(htmlCount), htmlCount > 0, true)
		}

		// Architectural completeness: a list view without any detail view
		// usually means the crawl never reached the record pages. Advisory.
		orphans := listViewsWithoutDetail(m)
		addCheck(r, "list views have detail views",
			"every list-named page has a corresponding detail capture",
			orphanState(orphans), len(orphans) == 0, false)

		for _, p := range m.Pages {
			if p.Name == "" {
				r.Warnings = append(r.Warnings, fmt.Sprintf("page entry %q has no name", p.URL))
			}
		}
	}

	t, err := e.loadTokens()
	if err != nil {
		addCheck(r, "design tokens exist and match schema", "valid design-tokens.json", err.Error(), false, true)
		return
	}
	addCheck(r, "design tokens exist and match schema", "valid design-tokens.json", "valid", true, true)

	addCheck(r, "minimum distinct colors",
		fmt.Sprintf("at least %d distinct colors", e.cfg.Gates.MinColors),
		strconv.Itoa(t.TotalColorsFound),
		t.TotalColorsFound >= e.cfg.Gates.MinColors, true)

	addCheck(r, "primary color identified",
		"non-empty colors.primary", primaryState(t.Colors.Primary),
		t.Colors.Primary != "", true)
}

func (e *Engine) missingScreenshots(m *schemas.Manifest) []string {
	var missing []string
	seen := make(map[string]bool)
	note := func(ref string) {
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		if !fileExists(e.resolveArtifact(ref)) {
			missing = append(missing, ref)
		}
	}
	for _, p := range m.Pages {
		note(p.Screenshot)
		for _, c := range p.Captures {
			note(c.Screenshot)
		}
		for _, s := range p.Tabs {
			note(s.Screenshot)
		}
		for _, s := range p.Interactions {
			note(s.Screenshot)
		}
	}
	return missing
}

// listViewsWithoutDetail returns the names of list-style pages that have no
// plausible detail counterpart. A detail counterpart is a page whose URL
// extends the list page's path.
func listViewsWithoutDetail(m *schemas.Manifest) []string {
	var orphans []string
	for _, p := range m.Pages {
		if !looksLikeListView(p) {
			continue
		}
		hasDetail := false
		for _, other := range m.Pages {
			if other.URL != p.URL && strings.HasPrefix(other.URL, strings.TrimSuffix(p.URL, "/")+"/") {
				hasDetail = true
				break
			}
		}
		if !hasDetail {
			orphans = append(orphans, p.Name)
		}
	}
	return orphans
}

func looksLikeListView(p schemas.PageEntry) bool {
	lower := strings.ToLower(p.Name)
	if strings.Contains(lower, "list") {
		return true
	}
	last := filepath.Base(strings.TrimSuffix(p.URL, "/"))
	return len(last) > 3 && strings.HasSuffix(last, "s") && !strings.HasSuffix(last, "ss")
}

func screenshotState(missing []string) string {
	if len(missing) == 0 {
		return "all resolved"
	}
	return "missing: " + strings.Join(missing, ", ")
}

func orphanState(orphans []string) string {
	if len(orphans) == 0 {
		return "all covered"
	}
	return "no detail view for: " + strings.Join(orphans, ", ")
}

func primaryState(primary string) string {
	if primary == "" {
		return "not identified"
	}
	return primary
}
