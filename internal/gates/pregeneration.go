package gates

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// preGeneration verifies generation has everything it needs: both artifact
// files, the four required color categories, and at least one screenshot.
func (e *Engine) preGeneration(r *schemas.ValidationResult) {
	addCheck(r, "manifest file exists", e.manifestPath(),
		existsState(fileExists(e.manifestPath())), fileExists(e.manifestPath()), true)
	addCheck(r, "design token file exists", e.tokensPath(),
		existsState(fileExists(e.tokensPath())), fileExists(e.tokensPath()), true)

	if fileExists(e.tokensPath()) {
		t, err := e.loadTokens()
		if err != nil {
			addCheck(r, "required color categories present",
				"primary, text, background, border", err.Error(), false, true)
		} else {
			missing := missingCategories(t.Colors)
			addCheck(r, "required color categories present",
				"primary, text, background, border",
				categoryState(missing), len(missing) == 0, true)
		}
	}

	count := e.countScreenshots()
	addCheck(r, "at least one screenshot exists",
		">= 1 file under "+filepath.Join(e.cfg.Output.Directory, "screenshots"),
		strconv.Itoa(count), count > 0, true)
}

// missingCategories names the required categories with no color assigned.
// A category counts as present when any of its buckets is filled.
func missingCategories(c schemas.CategorizedColors) []string {
	var missing []string
	if c.Primary == "" {
		missing = append(missing, "primary")
	}
	if c.Text.Primary == "" && c.Text.Secondary == "" && c.Text.Disabled == "" {
		missing = append(missing, "text")
	}
	if c.Background.White == "" && c.Background.Light == "" && c.Background.Dark == "" {
		missing = append(missing, "background")
	}
	if c.Border.Default == "" && c.Border.Focus == "" {
		missing = append(missing, "border")
	}
	return missing
}

func (e *Engine) countScreenshots() int {
	entries, err := os.ReadDir(filepath.Join(e.cfg.Output.Directory, "screenshots"))
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".png") {
			count++
		}
	}
	return count
}

func existsState(ok bool) string {
	if ok {
		return "exists"
	}
	return "missing"
}

func categoryState(missing []string) string {
	if len(missing) == 0 {
		return "all present"
	}
	return "missing: " + strings.Join(missing, ", ")
}
