package gates

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/tokens"
)

// universalNeutrals are always acceptable in generated code regardless of
// the captured palette.
var universalNeutrals = []string{
	"#000", "#000000", "#fff", "#ffffff",
	"black", "white", "transparent", "inherit", "currentcolor",
}

// postGeneration verifies every generated source file only uses colors from
// the captured token set (plus universal neutrals) and contains none of the
// forbidden default-framework utility classes. Files that fail are reported
// with the exact offending tokens.
func (e *Engine) postGeneration(ctx context.Context, r *schemas.ValidationResult) error {
	t, err := e.loadTokens()
	if err != nil {
		addCheck(r, "design tokens exist and match schema", "valid design-tokens.json", err.Error(), false, true)
		return nil
	}
	addCheck(r, "design tokens exist and match schema", "valid design-tokens.json", "valid", true, true)

	root := e.cfg.Gates.GeneratedDir
	files, err := discoverGenerated(root, e.cfg.Gates.GeneratedGlobs)
	if err != nil {
		return err
	}
	addCheck(r, "generated files found",
		fmt.Sprintf("files matching %v under %s", e.cfg.Gates.GeneratedGlobs, root),
		strconv.Itoa(len(files)), len(files) > 0, true)
	if len(files) == 0 {
		return nil
	}

	scanner := &generatedScanner{
		allowed:   allowedColors(t),
		forbidden: e.cfg.Gates.ForbiddenClassPatterns,
	}
	violations, err := scanner.scanAll(ctx, files, e.cfg.Gates.ScanConcurrency)
	if err != nil {
		return err
	}

	var colorOffenders, classOffenders []string
	for _, v := range violations {
		if len(v.Colors) > 0 {
			colorOffenders = append(colorOffenders, fmt.Sprintf("%s: %s", v.File, strings.Join(v.Colors, ", ")))
		}
		if len(v.Classes) > 0 {
			classOffenders = append(classOffenders, fmt.Sprintf("%s: %s", v.File, strings.Join(v.Classes, ", ")))
		}
	}

	addCheck(r, "colors traceable to token set",
		"every color literal belongs to the captured palette or universal neutrals",
		offenderState(colorOffenders), len(colorOffenders) == 0, true)
	addCheck(r, "no forbidden utility classes",
		fmt.Sprintf("none of %v present", e.cfg.Gates.ForbiddenClassPatterns),
		offenderState(classOffenders), len(classOffenders) == 0, true)
	return nil
}

// allowedColors builds the normalized allowed set: every color the token set
// observed plus the universal neutrals.
func allowedColors(t *schemas.DesignTokenSet) map[string]bool {
	allowed := make(map[string]bool, len(t.RawColors)+len(universalNeutrals))
	for _, rc := range t.RawColors {
		if c := tokens.Normalize(rc.Color); c != "" {
			allowed[c] = true
		}
	}
	for _, n := range universalNeutrals {
		allowed[n] = true
		if c := tokens.Normalize(n); c != "" {
			allowed[c] = true
		}
	}
	return allowed
}

func offenderState(offenders []string) string {
	if len(offenders) == 0 {
		return "clean"
	}
	return strings.Join(offenders, "; ")
}
