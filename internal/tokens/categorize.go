package tokens

import (
	"github.com/kaidhar/prism-cli/api/schemas"
)

// Categorize buckets frequency-sorted colors into the semantic category map.
// It is a pure function of its input: identical rawColors always yield an
// identical map. Buckets are tried in a fixed priority order and each color
// claims at most one; within a bucket the first (most frequent) matching
// color wins and later matches are ignored.
//
// The primary heuristic picks the first blue-dominant color. That is a
// product-level convention, not a verified rule, and will misclassify
// platforms whose brand color is not blue. It is kept deliberately so the
// output stays stable for downstream consumers.
func Categorize(rawColors []schemas.RawColor) schemas.CategorizedColors {
	var cat schemas.CategorizedColors

	type slot struct {
		dst   *string
		match func(c rgb, lum float64) bool
	}
	slots := []slot{
		{&cat.Primary, func(c rgb, _ float64) bool { return c.blueDominant() }},
		{&cat.Secondary, func(c rgb, _ float64) bool { return c.blueDominant() }},
		{&cat.Status.Info, func(c rgb, lum float64) bool { return c.blueDominant() && lum >= 0.4 && lum < 0.8 }},
		{&cat.Background.White, func(_ rgb, lum float64) bool { return lum > 0.9 }},
		{&cat.Background.Light, func(_ rgb, lum float64) bool { return lum >= 0.8 && lum <= 0.9 }},
		{&cat.Status.Error, func(c rgb, lum float64) bool { return c.redDominant() && lum < 0.65 }},
		{&cat.Status.Success, func(c rgb, _ float64) bool { return c.greenDominant() }},
		{&cat.Status.Warning, func(c rgb, lum float64) bool { return c.r > c.b+60 && c.g > c.b+60 && lum >= 0.5 }},
		{&cat.Text.Primary, func(_ rgb, lum float64) bool { return lum < 0.25 }},
		{&cat.Background.Dark, func(_ rgb, lum float64) bool { return lum < 0.25 }},
		{&cat.Text.Secondary, func(_ rgb, lum float64) bool { return lum >= 0.2 && lum < 0.5 }},
		{&cat.Text.Disabled, func(c rgb, lum float64) bool { return lum >= 0.5 && lum < 0.75 && c.spread() < 40 }},
		{&cat.Border.Default, func(c rgb, lum float64) bool { return lum >= 0.75 && lum <= 0.92 && c.spread() < 30 }},
	}

	for _, rc := range rawColors {
		c, ok := parseColor(rc.Color)
		if !ok {
			continue
		}
		lum := c.luminance()
		for _, s := range slots {
			if *s.dst == "" && s.match(c, lum) {
				*s.dst = rc.Color
				break
			}
		}
	}

	// Focus rings conventionally reuse the accent color.
	if cat.Border.Focus == "" {
		cat.Border.Focus = cat.Primary
	}
	return cat
}
