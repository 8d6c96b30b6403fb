// Package tokens aggregates color and font occurrences from captured markup
// and buckets them into the semantic categories downstream generators key
// off. Extraction walks the parsed document tree and applies the literal
// matchers only inside extracted CSS text, never against raw markup.
package tokens

import (
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/kaidhar/prism-cli/api/schemas"
)

// presentational attributes that carry color values directly.
var colorAttrs = map[string]bool{
	"bgcolor": true,
	"color":   true,
	"fill":    true,
	"stroke":  true,
}

// Extractor builds a DesignTokenSet from captured HTML documents.
type Extractor struct {
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewExtractor wires a token extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("tokens"), nowFunc: time.Now}
}

// ExtractFiles reads the given HTML artifacts and extracts tokens from them.
// Unreadable files are logged and skipped; the token set is built from
// whatever could be read.
func (e *Extractor) ExtractFiles(paths []string) *schemas.DesignTokenSet {
	var docs []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			e.logger.Warn("Could not read HTML artifact; skipping.", zap.String("path", p), zap.Error(err))
			continue
		}
		docs = append(docs, string(data))
	}
	return e.Extract(docs)
}

// Extract scans the documents, merges occurrence counts across the whole
// run, and categorizes the frequency-sorted result. TotalColorsFound is the
// number of distinct normalized colors seen before any bucketing.
func (e *Extractor) Extract(docs []string) *schemas.DesignTokenSet {
	colorFreq := make(map[string]int)
	fontFreq := make(map[string]int)

	for _, doc := range docs {
		root, err := html.Parse(strings.NewReader(doc))
		if err != nil {
			e.logger.Warn("Could not parse HTML document; skipping.", zap.Error(err))
			continue
		}
		collect(root, colorFreq, fontFreq)
	}

	set := &schemas.DesignTokenSet{
		ExtractedAt:      e.nowFunc(),
		TotalColorsFound: len(colorFreq),
		RawColors:        sortedColors(colorFreq),
		Fonts:            buildFonts(fontFreq),
	}
	set.Colors = Categorize(set.RawColors)

	if set.TotalColorsFound == 0 {
		e.logger.Warn("No color literals found in any captured document; the token set will not gate generation meaningfully.")
	}
	if len(set.Fonts.Families) == 0 {
		e.logger.Warn("No font-family declarations found in any captured document.")
	}
	e.logger.Info("Token extraction complete.",
		zap.Int("distinct_colors", set.TotalColorsFound),
		zap.Int("font_families", len(set.Fonts.Families)),
		zap.String("primary", set.Colors.Primary))
	return set
}

// collect walks one parsed document and feeds every CSS text fragment to the
// literal matchers.
func collect(n *html.Node, colorFreq, fontFreq map[string]int) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			switch {
			case attr.Key == "style":
				scanCSSText(attr.Val, colorFreq, fontFreq)
			case colorAttrs[attr.Key]:
				scanColorLiterals(attr.Val, colorFreq)
			}
		}
		if n.Data == "style" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					scanCSSText(c.Data, colorFreq, fontFreq)
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, colorFreq, fontFreq)
	}
}

func scanCSSText(css string, colorFreq, fontFreq map[string]int) {
	scanColorLiterals(css, colorFreq)
	for _, m := range fontFamilyDecl.FindAllStringSubmatch(css, -1) {
		if family := firstFamily(m[1]); family != "" {
			fontFreq[family]++
		}
	}
}

func scanColorLiterals(text string, freq map[string]int) {
	for _, m := range hexPattern.FindAllString(text, -1) {
		if c := normalizeColor(m); c != "" {
			freq[c]++
		}
	}
	for _, m := range funcPattern.FindAllString(text, -1) {
		if c := normalizeColor(m); c != "" {
			freq[c]++
		}
	}
}

// firstFamily returns the first family from a comma-separated font-family
// value, unquoted. CSS variables and keywords are not families.
func firstFamily(value string) string {
	first := value
	if i := strings.IndexByte(value, ','); i >= 0 {
		first = value[:i]
	}
	first = strings.Trim(strings.TrimSpace(first), `"'`)
	switch strings.ToLower(first) {
	case "", "inherit", "initial", "unset", "revert":
		return ""
	}
	if strings.HasPrefix(first, "var(") {
		return ""
	}
	return first
}

// sortedColors orders by count descending, then color ascending so equal
// counts still sort deterministically.
func sortedColors(freq map[string]int) []schemas.RawColor {
	out := make([]schemas.RawColor, 0, len(freq))
	for color, count := range freq {
		out = append(out, schemas.RawColor{Color: color, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Color < out[j].Color
	})
	return out
}

func buildFonts(freq map[string]int) schemas.FontTokens {
	type fontCount struct {
		family string
		count  int
	}
	counts := make([]fontCount, 0, len(freq))
	for family, count := range freq {
		counts = append(counts, fontCount{family, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].family < counts[j].family
	})

	var fonts schemas.FontTokens
	for _, fc := range counts {
		fonts.Families = append(fonts.Families, fc.family)
	}
	if len(fonts.Families) > 0 {
		fonts.Primary = fonts.Families[0]
	}
	return fonts
}
