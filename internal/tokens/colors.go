package tokens

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hexPattern      = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b`)
	funcPattern     = regexp.MustCompile(`(?:rgba?|hsla?)\([^)]*\)`)
	fontFamilyDecl  = regexp.MustCompile(`(?i)font-family\s*:\s*([^;}{]+)`)
	whitespaceInner = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a color literal the same way extraction does, so
// colors found in generated code can be compared against the token set.
func Normalize(raw string) string {
	return normalizeColor(raw)
}

// FindColorLiterals returns every normalized color literal in text, in
// order of appearance.
func FindColorLiterals(text string) []string {
	var found []string
	for _, m := range hexPattern.FindAllString(text, -1) {
		if c := normalizeColor(m); c != "" {
			found = append(found, c)
		}
	}
	for _, m := range funcPattern.FindAllString(text, -1) {
		if c := normalizeColor(m); c != "" {
			found = append(found, c)
		}
	}
	return found
}

// normalizeColor canonicalizes a color literal: lower-case, 3-digit hex
// expanded to 6 digits, whitespace inside rgb()/hsl() removed. It returns ""
// for strings that only look like colors (e.g. a 5-digit hex fragment).
func normalizeColor(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(c, "#") {
		digits := c[1:]
		switch len(digits) {
		case 3:
			var b strings.Builder
			b.WriteByte('#')
			for i := 0; i < 3; i++ {
				b.WriteByte(digits[i])
				b.WriteByte(digits[i])
			}
			return b.String()
		case 4, 6, 8:
			return c
		default:
			return ""
		}
	}
	return whitespaceInner.ReplaceAllString(c, "")
}

// rgb is a parsed color in 0-255 channel space.
type rgb struct {
	r, g, b float64
}

// luminance is perceptually weighted brightness on [0, 1].
func (c rgb) luminance() float64 {
	return (0.299*c.r + 0.587*c.g + 0.114*c.b) / 255.0
}

// spread is the distance between the strongest and weakest channel; near-zero
// means a neutral gray.
func (c rgb) spread() float64 {
	return math.Max(c.r, math.Max(c.g, c.b)) - math.Min(c.r, math.Min(c.g, c.b))
}

// Dominance requires a clear margin so near-neutral grays with a slight
// tint do not claim semantic buckets.
func (c rgb) blueDominant() bool  { return c.b > c.r+30 && c.b > c.g+30 }
func (c rgb) redDominant() bool   { return c.r > c.g+40 && c.r > c.b+40 }
func (c rgb) greenDominant() bool { return c.g > c.r+40 && c.g > c.b+40 }

// parseColor converts a normalized color literal to channel values. The
// second return is false for literals it cannot interpret.
func parseColor(color string) (rgb, bool) {
	switch {
	case strings.HasPrefix(color, "#"):
		return parseHex(color[1:])
	case strings.HasPrefix(color, "rgb"):
		return parseRGBFunc(color)
	case strings.HasPrefix(color, "hsl"):
		return parseHSLFunc(color)
	}
	return rgb{}, false
}

func parseHex(digits string) (rgb, bool) {
	// 4 and 8 digit forms carry alpha; the color channels come first.
	switch len(digits) {
	case 4:
		digits = digits[:3]
	case 8:
		digits = digits[:6]
	}
	if len(digits) == 3 {
		var expanded strings.Builder
		for i := 0; i < 3; i++ {
			expanded.WriteByte(digits[i])
			expanded.WriteByte(digits[i])
		}
		digits = expanded.String()
	}
	if len(digits) != 6 {
		return rgb{}, false
	}
	r, err1 := strconv.ParseUint(digits[0:2], 16, 8)
	g, err2 := strconv.ParseUint(digits[2:4], 16, 8)
	b, err3 := strconv.ParseUint(digits[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return rgb{}, false
	}
	return rgb{float64(r), float64(g), float64(b)}, true
}

func parseRGBFunc(color string) (rgb, bool) {
	parts := funcArgs(color)
	if len(parts) < 3 {
		return rgb{}, false
	}
	vals := make([]float64, 3)
	for i := 0; i < 3; i++ {
		p := parts[i]
		if strings.HasSuffix(p, "%") {
			pct, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
			if err != nil {
				return rgb{}, false
			}
			vals[i] = pct / 100.0 * 255.0
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return rgb{}, false
		}
		vals[i] = v
	}
	return rgb{vals[0], vals[1], vals[2]}, true
}

func parseHSLFunc(color string) (rgb, bool) {
	parts := funcArgs(color)
	if len(parts) < 3 {
		return rgb{}, false
	}
	h, err1 := strconv.ParseFloat(strings.TrimSuffix(parts[0], "deg"), 64)
	s, err2 := strconv.ParseFloat(strings.TrimSuffix(parts[1], "%"), 64)
	l, err3 := strconv.ParseFloat(strings.TrimSuffix(parts[2], "%"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return rgb{}, false
	}
	return hslToRGB(h, s/100.0, l/100.0), true
}

// funcArgs splits "rgb(1,2,3)" style literals into their arguments. Both
// comma and space separated forms appear in the wild.
func funcArgs(color string) []string {
	open := strings.IndexByte(color, '(')
	end := strings.IndexByte(color, ')')
	if open < 0 || end < open {
		return nil
	}
	inner := color[open+1 : end]
	inner = strings.ReplaceAll(inner, "/", " ")
	inner = strings.ReplaceAll(inner, ",", " ")
	return strings.Fields(inner)
}

func hslToRGB(h, s, l float64) rgb {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return rgb{math.Round((r + m) * 255), math.Round((g + m) * 255), math.Round((b + m) * 255)}
}
