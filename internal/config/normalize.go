package config

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

// aliasMap folds alternate field spellings into their canonical keys. When
// both spellings are present the canonical (more explicit) one wins; the
// alias is only consulted when the canonical key is unset.
var aliasMap = map[string]string{
	"crawl.manual_pages":     "crawl.include_pages",
	"crawl.excluded":         "crawl.exclude_patterns",
	"auth.email_selector":    "auth.selectors.email",
	"auth.password_selector": "auth.selectors.password",
	"auth.submit_selector":   "auth.selectors.submit",
	"auth.email_label":       "auth.labels.email",
	"auth.password_label":    "auth.labels.password",
	"auth.submit_label":      "auth.labels.submit",
	"platform.url":           "platform.base_url",
}

// knownKeys is the set of recognized leaf keys after alias folding. Anything
// outside it is most likely a typo and gets surfaced as a warning.
var knownKeys = buildKnownKeys()

func buildKnownKeys() map[string]struct{} {
	v := viper.New()
	SetDefaults(v)
	keys := map[string]struct{}{
		// Keys with no default still count as known.
		"platform.name":           {},
		"platform.base_url":       {},
		"auth.login_url":          {},
		"auth.email":              {},
		"auth.password":           {},
		"auth.selectors.email":    {},
		"auth.selectors.password": {},
		"auth.selectors.submit":   {},
		"auth.labels.email":       {},
		"auth.labels.password":    {},
		"auth.labels.submit":      {},
		"crawl.include_pages":     {},
	}
	for _, k := range v.AllKeys() {
		keys[k] = struct{}{}
	}
	return keys
}

// Normalize folds aliases into canonical keys on the viper instance and
// returns non-fatal warnings for unrecognized keys. It must run before the
// config is unmarshaled; nothing downstream re-interprets aliases.
func Normalize(v *viper.Viper) []string {
	var warnings []string

	for alias, canonical := range aliasMap {
		if !v.IsSet(alias) {
			continue
		}
		if isExplicitlySet(v, canonical) {
			warnings = append(warnings, fmt.Sprintf(
				"both %q and its alias %q are set; using %q", canonical, alias, canonical))
			continue
		}
		v.Set(canonical, v.Get(alias))
	}

	// Surface unknown keys so silent typos (e.g. "max_page") do not quietly
	// fall back to defaults.
	unknown := make([]string, 0)
	for _, key := range v.AllKeys() {
		if _, ok := knownKeys[key]; ok {
			continue
		}
		if _, isAlias := aliasMap[key]; isAlias {
			continue
		}
		// Viewport entries unmarshal as a slice; their sub-keys do not
		// appear in AllKeys, so no special casing is needed here.
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		warnings = append(warnings, fmt.Sprintf("unrecognized config key %q (typo?)", key))
	}

	return warnings
}

// isExplicitlySet reports whether the key was provided by the config file,
// as opposed to merely having a default. Defaults never outrank an alias.
func isExplicitlySet(v *viper.Viper, key string) bool {
	return v.InConfig(key)
}
