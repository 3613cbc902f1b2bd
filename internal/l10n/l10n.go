// Package l10n provides the UI string catalogs. Catalogs are JSON files
// embedded at build time; missing keys fall back to English, then to the
// key itself so a typo shows up on screen instead of as a blank.
package l10n

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed locales/*.json
var localeFS embed.FS

const fallbackLocale = "en"

type Catalog struct {
	locales map[string]map[string]string
}

// Load parses every embedded locale file.
func Load() (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	c := &Catalog{locales: make(map[string]map[string]string, len(entries))}
	for _, e := range entries {
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		var strings map[string]string
		if err := json.Unmarshal(data, &strings); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", e.Name(), err)
		}
		name := e.Name()[:len(e.Name())-len(".json")]
		c.locales[name] = strings
	}

	if _, ok := c.locales[fallbackLocale]; !ok {
		return nil, fmt.Errorf("fallback locale %q missing", fallbackLocale)
	}
	return c, nil
}

// Locales returns the names of the available locales.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for name := range c.locales {
		out = append(out, name)
	}
	return out
}

// Has reports whether the locale is available.
func (c *Catalog) Has(locale string) bool {
	_, ok := c.locales[locale]
	return ok
}

// T translates a key for a locale.
func (c *Catalog) T(locale, key string) string {
	if strings, ok := c.locales[locale]; ok {
		if s, ok := strings[key]; ok {
			return s
		}
	}
	if s, ok := c.locales[fallbackLocale][key]; ok {
		return s
	}
	return key
}

// Func returns a translate function bound to one locale, for templates.
func (c *Catalog) Func(locale string) func(string) string {
	return func(key string) string {
		return c.T(locale, key)
	}
}
