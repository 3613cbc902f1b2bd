package l10n

import "testing"

func TestLoad(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Has("en") || !c.Has("zh-TW") {
		t.Fatalf("locales = %v", c.Locales())
	}
}

func TestTranslate(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := c.T("zh-TW", "nav.tree"); got != "家族樹" {
		t.Errorf("zh-TW nav.tree = %q", got)
	}
	if got := c.T("en", "nav.tree"); got != "Family Tree" {
		t.Errorf("en nav.tree = %q", got)
	}
	// Unknown locale falls back to English.
	if got := c.T("fr", "nav.tree"); got != "Family Tree" {
		t.Errorf("fr fallback = %q", got)
	}
	// Unknown key falls back to the key itself.
	if got := c.T("en", "no.such.key"); got != "no.such.key" {
		t.Errorf("missing key = %q", got)
	}
}

func TestFunc(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tr := c.Func("zh-TW")
	if got := tr("auth.login"); got != "登入" {
		t.Errorf("bound func = %q", got)
	}
}
