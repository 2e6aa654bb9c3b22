package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestT_EnglishCatalogComplete(t *testing.T) {
	keys := []string{
		KeyInvalidTable, KeyInvalidDiner, KeyInvalidItem, KeyInvalidTransition,
		KeyEmptyCart, KeyPendingCart, KeyNothingToClose, KeySessionClosed,
		KeyAlreadyClosing,
	}
	for _, k := range keys {
		if got := T(language.English, k); got == k {
			t.Errorf("missing English text for key %q", k)
		}
	}
}

func TestT_FallsBackToEnglish(t *testing.T) {
	// Italian has no invalid_diner entry; English text must be used.
	got := T(language.Italian, KeyInvalidDiner)
	want := T(language.English, KeyInvalidDiner)
	if got != want {
		t.Errorf("T(it, invalid_diner) = %q, want English fallback %q", got, want)
	}
}

func TestT_UnknownKeyReturnsKey(t *testing.T) {
	if got := T(language.English, "no_such_key"); got != "no_such_key" {
		t.Errorf("T(unknown) = %q, want key echoed", got)
	}
}

func TestMatch(t *testing.T) {
	cases := map[string]language.Tag{
		"":                 language.English,
		"garbage;;;":       language.English,
		"en-US,en;q=0.9":   language.English,
		"es-ES,es;q=0.8":   language.Spanish,
		"it-IT":            language.Italian,
		"fr-FR,fr;q=0.9":   language.English,
		"es;q=0.5,it;q=.9": language.Italian,
	}
	for accept, want := range cases {
		if got := Match(accept); got != want {
			t.Errorf("Match(%q) = %v, want %v", accept, got, want)
		}
	}
}
