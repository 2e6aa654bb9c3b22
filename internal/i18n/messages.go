// Package i18n holds the user-facing message catalog for precondition and
// validation failures. The core surfaces translation keys; this package maps
// a key plus a negotiated language tag to localized text, with English as
// the fallback.
package i18n

import "golang.org/x/text/language"

// Message keys surfaced by the session store and close-table flow.
const (
	KeyInvalidTable      = "invalid_table"
	KeyInvalidDiner      = "invalid_diner"
	KeyInvalidItem       = "invalid_item"
	KeyInvalidTransition = "invalid_transition"
	KeyEmptyCart         = "empty_cart"
	KeyPendingCart       = "pending_cart"
	KeyNothingToClose    = "nothing_to_close"
	KeySessionClosed     = "session_closed"
	KeyAlreadyClosing    = "already_closing"
)

// catalog maps language → key → text. Keep the English set complete; other
// languages fall back per key.
var catalog = map[language.Tag]map[string]string{
	language.English: {
		KeyInvalidTable:      "that table number doesn't look right",
		KeyInvalidDiner:      "please enter a name to join the table",
		KeyInvalidItem:       "that item can't be added to the cart",
		KeyInvalidTransition: "that order can't move to the requested status",
		KeyEmptyCart:         "the cart is empty, add something first",
		KeyPendingCart:       "submit or clear the cart before closing the table",
		KeyNothingToClose:    "nothing has been ordered yet",
		KeySessionClosed:     "this table has already been closed",
		KeyAlreadyClosing:    "the bill has already been requested",
	},
	language.Spanish: {
		KeyInvalidTable:      "ese número de mesa no parece correcto",
		KeyInvalidDiner:      "introduce un nombre para unirte a la mesa",
		KeyInvalidTransition: "el pedido no puede pasar al estado solicitado",
		KeyEmptyCart:         "el carrito está vacío, añade algo primero",
		KeyPendingCart:       "envía o vacía el carrito antes de cerrar la mesa",
		KeyNothingToClose:    "todavía no se ha pedido nada",
		KeySessionClosed:     "esta mesa ya se ha cerrado",
		KeyAlreadyClosing:    "la cuenta ya ha sido solicitada",
	},
	language.Italian: {
		KeyInvalidTable:   "quel numero di tavolo non sembra corretto",
		KeyEmptyCart:      "il carrello è vuoto, aggiungi prima qualcosa",
		KeyPendingCart:    "invia o svuota il carrello prima di chiudere il tavolo",
		KeyNothingToClose: "non è stato ancora ordinato nulla",
		KeySessionClosed:  "questo tavolo è già stato chiuso",
		KeyAlreadyClosing: "il conto è già stato richiesto",
	},
}

// matcher negotiates against the languages with catalog entries.
var matcher = language.NewMatcher([]language.Tag{
	language.English, // first entry is the fallback
	language.Spanish,
	language.Italian,
})

// Match resolves an Accept-Language header value to a supported tag.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	tag, _, _ := matcher.Match(tags...)
	// Matcher may return an extended tag (e.g. es-u-rg-...); reduce to base.
	base, _ := tag.Base()
	switch base.String() {
	case "es":
		return language.Spanish
	case "it":
		return language.Italian
	default:
		return language.English
	}
}

// T returns the localized text for key under tag, falling back to English,
// then to the key itself for unknown keys.
func T(tag language.Tag, key string) string {
	if msgs, ok := catalog[tag]; ok {
		if txt, ok := msgs[key]; ok {
			return txt
		}
	}
	if txt, ok := catalog[language.English][key]; ok {
		return txt
	}
	return key
}
