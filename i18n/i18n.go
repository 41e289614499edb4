// Package i18n translates transync's own user-facing messages.
//
// Catalogs are gettext .po files embedded in the binary
// (locales/{lang}/LC_MESSAGES/transync.po) and loaded with gotext.
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("Synchronized %d file(s)", n))
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "transync"

var (
	po     *gotext.Locale
	active = "en"
)

// Init loads the catalog for lang. If lang is empty, it is detected from
// LANGUAGE, LC_ALL, LC_MESSAGES and LANG (GNU gettext order).
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}
	active = lang

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Lang returns the language passed to (or detected by) Init.
func Lang() string {
	return active
}

// T translates msgid and formats it with args (fmt verbs).
// Untranslated strings pass through unchanged.
func T(msgid string, args ...any) string {
	if po == nil {
		return gotext.Printf(msgid, args...)
	}
	return po.Get(msgid, args...)
}

// N translates a string with plural forms, formatting it with args.
func N(singular, plural string, n int, args ...any) string {
	if po == nil {
		if n == 1 {
			return gotext.Printf(singular, args...)
		}
		return gotext.Printf(plural, args...)
	}
	return po.GetN(singular, plural, n, args...)
}

// detectLanguage reads environment variables to determine the user's
// preferred language, following GNU gettext conventions.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated list.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU, sr_RS@latin -> sr_RS
		if idx := strings.IndexAny(val, ".@"); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
