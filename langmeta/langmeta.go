// Package langmeta normalizes language codes and provides display metadata
// (native name, English name, emoji flag) for the CLI and provider prompts.
package langmeta

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Name is the language name in the language itself.
	Name string
	// English is the English name, used in provider prompts.
	English string
	Flag    string
}

func canonicalize(lang string) string {
	return strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
}

// Parse parses a language code, accepting both pt_BR and pt-BR forms.
func Parse(lang string) (language.Tag, error) {
	code := canonicalize(lang)
	if code == "" {
		return language.Und, fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language code %q: %w", lang, err)
	}
	return tag, nil
}

// Normalize returns the canonical BCP 47 form of a language code
// ("pt_br" -> "pt-BR").
func Normalize(lang string) (string, error) {
	tag, err := Parse(lang)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// Resolve returns best-effort metadata for a language code. Unparseable
// codes resolve to the code itself with no flag.
func Resolve(lang string) Meta {
	tag, err := Parse(lang)
	if err != nil {
		return Meta{Name: lang, English: lang}
	}

	m := Meta{
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
		Flag:    flag(tag),
	}
	if m.Name == "" {
		m.Name = lang
	}
	if m.English == "" {
		m.English = lang
	}
	return m
}

// EnglishName returns the English name of a language code.
func EnglishName(lang string) string {
	return Resolve(lang).English
}

// flag builds the regional-indicator pair for the tag's (possibly inferred)
// country.
func flag(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No || !region.IsCountry() {
		return ""
	}
	code := region.String()
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range code {
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
