package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/minios-linux/transync/langmeta"
)

// FromFlags builds a configuration for a single source file when no
// .transync.yaml exists.
func FromFlags(src, sourceLang string, languages []string) (*File, error) {
	f := &File{
		SourceLang: sourceLang,
		Languages:  languages,
		Files:      []FileSet{{Src: src}},
	}
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	return f, nil
}

// DetectLanguages finds languages that already have a translation of the
// file set: <dest>/<lang>/<prefix><name><suffix>.
func DetectLanguages(fs FileSet) []string {
	entries, err := os.ReadDir(fs.Dest)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		if !entry.IsDir() || !isLangCode(entry.Name()) {
			continue
		}
		if _, err := os.Stat(fs.TargetPath(entry.Name())); err == nil {
			langs = append(langs, entry.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// isLangCode reports whether s looks like a language directory name
// (ru, pt_BR, zh-Hant). Hidden and multi-word names are rejected early.
func isLangCode(s string) bool {
	if len(s) < 2 || len(s) > 15 || s[0] == '.' {
		return false
	}
	_, err := langmeta.Parse(s)
	return err == nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// ProjectFiles lists the source files of resolved file sets, used by the
// watch command.
func ProjectFiles(sets []FileSet) []string {
	out := make([]string, 0, len(sets))
	for _, fs := range sets {
		out = append(out, filepath.Clean(fs.Src))
	}
	return out
}
