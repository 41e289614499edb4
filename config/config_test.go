package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestFileSetNaming(t *testing.T) {
	fs := FileSet{Src: "i18n/app.json"}
	if err := fs.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if fs.Suffix != ".json" {
		t.Fatalf("Suffix = %q", fs.Suffix)
	}
	if fs.Dest != "i18n" {
		t.Fatalf("Dest = %q", fs.Dest)
	}
	if want := filepath.Join("i18n", ".app.prev.json"); fs.SrcPrev != want {
		t.Fatalf("SrcPrev = %q, want %q", fs.SrcPrev, want)
	}
	if got, want := fs.TargetPath("fr"), filepath.Join("i18n", "fr", "app.json"); got != want {
		t.Fatalf("TargetPath = %q, want %q", got, want)
	}

	custom := FileSet{Src: "src/en.json", Dest: "out", Prefix: "msg_", Suffix: ".lang.json"}
	if err := custom.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got, want := custom.TargetPath("de"), filepath.Join("out", "de", "msg_en.lang.json"); got != want {
		t.Fatalf("TargetPath = %q, want %q", got, want)
	}
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Run("missing file returns nil", func(t *testing.T) {
		f, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if f != nil {
			t.Fatalf("Load expected nil, got %#v", f)
		}
	})

	t.Run("applies defaults and inheritance", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "languages: [ru, de, ru, en]\n"+
			"request_delay: 250ms\n"+
			"files:\n"+
			"  - src: i18n/app.json\n"+
			"  - src: web/strings.json\n"+
			"    languages: [fr]\n"+
			"    source_lang: de\n")

		f, err := Load(dir)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if f.SourceLang != "en" || f.Provider != DefaultProvider {
			t.Fatalf("defaults not applied: %#v", f)
		}
		if f.RequestDelay != 250*time.Millisecond {
			t.Fatalf("RequestDelay = %v", f.RequestDelay)
		}
		first := f.Files[0]
		if !reflect.DeepEqual(first.Languages, []string{"ru", "de"}) {
			t.Fatalf("Languages = %v, want [ru de] (deduplicated, source removed)", first.Languages)
		}
		if first.Name != "i18n/app.json" || first.SourceLang != "en" {
			t.Fatalf("first = %#v", first)
		}
		second := f.Files[1]
		if !reflect.DeepEqual(second.Languages, []string{"fr"}) || second.SourceLang != "de" {
			t.Fatalf("second = %#v", second)
		}
	})

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unsupported key", "files:\n  - src: a.json\n    target: x\n", "unsupported key"},
		{"no files", "languages: [fr]\n", "no files"},
		{"missing src", "files:\n  - dest: out\n", "no src"},
		{"bad language", "languages: [\"not a tag!\"]\nfiles:\n  - src: a.json\n", "languages"},
		{"bad pattern", "placeholder_pattern: \"([\"\nfiles:\n  - src: a.json\n", "placeholder_pattern"},
		{"duplicate src", "files:\n  - src: a.json\n  - src: ./a.json\n", "more than once"},
		{"prev equals src", "files:\n  - src: a.json\n    src_prev: a.json\n", "src_prev"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tc.yaml)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestResolveAllDetectsLanguages(t *testing.T) {
	dir := t.TempDir()
	for _, lang := range []string{"de", "ru"} {
		langDir := filepath.Join(dir, "i18n", lang)
		if err := os.MkdirAll(langDir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(filepath.Join(langDir, "app.json"), []byte("{}\n"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	// Neither a language nor a translation of app.json.
	if err := os.MkdirAll(filepath.Join(dir, "i18n", "assets"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "i18n", "fr"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	f := &File{Files: []FileSet{{Src: "i18n/app.json"}}}
	if err := f.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	sets, err := f.ResolveAll(dir)
	if err != nil {
		t.Fatalf("ResolveAll error: %v", err)
	}
	if !filepath.IsAbs(sets[0].Src) || !filepath.IsAbs(sets[0].SrcPrev) {
		t.Fatalf("paths not absolute: %#v", sets[0])
	}
	if !reflect.DeepEqual(sets[0].Languages, []string{"de", "ru"}) {
		t.Fatalf("languages = %v, want [de ru]", sets[0].Languages)
	}
	if all := AllLanguages(sets); !reflect.DeepEqual(all, []string{"de", "ru"}) {
		t.Fatalf("AllLanguages = %v", all)
	}
}

func TestFromFlags(t *testing.T) {
	f, err := FromFlags("locales/en.json", "", []string{"fr", "es"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if len(f.Files) != 1 || f.Files[0].SourceLang != "en" {
		t.Fatalf("unexpected config: %#v", f)
	}
	if _, err := FromFlags("", "en", nil); err == nil {
		t.Fatal("empty src should fail")
	}
}
