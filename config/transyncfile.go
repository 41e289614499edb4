// Package config loads .transync.yaml project files.
//
// A .transync.yaml file in the project root declares the source JSON files
// to keep in sync, the target languages and the translation provider.
// Without the file, the CLI builds a single file set from its flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/transync/langmeta"
	"github.com/minios-linux/transync/placeholder"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .transync.yaml structure.
type File struct {
	// SourceLang is the source language code (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the default target language list for all file sets.
	Languages []string `yaml:"languages,omitempty"`

	// Provider is the translation provider ID (default "google").
	Provider string `yaml:"provider,omitempty"`
	// Model overrides the provider's default model (LLM providers).
	Model string `yaml:"model,omitempty"`
	// BaseURL overrides the provider's API base URL.
	BaseURL string `yaml:"base_url,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL for provider requests.
	Proxy string `yaml:"proxy,omitempty"`
	// Prompt overrides the LLM system prompt.
	Prompt string `yaml:"prompt,omitempty"`

	// MaxConcurrent bounds in-flight provider calls (default 3).
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	// RequestDelay spaces out provider calls, e.g. "500ms".
	RequestDelay time.Duration `yaml:"request_delay,omitempty"`
	// PlaceholderPattern overrides the placeholder regular expression.
	PlaceholderPattern string `yaml:"placeholder_pattern,omitempty"`

	// Files lists the source files to synchronize.
	Files []FileSet `yaml:"files"`
}

// FileSet describes one source file and where its translations live.
type FileSet struct {
	// Name is a label shown in status/logs (default: Src).
	Name string `yaml:"name,omitempty"`
	// Src is the source-language JSON file, relative to the project root.
	Src string `yaml:"src"`
	// SrcPrev is the snapshot of Src from the previous run
	// (default "<dir>/.<name>.prev<ext>").
	SrcPrev string `yaml:"src_prev,omitempty"`
	// Dest is the directory holding per-language subdirectories
	// (default: directory of Src).
	Dest string `yaml:"dest,omitempty"`
	// Prefix is prepended to the target file name.
	Prefix string `yaml:"prefix,omitempty"`
	// Suffix replaces the extension of the target file name
	// (default: extension of Src).
	Suffix string `yaml:"suffix,omitempty"`
	// Languages overrides the global language list for this file set.
	Languages []string `yaml:"languages,omitempty"`
	// SourceLang overrides the global source language.
	SourceLang string `yaml:"source_lang,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".transync.yaml"

// DefaultProvider is used when neither the file nor the CLI names one.
const DefaultProvider = "google"

// Load loads and validates .transync.yaml from the given directory.
// Returns nil if no .transync.yaml exists.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	f, err := LoadPath(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return f, err
}

// LoadPath loads and validates a config file at an explicit path.
func LoadPath(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("parsing %s: unsupported key: %w", path, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := f.Normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Normalize applies defaults and validates the configuration. It is called
// by Load; callers building a File in code call it themselves.
func (f *File) Normalize() error {
	if f.SourceLang == "" {
		f.SourceLang = "en"
	}
	if f.Provider == "" {
		f.Provider = DefaultProvider
	}
	if f.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative")
	}
	if f.RequestDelay < 0 {
		return fmt.Errorf("request_delay must not be negative")
	}
	if _, err := placeholder.NewCodec(f.PlaceholderPattern); err != nil {
		return fmt.Errorf("placeholder_pattern: %w", err)
	}
	if _, err := langmeta.Parse(f.SourceLang); err != nil {
		return fmt.Errorf("source_lang: %w", err)
	}
	langs, err := validLanguages(f.Languages)
	if err != nil {
		return fmt.Errorf("languages: %w", err)
	}
	f.Languages = langs

	if len(f.Files) == 0 {
		return fmt.Errorf("no files declared")
	}

	for i := range f.Files {
		fs := &f.Files[i]
		if fs.Src == "" {
			return fmt.Errorf("file set #%d has no src", i+1)
		}
		if fs.Name == "" {
			fs.Name = fs.Src
		}
		if len(fs.Languages) == 0 {
			fs.Languages = f.Languages
		}
		if fs.SourceLang == "" {
			fs.SourceLang = f.SourceLang
		}
		if err := fs.Normalize(); err != nil {
			return fmt.Errorf("file set %q: %w", fs.Name, err)
		}
	}

	dup := lo.FindDuplicates(lo.Map(f.Files, func(fs FileSet, _ int) string { return filepath.Clean(fs.Src) }))
	if len(dup) > 0 {
		return fmt.Errorf("source file %s declared more than once", dup[0])
	}
	return nil
}

// Normalize applies the naming defaults and validates languages.
func (fs *FileSet) Normalize() error {
	if fs.Src == "" {
		return fmt.Errorf("src is required")
	}
	if fs.SourceLang == "" {
		fs.SourceLang = "en"
	}
	if _, err := langmeta.Parse(fs.SourceLang); err != nil {
		return fmt.Errorf("source_lang: %w", err)
	}
	if fs.Suffix == "" {
		fs.Suffix = filepath.Ext(fs.Src)
	}
	if fs.Dest == "" {
		fs.Dest = filepath.Dir(fs.Src)
	}
	if fs.SrcPrev == "" {
		fs.SrcPrev = filepath.Join(filepath.Dir(fs.Src), "."+fs.BaseName()+".prev"+filepath.Ext(fs.Src))
	}
	if filepath.Clean(fs.SrcPrev) == filepath.Clean(fs.Src) {
		return fmt.Errorf("src_prev must differ from src")
	}

	langs, err := validLanguages(fs.Languages)
	if err != nil {
		return fmt.Errorf("languages: %w", err)
	}
	fs.Languages = lo.Without(langs, fs.SourceLang)
	return nil
}

// validLanguages checks every code and drops duplicates. Codes keep the
// spelling used in the config since they name directories on disk.
func validLanguages(langs []string) ([]string, error) {
	langs = lo.Map(langs, func(l string, _ int) string { return strings.TrimSpace(l) })
	for _, l := range langs {
		if _, err := langmeta.Parse(l); err != nil {
			return nil, err
		}
	}
	return lo.Uniq(langs), nil
}

// ---------------------------------------------------------------------------
// Naming
// ---------------------------------------------------------------------------

// BaseName returns the source file name without its extension.
func (fs *FileSet) BaseName() string {
	base := filepath.Base(fs.Src)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TargetPath returns the translation file for lang:
// <dest>/<lang>/<prefix><name><suffix>.
func (fs *FileSet) TargetPath(lang string) string {
	return filepath.Join(fs.Dest, lang, fs.Prefix+fs.BaseName()+fs.Suffix)
}

// Resolve returns a copy with every path made absolute against rootDir.
func (fs FileSet) Resolve(rootDir string) (FileSet, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return fs, err
	}
	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(absRoot, p)
	}
	fs.Src = abs(fs.Src)
	fs.SrcPrev = abs(fs.SrcPrev)
	fs.Dest = abs(fs.Dest)
	return fs, nil
}

// ResolveAll resolves every file set against rootDir. File sets without
// languages get them from existing translation directories.
func (f *File) ResolveAll(rootDir string) ([]FileSet, error) {
	out := make([]FileSet, 0, len(f.Files))
	for _, fs := range f.Files {
		r, err := fs.Resolve(rootDir)
		if err != nil {
			return nil, err
		}
		if len(r.Languages) == 0 {
			r.Languages = lo.Without(DetectLanguages(r), r.SourceLang)
		}
		out = append(out, r)
	}
	return out, nil
}

// AllLanguages returns the sorted union of all file set languages.
func AllLanguages(sets []FileSet) []string {
	all := lo.Uniq(lo.FlatMap(sets, func(fs FileSet, _ int) []string { return fs.Languages }))
	return sortedCopy(all)
}
