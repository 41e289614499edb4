// transync keeps translated JSON locale files in sync with a source file.
//
// Only keys that are missing from a translation, or whose source text changed
// since the previous run, are sent to the translation provider. Existing
// translations are never discarded.
//
// Usage:
//
//	transync sync                       Translate pending keys of every file set
//	transync sync --dry-run             Show pending keys, call nothing, write nothing
//	transync status                     Per-language translation progress
//	transync watch                      Re-sync whenever a source file changes
//	transync auth login|logout|list     Manage provider API keys
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/minios-linux/transync/batch"
	"github.com/minios-linux/transync/config"
	"github.com/minios-linux/transync/engine"
	"github.com/minios-linux/transync/fileio"
	"github.com/minios-linux/transync/i18n"
	"github.com/minios-linux/transync/langmeta"
	"github.com/minios-linux/transync/localemap"
	"github.com/minios-linux/transync/placeholder"
	"github.com/minios-linux/transync/provider"
	"github.com/minios-linux/transync/settings"
	"github.com/minios-linux/transync/snapshot"
)

// Set by -ldflags at release time.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	header = color.New(color.FgBlue, color.Bold).SprintFunc()
)

// Log helpers translate the format through the message catalog before
// formatting it.

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", blue("[INFO]"), i18n.T(format, args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", green("[OK]"), i18n.T(format, args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", yellow("[WARN]"), i18n.T(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("[ERROR]"), i18n.T(format, args...))
}

// Global flags.
var (
	rootDir    string
	configPath string
	uiLang     string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "transync",
		Short: "Keep translated JSON locale files in sync",
		Long: `transync translates the keys of a source JSON locale file that are missing
from, or outdated in, each target language file.

Projects are described by .transync.yaml in the project root. Without it,
pass the source file with --src.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init(uiLang)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/"+config.FileName+")")
	root.PersistentFlags().StringVar(&uiLang, "lang-ui", "", "Language of transync messages (default: from environment)")

	root.AddCommand(
		newSyncCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("transync %s", version)
			if commit != "" {
				fmt.Printf(" (%s", commit)
				if date != "" {
					fmt.Printf(", %s", date)
				}
				fmt.Print(")")
			}
			fmt.Println()
		},
	}
}

// ---------------------------------------------------------------------------
// Project loading
// ---------------------------------------------------------------------------

// projectArgs selects the file sets to operate on.
type projectArgs struct {
	src        string
	sourceLang string
	langs      string
}

func (a *projectArgs) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.src, "src", "", "Source JSON file (ignores the config file)")
	cmd.Flags().StringVar(&a.sourceLang, "source-lang", "", "Source language with --src (default: en)")
	cmd.Flags().StringVar(&a.langs, "lang", "", "Target languages (comma-separated, default: all)")
}

// loadProject returns the configuration and its resolved file sets.
func loadProject(a projectArgs) (*config.File, []config.FileSet, error) {
	var (
		f   *config.File
		err error
	)
	switch {
	case a.src != "":
		f, err = config.FromFlags(a.src, a.sourceLang, splitList(a.langs))
	case configPath != "":
		f, err = config.LoadPath(configPath)
	default:
		f, err = config.Load(rootDir)
		if err == nil && f == nil {
			return nil, nil, errors.New(i18n.T("no %s found in %s; create one or pass --src", config.FileName, rootDir))
		}
	}
	if err != nil {
		return nil, nil, err
	}

	sets, err := f.ResolveAll(rootDir)
	if err != nil {
		return nil, nil, err
	}
	if a.src == "" && a.langs != "" {
		filter := splitList(a.langs)
		for i := range sets {
			sets[i].Languages = intersectLanguages(sets[i].Languages, filter)
		}
	}
	return f, sets, nil
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Compact(parts)
}

// intersectLanguages keeps the languages of filter that are in available,
// in filter order.
func intersectLanguages(available, filter []string) []string {
	var out []string
	for _, lang := range filter {
		lang = strings.TrimSpace(lang)
		if lo.Contains(available, lang) && !lo.Contains(out, lang) {
			out = append(out, lang)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Provider resolution
// ---------------------------------------------------------------------------

// providerArgs are the provider flags shared by sync and watch.
type providerArgs struct {
	provider   string
	model      string
	baseURL    string
	apiKey     string
	proxy      string
	prompt     string
	timeout    time.Duration
	maxRetries int
}

func (a *providerArgs) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.provider, "provider", "", "Translation provider: "+strings.Join(provider.IDs(), ", ")+" (default: google)")
	cmd.Flags().StringVar(&a.model, "model", "", "Model name (LLM providers)")
	cmd.Flags().StringVar(&a.baseURL, "base-url", "", "Custom API base URL")
	cmd.Flags().StringVar(&a.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	cmd.Flags().StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().StringVar(&a.prompt, "prompt", "", "Custom LLM system prompt ({{sourceLang}}, {{targetLang}} placeholders)")
	cmd.Flags().DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 3, "Maximum retries on 429, 5xx and network errors")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(provider.IDs(), func(id string, _ int) string {
			p, _ := provider.Lookup(id)
			return id + "\t" + p.Name
		}), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveProvider merges flags, the config file, stored credentials and the
// provider defaults. Flags win over the file.
func resolveProvider(f *config.File, a providerArgs) (provider.Provider, error) {
	name, _ := lo.Coalesce(a.provider, f.Provider, config.DefaultProvider)
	prov, ok := provider.Lookup(strings.ToLower(name))
	if !ok {
		return provider.Provider{}, errors.New(i18n.T("unknown provider %q (available: %s)", name, strings.Join(provider.IDs(), ", ")))
	}

	if u, ok := lo.Coalesce(a.baseURL, f.BaseURL, settings.GetBaseURL(prov.ID)); ok {
		prov.BaseURL = u
	}
	if m, ok := lo.Coalesce(a.model, f.Model); ok {
		prov.Model = m
	}
	if p, ok := lo.Coalesce(a.proxy, f.Proxy); ok {
		prov.Proxy = p
	}
	if a.timeout > 0 {
		prov.Timeout = a.timeout
	}
	prov.APIKey = settings.ResolveAPIKey(prov.ID, a.apiKey)
	return prov, nil
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

type syncArgs struct {
	project       projectArgs
	provider      providerArgs
	dryRun        bool
	retranslate   bool
	maxConcurrent int
	requestDelay  time.Duration
	verbose       bool
}

func (a *syncArgs) register(cmd *cobra.Command) {
	a.project.register(cmd)
	a.provider.register(cmd)
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "List pending keys without calling the provider or writing files")
	cmd.Flags().BoolVar(&a.retranslate, "retranslate", false, "Translate every key again, ignoring existing translations")
	cmd.Flags().IntVar(&a.maxConcurrent, "max-concurrent", 0, "Maximum concurrent provider calls (default: config or 3)")
	cmd.Flags().DurationVar(&a.requestDelay, "request-delay", 0, "Delay between provider calls (default: config)")
	cmd.Flags().BoolVar(&a.verbose, "verbose", false, "Log every pending key and provider request")
}

func newSyncCmd() *cobra.Command {
	var a syncArgs

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate missing and outdated keys",
		Long: `Translate the keys of each source file that are missing from a target
language file or whose source text changed since the previous run.

The previous source is kept in a snapshot file next to the source
(.<name>.prev.json by default). Existing translations are kept, new ones are
appended in source order.

Examples:
  # Sync every file set of .transync.yaml
  transync sync

  # One file, two languages, keyless Google Translate
  transync sync --src locales/en.json --lang de,fr --provider google-free

  # Show what would be translated
  transync sync --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := runSync(ctx, a)
			if err != nil {
				return err
			}
			return reportError(report)
		},
	}
	a.register(cmd)
	return cmd
}

// runSync performs one synchronization pass and prints its summary.
func runSync(ctx context.Context, a syncArgs) (*engine.Report, error) {
	f, sets, err := loadProject(a.project)
	if err != nil {
		return nil, err
	}
	codec, err := placeholder.NewCodec(f.PlaceholderPattern)
	if err != nil {
		return nil, err
	}

	var translator batch.Translator
	if !a.dryRun {
		prov, err := resolveProvider(f, a.provider)
		if err != nil {
			return nil, err
		}
		prompt, _ := lo.Coalesce(a.provider.prompt, f.Prompt)
		translator, err = provider.New(provider.Options{
			Provider:     prov,
			MaxRetries:   a.provider.maxRetries,
			SystemPrompt: prompt,
			Verbose:      a.verbose,
		})
		if err != nil {
			return nil, err
		}
		logInfo("Provider: %s", providerLabel(prov))
	}

	maxConcurrent := f.MaxConcurrent
	if a.maxConcurrent > 0 {
		maxConcurrent = a.maxConcurrent
	}
	requestDelay := f.RequestDelay
	if a.requestDelay > 0 {
		requestDelay = a.requestDelay
	}

	var bar *progressbar.ProgressBar
	report := engine.Run(ctx, sets, translator, engine.Options{
		MaxConcurrent: maxConcurrent,
		RequestDelay:  requestDelay,
		DryRun:        a.dryRun,
		Retranslate:   a.retranslate,
		Codec:         codec,
		Store:         fileio.OS{},
		OnLog:         logInfo,
		OnWarn:        logWarning,
		OnError:       logError,
		OnPending: func(t *engine.TargetResult, keys []string) {
			meta := langmeta.Resolve(t.Lang)
			logInfo("%s [%s %s]: %d key(s) pending", t.File, meta.Flag, t.Lang, len(keys))
			if a.dryRun || a.verbose {
				for _, key := range keys {
					fmt.Fprintf(os.Stderr, "    %s\n", key)
				}
			}
		},
		OnProgress: func(done, total int) {
			if bar == nil {
				bar = newProgressBar(total, i18n.T("Translating"))
			}
			_ = bar.Set(done)
		},
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	printSyncSummary(report, a.dryRun)
	return report, nil
}

func providerLabel(p provider.Provider) string {
	if p.Model != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Model)
	}
	return p.Name
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func printSyncSummary(report *engine.Report, dryRun bool) {
	if dryRun {
		logInfo("%d key(s) pending", report.Pending())
		logInfo("Dry run: nothing was written")
		return
	}

	for _, t := range report.Targets() {
		if t.Err == nil && t.Written > 0 {
			logSuccess("%s [%s]: %d key(s) written to %s", t.File, t.Lang, t.Written, t.Path)
		}
	}
	if report.Pending() == 0 && report.Err() == nil {
		logSuccess("Everything is up to date")
		return
	}

	failed := report.Failed()
	if retryable := lo.CountBy(failed, func(t *engine.TargetResult) bool { return !t.Unrecoverable }); retryable > 0 {
		logWarning("%d target(s) failed and will be retried on the next run", retryable)
	}
	logInfo("%d of %d pending key(s) translated", report.Written(), report.Pending())
}

// reportError turns a finished run into the command's exit status. Targets
// whose provider call failed are retried on the next run and do not fail
// the command.
func reportError(report *engine.Report) error {
	return report.Err()
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var a projectArgs

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show translation progress",
		Long: `Show, for every file set and target language, how many source keys are
translated, missing, or outdated since the previous sync. Does not modify
any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(a)
		},
	}
	a.register(cmd)
	return cmd
}

func runStatus(a projectArgs) error {
	_, sets, err := loadProject(a)
	if err != nil {
		return err
	}

	store := fileio.OS{}
	for _, fs := range sets {
		fmt.Fprintf(os.Stderr, "\n%s\n", header(fs.Name))
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

		data, err := store.Read(fs.Src)
		if err != nil {
			logError("%s: %v", fs.Name, err)
			continue
		}
		current, err := localemap.ParseAs(data, localemap.RoleSource, fs.Src)
		if err != nil {
			logError("%s: %v", fs.Name, err)
			continue
		}
		previous, hasPrevious, err := snapshot.Load(store, fs.SrcPrev)
		if err != nil {
			logError("%s: %v", fs.Name, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "  %s %s (%s)\n", i18n.T("Source:"), fs.Src, fs.SourceLang)
		fmt.Fprintf(os.Stderr, "  %s %d\n", i18n.T("Keys:"), current.Len())
		if !hasPrevious {
			fmt.Fprintf(os.Stderr, "  %s\n", yellow(i18n.T("No snapshot yet: changed source text cannot be detected")))
		}
		if len(fs.Languages) == 0 {
			fmt.Fprintf(os.Stderr, "  %s\n\n", i18n.T("No target languages"))
			continue
		}

		width := langColumnWidth(fs.Languages)
		fmt.Fprintf(os.Stderr, "\n  %-*s %-8s %-8s %-8s %s\n", width+3, i18n.T("Lang"), i18n.T("Done"), i18n.T("Missing"), i18n.T("Stale"), i18n.T("Progress"))
		for _, lang := range fs.Languages {
			translated, err := readTarget(store, fs.TargetPath(lang))
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s %s\n", langCell(lang, width), red(err.Error()))
				continue
			}
			st := snapshot.Collect(current, previous, translated)
			fmt.Fprintf(os.Stderr, "  %s %-8d %-8d %-8d %s\n",
				langCell(lang, width), st.Current, st.Missing, st.Stale, progressBar(st.Percent(), 20))
		}
		fmt.Fprintln(os.Stderr)
	}
	return nil
}

// readTarget reads a target file; a missing file is an empty translation.
func readTarget(store fileio.Store, path string) (*localemap.Map, error) {
	data, err := store.Read(path)
	if err != nil {
		if fileio.IsNotExist(err) {
			return localemap.New(), nil
		}
		return nil, err
	}
	return localemap.ParseAs(data, localemap.RoleTarget, path)
}

func progressBar(percent, width int) string {
	percent = lo.Clamp(percent, 0, 100)
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	paint := yellow
	switch {
	case percent == 100:
		paint = green
	case percent < 30:
		paint = red
	}
	return fmt.Sprintf("%s %3d%%", paint(bar), percent)
}

func langColumnWidth(langs []string) int {
	return lo.Max(lo.Map(langs, func(l string, _ int) int { return len(l) }))
}

// langCell renders the flag and code of a language padded to width.
func langCell(lang string, width int) string {
	flag := langmeta.Resolve(lang).Flag
	if flag == "" {
		flag = "  "
	}
	return fmt.Sprintf("%s %-*s", flag, width, lang)
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

// watchDebounce is how long the watcher waits for writes to settle.
var watchDebounce = 500 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var a syncArgs

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync again whenever a source file changes",
		Long: `Run a sync, then watch the source files (and the config file) and sync
again after each change. Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a)
		},
	}
	a.register(cmd)
	return cmd
}

func runWatch(ctx context.Context, a syncArgs) error {
	if a.dryRun {
		return errors.New(i18n.T("--dry-run cannot be combined with watch"))
	}

	_, sets, err := loadProject(a.project)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	watched := watchedFiles(sets, a.project)
	for _, dir := range lo.Uniq(lo.Map(watched, func(p string, _ int) string { return filepath.Dir(p) })) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	syncOnce := func() {
		if _, err := runSync(ctx, a); err != nil {
			logError("%v", err)
		}
	}
	syncOnce()
	logInfo("Watching %d file(s) for changes", len(watched))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSourceEvent(ev, watched) {
				continue
			}
			debounce = time.After(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logWarning("watcher: %v", err)
		case <-debounce:
			debounce = nil
			logInfo("Change detected, syncing")
			syncOnce()
		}
	}
}

// watchedFiles lists the absolute paths whose changes trigger a sync.
func watchedFiles(sets []config.FileSet, a projectArgs) []string {
	files := config.ProjectFiles(sets)
	if a.src == "" {
		cfg := configPath
		if cfg == "" {
			cfg = filepath.Join(rootDir, config.FileName)
		}
		if abs, err := filepath.Abs(cfg); err == nil {
			files = append(files, abs)
		}
	}
	sort.Strings(files)
	return lo.Uniq(files)
}

// isSourceEvent reports whether ev modified one of the watched files.
// Editors that save by rename show up as Create.
func isSourceEvent(ev fsnotify.Event, watched []string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return lo.Contains(watched, name)
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Manage the API keys transync uses for translation providers.

Keys are stored in ` + "`$XDG_DATA_HOME/transync/auth.json`" + ` (mode 0600).

Lookup order when syncing:
  1. --api-key flag
  2. ` + settings.EnvAPIKey + ` environment variable
  3. the provider's own variable (GOOGLE_API_KEY, OPENAI_API_KEY, ...)
  4. the stored key

Examples:
  transync auth login --provider google     Store a Google Cloud API key
  transync auth logout --provider google    Remove it
  transync auth logout                      Remove all stored keys
  transync auth list                        Show stored keys`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		providerID string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				return errors.New(i18n.T("--provider is required (available: %s)", strings.Join(provider.IDs(), ", ")))
			}
			prov, ok := provider.Lookup(providerID)
			if !ok {
				return errors.New(i18n.T("unknown provider %q (available: %s)", providerID, strings.Join(provider.IDs(), ", ")))
			}
			return authLogin(prov, baseURL, bufio.NewScanner(os.Stdin))
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to store a key for")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint to store with the key (custom-openai, ollama)")
	return cmd
}

// authLogin reads a key from input and stores it. An empty answer keeps an
// existing key.
func authLogin(prov provider.Provider, baseURL string, input *bufio.Scanner) error {
	fmt.Fprintf(os.Stderr, "\n%s\n", header(prov.Name))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	existing := settings.GetAPIKey(prov.ID)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  %s %s\n", i18n.T("Current key:"), yellow(settings.MaskKey(existing)))
		fmt.Fprintf(os.Stderr, "  %s ", i18n.T("Enter new key to replace, or press Enter to keep:"))
	} else {
		fmt.Fprintf(os.Stderr, "  %s ", i18n.T("Enter API key:"))
	}

	var key string
	if input.Scan() {
		key = strings.TrimSpace(input.Text())
	}
	if key == "" {
		if existing == "" && baseURL == "" {
			return errors.New(i18n.T("no API key provided"))
		}
		key = existing
	}

	if baseURL == "" {
		baseURL = settings.GetBaseURL(prov.ID)
	}
	if err := settings.SetAPIKey(prov.ID, key, baseURL); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	logSuccess("%s credentials saved", prov.Name)
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  `Remove stored credentials for one provider, or for all providers when --provider is not given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if providerID == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("All stored credentials removed")
				return nil
			}
			if err := settings.Remove(providerID); err != nil {
				return err
			}
			logSuccess("%s credentials removed", providerID)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to logout (default: all)")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%s\n", header(i18n.T("Stored Credentials")))
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			for _, id := range provider.IDs() {
				prov, _ := provider.Lookup(id)
				fmt.Fprintf(os.Stderr, "  %-14s %s\n", id, credentialStatus(prov))
			}

			fmt.Fprintln(os.Stderr)
			if v := os.Getenv(settings.EnvAPIKey); v != "" {
				fmt.Fprintf(os.Stderr, "  %s: %s %s\n", settings.EnvAPIKey, green(settings.MaskKey(v)), i18n.T("(overrides stored keys)"))
			} else {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", settings.EnvAPIKey, red(i18n.T("not set")))
			}
			fmt.Fprintf(os.Stderr, "  %s %s\n\n", i18n.T("File:"), settings.FilePath())
		},
	}
}

// credentialStatus describes how a provider would be authenticated.
func credentialStatus(prov provider.Provider) string {
	info := settings.Get(prov.ID)
	var status string
	switch {
	case info != nil && info.Key != "":
		status = green(i18n.T("configured")) + " (" + settings.MaskKey(info.Key) + ")"
	case !prov.NeedsKey:
		status = i18n.T("no key needed")
	default:
		if env := settings.EnvVarForProvider(prov.ID); env != "" && os.Getenv(env) != "" {
			status = green(i18n.T("from %s", env))
		} else {
			status = red(i18n.T("not configured"))
		}
	}
	if info != nil && info.BaseURL != "" {
		status += "  " + info.BaseURL
	}
	return status
}
