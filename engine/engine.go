// Package engine runs one synchronization pass over a set of source files.
//
// For every source file the previous snapshot is read and the new one is
// written before any provider call. Pending keys of every target language
// are then batched and dispatched concurrently; once all batches have
// finished, each successful batch is merged into its target file.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/minios-linux/transync/batch"
	"github.com/minios-linux/transync/config"
	"github.com/minios-linux/transync/fileio"
	"github.com/minios-linux/transync/localemap"
	"github.com/minios-linux/transync/merge"
	"github.com/minios-linux/transync/placeholder"
	"github.com/minios-linux/transync/snapshot"
)

// Options controls a synchronization run.
type Options struct {
	// MaxConcurrent is the maximum number of in-flight provider calls.
	MaxConcurrent int
	// RequestDelay is the delay between launching provider calls.
	RequestDelay time.Duration
	// DryRun computes pending keys but calls no provider and writes nothing.
	DryRun bool
	// Retranslate treats every existing translation as missing.
	Retranslate bool
	// Codec protects placeholders (default pattern when nil).
	Codec *placeholder.Codec
	// Store reads and writes files (local filesystem when nil).
	Store fileio.Store

	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits non-fatal problems (placeholder loss).
	OnWarn func(format string, args ...any)
	// OnError emits failures.
	OnError func(format string, args ...any)
	// OnPending is called for every target with pending keys, before dispatch.
	OnPending func(t *TargetResult, keys []string)
	// OnProgress is called after each batch finishes.
	OnProgress func(done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) store() fileio.Store {
	if o.Store != nil {
		return o.Store
	}
	return fileio.OS{}
}

func (o *Options) codec() *placeholder.Codec {
	if o.Codec != nil {
		return o.Codec
	}
	return placeholder.MustCodec("")
}

// job is one target with pending keys awaiting dispatch.
type job struct {
	target    *TargetResult
	existing  *localemap.Map
	protected *placeholder.Protected
	batch     *batch.Batch
}

// Run synchronizes every file set. It returns after every dispatched batch
// has finished; per-target failures are recorded in the report, never
// returned early. Use Report.Err for the overall outcome.
func Run(ctx context.Context, sets []config.FileSet, t batch.Translator, opts Options) *Report {
	report := &Report{Files: make([]*FileResult, 0, len(sets))}
	var jobs []*job

	for _, fs := range sets {
		fr, fileJobs := prepare(fs, &opts)
		report.Files = append(report.Files, fr)
		jobs = append(jobs, fileJobs...)
	}

	if opts.DryRun || len(jobs) == 0 {
		return report
	}
	if t == nil {
		for _, j := range jobs {
			j.target.Err = &batch.ProviderError{Lang: j.target.Lang, Batch: j.batch, Err: errors.New("no translation provider configured")}
		}
		return report
	}

	batches := lo.Map(jobs, func(j *job, _ int) *batch.Batch { return j.batch })
	outcomes := batch.Dispatch(ctx, batches, t, batch.DispatchOptions{
		MaxConcurrent: opts.MaxConcurrent,
		RequestDelay:  opts.RequestDelay,
		OnDone: func(o batch.Outcome, done, total int) {
			if opts.OnProgress != nil {
				opts.OnProgress(done, total)
			}
		},
	})

	// Join point: every batch has finished.
	for i, o := range outcomes {
		finish(jobs[i], o, &opts)
	}

	return report
}

// prepare loads a file set, writes its new snapshot and builds the batches
// of its targets.
func prepare(fs config.FileSet, opts *Options) (*FileResult, []*job) {
	store := opts.store()
	fr := &FileResult{Name: fs.Name, Src: fs.Src, SrcPrev: fs.SrcPrev}
	if fr.Name == "" {
		fr.Name = fs.Src
	}

	data, err := store.Read(fs.Src)
	if err != nil {
		fr.Err = fmt.Errorf("reading source: %w", err)
		opts.logError("%s: %v", fr.Name, fr.Err)
		return fr, nil
	}
	current, err := localemap.ParseAs(data, localemap.RoleSource, fs.Src)
	if err != nil {
		fr.Err = err
		opts.logError("%s: %v", fr.Name, err)
		return fr, nil
	}
	fr.Keys = current.Len()

	previous, hasPrevious, err := snapshot.Load(store, fs.SrcPrev)
	if err != nil {
		fr.Err = err
		opts.logError("%s: %v", fr.Name, err)
		return fr, nil
	}
	if !hasPrevious {
		opts.log("%s: no previous snapshot, only missing keys will be translated", fr.Name)
	}

	if !opts.DryRun {
		if err := snapshot.Save(store, fs.SrcPrev, current); err != nil {
			fr.Err = err
			opts.logError("%s: %v", fr.Name, err)
			return fr, nil
		}
	}

	protected := opts.codec().Protect(current)

	var jobs []*job
	for _, lang := range fs.Languages {
		tr := &TargetResult{File: fr.Name, Lang: lang, Path: fs.TargetPath(lang)}
		fr.Targets = append(fr.Targets, tr)

		existing, err := loadTarget(store, tr.Path)
		if err != nil {
			tr.Err = err
			tr.Unrecoverable = true
			opts.logError("%s [%s]: %v", fr.Name, lang, err)
			continue
		}

		translated := existing
		if opts.Retranslate {
			translated = localemap.New()
		}
		pending := snapshot.Pending(protected.Values, current, previous, translated)
		tr.Pending = pending.Len()
		if tr.Pending == 0 {
			continue
		}

		if opts.OnPending != nil {
			opts.OnPending(tr, pending.Keys())
		}

		jobs = append(jobs, &job{
			target:    tr,
			existing:  existing,
			protected: protected,
			batch:     batch.Build(fs.SourceLang, lang, tr.Path, pending),
		})
	}
	return fr, jobs
}

// loadTarget reads an existing target file; absent files are empty.
func loadTarget(store fileio.Store, path string) (*localemap.Map, error) {
	if !store.Exists(path) {
		return localemap.New(), nil
	}
	data, err := store.Read(path)
	if err != nil {
		if fileio.IsNotExist(err) {
			return localemap.New(), nil
		}
		return nil, err
	}
	return localemap.ParseAs(data, localemap.RoleTarget, path)
}

// finish merges a successful batch into its target file.
func finish(j *job, o batch.Outcome, opts *Options) {
	tr := j.target
	if o.Err != nil {
		tr.Err = o.Err
		var sm *batch.ShapeMismatchError
		if errors.As(o.Err, &sm) {
			opts.logError("%s [%s]: unexpected response shape: %v", tr.File, tr.Lang, o.Err)
		} else {
			opts.logError("%s [%s]: %v", tr.File, tr.Lang, o.Err)
		}
		return
	}

	merged, warnings := merge.Merge(j.existing, o.Translated, j.protected)
	for _, w := range warnings {
		opts.warn("%s [%s]: %s", tr.File, tr.Lang, w)
	}
	tr.Warnings = warnings

	artifact := &merge.Artifact{Lang: tr.Lang, Path: tr.Path, Map: merged, Added: o.Translated.Len()}
	data, err := artifact.Bytes()
	if err == nil {
		err = opts.store().Write(artifact.Path, data)
	}
	if err != nil {
		tr.Err = fmt.Errorf("writing %s: %w", tr.Path, err)
		tr.Unrecoverable = true
		opts.logError("%s [%s]: %v", tr.File, tr.Lang, tr.Err)
		return
	}
	tr.Written = artifact.Added
}
