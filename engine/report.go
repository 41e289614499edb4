package engine

import (
	"errors"
	"fmt"

	"github.com/minios-linux/transync/placeholder"
)

// Report is the outcome of one run.
type Report struct {
	Files []*FileResult
}

// FileResult is the outcome for one source file.
type FileResult struct {
	Name    string
	Src     string
	SrcPrev string
	// Keys is the number of keys in the source file.
	Keys int
	// Err is set when the source file could not be processed at all
	// (unreadable, malformed source or snapshot).
	Err     error
	Targets []*TargetResult
}

// TargetResult is the outcome for one target language of a source file.
type TargetResult struct {
	File string
	Lang string
	Path string
	// Pending is the number of keys selected for translation.
	Pending int
	// Written is the number of keys merged into the target file.
	Written  int
	Warnings []placeholder.RestoreWarning
	// Err is a provider, response-shape, input or write error.
	Err error
	// Unrecoverable marks errors a retry cannot fix (malformed target,
	// write failure). Provider failures are retried on the next run.
	Unrecoverable bool
}

// Targets returns every target result in order.
func (r *Report) Targets() []*TargetResult {
	var out []*TargetResult
	for _, f := range r.Files {
		out = append(out, f.Targets...)
	}
	return out
}

// Failed returns the targets that ended with an error.
func (r *Report) Failed() []*TargetResult {
	var out []*TargetResult
	for _, t := range r.Targets() {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Pending returns the total number of keys selected for translation.
func (r *Report) Pending() int {
	n := 0
	for _, t := range r.Targets() {
		n += t.Pending
	}
	return n
}

// Written returns the total number of keys written to target files.
func (r *Report) Written() int {
	n := 0
	for _, t := range r.Targets() {
		n += t.Written
	}
	return n
}

// Err joins the unrecoverable errors of the run, nil when there are none.
// Provider and response-shape failures are not included.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
		}
		for _, t := range f.Targets {
			if t.Err != nil && t.Unrecoverable {
				errs = append(errs, fmt.Errorf("%s [%s]: %w", f.Name, t.Lang, t.Err))
			}
		}
	}
	return errors.Join(errs...)
}
