// Package batch groups pending keys into one translation request per target
// language and attributes provider results back to their keys.
//
// Units keep the order in which values are submitted; providers may answer
// with a positional list, so that order is the only link between a returned
// string and its key.
package batch

import (
	"context"
	"fmt"

	"github.com/minios-linux/transync/localemap"
)

// Slot identifies where a translated value is written back: a key of the
// target file for one language.
type Slot struct {
	Lang string
	Path string
	Key  string
}

// Unit is one pending (key, source value) pair.
type Unit struct {
	Key    string
	Source string
	Slot   Slot
}

// Batch is the ordered set of units sent in one provider call.
type Batch struct {
	SourceLang string
	TargetLang string
	// Path is the target file the batch's results belong to.
	Path  string
	Units []Unit
}

// Build turns a pending map into a batch, keeping the map's order.
func Build(sourceLang, targetLang, path string, pending *localemap.Map) *Batch {
	b := &Batch{
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Path:       path,
		Units:      make([]Unit, 0, pending.Len()),
	}
	for _, k := range pending.Keys() {
		v, _ := pending.Get(k)
		b.Units = append(b.Units, Unit{
			Key:    k,
			Source: v,
			Slot:   Slot{Lang: targetLang, Path: path, Key: k},
		})
	}
	return b
}

// Len returns the number of units.
func (b *Batch) Len() int {
	return len(b.Units)
}

// Values returns the source values in submission order.
func (b *Batch) Values() []string {
	out := make([]string, len(b.Units))
	for i, u := range b.Units {
		out[i] = u.Source
	}
	return out
}

// Keys returns the unit keys in submission order.
func (b *Batch) Keys() []string {
	out := make([]string, len(b.Units))
	for i, u := range b.Units {
		out[i] = u.Key
	}
	return out
}

// ---------------------------------------------------------------------------
// Provider responses
// ---------------------------------------------------------------------------

// Response is a provider answer: either one result or an ordered list.
type Response struct {
	IsList bool
	Text   string
	Texts  []string
}

// Single wraps a one-result answer.
func Single(text string) Response {
	return Response{Text: text}
}

// List wraps a positional answer.
func List(texts ...string) Response {
	return Response{IsList: true, Texts: texts}
}

func (r Response) count() int {
	if r.IsList {
		return len(r.Texts)
	}
	return 1
}

// Translator is a translation provider client.
type Translator interface {
	Translate(ctx context.Context, values []string, sourceLang, targetLang string) (Response, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, values []string, sourceLang, targetLang string) (Response, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, values []string, sourceLang, targetLang string) (Response, error) {
	return f(ctx, values, sourceLang, targetLang)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ProviderError is a failed provider call for one target language.
type ProviderError struct {
	Lang  string
	Batch *Batch
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("translating %d key(s) into %s: %v", e.Batch.Len(), e.Lang, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ShapeMismatchError is a provider answer whose result count does not
// match the number of submitted values.
type ShapeMismatchError struct {
	Lang string
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("provider returned %d result(s) for %d submitted value(s) (%s)", e.Got, e.Want, e.Lang)
}

// ---------------------------------------------------------------------------
// Demultiplexing
// ---------------------------------------------------------------------------

// Demux maps a provider response onto the batch keys. The expected shape is
// decided by the number of submitted units: one unit accepts a single result
// or a one-element list, more units require a list of exactly that length.
func Demux(b *Batch, resp Response) (*localemap.Map, error) {
	out := localemap.New()
	n := b.Len()
	switch {
	case n == 0:
		return out, nil
	case n == 1:
		if resp.count() != 1 {
			return nil, &ShapeMismatchError{Lang: b.TargetLang, Want: 1, Got: resp.count()}
		}
		text := resp.Text
		if resp.IsList {
			text = resp.Texts[0]
		}
		out.Set(b.Units[0].Key, text)
	default:
		if !resp.IsList || len(resp.Texts) != n {
			return nil, &ShapeMismatchError{Lang: b.TargetLang, Want: n, Got: resp.count()}
		}
		for i, u := range b.Units {
			out.Set(u.Key, resp.Texts[i])
		}
	}
	return out, nil
}

// Submit sends the batch in one provider call and demultiplexes the answer.
// Either every unit gets a result or an error is returned.
func Submit(ctx context.Context, t Translator, b *Batch) (*localemap.Map, error) {
	if b.Len() == 0 {
		return localemap.New(), nil
	}
	resp, err := t.Translate(ctx, b.Values(), b.SourceLang, b.TargetLang)
	if err != nil {
		return nil, &ProviderError{Lang: b.TargetLang, Batch: b, Err: err}
	}
	return Demux(b, resp)
}
