package batch

import (
	"context"
	"sync"
	"time"

	"github.com/minios-linux/transync/localemap"
)

// DispatchOptions controls concurrent submission.
type DispatchOptions struct {
	// MaxConcurrent is the maximum number of in-flight provider calls (default 3).
	MaxConcurrent int
	// RequestDelay is the delay between launching calls.
	RequestDelay time.Duration
	// OnDone is called after each batch finishes, successfully or not.
	OnDone func(o Outcome, done, total int)
}

func (o DispatchOptions) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 3
}

// Outcome is the result of one submitted batch.
type Outcome struct {
	Batch      *Batch
	Translated *localemap.Map
	Err        error
}

// Dispatch submits every batch, at most MaxConcurrent at a time, and waits
// for all of them. Outcomes are returned in batch order. A failed batch does
// not stop the others. Batches not started because ctx was cancelled carry
// ctx.Err().
func Dispatch(ctx context.Context, batches []*Batch, t Translator, opts DispatchOptions) []Outcome {
	outcomes := make([]Outcome, len(batches))
	for i, b := range batches {
		outcomes[i].Batch = b
	}
	if len(batches) == 0 {
		return outcomes
	}

	sem := make(chan struct{}, opts.effectiveMaxConcurrent())
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	finish := func(i int, translated *localemap.Map, err error) {
		mu.Lock()
		defer mu.Unlock()
		outcomes[i].Translated = translated
		outcomes[i].Err = err
		done++
		if opts.OnDone != nil {
			opts.OnDone(outcomes[i], done, len(batches))
		}
	}

	for i, b := range batches {
		if i > 0 && opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.RequestDelay):
			}
		}

		select {
		case <-ctx.Done():
			finish(i, nil, &ProviderError{Lang: b.TargetLang, Batch: b, Err: ctx.Err()})
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, b *Batch) {
			defer func() {
				<-sem
				wg.Done()
			}()
			translated, err := Submit(ctx, t, b)
			finish(i, translated, err)
		}(i, b)
	}

	wg.Wait()
	return outcomes
}
