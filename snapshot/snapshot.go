// Package snapshot implements the previous-source snapshot: a copy of the
// source locale file taken on every run. Comparing the current source with
// it tells which already-translated keys went stale, so only new or changed
// strings are sent to the translation provider.
//
// The snapshot has the same shape as the source file it mirrors and is
// stored next to it (by default as .<name>.prev.json).
package snapshot

import (
	"fmt"

	"github.com/minios-linux/transync/fileio"
	"github.com/minios-linux/transync/localemap"
)

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the snapshot at path. ok is false when no snapshot exists yet.
// A snapshot that is not valid locale JSON yields a *localemap.MalformedError.
func Load(store fileio.Store, path string) (m *localemap.Map, ok bool, err error) {
	if !store.Exists(path) {
		return nil, false, nil
	}
	data, err := store.Read(path)
	if err != nil {
		if fileio.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	m, err = localemap.ParseAs(data, localemap.RoleSnapshot, path)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// Save overwrites the snapshot at path with source.
func Save(store fileio.Store, path string, source *localemap.Map) error {
	data, err := source.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := store.Write(path, data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Change detection
// ---------------------------------------------------------------------------

// Reason tells why a key is pending.
type Reason int

const (
	NotPending Reason = iota
	// Untranslated: the target has no entry for the key.
	Untranslated
	// SourceChanged: the target has an entry but the source value differs
	// from the one recorded in the previous snapshot.
	SourceChanged
)

func (r Reason) String() string {
	switch r {
	case Untranslated:
		return "untranslated"
	case SourceChanged:
		return "source changed"
	default:
		return "up to date"
	}
}

// Classify decides whether key needs translation. previous may be nil
// when there is no snapshot, in which case only missing keys are pending.
func Classify(key string, currentRaw, previous, translated *localemap.Map) Reason {
	if !translated.Has(key) {
		return Untranslated
	}
	if previous == nil {
		return NotPending
	}
	prev, ok := previous.Get(key)
	if !ok {
		return NotPending
	}
	cur, _ := currentRaw.Get(key)
	if cur != prev {
		return SourceChanged
	}
	return NotPending
}

// Pending returns the keys of currentSafe that must be (re-)translated,
// mapped to their placeholder-safe source values, in currentSafe order.
func Pending(currentSafe, currentRaw, previous, translated *localemap.Map) *localemap.Map {
	pending := localemap.New()
	for _, key := range currentSafe.Keys() {
		if Classify(key, currentRaw, previous, translated) == NotPending {
			continue
		}
		v, _ := currentSafe.Get(key)
		pending.Set(key, v)
	}
	return pending
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats counts source keys for one target: translated and current,
// missing from the target, or translated from an older source value.
type Stats struct {
	Total   int
	Current int
	Missing int
	Stale   int
}

// Pending returns the number of keys that would be sent for translation.
func (s Stats) Pending() int {
	return s.Missing + s.Stale
}

// Percent returns the share of current translations, 0-100.
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 100
	}
	return s.Current * 100 / s.Total
}

// Collect computes Stats for one target.
func Collect(currentRaw, previous, translated *localemap.Map) Stats {
	st := Stats{Total: currentRaw.Len()}
	for _, key := range currentRaw.Keys() {
		switch Classify(key, currentRaw, previous, translated) {
		case Untranslated:
			st.Missing++
		case SourceChanged:
			st.Stale++
		default:
			st.Current++
		}
	}
	return st
}
