package snapshot

import (
	"errors"
	"testing"

	"github.com/minios-linux/transync/fileio"
	"github.com/minios-linux/transync/localemap"
)

func TestLoadNonExistent(t *testing.T) {
	m, ok, err := Load(fileio.NewMemory(nil), "prev.json")
	if err != nil {
		t.Fatalf("Load returned error for missing snapshot: %v", err)
	}
	if ok || m != nil {
		t.Fatalf("Load() = %v, %v; want nil, false", m, ok)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := fileio.NewMemory(nil)
	src := localemap.FromPairs("hello", "Hi", "bye", "Bye {{name}}")

	if err := Save(store, "prev.json", src); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := store.Content("prev.json"); got != "{\n\t\"hello\": \"Hi\",\n\t\"bye\": \"Bye {{name}}\"\n}\n" {
		t.Fatalf("snapshot content = %q", got)
	}

	loaded, ok, err := Load(store, "prev.json")
	if err != nil || !ok {
		t.Fatalf("Load after save: %v, ok=%v", err, ok)
	}
	if !loaded.Equal(src) {
		t.Fatalf("loaded snapshot %v differs from saved", loaded.Keys())
	}
}

func TestLoadMalformed(t *testing.T) {
	store := fileio.NewMemory(map[string]string{"prev.json": `{"a":`})
	_, _, err := Load(store, "prev.json")
	var me *localemap.MalformedError
	if !errors.As(err, &me) || me.Role != localemap.RoleSnapshot {
		t.Fatalf("Load(malformed) error = %v, want snapshot MalformedError", err)
	}
}

func TestPending_Rules(t *testing.T) {
	raw := localemap.FromPairs(
		"new", "Brand new",
		"same", "Unchanged",
		"changed", "Hi there",
		"unknown-prev", "Never snapshotted",
	)
	previous := localemap.FromPairs(
		"same", "Unchanged",
		"changed", "Hi",
	)
	translated := localemap.FromPairs(
		"same", "Inchangé",
		"changed", "Bonjour",
		"unknown-prev", "Jamais",
	)

	pending := Pending(raw, raw, previous, translated)

	keys := pending.Keys()
	if len(keys) != 2 || keys[0] != "new" || keys[1] != "changed" {
		t.Fatalf("pending keys = %v, want [new changed]", keys)
	}
}

func TestPending_ExampleFromChangedSource(t *testing.T) {
	previous := localemap.FromPairs("hello", "Hi")
	translated := localemap.FromPairs("hello", "Bonjour")
	current := localemap.FromPairs("hello", "Hi there")

	pending := Pending(current, current, previous, translated)
	if !pending.Has("hello") {
		t.Fatal("hello should be pending after its source value changed")
	}
}

func TestPending_NoSnapshotOnlyMissing(t *testing.T) {
	current := localemap.FromPairs("a", "A", "b", "B", "c", "C")
	translated := localemap.FromPairs("b", "stale but unknown")

	pending := Pending(current, current, nil, translated)
	keys := pending.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("pending keys = %v, want [a c]", keys)
	}
}

func TestPending_FirstRunEveryKeyOnce(t *testing.T) {
	current := localemap.FromPairs("a", "A", "b", "B")
	pending := Pending(current, current, nil, localemap.New())
	if pending.Len() != 2 {
		t.Fatalf("pending len = %d, want 2", pending.Len())
	}
}

func TestPending_UntranslatedStaysPendingWhateverTheSnapshot(t *testing.T) {
	// A previous run recorded the value but its translation failed.
	current := localemap.FromPairs("k", "Value")
	previous := localemap.FromPairs("k", "Value")

	if got := Classify("k", current, previous, localemap.New()); got != Untranslated {
		t.Fatalf("Classify() = %v, want untranslated", got)
	}
}

func TestPending_UsesSafeValuesButRawComparison(t *testing.T) {
	raw := localemap.FromPairs("k", "Hi {{name}}")
	safe := localemap.FromPairs("k", "Hi __PH0__")
	previous := localemap.FromPairs("k", "Hi {{name}}")
	translated := localemap.FromPairs("k", "Salut {{name}}")

	if Pending(safe, raw, previous, translated).Len() != 0 {
		t.Fatal("unchanged placeholder value must not be pending")
	}

	translated = localemap.New()
	pending := Pending(safe, raw, previous, translated)
	if v, _ := pending.Get("k"); v != "Hi __PH0__" {
		t.Fatalf("pending value = %q, want protected form", v)
	}
}

func TestCollect(t *testing.T) {
	raw := localemap.FromPairs("a", "A2", "b", "B", "c", "C", "d", "D")
	previous := localemap.FromPairs("a", "A", "b", "B")
	translated := localemap.FromPairs("a", "x", "b", "y", "c", "z")

	st := Collect(raw, previous, translated)
	if st.Total != 4 || st.Current != 2 || st.Missing != 1 || st.Stale != 1 {
		t.Fatalf("Collect() = %+v", st)
	}
	if st.Pending() != 2 || st.Percent() != 50 {
		t.Fatalf("Pending()=%d Percent()=%d", st.Pending(), st.Percent())
	}
	if (Stats{}).Percent() != 100 {
		t.Fatal("empty source should report 100%")
	}
}
