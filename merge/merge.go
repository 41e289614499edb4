// Package merge folds new translations into an existing target locale map.
package merge

import (
	"github.com/minios-linux/transync/localemap"
	"github.com/minios-linux/transync/placeholder"
)

// Restorer puts placeholders back into a translated value.
type Restorer interface {
	RestoreValue(key, value string) (string, *placeholder.RestoreWarning)
}

// Merge updates a copy of existing with newly translated values.
// - Values of newly are restored (placeholders reinserted) when restorer is set.
// - Keys present in newly overwrite or are appended to the copy.
// - Every other existing key is kept unchanged; nothing is ever removed.
// Existing key order is kept and new keys follow in newly's order.
func Merge(existing, newly *localemap.Map, restorer Restorer) (*localemap.Map, []placeholder.RestoreWarning) {
	result := existing.Clone()
	var warnings []placeholder.RestoreWarning

	for _, key := range newly.Keys() {
		value, _ := newly.Get(key)
		if restorer != nil {
			restored, w := restorer.RestoreValue(key, value)
			if w != nil {
				warnings = append(warnings, *w)
			}
			value = restored
		}
		result.Set(key, value)
	}

	return result, warnings
}

// Artifact is a merged target file ready to be persisted.
type Artifact struct {
	Lang string
	Path string
	Map  *localemap.Map
	// Added counts keys written by this run.
	Added int
}

// Bytes returns the serialized file content.
func (a *Artifact) Bytes() ([]byte, error) {
	return a.Map.Marshal()
}
