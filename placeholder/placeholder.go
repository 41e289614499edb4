// Package placeholder hides interpolation placeholders from translation
// providers and puts them back afterwards.
//
// A value such as "Hello {{name}}, you have {count} messages" is sent as
// "Hello __PH0__, you have __PH1__ messages"; the markers are mapped back to
// the original placeholder text once the translation returns.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/minios-linux/transync/localemap"
)

// DefaultPattern matches {{ expr }} and {name} placeholders.
const DefaultPattern = `\{\{[^{}]*\}\}|\{[A-Za-z_][A-Za-z0-9_.\-]*\}`

// markerTag returns a marker tag that does not occur in s, so literal text
// resembling a marker is never taken for one on restore. It is "PH" unless s
// already contains "__PH".
func markerTag(s string) string {
	tag := "PH"
	for strings.Contains(s, "__"+tag) {
		tag += "X"
	}
	return tag
}

func marker(tag string, i int) string {
	return fmt.Sprintf("__%s%d__", tag, i)
}

// Codec protects and restores placeholders matching a pattern.
type Codec struct {
	re *regexp.Regexp
}

// NewCodec compiles pattern; an empty pattern selects DefaultPattern.
func NewCodec(pattern string) (*Codec, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling placeholder pattern: %w", err)
	}
	return &Codec{re: re}, nil
}

// MustCodec is NewCodec that panics on a bad pattern.
func MustCodec(pattern string) *Codec {
	c, err := NewCodec(pattern)
	if err != nil {
		panic(err)
	}
	return c
}

// Table maps markers back to the placeholder text they replaced in one value.
// Placeholders[i] is the text behind marker i.
type Table struct {
	Tag          string
	Placeholders []string
}

// Len returns the number of markers.
func (t Table) Len() int {
	return len(t.Placeholders)
}

// ProtectValue replaces each distinct placeholder in s with a marker.
// Repeated occurrences of the same placeholder share a marker.
func (c *Codec) ProtectValue(s string) (string, Table) {
	table := Table{Tag: markerTag(s)}
	index := make(map[string]int)
	out := c.re.ReplaceAllStringFunc(s, func(ph string) string {
		i, ok := index[ph]
		if !ok {
			i = len(table.Placeholders)
			index[ph] = i
			table.Placeholders = append(table.Placeholders, ph)
		}
		return marker(table.Tag, i)
	})
	if table.Len() == 0 {
		return s, Table{}
	}
	return out, table
}

// Restore puts placeholders back into s. Markers absent from s are
// reported in missing; s is otherwise left as the provider returned it.
func (t Table) Restore(s string) (restored string, missing []string) {
	if t.Len() == 0 {
		return s, nil
	}
	pairs := make([]string, 0, 2*t.Len())
	for i, ph := range t.Placeholders {
		m := marker(t.Tag, i)
		if !strings.Contains(s, m) {
			missing = append(missing, ph)
			continue
		}
		pairs = append(pairs, m, ph)
	}
	if len(pairs) == 0 {
		return s, missing
	}
	return strings.NewReplacer(pairs...).Replace(s), missing
}

// RestoreWarning records placeholders a provider dropped from a translation.
type RestoreWarning struct {
	Key     string
	Missing []string
}

func (w RestoreWarning) String() string {
	return fmt.Sprintf("key %q lost placeholder(s) %s during translation", w.Key, strings.Join(w.Missing, ", "))
}

// Protected is a placeholder-safe copy of a locale map along with the
// tables needed to undo it.
type Protected struct {
	Values *localemap.Map
	tables map[string]Table
}

// Protect returns the placeholder-safe form of m. m is not modified.
func (c *Codec) Protect(m *localemap.Map) *Protected {
	p := &Protected{
		Values: localemap.New(),
		tables: make(map[string]Table),
	}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		safe, table := c.ProtectValue(v)
		p.Values.Set(k, safe)
		if table.Len() > 0 {
			p.tables[k] = table
		}
	}
	return p
}

// Table returns the marker table recorded for key.
func (p *Protected) Table(key string) Table {
	return p.tables[key]
}

// RestoreValue restores the translated value of key.
func (p *Protected) RestoreValue(key, value string) (string, *RestoreWarning) {
	restored, missing := p.tables[key].Restore(value)
	if len(missing) > 0 {
		return restored, &RestoreWarning{Key: key, Missing: missing}
	}
	return restored, nil
}

// Restore restores every value of m, keyed like the protected source.
func (p *Protected) Restore(m *localemap.Map) (*localemap.Map, []RestoreWarning) {
	out := localemap.New()
	var warnings []RestoreWarning
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		restored, w := p.RestoreValue(k, v)
		if w != nil {
			warnings = append(warnings, *w)
		}
		out.Set(k, restored)
	}
	return out, warnings
}
