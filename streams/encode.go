// halcyon is a server framework for implementing an ActivityPub application.
// Copyright (C) 2026 The Halcyon Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package streams

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	xsd "git.sr.ht/~mariusor/go-xsd-duration"
)

// propWriter accumulates the members of a JSON object, handling separators
// and skipping empty values.
type propWriter struct {
	b bytes.Buffer
	n int
}

func (w *propWriter) key(name string) {
	if w.n == 0 {
		w.b.WriteByte('{')
	} else {
		w.b.WriteByte(',')
	}
	w.n++
	raw, _ := json.Marshal(name)
	w.b.Write(raw)
	w.b.WriteByte(':')
}

func (w *propWriter) raw(name string, raw []byte) {
	w.key(name)
	w.b.Write(raw)
}

func (w *propWriter) str(name, s string) {
	if s == "" {
		return
	}
	raw, _ := json.Marshal(s)
	w.raw(name, raw)
}

func (w *propWriter) typ(primary ActivityVocabularyType, extra []ActivityVocabularyType) {
	if primary == "" {
		return
	}
	if len(extra) == 0 {
		w.str("type", string(primary))
		return
	}
	all := append([]ActivityVocabularyType{primary}, extra...)
	raw, _ := json.Marshal(all)
	w.raw("type", raw)
}

func (w *propWriter) item(name string, it Item) {
	if IsNil(it) {
		return
	}
	raw, err := MarshalItem(it)
	if err != nil || len(raw) == 0 {
		return
	}
	w.raw(name, raw)
}

// items writes an item sequence: a single element is collapsed to its bare
// form, multiple elements serialize as an array.
func (w *propWriter) items(name string, col ItemCollection) {
	if len(col) == 0 {
		return
	}
	if len(col) == 1 {
		w.item(name, col[0])
		return
	}
	parts := make([][]byte, 0, len(col))
	for _, it := range col {
		raw, err := MarshalItem(it)
		if err != nil || len(raw) == 0 {
			continue
		}
		parts = append(parts, raw)
	}
	if len(parts) == 0 {
		return
	}
	w.key(name)
	w.b.WriteByte('[')
	for i, p := range parts {
		if i > 0 {
			w.b.WriteByte(',')
		}
		w.b.Write(p)
	}
	w.b.WriteByte(']')
}

func (w *propWriter) timeProp(name string, t time.Time) {
	if t.IsZero() {
		return
	}
	w.str(name, t.UTC().Format(time.RFC3339))
}

func (w *propWriter) duration(name string, d time.Duration) {
	if d == 0 {
		return
	}
	raw, err := xsd.Marshal(d)
	if err != nil {
		return
	}
	w.str(name, string(raw))
}

func (w *propWriter) uint(name string, u uint, alwaysWrite bool) {
	if u == 0 && !alwaysWrite {
		return
	}
	w.raw(name, []byte(strconv.FormatUint(uint64(u), 10)))
}

// natLang writes a natural language property, splitting unmapped values to
// the plain key and mapped values to the "Map" key form.
func (w *propWriter) natLang(name string, n NaturalLanguageValues) {
	if n.Empty() {
		return
	}
	if plain := n.Get(NilLangRef); plain != "" {
		w.str(name, plain)
	}
	if !n.hasLangMapped() {
		return
	}
	w.key(name + "Map")
	w.b.WriteByte('{')
	for i, ref := range n.refsSorted() {
		if i > 0 {
			w.b.WriteByte(',')
		}
		k, _ := json.Marshal(string(ref))
		v, _ := json.Marshal(n.Get(ref))
		w.b.Write(k)
		w.b.WriteByte(':')
		w.b.Write(v)
	}
	w.b.WriteByte('}')
}

func (w *propWriter) finish() []byte {
	if w.n == 0 {
		return []byte("{}")
	}
	w.b.WriteByte('}')
	return w.b.Bytes()
}

// MarshalItem serializes any vocabulary value to plain JSON, without a
// JSON-LD @context. The Serializer attaches contexts.
func MarshalItem(it Item) ([]byte, error) {
	if IsNil(it) {
		return nil, nil
	}
	switch v := it.(type) {
	case IRI:
		return v.MarshalJSON()
	case ItemCollection:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, el := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			raw, err := MarshalItem(el)
			if err != nil {
				return nil, err
			}
			b.Write(raw)
		}
		b.WriteByte(']')
		return b.Bytes(), nil
	case json.Marshaler:
		return v.MarshalJSON()
	}
	return json.Marshal(it)
}
