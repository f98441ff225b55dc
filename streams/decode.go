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
	"errors"
	"fmt"
	"time"

	xsd "git.sr.ht/~mariusor/go-xsd-duration"
	"github.com/valyala/fastjson"
)

// ErrUnmatchedType is returned when a JSON value carries a "type" member the
// vocabulary does not know and cannot fall back from.
var ErrUnmatchedType = errors.New("streams: value does not match a known vocabulary type")

var parserPool fastjson.ParserPool

// ToItem parses raw JSON into a typed vocabulary value. A JSON string decodes
// to an IRI, an array to an ItemCollection, and an object to the concrete
// type its "type" member selects, falling back to Object for unknown types.
func ToItem(data []byte) (Item, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("streams: invalid json: %w", err)
	}
	return itemFromValue(v)
}

// ToActivityFromJSON parses raw JSON and requires the result to be an
// Activity (any activity subtype).
func ToActivityFromJSON(data []byte) (*Activity, error) {
	it, err := ToItem(data)
	if err != nil {
		return nil, err
	}
	act, ok := it.(*Activity)
	if !ok {
		return nil, fmt.Errorf("streams: %T is not an activity: %w", it, ErrUnmatchedType)
	}
	return act, nil
}

func itemFromValue(v *fastjson.Value) (Item, error) {
	switch v.Type() {
	case fastjson.TypeString:
		return IRI(v.GetStringBytes()), nil
	case fastjson.TypeArray:
		col := make(ItemCollection, 0)
		for _, el := range v.GetArray() {
			it, err := itemFromValue(el)
			if err != nil {
				return nil, err
			}
			col = append(col, it)
		}
		return col, nil
	case fastjson.TypeObject:
		typ, extra := jsonGetTypes(v)
		switch {
		case typ.IsOrExtends(CollectionType):
			if typ == CollectionPageType || typ == OrderedCollectionPageType {
				p := &CollectionPage{}
				p.fromValue(v, typ, extra)
				return p, nil
			}
			c := &Collection{}
			c.fromValue(v, typ, extra)
			return c, nil
		case ActivityTypes.Contains(typ):
			a := &Activity{}
			a.fromValue(v, typ, extra)
			return a, nil
		case ActorTypes.Contains(typ):
			a := &Actor{}
			a.fromValue(v, typ, extra)
			return a, nil
		default:
			o := &Object{}
			o.fromValue(v, typ, extra)
			return o, nil
		}
	}
	return nil, fmt.Errorf("streams: cannot decode %s value", v.Type())
}

func jsonGetID(v *fastjson.Value) ID {
	return ID(v.GetStringBytes("id"))
}

// jsonGetTypes reads the "type" member, which may be a scalar or a set. The
// first value is the primary type; the rest are retained for reserialization.
func jsonGetTypes(v *fastjson.Value) (ActivityVocabularyType, []ActivityVocabularyType) {
	t := v.Get("type")
	if t == nil {
		return "", nil
	}
	if t.Type() == fastjson.TypeString {
		return ActivityVocabularyType(t.GetStringBytes()), nil
	}
	var primary ActivityVocabularyType
	var extra []ActivityVocabularyType
	for _, el := range t.GetArray() {
		tv := ActivityVocabularyType(el.GetStringBytes())
		if primary == "" {
			primary = tv
		} else {
			extra = append(extra, tv)
		}
	}
	return primary, extra
}

func jsonGetString(v *fastjson.Value, key string) string {
	return string(v.GetStringBytes(key))
}

func jsonGetTime(v *fastjson.Value, key string) time.Time {
	s := v.GetStringBytes(key)
	if len(s) == 0 {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, string(s)); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func jsonGetDuration(v *fastjson.Value, key string) time.Duration {
	s := v.GetStringBytes(key)
	if len(s) == 0 {
		return 0
	}
	if d, err := xsd.Unmarshal(s); err == nil {
		return d
	}
	return 0
}

func jsonGetItem(v *fastjson.Value, key string) Item {
	el := v.Get(key)
	if el == nil {
		return nil
	}
	it, err := itemFromValue(el)
	if err != nil {
		return nil
	}
	return it
}

// jsonGetItems reads a property as an item sequence, wrapping a scalar value
// into a single-element sequence.
func jsonGetItems(v *fastjson.Value, key string) ItemCollection {
	el := v.Get(key)
	if el == nil {
		return nil
	}
	it, err := itemFromValue(el)
	if err != nil {
		return nil
	}
	if col, ok := it.(ItemCollection); ok {
		return col
	}
	return ItemCollection{it}
}

// jsonGetNaturalLanguage reads key as a plain string and keyMap as a
// language-mapped value set.
func jsonGetNaturalLanguage(v *fastjson.Value, key string) NaturalLanguageValues {
	var n NaturalLanguageValues
	if s := v.GetStringBytes(key); len(s) > 0 {
		n = append(n, LangRefValue{Ref: NilLangRef, Value: string(s)})
	}
	if m := v.GetObject(key + "Map"); m != nil {
		m.Visit(func(k []byte, val *fastjson.Value) {
			n = append(n, LangRefValue{Ref: LangRef(k), Value: string(val.GetStringBytes())})
		})
	}
	return n
}

func jsonGetUint(v *fastjson.Value, key string) uint {
	return uint(v.GetUint64(key))
}
