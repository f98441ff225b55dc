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
	"sort"
)

// LangRef is a BCP-47 language tag.
type LangRef string

// NilLangRef marks a value without a language mapping.
const NilLangRef LangRef = "-"

// LangRefValue is a string value optionally mapped to a language.
type LangRefValue struct {
	Ref   LangRef
	Value string
}

// NaturalLanguageValues holds a natural language property: either a single
// plain string or a set of language-mapped strings.
type NaturalLanguageValues []LangRefValue

// NaturalLanguageValuesNew builds a NaturalLanguageValues from plain values.
func NaturalLanguageValuesNew(values ...string) NaturalLanguageValues {
	n := make(NaturalLanguageValues, 0, len(values))
	for _, v := range values {
		n = append(n, LangRefValue{Ref: NilLangRef, Value: v})
	}
	return n
}

// String returns the first value.
func (n NaturalLanguageValues) String() string {
	return n.First()
}

// First returns the first value, preferring the unmapped one.
func (n NaturalLanguageValues) First() string {
	for _, v := range n {
		if v.Ref == NilLangRef {
			return v.Value
		}
	}
	if len(n) > 0 {
		return n[0].Value
	}
	return ""
}

// Get returns the value for the given language tag.
func (n NaturalLanguageValues) Get(ref LangRef) string {
	for _, v := range n {
		if v.Ref == ref {
			return v.Value
		}
	}
	return ""
}

// Set replaces or adds the value for the given language tag.
func (n *NaturalLanguageValues) Set(ref LangRef, value string) {
	for i, v := range *n {
		if v.Ref == ref {
			(*n)[i].Value = value
			return
		}
	}
	*n = append(*n, LangRefValue{Ref: ref, Value: value})
}

// Empty reports whether no value is present.
func (n NaturalLanguageValues) Empty() bool {
	return len(n) == 0
}

// hasLangMapped reports whether any value carries a language tag.
func (n NaturalLanguageValues) hasLangMapped() bool {
	for _, v := range n {
		if v.Ref != NilLangRef {
			return true
		}
	}
	return false
}

// refsSorted returns the language tags in deterministic order.
func (n NaturalLanguageValues) refsSorted() []LangRef {
	refs := make([]LangRef, 0, len(n))
	for _, v := range n {
		if v.Ref != NilLangRef {
			refs = append(refs, v.Ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}
