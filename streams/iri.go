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
	"net/url"
	"strings"
)

// IRI is an absolute URL identifying an ActivityStreams value.
type IRI string

// ID is the identifier property value of an object.
type ID = IRI

// IRIs is a list of IRIs.
type IRIs []IRI

const (
	// EmptyIRI is the zero IRI.
	EmptyIRI IRI = ""
	// PublicNS is the special IRI signifying unrestricted audience.
	PublicNS IRI = "https://www.w3.org/ns/activitystreams#Public"
)

func (i IRI) String() string                  { return string(i) }
func (i IRI) GetID() IRI                      { return i }
func (i IRI) GetLink() IRI                    { return i }
func (i IRI) GetType() ActivityVocabularyType { return LinkType }
func (i IRI) IsLink() bool                    { return true }
func (i IRI) IsObject() bool                  { return false }
func (i IRI) IsCollection() bool              { return false }

// URL parses the IRI as an URL.
func (i IRI) URL() (*url.URL, error) {
	return url.Parse(string(i))
}

// IsValid reports whether the IRI is non-empty.
func (i IRI) IsValid() bool {
	return len(i) > 0
}

// canonical returns the comparison form of the IRI: percent-unescaped, with
// the host lowercased.
func (i IRI) canonical() string {
	u, err := url.Parse(string(i))
	if err != nil {
		return string(i)
	}
	u.Host = strings.ToLower(u.Host)
	s := u.String()
	if un, err := url.PathUnescape(s); err == nil {
		s = un
	}
	return s
}

// Equals reports byte-exact equality after percent-unescaping and host
// lowercasing.
func (i IRI) Equals(other IRI) bool {
	if i == other {
		return true
	}
	return i.canonical() == other.canonical()
}

// Contains reports whether the list holds an equal IRI.
func (i IRIs) Contains(iri IRI) bool {
	for _, v := range i {
		if v.Equals(iri) {
			return true
		}
	}
	return false
}

// IsPublic reports whether the item addresses the special Public IRI.
func IsPublic(it Item) bool {
	if IsNil(it) {
		return false
	}
	return it.GetLink().Equals(PublicNS)
}

func (i IRI) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(i)+2)
	b = append(b, '"')
	b = append(b, i...)
	b = append(b, '"')
	return b, nil
}

func (i *IRI) UnmarshalJSON(data []byte) error {
	*i = IRI(strings.Trim(string(data), `"`))
	return nil
}
