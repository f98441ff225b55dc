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
	"github.com/go-ap/jsonld"
)

// The engine does not perform general JSON-LD expansion. It recognizes an
// enumerated set of context IRIs and maps them to namespace aliases through
// IsKnownContext and ContextAlias. Decoding does not read @context at all;
// output carries only the contexts Serialize and SerializeActor attach.
const (
	// ActivityStreamsContextIRI is the primary @context value.
	ActivityStreamsContextIRI = "https://www.w3.org/ns/activitystreams"
	// SecurityContextIRI carries the publicKey vocabulary.
	SecurityContextIRI = "https://w3id.org/security/v1"
	// TootContextIRI is the well-known Mastodon extension namespace.
	TootContextIRI = "http://joinmastodon.org/ns"
)

// knownContextAliases maps recognized context IRIs to their conventional
// namespace alias.
var knownContextAliases = map[string]string{
	ActivityStreamsContextIRI: "as",
	SecurityContextIRI:        "sec",
	TootContextIRI:            "toot",
}

// IsKnownContext reports whether the @context IRI belongs to the enumerated
// set the engine understands.
func IsKnownContext(iri string) bool {
	_, ok := knownContextAliases[iri]
	return ok
}

// ContextAlias returns the namespace alias for a recognized context IRI.
func ContextAlias(iri string) (string, bool) {
	a, ok := knownContextAliases[iri]
	return a, ok
}

// Serialize marshals a vocabulary value as JSON-LD with the ActivityStreams
// @context attached.
func Serialize(it Item) ([]byte, error) {
	return jsonld.WithContext(
		jsonld.IRI(ActivityStreamsContextIRI),
	).Marshal(it)
}

// SerializeActor marshals an actor document, additionally attaching the
// security context that defines publicKey.
func SerializeActor(a *Actor) ([]byte, error) {
	return jsonld.WithContext(
		jsonld.IRI(ActivityStreamsContextIRI),
		jsonld.IRI(SecurityContextIRI),
	).Marshal(a)
}

// Deserialize parses JSON-LD into a typed value. The @context member is not
// read; no expansion or aliasing is attempted. Parse-then-serialize
// yields a value equal to the input modulo property order and @context
// normalization.
func Deserialize(data []byte) (Item, error) {
	return ToItem(data)
}
