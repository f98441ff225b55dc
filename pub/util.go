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

package pub

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/halcyon-social/halcyon/streams"
)

const (
	// ActivityStreamsContentType is emitted on ActivityPub responses.
	ActivityStreamsContentType = "application/activity+json"
	// activityStreamsLDContentType is the accepted LD JSON profile form.
	activityStreamsLDContentType = "application/ld+json"
	asProfile                    = "profile=https://www.w3.org/ns/activitystreams"
)

// isActivityPubMediaType matches the two acceptable ActivityStreams media
// types, lenient about whitespace and quotes around the profile IRI.
func isActivityPubMediaType(ct string) bool {
	p1 := ct
	p2 := ""
	if sep := strings.IndexByte(ct, ';'); sep >= 0 {
		p1 = ct[:sep]
		p2 = ct[sep+1:]
	}
	p1 = strings.TrimRight(p1, " ")
	switch p1 {
	case ActivityStreamsContentType:
		return true
	case activityStreamsLDContentType:
		p2 = strings.Trim(p2, " ")
		p2 = strings.ReplaceAll(p2, "\"", "")
		return p2 == asProfile
	}
	return false
}

// IsActivityPubPost reports whether the request is an ActivityPub POST.
func IsActivityPubPost(r *http.Request) bool {
	return r.Method == http.MethodPost && isActivityPubMediaType(r.Header.Get("Content-Type"))
}

// IsActivityPubGet reports whether the request negotiates ActivityPub
// content.
func IsActivityPubGet(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	for _, accept := range r.Header.Values("Accept") {
		for _, part := range strings.Split(accept, ",") {
			if isActivityPubMediaType(strings.TrimSpace(part)) {
				return true
			}
		}
	}
	return false
}

// toURL parses an IRI item into a URL, dropping anonymous values.
func toURL(it streams.Item) (*url.URL, error) {
	if streams.IsNil(it) {
		return nil, ErrNotFound
	}
	return it.GetLink().URL()
}

// itemsToURLs maps an item sequence to the URLs of its members.
func itemsToURLs(col streams.ItemCollection) []*url.URL {
	out := make([]*url.URL, 0, len(col))
	for _, it := range col {
		u, err := toURL(it)
		if err != nil || u == nil {
			continue
		}
		out = append(out, u)
	}
	return out
}

// activityActorURLs returns the actor IRIs claimed by the activity, falling
// back to the embedded object's attributedTo when no actor is present.
func activityActorURLs(a *streams.Activity) []*url.URL {
	var out []*url.URL
	appendItem := func(it streams.Item) {
		if streams.IsNil(it) {
			return
		}
		if col, ok := it.(streams.ItemCollection); ok {
			out = append(out, itemsToURLs(col)...)
			return
		}
		if u, err := toURL(it); err == nil {
			out = append(out, u)
		}
	}
	appendItem(a.Actor)
	if len(out) == 0 {
		if ob, err := streams.ToObject(a.Object); err == nil {
			appendItem(ob.AttributedTo)
		}
	}
	return out
}

// dedupeURLs removes duplicate URLs by canonical IRI equality, preserving
// order.
func dedupeURLs(in []*url.URL) []*url.URL {
	seen := make(map[string]bool, len(in))
	out := make([]*url.URL, 0, len(in))
	for _, u := range in {
		if u == nil {
			continue
		}
		key := canonicalKey(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

func canonicalKey(u *url.URL) string {
	c := *u
	c.Host = strings.ToLower(c.Host)
	s := c.String()
	if un, err := url.PathUnescape(s); err == nil {
		return un
	}
	return s
}

// containsURL reports membership by canonical IRI equality.
func containsURL(set []*url.URL, target *url.URL) bool {
	for _, u := range set {
		if canonicalKey(u) == canonicalKey(target) {
			return true
		}
	}
	return false
}

// objectItems returns the object property as a sequence.
func objectItems(it streams.Item) streams.ItemCollection {
	if streams.IsNil(it) {
		return nil
	}
	if col, ok := it.(streams.ItemCollection); ok {
		return col
	}
	return streams.ItemCollection{it}
}

// subCollectionIRI derives the IRI of an object's likes or shares
// collection from the object IRI.
func subCollectionIRI(object *url.URL, sub string) *url.URL {
	c := *object
	c.Path = strings.TrimSuffix(c.Path, "/") + "/" + sub
	return &c
}

// serializeForDelivery produces the wire payload of an activity with the
// hidden addressing stripped. The in-memory activity is left untouched so
// delivery expansion still sees bto and bcc.
func serializeForDelivery(a *streams.Activity) ([]byte, error) {
	raw, err := streams.MarshalItem(a)
	if err != nil {
		return nil, err
	}
	it, err := streams.ToItem(raw)
	if err != nil {
		return nil, err
	}
	cp, err := streams.ToActivity(it)
	if err != nil {
		return nil, err
	}
	cp.Clean()
	return streams.Serialize(cp)
}
