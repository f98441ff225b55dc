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

package paths

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	queryTrue           = "true"
	queryCollectionPage = "page"
	queryMaxID          = "max_id"
	queryMinID          = "min_id"
)

// IsGetCollectionPage reports whether the IRI requests a page of an
// OrderedCollection-style IRI rather than the collection summary.
func IsGetCollectionPage(u *url.URL) bool {
	return u.Query().Get(queryCollectionPage) == queryTrue
}

// FirstPageIRI returns the collection IRI with the first-page query set.
func FirstPageIRI(base *url.URL) *url.URL {
	c := *Normalize(base)
	c.RawQuery = fmt.Sprintf("%s=%s", queryCollectionPage, queryTrue)
	return &c
}

// PageIRIBefore returns the page IRI continuing with items strictly older
// than the cursor.
func PageIRIBefore(base *url.URL, maxID ULID) *url.URL {
	c := *Normalize(base)
	c.RawQuery = fmt.Sprintf("%s=%s&%s=%s", queryCollectionPage, queryTrue, queryMaxID, strings.ToLower(string(maxID)))
	return &c
}

// PageIRIAfter returns the page IRI continuing with items strictly newer
// than the cursor.
func PageIRIAfter(base *url.URL, minID ULID) *url.URL {
	c := *Normalize(base)
	c.RawQuery = fmt.Sprintf("%s=%s&%s=%s", queryCollectionPage, queryTrue, queryMinID, strings.ToLower(string(minID)))
	return &c
}

// GetMaxID returns the exclusive upper cursor, if present and valid.
func GetMaxID(u *url.URL) (ULID, bool) {
	return getULIDQuery(u, queryMaxID)
}

// GetMinID returns the exclusive lower cursor, if present and valid.
func GetMinID(u *url.URL) (ULID, bool) {
	return getULIDQuery(u, queryMinID)
}

func getULIDQuery(u *url.URL, key string) (ULID, bool) {
	v := u.Query().Get(key)
	if v == "" {
		return "", false
	}
	id, err := ParseULID(v)
	if err != nil {
		return "", false
	}
	return id, true
}
