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

package services

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

// Collections is the collection engine: it owns page construction for every
// actor collection and applies viewer-dependent filtering.
type Collections struct {
	DB          *sql.DB
	Collections *models.Collections
	Data        *Data
	DefaultSize int
	MaxSize     int
}

// Add idempotently inserts an item, ordering it by a ULID derived from the
// published instant.
func (s *Collections) Add(c util.Context, collection, item *url.URL, published time.Time) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Collections.Add(c, tx, paths.Normalize(collection), paths.Normalize(item), paths.NewULID(published), published)
	})
}

// AddWithOrd inserts an item with a caller-chosen ordering key, used when
// the item path already carries its ULID.
func (s *Collections) AddWithOrd(c util.Context, collection, item *url.URL, ord paths.ULID, published time.Time) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Collections.Add(c, tx, paths.Normalize(collection), paths.Normalize(item), ord, published)
	})
}

// Remove deletes an item.
func (s *Collections) Remove(c util.Context, collection, item *url.URL) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Collections.Remove(c, tx, paths.Normalize(collection), paths.Normalize(item))
	})
}

// Contains reports membership.
func (s *Collections) Contains(c util.Context, collection, item *url.URL) (has bool, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		has, err = s.Collections.Contains(c, tx, paths.Normalize(collection), paths.Normalize(item))
		return err
	})
	return
}

// Items lists the member IRIs, newest first.
func (s *Collections) Items(c util.Context, collection *url.URL) (streams.IRIs, error) {
	var raw []string
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		raw, err = s.Collections.Items(c, tx, paths.Normalize(collection))
		return
	})
	if err != nil {
		return nil, err
	}
	out := make(streams.IRIs, 0, len(raw))
	for _, v := range raw {
		out = append(out, streams.IRI(v))
	}
	return out, nil
}

// Owner resolves a known collection IRI to its owning actor.
func (s *Collections) Owner(collection *url.URL) (*url.URL, error) {
	if !paths.IsCollectionPath(collection) {
		return nil, sql.ErrNoRows
	}
	user, err := paths.UserFromPath(collection.Path)
	if err != nil {
		return nil, err
	}
	return paths.UserIRIFor(collection.Scheme, collection.Host, paths.UserPathKey, user), nil
}

// GetCollection builds the collection summary, or an OrderedCollectionPage
// when the IRI requests paging. Items are strictly descending by
// (published, id); the max_id and min_id cursors page older and newer
// respectively and are exclusive.
func (s *Collections) GetCollection(c util.Context, iri *url.URL, viewer *url.URL, filter bool) (streams.Item, error) {
	base := paths.Normalize(iri)
	n := s.DefaultSize
	if n <= 0 {
		n = 30
	}
	if n > s.MaxSize && s.MaxSize > 0 {
		n = s.MaxSize
	}
	var total int
	var rows []models.CollectionItem
	maxID, hasMax := paths.GetMaxID(iri)
	minID, hasMin := paths.GetMinID(iri)
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		total, err = s.Collections.Count(c, tx, base)
		if err != nil || !paths.IsGetCollectionPage(iri) {
			return err
		}
		switch {
		case hasMax:
			rows, err = s.Collections.PageBefore(c, tx, base, maxID, n)
		case hasMin:
			rows, err = s.Collections.PageAfter(c, tx, base, minID, n)
			reverse(rows)
		default:
			rows, err = s.Collections.Page(c, tx, base, n)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !paths.IsGetCollectionPage(iri) {
		col := streams.OrderedCollectionNew(streams.IRI(base.String()))
		col.TotalItems = uint(total)
		col.First = streams.IRI(paths.FirstPageIRI(base).String())
		return col, nil
	}
	page := streams.OrderedCollectionPageNew(streams.IRI(iri.String()), streams.IRI(base.String()))
	page.TotalItems = uint(total)
	for _, row := range rows {
		if filter {
			visible, err := s.visibleTo(c, viewer, row.ItemIRI)
			if err != nil {
				return nil, err
			}
			if !visible {
				continue
			}
		}
		page.Items = append(page.Items, streams.IRI(row.ItemIRI))
	}
	if len(rows) == n && n > 0 {
		page.Next = streams.IRI(paths.PageIRIBefore(base, rows[len(rows)-1].Ord).String())
	}
	if len(rows) > 0 {
		page.Prev = streams.IRI(paths.PageIRIAfter(base, rows[0].Ord).String())
	}
	return page, nil
}

func reverse(rows []models.CollectionItem) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// visibleTo applies the audience targeting of the stored item: it is
// visible iff the viewer is addressed by to, cc, bcc (only the addressed
// self), or audience, the item is public, or the viewer is its actor.
func (s *Collections) visibleTo(c util.Context, viewer *url.URL, itemIRI string) (bool, error) {
	id, err := url.Parse(itemIRI)
	if err != nil {
		return false, nil
	}
	it, err := s.Data.Get(c, id)
	if err != nil {
		// Unresolvable member; only hide it from filtered views.
		return false, nil
	}
	ob, err := streams.ToObject(it)
	if err != nil {
		return false, nil
	}
	addressed := streams.ItemCollectionDeduplication(&ob.To, &ob.CC, &ob.BCC, &ob.Audience)
	for _, rec := range addressed {
		if streams.IsPublic(rec) {
			return true, nil
		}
	}
	if viewer == nil {
		return false, nil
	}
	viewerIRI := streams.IRI(viewer.String())
	for _, rec := range addressed {
		if !streams.IsNil(rec) && rec.GetLink().Equals(viewerIRI) {
			return true, nil
		}
	}
	if act, err := streams.ToActivity(it); err == nil && !streams.IsNil(act.Actor) {
		if act.Actor.GetLink().Equals(viewerIRI) {
			return true, nil
		}
	}
	if !streams.IsNil(ob.AttributedTo) && ob.AttributedTo.GetLink().Equals(viewerIRI) {
		return true, nil
	}
	return false, nil
}
