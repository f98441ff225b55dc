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

package models

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/util"
)

var _ Model = &Collections{}

// CollectionItem is one member row of a collection, ordered by its ULID.
type CollectionItem struct {
	ItemIRI string
	Ord     paths.ULID
}

// Collections is the Model backing every actor collection: inbox, outbox,
// followers, following, liked, featured, and per-object likes and shares.
// A member is the tuple (collection IRI, item IRI) with a ULID ordering key.
type Collections struct {
	insert     *sql.Stmt
	deleteItem *sql.Stmt
	contains   *sql.Stmt
	count      *sql.Stmt
	items      *sql.Stmt
	pageDesc   *sql.Stmt
	pageBefore *sql.Stmt
	pageAfter  *sql.Stmt
}

func (m *Collections) Prepare(db *sql.DB, s SqlDialect) error {
	return prepareStmtPairs(db,
		stmtPairs{
			{&(m.insert), s.InsertCollectionItem()},
			{&(m.deleteItem), s.DeleteCollectionItem()},
			{&(m.contains), s.CollectionContains()},
			{&(m.count), s.CollectionCount()},
			{&(m.items), s.CollectionItems()},
			{&(m.pageDesc), s.CollectionPageDesc()},
			{&(m.pageBefore), s.CollectionPageDescBefore()},
			{&(m.pageAfter), s.CollectionPageDescAfter()},
		})
}

func (m *Collections) CreateTable(t *sql.Tx, s SqlDialect) error {
	return execAll(t, s.CreateCollectionsTable())
}

func (m *Collections) Close() {
	closeStmts(m.insert, m.deleteItem, m.contains, m.count, m.items,
		m.pageDesc, m.pageBefore, m.pageAfter)
}

// Add idempotently inserts the item; re-adding an existing member changes
// nothing.
func (m *Collections) Add(c util.Context, tx *sql.Tx, collection, item *url.URL, ord paths.ULID, published time.Time) error {
	_, err := tx.Stmt(m.insert).ExecContext(c, collection.String(), item.String(), string(ord), published)
	return err
}

// Remove deletes the member row.
func (m *Collections) Remove(c util.Context, tx *sql.Tx, collection, item *url.URL) error {
	_, err := tx.Stmt(m.deleteItem).ExecContext(c, collection.String(), item.String())
	return err
}

// Contains reports membership.
func (m *Collections) Contains(c util.Context, tx *sql.Tx, collection, item *url.URL) (b bool, err error) {
	rows, err := tx.Stmt(m.contains).QueryContext(c, collection.String(), item.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return b, enforceOneRow(rows, "Collections.Contains", func(r *sql.Rows) error {
		return r.Scan(&b)
	})
}

// Count returns the total number of members.
func (m *Collections) Count(c util.Context, tx *sql.Tx, collection *url.URL) (n int, err error) {
	rows, err := tx.Stmt(m.count).QueryContext(c, collection.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return n, enforceOneRow(rows, "Collections.Count", func(r *sql.Rows) error {
		return r.Scan(&n)
	})
}

// Items lists every member IRI, newest first.
func (m *Collections) Items(c util.Context, tx *sql.Tx, collection *url.URL) ([]string, error) {
	rows, err := tx.Stmt(m.items).QueryContext(c, collection.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *Collections) scanPage(rows *sql.Rows) ([]CollectionItem, error) {
	var out []CollectionItem
	for rows.Next() {
		var it CollectionItem
		var ord string
		if err := rows.Scan(&it.ItemIRI, &ord); err != nil {
			return nil, err
		}
		it.Ord = paths.ULID(ord)
		out = append(out, it)
	}
	return out, rows.Err()
}

// Page returns the newest n members.
func (m *Collections) Page(c util.Context, tx *sql.Tx, collection *url.URL, n int) ([]CollectionItem, error) {
	rows, err := tx.Stmt(m.pageDesc).QueryContext(c, collection.String(), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return m.scanPage(rows)
}

// PageBefore returns up to n members strictly older than the cursor,
// newest first.
func (m *Collections) PageBefore(c util.Context, tx *sql.Tx, collection *url.URL, maxID paths.ULID, n int) ([]CollectionItem, error) {
	rows, err := tx.Stmt(m.pageBefore).QueryContext(c, collection.String(), string(maxID), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return m.scanPage(rows)
}

// PageAfter returns up to n members strictly newer than the cursor. Rows
// come back oldest first; callers reverse to presentation order.
func (m *Collections) PageAfter(c util.Context, tx *sql.Tx, collection *url.URL, minID paths.ULID, n int) ([]CollectionItem, error) {
	rows, err := tx.Stmt(m.pageAfter).QueryContext(c, collection.String(), string(minID), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return m.scanPage(rows)
}
