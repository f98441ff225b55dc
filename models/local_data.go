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

	"github.com/halcyon-social/halcyon/util"
)

var _ Model = &LocalData{}

// LocalData is the Model holding ActivityStreams payloads owned by this
// server. Deletion tombstones the row instead of removing it, so the IRI
// keeps responding with 410 Gone.
type LocalData struct {
	insert    *sql.Stmt
	update    *sql.Stmt
	tombstone *sql.Stmt
	exists    *sql.Stmt
	get       *sql.Stmt
}

func (l *LocalData) Prepare(db *sql.DB, s SqlDialect) error {
	return prepareStmtPairs(db,
		stmtPairs{
			{&(l.insert), s.InsertLocalData()},
			{&(l.update), s.UpdateLocalData()},
			{&(l.tombstone), s.DeleteLocalData()},
			{&(l.exists), s.LocalDataExists()},
			{&(l.get), s.GetLocalData()},
		})
}

func (l *LocalData) CreateTable(t *sql.Tx, s SqlDialect) error {
	_, err := t.Exec(s.CreateLocalDataTable())
	return err
}

func (l *LocalData) Close() {
	closeStmts(l.insert, l.update, l.tombstone, l.exists, l.get)
}

// Create stores a local payload; an existing row is left untouched.
func (l *LocalData) Create(c util.Context, tx *sql.Tx, iri *url.URL, payload []byte) error {
	_, err := tx.Stmt(l.insert).ExecContext(c, iri.String(), payload)
	return err
}

// Update replaces the payload at the IRI.
func (l *LocalData) Update(c util.Context, tx *sql.Tx, iri *url.URL, payload []byte) error {
	res, err := tx.Stmt(l.update).ExecContext(c, payload, iri.String())
	return mustChangeOneRow(res, err, "LocalData.Update")
}

// Tombstone replaces the payload with the given tombstone document.
func (l *LocalData) Tombstone(c util.Context, tx *sql.Tx, iri *url.URL, tombstone []byte) error {
	res, err := tx.Stmt(l.tombstone).ExecContext(c, tombstone, iri.String())
	return mustChangeOneRow(res, err, "LocalData.Tombstone")
}

// Exists reports whether a payload is stored at the IRI.
func (l *LocalData) Exists(c util.Context, tx *sql.Tx, iri *url.URL) (b bool, err error) {
	rows, err := tx.Stmt(l.exists).QueryContext(c, iri.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return b, enforceOneRow(rows, "LocalData.Exists", func(r *sql.Rows) error {
		return r.Scan(&b)
	})
}

// Get fetches the payload at the IRI, reporting whether it is tombstoned.
func (l *LocalData) Get(c util.Context, tx *sql.Tx, iri *url.URL) (payload []byte, tombstoned bool, err error) {
	rows, err := tx.Stmt(l.get).QueryContext(c, iri.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return payload, tombstoned, enforceOneRow(rows, "LocalData.Get", func(r *sql.Rows) error {
		return r.Scan(&payload, &tombstoned)
	})
}
