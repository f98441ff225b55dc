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

var _ Model = &FedData{}

// FedData is the Model holding ActivityStreams payloads received from
// federated peers, keyed by IRI.
type FedData struct {
	insert  *sql.Stmt
	update  *sql.Stmt
	deleteF *sql.Stmt
	exists  *sql.Stmt
	get     *sql.Stmt
}

func (f *FedData) Prepare(db *sql.DB, s SqlDialect) error {
	return prepareStmtPairs(db,
		stmtPairs{
			{&(f.insert), s.InsertFedData()},
			{&(f.update), s.UpdateFedData()},
			{&(f.deleteF), s.DeleteFedData()},
			{&(f.exists), s.FedDataExists()},
			{&(f.get), s.GetFedData()},
		})
}

func (f *FedData) CreateTable(t *sql.Tx, s SqlDialect) error {
	_, err := t.Exec(s.CreateFedDataTable())
	return err
}

func (f *FedData) Close() {
	closeStmts(f.insert, f.update, f.deleteF, f.exists, f.get)
}

// Create stores a federated payload; an existing row is left untouched.
func (f *FedData) Create(c util.Context, tx *sql.Tx, iri *url.URL, payload []byte) error {
	_, err := tx.Stmt(f.insert).ExecContext(c, iri.String(), payload)
	return err
}

// Update replaces the payload at the IRI.
func (f *FedData) Update(c util.Context, tx *sql.Tx, iri *url.URL, payload []byte) error {
	res, err := tx.Stmt(f.update).ExecContext(c, payload, iri.String())
	return mustChangeOneRow(res, err, "FedData.Update")
}

// Delete removes the payload at the IRI.
func (f *FedData) Delete(c util.Context, tx *sql.Tx, iri *url.URL) error {
	_, err := tx.Stmt(f.deleteF).ExecContext(c, iri.String())
	return err
}

// Exists reports whether a payload is stored at the IRI.
func (f *FedData) Exists(c util.Context, tx *sql.Tx, iri *url.URL) (b bool, err error) {
	rows, err := tx.Stmt(f.exists).QueryContext(c, iri.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return b, enforceOneRow(rows, "FedData.Exists", func(r *sql.Rows) error {
		return r.Scan(&b)
	})
}

// Get fetches the payload at the IRI.
func (f *FedData) Get(c util.Context, tx *sql.Tx, iri *url.URL) (payload []byte, err error) {
	rows, err := tx.Stmt(f.get).QueryContext(c, iri.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return payload, enforceOneRow(rows, "FedData.Get", func(r *sql.Rows) error {
		return r.Scan(&payload)
	})
}
