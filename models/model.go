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

// Package models manages the prepared statements of each database type.
package models

import (
	"database/sql"
	"fmt"
	"strings"
)

// Model handles managing a single database type.
type Model interface {
	Prepare(*sql.DB, SqlDialect) error
	CreateTable(*sql.Tx, SqlDialect) error
	Close()
}

// Models returns every model in table-creation order.
func Models() []Model {
	return []Model{
		&Users{},
		&FedData{},
		&LocalData{},
		&Collections{},
		&Relationships{},
		&DeliveryAttempts{},
	}
}

// stmtPair makes a pair of **sql.Stmt and its associated SQL string.
//
// The goal is to populate *stmt based on the associated sqlStr.
type stmtPair struct {
	stmt   **sql.Stmt
	sqlStr string
}

// prepareStmtPair is a mapper that populates the stmtPair.stmt.
func prepareStmtPair(db *sql.DB, s stmtPair) (err error) {
	*s.stmt, err = db.Prepare(s.sqlStr)
	if err != nil {
		err = fmt.Errorf("preparing %q: %w", s.sqlStr, err)
	}
	return err
}

// stmtPairs are a list of stmtPair.
type stmtPairs []stmtPair

// prepareStmtPairs turns stmtPairs into a single error, with a side effect
// of populating all stmt.
func prepareStmtPairs(db *sql.DB, s stmtPairs) (err error) {
	for _, p := range s {
		if err != nil {
			return
		}
		err = prepareStmtPair(db, p)
	}
	return
}

func closeStmts(stmts ...*sql.Stmt) {
	for _, s := range stmts {
		if s != nil {
			s.Close()
		}
	}
}

// execAll runs each semicolon-separated statement of a schema string.
func execAll(t *sql.Tx, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := t.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// mustChangeOneRow enforces that a mutation affected exactly one row.
func mustChangeOneRow(r sql.Result, err error, name string) error {
	if err != nil {
		return err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("%s changed %d rows instead of one", name, n)
	}
	return nil
}

// enforceOneRow scans exactly one row out of the result set.
func enforceOneRow(rows *sql.Rows, name string, scan func(*sql.Rows) error) error {
	n := 0
	for rows.Next() {
		if n > 0 {
			return fmt.Errorf("%s returned multiple rows", name)
		}
		if err := scan(rows); err != nil {
			return err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
