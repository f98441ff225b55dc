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
	"time"

	"github.com/halcyon-social/halcyon/util"
)

var _ Model = &DeliveryAttempts{}

// Attempt states.
const (
	AttemptNew       = "new"
	AttemptSucceeded = "succeeded"
	AttemptFailed    = "failed"
	AttemptAbandoned = "abandoned"
)

// DeliveryAttempt is one row of the outbound delivery log.
type DeliveryAttempt struct {
	ID          string
	FromIRI     string
	ToIRI       string
	Payload     []byte
	NAttempts   int
	LastAttempt time.Time
}

// DeliveryAttempts is the Model journaling federated delivery for the
// retrier.
type DeliveryAttempts struct {
	insert    *sql.Stmt
	mark      *sql.Stmt
	firstPage *sql.Stmt
	nextPage  *sql.Stmt
}

func (d *DeliveryAttempts) Prepare(db *sql.DB, s SqlDialect) error {
	return prepareStmtPairs(db,
		stmtPairs{
			{&(d.insert), s.InsertAttempt()},
			{&(d.mark), s.MarkAttempt()},
			{&(d.firstPage), s.FirstPageRetryableFailures()},
			{&(d.nextPage), s.NextPageRetryableFailures()},
		})
}

func (d *DeliveryAttempts) CreateTable(t *sql.Tx, s SqlDialect) error {
	_, err := t.Exec(s.CreateDeliveryAttemptsTable())
	return err
}

func (d *DeliveryAttempts) Close() {
	closeStmts(d.insert, d.mark, d.firstPage, d.nextPage)
}

// Create journals a new attempt.
func (d *DeliveryAttempts) Create(c util.Context, tx *sql.Tx, id, from, to string, payload []byte) error {
	res, err := tx.Stmt(d.insert).ExecContext(c, id, from, to, payload)
	return mustChangeOneRow(res, err, "DeliveryAttempts.Create")
}

// Mark sets the attempt state and bumps its attempt counter.
func (d *DeliveryAttempts) Mark(c util.Context, tx *sql.Tx, id, state string) error {
	res, err := tx.Stmt(d.mark).ExecContext(c, state, id)
	return mustChangeOneRow(res, err, "DeliveryAttempts.Mark")
}

func (d *DeliveryAttempts) scan(rows *sql.Rows) ([]DeliveryAttempt, error) {
	var out []DeliveryAttempt
	for rows.Next() {
		var a DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.FromIRI, &a.ToIRI, &a.Payload, &a.NAttempts, &a.LastAttempt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FirstPageFailures returns the first page of retryable failures by id.
func (d *DeliveryAttempts) FirstPageFailures(c util.Context, tx *sql.Tx, n int) ([]DeliveryAttempt, error) {
	rows, err := tx.Stmt(d.firstPage).QueryContext(c, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return d.scan(rows)
}

// NextPageFailures continues past the given id.
func (d *DeliveryAttempts) NextPageFailures(c util.Context, tx *sql.Tx, afterID string, n int) ([]DeliveryAttempt, error) {
	rows, err := tx.Stmt(d.nextPage).QueryContext(c, afterID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return d.scan(rows)
}
