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

var _ Model = &Relationships{}

// Relationships is the Model holding follower and block records. A follow
// is the tuple (follower, target, accepted); a block is (owner, target).
type Relationships struct {
	upsertFollow *sql.Stmt
	acceptFollow *sql.Stmt
	deleteFollow *sql.Stmt
	getFollow    *sql.Stmt
	insertBlock  *sql.Stmt
	deleteBlock  *sql.Stmt
	isBlocked    *sql.Stmt
	listBlocked  *sql.Stmt
}

func (m *Relationships) Prepare(db *sql.DB, s SqlDialect) error {
	return prepareStmtPairs(db,
		stmtPairs{
			{&(m.upsertFollow), s.UpsertFollow()},
			{&(m.acceptFollow), s.AcceptFollow()},
			{&(m.deleteFollow), s.DeleteFollow()},
			{&(m.getFollow), s.GetFollow()},
			{&(m.insertBlock), s.InsertBlock()},
			{&(m.deleteBlock), s.DeleteBlock()},
			{&(m.isBlocked), s.IsBlocked()},
			{&(m.listBlocked), s.ListBlocked()},
		})
}

func (m *Relationships) CreateTable(t *sql.Tx, s SqlDialect) error {
	return execAll(t, s.CreateRelationshipsTables())
}

func (m *Relationships) Close() {
	closeStmts(m.upsertFollow, m.acceptFollow, m.deleteFollow, m.getFollow,
		m.insertBlock, m.deleteBlock, m.isBlocked, m.listBlocked)
}

// Follow records the relationship in the given state, updating the state of
// an existing record.
func (m *Relationships) Follow(c util.Context, tx *sql.Tx, follower, target *url.URL, accepted bool) error {
	_, err := tx.Stmt(m.upsertFollow).ExecContext(c, follower.String(), target.String(), accepted)
	return err
}

// AcceptFollow transitions pending to accepted.
func (m *Relationships) AcceptFollow(c util.Context, tx *sql.Tx, follower, target *url.URL) error {
	_, err := tx.Stmt(m.acceptFollow).ExecContext(c, follower.String(), target.String())
	return err
}

// Unfollow removes the relationship regardless of state.
func (m *Relationships) Unfollow(c util.Context, tx *sql.Tx, follower, target *url.URL) error {
	_, err := tx.Stmt(m.deleteFollow).ExecContext(c, follower.String(), target.String())
	return err
}

// FollowState returns whether a relationship exists and is accepted.
func (m *Relationships) FollowState(c util.Context, tx *sql.Tx, follower, target *url.URL) (exists, accepted bool, err error) {
	rows, err := tx.Stmt(m.getFollow).QueryContext(c, follower.String(), target.String())
	if err != nil {
		return
	}
	defer rows.Close()
	err = enforceOneRow(rows, "Relationships.FollowState", func(r *sql.Rows) error {
		return r.Scan(&accepted)
	})
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	return err == nil, accepted, err
}

// Block records the block.
func (m *Relationships) Block(c util.Context, tx *sql.Tx, owner, target *url.URL) error {
	_, err := tx.Stmt(m.insertBlock).ExecContext(c, owner.String(), target.String())
	return err
}

// Unblock removes the block.
func (m *Relationships) Unblock(c util.Context, tx *sql.Tx, owner, target *url.URL) error {
	_, err := tx.Stmt(m.deleteBlock).ExecContext(c, owner.String(), target.String())
	return err
}

// IsBlocked reports whether owner blocks target.
func (m *Relationships) IsBlocked(c util.Context, tx *sql.Tx, owner, target *url.URL) (b bool, err error) {
	rows, err := tx.Stmt(m.isBlocked).QueryContext(c, owner.String(), target.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return b, enforceOneRow(rows, "Relationships.IsBlocked", func(r *sql.Rows) error {
		return r.Scan(&b)
	})
}

// ListBlocked returns every IRI the owner blocks.
func (m *Relationships) ListBlocked(c util.Context, tx *sql.Tx, owner *url.URL) ([]string, error) {
	rows, err := tx.Stmt(m.listBlocked).QueryContext(c, owner.String())
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
