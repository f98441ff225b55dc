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

var _ Model = &Users{}

// User is a locally-registered actor.
type User struct {
	ID        string
	Nickname  string
	Email     string
	Actor     []byte
	PrivKey   []byte
	ActorIRI  string
	InboxIRI  string
	OutboxIRI string
}

// Users is the Model holding locally-registered actors.
type Users struct {
	insertUser         *sql.Stmt
	userByNickname     *sql.Stmt
	userByActorIRI     *sql.Stmt
	userActorForInbox  *sql.Stmt
	userActorForOutbox *sql.Stmt
	userOutboxForInbox *sql.Stmt
	userPrivateKey     *sql.Stmt
	userCount          *sql.Stmt
}

func (u *Users) Prepare(db *sql.DB, s SqlDialect) error {
	return prepareStmtPairs(db,
		stmtPairs{
			{&(u.insertUser), s.InsertUser()},
			{&(u.userByNickname), s.UserByNickname()},
			{&(u.userByActorIRI), s.UserByActorIRI()},
			{&(u.userActorForInbox), s.UserActorForInbox()},
			{&(u.userActorForOutbox), s.UserActorForOutbox()},
			{&(u.userOutboxForInbox), s.UserOutboxForInbox()},
			{&(u.userPrivateKey), s.UserPrivateKey()},
			{&(u.userCount), s.UserCount()},
		})
}

func (u *Users) CreateTable(t *sql.Tx, s SqlDialect) error {
	_, err := t.Exec(s.CreateUsersTable())
	return err
}

func (u *Users) Close() {
	closeStmts(u.insertUser,
		u.userByNickname,
		u.userByActorIRI,
		u.userActorForInbox,
		u.userActorForOutbox,
		u.userOutboxForInbox,
		u.userPrivateKey,
		u.userCount)
}

// Create stores a new user record.
func (u *Users) Create(c util.Context, tx *sql.Tx, r *User) error {
	res, err := tx.Stmt(u.insertUser).ExecContext(c,
		r.ID, r.Nickname, r.Email, r.Actor, r.PrivKey, r.ActorIRI, r.InboxIRI, r.OutboxIRI)
	return mustChangeOneRow(res, err, "Users.Create")
}

func (u *Users) scanUser(rows *sql.Rows, name string) (*User, error) {
	r := &User{}
	return r, enforceOneRow(rows, name, func(rows *sql.Rows) error {
		return rows.Scan(&r.ID, &r.Nickname, &r.Email, &r.Actor, &r.PrivKey, &r.ActorIRI, &r.InboxIRI, &r.OutboxIRI)
	})
}

// ByNickname fetches the user with the given nickname.
func (u *Users) ByNickname(c util.Context, tx *sql.Tx, nickname string) (*User, error) {
	rows, err := tx.Stmt(u.userByNickname).QueryContext(c, nickname)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return u.scanUser(rows, "Users.ByNickname")
}

// ByActorIRI fetches the user owning the actor IRI.
func (u *Users) ByActorIRI(c util.Context, tx *sql.Tx, actorIRI *url.URL) (*User, error) {
	rows, err := tx.Stmt(u.userByActorIRI).QueryContext(c, actorIRI.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return u.scanUser(rows, "Users.ByActorIRI")
}

// ActorIDForInbox resolves an inbox IRI to its owning actor IRI.
func (u *Users) ActorIDForInbox(c util.Context, tx *sql.Tx, inbox *url.URL) (actor string, err error) {
	rows, err := tx.Stmt(u.userActorForInbox).QueryContext(c, inbox.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return actor, enforceOneRow(rows, "Users.ActorIDForInbox", func(r *sql.Rows) error {
		return r.Scan(&actor)
	})
}

// ActorIDForOutbox resolves an outbox IRI to its owning actor IRI.
func (u *Users) ActorIDForOutbox(c util.Context, tx *sql.Tx, outbox *url.URL) (actor string, err error) {
	rows, err := tx.Stmt(u.userActorForOutbox).QueryContext(c, outbox.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return actor, enforceOneRow(rows, "Users.ActorIDForOutbox", func(r *sql.Rows) error {
		return r.Scan(&actor)
	})
}

// OutboxForInbox resolves an inbox IRI to the same user's outbox IRI.
func (u *Users) OutboxForInbox(c util.Context, tx *sql.Tx, inbox *url.URL) (outbox string, err error) {
	rows, err := tx.Stmt(u.userOutboxForInbox).QueryContext(c, inbox.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return outbox, enforceOneRow(rows, "Users.OutboxForInbox", func(r *sql.Rows) error {
		return r.Scan(&outbox)
	})
}

// PrivateKey fetches the PEM-encoded private key of the actor.
func (u *Users) PrivateKey(c util.Context, tx *sql.Tx, actorIRI *url.URL) (pem []byte, err error) {
	rows, err := tx.Stmt(u.userPrivateKey).QueryContext(c, actorIRI.String())
	if err != nil {
		return
	}
	defer rows.Close()
	return pem, enforceOneRow(rows, "Users.PrivateKey", func(r *sql.Rows) error {
		return r.Scan(&pem)
	})
}

// Count returns the number of registered users.
func (u *Users) Count(c util.Context, tx *sql.Tx) (n int, err error) {
	rows, err := tx.Stmt(u.userCount).QueryContext(c)
	if err != nil {
		return
	}
	defer rows.Close()
	return n, enforceOneRow(rows, "Users.Count", func(r *sql.Rows) error {
		return r.Scan(&n)
	})
}
