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
	"fmt"
	"regexp"
)

// SqlDialect returns the dialect-specific SQL executed by the models.
type SqlDialect interface {
	CreateUsersTable() string
	InsertUser() string
	UserByNickname() string
	UserByActorIRI() string
	UserActorForInbox() string
	UserActorForOutbox() string
	UserOutboxForInbox() string
	UserPrivateKey() string
	UserCount() string

	CreateFedDataTable() string
	InsertFedData() string
	UpdateFedData() string
	DeleteFedData() string
	FedDataExists() string
	GetFedData() string

	CreateLocalDataTable() string
	InsertLocalData() string
	UpdateLocalData() string
	DeleteLocalData() string
	LocalDataExists() string
	GetLocalData() string

	CreateCollectionsTable() string
	InsertCollectionItem() string
	DeleteCollectionItem() string
	CollectionContains() string
	CollectionCount() string
	CollectionItems() string
	CollectionPageDesc() string
	CollectionPageDescBefore() string
	CollectionPageDescAfter() string

	CreateRelationshipsTables() string
	UpsertFollow() string
	AcceptFollow() string
	DeleteFollow() string
	GetFollow() string
	InsertBlock() string
	DeleteBlock() string
	IsBlocked() string
	ListBlocked() string

	CreateDeliveryAttemptsTable() string
	InsertAttempt() string
	MarkAttempt() string
	FirstPageRetryableFailures() string
	NextPageRetryableFailures() string
}

// NewSqlDialect returns the dialect for the configured database kind.
func NewSqlDialect(kind string) (SqlDialect, error) {
	switch kind {
	case "postgres":
		return &postgresDialect{}, nil
	case "sqlite":
		return &sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database kind: %s", kind)
}

type postgresDialect struct{}

func (p *postgresDialect) CreateUsersTable() string {
	return `CREATE TABLE IF NOT EXISTS users
(
  id TEXT PRIMARY KEY,
  nickname TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL,
  priv_key TEXT NOT NULL,
  actor_iri TEXT NOT NULL UNIQUE,
  inbox_iri TEXT NOT NULL UNIQUE,
  outbox_iri TEXT NOT NULL UNIQUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (p *postgresDialect) InsertUser() string {
	return `INSERT INTO users (id, nickname, email, actor, priv_key, actor_iri, inbox_iri, outbox_iri) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
}

func (p *postgresDialect) UserByNickname() string {
	return `SELECT id, nickname, email, actor, priv_key, actor_iri, inbox_iri, outbox_iri FROM users WHERE nickname = $1`
}

func (p *postgresDialect) UserByActorIRI() string {
	return `SELECT id, nickname, email, actor, priv_key, actor_iri, inbox_iri, outbox_iri FROM users WHERE actor_iri = $1`
}

func (p *postgresDialect) UserActorForInbox() string {
	return `SELECT actor_iri FROM users WHERE inbox_iri = $1`
}

func (p *postgresDialect) UserActorForOutbox() string {
	return `SELECT actor_iri FROM users WHERE outbox_iri = $1`
}

func (p *postgresDialect) UserOutboxForInbox() string {
	return `SELECT outbox_iri FROM users WHERE inbox_iri = $1`
}

func (p *postgresDialect) UserPrivateKey() string {
	return `SELECT priv_key FROM users WHERE actor_iri = $1`
}

func (p *postgresDialect) UserCount() string {
	return `SELECT COUNT(*) FROM users`
}

func (p *postgresDialect) CreateFedDataTable() string {
	return `CREATE TABLE IF NOT EXISTS fed_data
(
  iri TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (p *postgresDialect) InsertFedData() string {
	return `INSERT INTO fed_data (iri, payload) VALUES ($1, $2) ON CONFLICT (iri) DO NOTHING`
}

func (p *postgresDialect) UpdateFedData() string {
	return `UPDATE fed_data SET payload = $1, updated_at = CURRENT_TIMESTAMP WHERE iri = $2`
}

func (p *postgresDialect) DeleteFedData() string {
	return `DELETE FROM fed_data WHERE iri = $1`
}

func (p *postgresDialect) FedDataExists() string {
	return `SELECT EXISTS (SELECT 1 FROM fed_data WHERE iri = $1)`
}

func (p *postgresDialect) GetFedData() string {
	return `SELECT payload FROM fed_data WHERE iri = $1`
}

func (p *postgresDialect) CreateLocalDataTable() string {
	return `CREATE TABLE IF NOT EXISTS local_data
(
  iri TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  tombstoned BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (p *postgresDialect) InsertLocalData() string {
	return `INSERT INTO local_data (iri, payload) VALUES ($1, $2) ON CONFLICT (iri) DO NOTHING`
}

func (p *postgresDialect) UpdateLocalData() string {
	return `UPDATE local_data SET payload = $1, updated_at = CURRENT_TIMESTAMP WHERE iri = $2`
}

// DeleteLocalData replaces the payload with its tombstone; the IRI keeps
// responding.
func (p *postgresDialect) DeleteLocalData() string {
	return `UPDATE local_data SET payload = $1, tombstoned = TRUE, updated_at = CURRENT_TIMESTAMP WHERE iri = $2`
}

func (p *postgresDialect) LocalDataExists() string {
	return `SELECT EXISTS (SELECT 1 FROM local_data WHERE iri = $1)`
}

func (p *postgresDialect) GetLocalData() string {
	return `SELECT payload, tombstoned FROM local_data WHERE iri = $1`
}

func (p *postgresDialect) CreateCollectionsTable() string {
	return `CREATE TABLE IF NOT EXISTS collections
(
  collection_iri TEXT NOT NULL,
  item_iri TEXT NOT NULL,
  ord TEXT NOT NULL,
  published TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (collection_iri, item_iri)
);
CREATE INDEX IF NOT EXISTS collections_page_idx ON collections (collection_iri, ord DESC);`
}

func (p *postgresDialect) InsertCollectionItem() string {
	return `INSERT INTO collections (collection_iri, item_iri, ord, published) VALUES ($1, $2, $3, $4) ON CONFLICT (collection_iri, item_iri) DO NOTHING`
}

func (p *postgresDialect) DeleteCollectionItem() string {
	return `DELETE FROM collections WHERE collection_iri = $1 AND item_iri = $2`
}

func (p *postgresDialect) CollectionContains() string {
	return `SELECT EXISTS (SELECT 1 FROM collections WHERE collection_iri = $1 AND item_iri = $2)`
}

func (p *postgresDialect) CollectionCount() string {
	return `SELECT COUNT(*) FROM collections WHERE collection_iri = $1`
}

func (p *postgresDialect) CollectionItems() string {
	return `SELECT item_iri FROM collections WHERE collection_iri = $1 ORDER BY ord DESC`
}

func (p *postgresDialect) CollectionPageDesc() string {
	return `SELECT item_iri, ord FROM collections WHERE collection_iri = $1 ORDER BY ord DESC, item_iri DESC LIMIT $2`
}

func (p *postgresDialect) CollectionPageDescBefore() string {
	return `SELECT item_iri, ord FROM collections WHERE collection_iri = $1 AND ord < $2 ORDER BY ord DESC, item_iri DESC LIMIT $3`
}

func (p *postgresDialect) CollectionPageDescAfter() string {
	return `SELECT item_iri, ord FROM collections WHERE collection_iri = $1 AND ord > $2 ORDER BY ord ASC, item_iri ASC LIMIT $3`
}

func (p *postgresDialect) CreateRelationshipsTables() string {
	return `CREATE TABLE IF NOT EXISTS follows
(
  follower_iri TEXT NOT NULL,
  target_iri TEXT NOT NULL,
  accepted BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (follower_iri, target_iri)
);
CREATE TABLE IF NOT EXISTS blocks
(
  owner_iri TEXT NOT NULL,
  target_iri TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (owner_iri, target_iri)
);`
}

func (p *postgresDialect) UpsertFollow() string {
	return `INSERT INTO follows (follower_iri, target_iri, accepted) VALUES ($1, $2, $3) ON CONFLICT (follower_iri, target_iri) DO UPDATE SET accepted = $3`
}

func (p *postgresDialect) AcceptFollow() string {
	return `UPDATE follows SET accepted = TRUE WHERE follower_iri = $1 AND target_iri = $2`
}

func (p *postgresDialect) DeleteFollow() string {
	return `DELETE FROM follows WHERE follower_iri = $1 AND target_iri = $2`
}

func (p *postgresDialect) GetFollow() string {
	return `SELECT accepted FROM follows WHERE follower_iri = $1 AND target_iri = $2`
}

func (p *postgresDialect) InsertBlock() string {
	return `INSERT INTO blocks (owner_iri, target_iri) VALUES ($1, $2) ON CONFLICT (owner_iri, target_iri) DO NOTHING`
}

func (p *postgresDialect) DeleteBlock() string {
	return `DELETE FROM blocks WHERE owner_iri = $1 AND target_iri = $2`
}

func (p *postgresDialect) IsBlocked() string {
	return `SELECT EXISTS (SELECT 1 FROM blocks WHERE owner_iri = $1 AND target_iri = $2)`
}

func (p *postgresDialect) ListBlocked() string {
	return `SELECT target_iri FROM blocks WHERE owner_iri = $1`
}

func (p *postgresDialect) CreateDeliveryAttemptsTable() string {
	return `CREATE TABLE IF NOT EXISTS delivery_attempts
(
  id TEXT PRIMARY KEY,
  from_iri TEXT NOT NULL,
  to_iri TEXT NOT NULL,
  payload BYTEA NOT NULL,
  n_attempts INTEGER NOT NULL DEFAULT 1,
  last_attempt TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
  state TEXT NOT NULL DEFAULT 'new'
);`
}

func (p *postgresDialect) InsertAttempt() string {
	return `INSERT INTO delivery_attempts (id, from_iri, to_iri, payload, n_attempts) VALUES ($1, $2, $3, $4, 0)`
}

func (p *postgresDialect) MarkAttempt() string {
	return `UPDATE delivery_attempts SET state = $1, n_attempts = n_attempts + 1, last_attempt = CURRENT_TIMESTAMP WHERE id = $2`
}

func (p *postgresDialect) FirstPageRetryableFailures() string {
	return `SELECT id, from_iri, to_iri, payload, n_attempts, last_attempt FROM delivery_attempts WHERE state = 'failed' ORDER BY id ASC LIMIT $1`
}

func (p *postgresDialect) NextPageRetryableFailures() string {
	return `SELECT id, from_iri, to_iri, payload, n_attempts, last_attempt FROM delivery_attempts WHERE state = 'failed' AND id > $1 ORDER BY id ASC LIMIT $2`
}

// sqliteDialect reuses the postgres statements with question-mark
// placeholders and sqlite-friendly column types.
type sqliteDialect struct {
	pg postgresDialect
}

var placeholderRE = regexp.MustCompile(`\$\d+`)

// toQMarks rewrites positional $n placeholders as ?. The models bind
// arguments in positional order, and no statement repeats a placeholder
// except UpsertFollow, which is overridden below.
func toQMarks(s string) string {
	return placeholderRE.ReplaceAllString(s, "?")
}

func (s *sqliteDialect) CreateUsersTable() string {
	return `CREATE TABLE IF NOT EXISTS users
(
  id TEXT PRIMARY KEY,
  nickname TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL,
  priv_key TEXT NOT NULL,
  actor_iri TEXT NOT NULL UNIQUE,
  inbox_iri TEXT NOT NULL UNIQUE,
  outbox_iri TEXT NOT NULL UNIQUE,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (s *sqliteDialect) InsertUser() string         { return toQMarks(s.pg.InsertUser()) }
func (s *sqliteDialect) UserByNickname() string     { return toQMarks(s.pg.UserByNickname()) }
func (s *sqliteDialect) UserByActorIRI() string     { return toQMarks(s.pg.UserByActorIRI()) }
func (s *sqliteDialect) UserActorForInbox() string  { return toQMarks(s.pg.UserActorForInbox()) }
func (s *sqliteDialect) UserActorForOutbox() string { return toQMarks(s.pg.UserActorForOutbox()) }
func (s *sqliteDialect) UserOutboxForInbox() string { return toQMarks(s.pg.UserOutboxForInbox()) }
func (s *sqliteDialect) UserPrivateKey() string     { return toQMarks(s.pg.UserPrivateKey()) }
func (s *sqliteDialect) UserCount() string          { return s.pg.UserCount() }

func (s *sqliteDialect) CreateFedDataTable() string {
	return `CREATE TABLE IF NOT EXISTS fed_data
(
  iri TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (s *sqliteDialect) InsertFedData() string { return toQMarks(s.pg.InsertFedData()) }
func (s *sqliteDialect) UpdateFedData() string { return toQMarks(s.pg.UpdateFedData()) }
func (s *sqliteDialect) DeleteFedData() string { return toQMarks(s.pg.DeleteFedData()) }
func (s *sqliteDialect) FedDataExists() string { return toQMarks(s.pg.FedDataExists()) }
func (s *sqliteDialect) GetFedData() string    { return toQMarks(s.pg.GetFedData()) }

func (s *sqliteDialect) CreateLocalDataTable() string {
	return `CREATE TABLE IF NOT EXISTS local_data
(
  iri TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  tombstoned INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
}

func (s *sqliteDialect) InsertLocalData() string { return toQMarks(s.pg.InsertLocalData()) }
func (s *sqliteDialect) UpdateLocalData() string { return toQMarks(s.pg.UpdateLocalData()) }
func (s *sqliteDialect) DeleteLocalData() string {
	return `UPDATE local_data SET payload = ?, tombstoned = 1, updated_at = CURRENT_TIMESTAMP WHERE iri = ?`
}
func (s *sqliteDialect) LocalDataExists() string { return toQMarks(s.pg.LocalDataExists()) }
func (s *sqliteDialect) GetLocalData() string    { return toQMarks(s.pg.GetLocalData()) }

func (s *sqliteDialect) CreateCollectionsTable() string {
	return `CREATE TABLE IF NOT EXISTS collections
(
  collection_iri TEXT NOT NULL,
  item_iri TEXT NOT NULL,
  ord TEXT NOT NULL,
  published TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (collection_iri, item_iri)
);
CREATE INDEX IF NOT EXISTS collections_page_idx ON collections (collection_iri, ord DESC);`
}

func (s *sqliteDialect) InsertCollectionItem() string { return toQMarks(s.pg.InsertCollectionItem()) }
func (s *sqliteDialect) DeleteCollectionItem() string { return toQMarks(s.pg.DeleteCollectionItem()) }
func (s *sqliteDialect) CollectionContains() string   { return toQMarks(s.pg.CollectionContains()) }
func (s *sqliteDialect) CollectionCount() string      { return toQMarks(s.pg.CollectionCount()) }
func (s *sqliteDialect) CollectionItems() string      { return toQMarks(s.pg.CollectionItems()) }
func (s *sqliteDialect) CollectionPageDesc() string   { return toQMarks(s.pg.CollectionPageDesc()) }
func (s *sqliteDialect) CollectionPageDescBefore() string {
	return toQMarks(s.pg.CollectionPageDescBefore())
}
func (s *sqliteDialect) CollectionPageDescAfter() string {
	return toQMarks(s.pg.CollectionPageDescAfter())
}

func (s *sqliteDialect) CreateRelationshipsTables() string {
	return `CREATE TABLE IF NOT EXISTS follows
(
  follower_iri TEXT NOT NULL,
  target_iri TEXT NOT NULL,
  accepted INTEGER NOT NULL DEFAULT 0,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (follower_iri, target_iri)
);
CREATE TABLE IF NOT EXISTS blocks
(
  owner_iri TEXT NOT NULL,
  target_iri TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (owner_iri, target_iri)
);`
}

func (s *sqliteDialect) UpsertFollow() string {
	return `INSERT INTO follows (follower_iri, target_iri, accepted) VALUES (?, ?, ?) ON CONFLICT (follower_iri, target_iri) DO UPDATE SET accepted = excluded.accepted`
}

func (s *sqliteDialect) AcceptFollow() string {
	return `UPDATE follows SET accepted = 1 WHERE follower_iri = ? AND target_iri = ?`
}

func (s *sqliteDialect) DeleteFollow() string { return toQMarks(s.pg.DeleteFollow()) }
func (s *sqliteDialect) GetFollow() string    { return toQMarks(s.pg.GetFollow()) }
func (s *sqliteDialect) InsertBlock() string  { return toQMarks(s.pg.InsertBlock()) }
func (s *sqliteDialect) DeleteBlock() string  { return toQMarks(s.pg.DeleteBlock()) }
func (s *sqliteDialect) IsBlocked() string    { return toQMarks(s.pg.IsBlocked()) }
func (s *sqliteDialect) ListBlocked() string  { return toQMarks(s.pg.ListBlocked()) }

func (s *sqliteDialect) CreateDeliveryAttemptsTable() string {
	return `CREATE TABLE IF NOT EXISTS delivery_attempts
(
  id TEXT PRIMARY KEY,
  from_iri TEXT NOT NULL,
  to_iri TEXT NOT NULL,
  payload BLOB NOT NULL,
  n_attempts INTEGER NOT NULL DEFAULT 1,
  last_attempt TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  state TEXT NOT NULL DEFAULT 'new'
);`
}

func (s *sqliteDialect) InsertAttempt() string { return toQMarks(s.pg.InsertAttempt()) }
func (s *sqliteDialect) MarkAttempt() string   { return toQMarks(s.pg.MarkAttempt()) }
func (s *sqliteDialect) FirstPageRetryableFailures() string {
	return toQMarks(s.pg.FirstPageRetryableFailures())
}
func (s *sqliteDialect) NextPageRetryableFailures() string {
	return toQMarks(s.pg.NextPageRetryableFailures())
}
