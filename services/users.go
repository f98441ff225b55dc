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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"net/url"
	"time"

	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

// Users registers and resolves local actors.
type Users struct {
	DB         *sql.DB
	Users      *models.Users
	Data       *Data
	Scheme     string
	Host       string
	RSAKeySize int
}

// CreateUser registers a local user: it generates the RSA keypair, builds
// the actor document with its collection links and main key, and stores
// both the user record and the actor document.
func (s *Users) CreateUser(c util.Context, nickname, email string) (*models.User, error) {
	priv, err := rsa.GenerateKey(rand.Reader, s.keySize())
	if err != nil {
		return nil, err
	}
	privPem := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPem := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})

	actorIRI := paths.UserIRIFor(s.Scheme, s.Host, paths.UserPathKey, nickname)
	inboxIRI := paths.UserIRIFor(s.Scheme, s.Host, paths.InboxPathKey, nickname)
	outboxIRI := paths.UserIRIFor(s.Scheme, s.Host, paths.OutboxPathKey, nickname)
	keyIRI := paths.PublicKeyIRIFor(s.Scheme, s.Host, nickname)

	actor := streams.PersonNew(streams.IRI(actorIRI.String()))
	actor.PreferredUsername = streams.NaturalLanguageValuesNew(nickname)
	actor.Name = streams.NaturalLanguageValuesNew(nickname)
	actor.Inbox = streams.IRI(inboxIRI.String())
	actor.Outbox = streams.IRI(outboxIRI.String())
	actor.Followers = streams.IRI(paths.UserIRIFor(s.Scheme, s.Host, paths.FollowersPathKey, nickname).String())
	actor.Following = streams.IRI(paths.UserIRIFor(s.Scheme, s.Host, paths.FollowingPathKey, nickname).String())
	actor.Liked = streams.IRI(paths.UserIRIFor(s.Scheme, s.Host, paths.LikedPathKey, nickname).String())
	actor.Published = time.Now().UTC()
	actor.PublicKey = streams.PublicKey{
		ID:           streams.ID(keyIRI.String()),
		Owner:        streams.IRI(actorIRI.String()),
		PublicKeyPem: string(pubPem),
	}

	actorRaw, err := streams.MarshalItem(actor)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:        string(paths.NewULID(time.Now())),
		Nickname:  nickname,
		Email:     email,
		Actor:     actorRaw,
		PrivKey:   privPem,
		ActorIRI:  actorIRI.String(),
		InboxIRI:  inboxIRI.String(),
		OutboxIRI: outboxIRI.String(),
	}
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Users.Create(c, tx, u)
	})
	if err != nil {
		return nil, err
	}
	// The actor document is also served as local data at its own IRI.
	if err := s.Data.Create(c, actor); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Users) keySize() int {
	if s.RSAKeySize >= 1024 {
		return s.RSAKeySize
	}
	return 2048
}

// ByNickname fetches the user registered under the nickname.
func (s *Users) ByNickname(c util.Context, nickname string) (u *models.User, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		u, err = s.Users.ByNickname(c, tx, nickname)
		return err
	})
	return
}

// ByActorIRI fetches the user owning the actor IRI.
func (s *Users) ByActorIRI(c util.Context, actorIRI *url.URL) (u *models.User, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		u, err = s.Users.ByActorIRI(c, tx, paths.Normalize(actorIRI))
		return err
	})
	return
}

// ActorIDForInbox resolves an inbox IRI to its owning actor IRI.
func (s *Users) ActorIDForInbox(c util.Context, inbox *url.URL) (*url.URL, error) {
	var actor string
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		actor, err = s.Users.ActorIDForInbox(c, tx, paths.Normalize(inbox))
		return
	})
	if err != nil {
		return nil, err
	}
	return url.Parse(actor)
}

// ActorIDForOutbox resolves an outbox IRI to its owning actor IRI.
func (s *Users) ActorIDForOutbox(c util.Context, outbox *url.URL) (*url.URL, error) {
	var actor string
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		actor, err = s.Users.ActorIDForOutbox(c, tx, paths.Normalize(outbox))
		return
	})
	if err != nil {
		return nil, err
	}
	return url.Parse(actor)
}

// OutboxForInbox resolves an inbox IRI to the same user's outbox.
func (s *Users) OutboxForInbox(c util.Context, inbox *url.URL) (*url.URL, error) {
	var outbox string
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		outbox, err = s.Users.OutboxForInbox(c, tx, paths.Normalize(inbox))
		return
	})
	if err != nil {
		return nil, err
	}
	return url.Parse(outbox)
}

// Count returns the number of registered users.
func (s *Users) Count(c util.Context) (n int, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		n, err = s.Users.Count(c, tx)
		return err
	})
	return
}
