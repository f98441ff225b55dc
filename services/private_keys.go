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
	"crypto"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"fmt"
	"net/url"

	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/util"
)

// PrivateKeys resolves local actors' HTTP-signature keys.
type PrivateKeys struct {
	DB    *sql.DB
	Users *models.Users
}

// GetUserHTTPSignatureKey returns the actor's private key and its public
// key id (the actor IRI with the main-key fragment).
func (s *PrivateKeys) GetUserHTTPSignatureKey(c util.Context, actorIRI *url.URL) (crypto.PrivateKey, *url.URL, error) {
	var pemBytes []byte
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		pemBytes, err = s.Users.PrivateKey(c, tx, paths.Normalize(actorIRI))
		return
	})
	if err != nil {
		return nil, nil, err
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, nil, fmt.Errorf("no PEM block in stored private key for %s", actorIRI)
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, err
	}
	user, err := paths.UserFromPath(actorIRI.Path)
	if err != nil {
		return nil, nil, err
	}
	keyID := paths.PublicKeyIRIFor(actorIRI.Scheme, actorIRI.Host, user)
	return priv, keyID, nil
}
