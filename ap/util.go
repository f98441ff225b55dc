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

package ap

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-fed/httpsig"
	"github.com/halcyon-social/halcyon/framework/conn"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

// getPublicKeyFromResponse extracts the PEM public key matching keyID out
// of a dereferenced actor document.
func getPublicKeyFromResponse(b []byte, keyID *url.URL) (crypto.PublicKey, *url.URL, error) {
	it, err := streams.ToItem(b)
	if err != nil {
		return nil, nil, err
	}
	actor, err := streams.ToActor(it)
	if err != nil {
		return nil, nil, fmt.Errorf("key document is not an actor: %w", err)
	}
	pk := actor.PublicKey
	if pk.ID == "" {
		return nil, nil, fmt.Errorf("actor %s provides no publicKey", actor.GetID())
	}
	if !pk.ID.Equals(streams.IRI(keyID.String())) {
		return nil, nil, fmt.Errorf("cannot find publicKey with id: %s", keyID)
	}
	// The key owner must be the actor itself.
	if !pk.Owner.Equals(actor.GetID()) {
		return nil, nil, fmt.Errorf("publicKey owner %s is not the actor %s", pk.Owner, actor.GetID())
	}
	block, _ := pem.Decode([]byte(pk.PublicKeyPem))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, nil, fmt.Errorf("could not decode publicKeyPem to PUBLIC KEY pem block type")
	}
	p, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, nil, err
	}
	owner, err := pk.Owner.URL()
	if err != nil {
		return nil, nil, err
	}
	return p, owner, nil
}

// verifyHttpSignatures authenticates an inbound request against the
// signer's published key, fetched through the resolver with the receiving
// user's credentials. It returns the signer's actor IRI on success.
func verifyHttpSignatures(c context.Context,
	r *http.Request,
	db *Database,
	tc *conn.Controller,
	pk privateKeyer,
	keyCache *util.TTLCache,
	maxClockSkew time.Duration,
	clockNow func() time.Time) (signer *url.URL, err error) {
	// 1. Reject stale dates before any cryptographic work.
	dateStr := r.Header.Get("Date")
	if dateStr == "" {
		return nil, fmt.Errorf("missing Date header")
	}
	reqTime, err := http.ParseTime(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Date header %q: %w", dateStr, err)
	}
	if skew := clockNow().Sub(reqTime); skew > maxClockSkew || skew < -maxClockSkew {
		return nil, fmt.Errorf("Date header too skewed (%v, allowed %v)", skew.Round(time.Second), maxClockSkew)
	}
	// 2. A signed POST carries a body digest.
	if r.Method == http.MethodPost && r.Header.Get("Digest") == "" {
		return nil, fmt.Errorf("missing Digest header on POST")
	}
	// 3. Figure out what key we need to verify.
	v, err := httpsig.NewVerifier(r)
	if err != nil {
		return nil, err
	}
	kIDIRI, err := url.Parse(v.KeyId())
	if err != nil {
		return nil, err
	}
	// 4. Fetch the public key, locally or with the receiving user's
	// credentials, consulting the short-lived cache.
	pKey, owner, err := fetchPublicKey(c, kIDIRI, db, tc, pk, keyCache)
	if err != nil {
		return nil, err
	}
	// 5. Verify.
	if err := v.Verify(pKey, tc.GetFirstAlgorithm()); err != nil {
		return nil, err
	}
	return owner, nil
}

type cachedKey struct {
	key   crypto.PublicKey
	owner *url.URL
}

type privateKeyer interface {
	GetUserHTTPSignatureKey(c util.Context, actorIRI *url.URL) (crypto.PrivateKey, *url.URL, error)
}

func fetchPublicKey(c context.Context,
	keyID *url.URL,
	db *Database,
	tc *conn.Controller,
	pk privateKeyer,
	keyCache *util.TTLCache) (crypto.PublicKey, *url.URL, error) {
	if keyCache != nil {
		if v, ok := keyCache.Get(keyID.String()); ok {
			ck := v.(cachedKey)
			return ck.key, ck.owner, nil
		}
	}
	uc := util.Context{Context: c}
	var raw []byte
	if owns, _ := db.Owns(c, keyID); owns {
		it, err := db.Get(c, keyID)
		if err != nil {
			return nil, nil, err
		}
		raw, err = streams.MarshalItem(it)
		if err != nil {
			return nil, nil, err
		}
	} else {
		// Sign the fetch as the receiving user.
		recipient, err := uc.ActorIRI()
		if err != nil {
			return nil, nil, err
		}
		privKey, pubKeyID, err := pk.GetUserHTTPSignatureKey(uc, recipient)
		if err != nil {
			return nil, nil, err
		}
		tp, err := tc.Get(privKey, pubKeyID.String())
		if err != nil {
			return nil, nil, err
		}
		raw, err = tp.Dereference(c, keyID)
		if err != nil {
			return nil, nil, err
		}
	}
	key, owner, err := getPublicKeyFromResponse(raw, keyID)
	if err != nil {
		return nil, nil, err
	}
	if keyCache != nil {
		keyCache.Put(keyID.String(), cachedKey{key: key, owner: owner})
	}
	return key, owner, nil
}
