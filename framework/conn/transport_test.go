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

package conn

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-fed/httpsig"
	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

const testKeyID = "https://example.com/users/alyssa#main-key"

func testTransport(t *testing.T) (*transport, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	c := config.Defaults()
	c.ServerConfig.Host = "example.com"
	tc, err := NewController(c, realClock{}, http.DefaultClient, "halcyon/0.1.0 (ActivityPub)", nil)
	require.NoError(t, err)
	tp, err := tc.Get(priv, testKeyID)
	require.NoError(t, err)
	return tp.(*transport), priv
}

// The GET side signs (request-target), host, and date, and negotiates
// ActivityStreams content.
func TestDereferenceSignsRequest(t *testing.T) {
	tp, priv := testTransport(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "application/activity+json")
		assert.NotEmpty(t, r.Header.Get("Date"))
		assert.True(t, strings.HasSuffix(r.Header.Get("Date"), "GMT"))
		assert.Contains(t, r.Header.Get("User-Agent"), "halcyon")

		v, err := httpsig.NewVerifier(r)
		require.NoError(t, err)
		assert.Equal(t, testKeyID, v.KeyId())
		assert.NoError(t, v.Verify(&priv.PublicKey, httpsig.RSA_SHA256))

		w.Write([]byte(`{"id":"https://remote.example/users/x","type":"Person"}`))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/users/x")
	b, err := tp.Dereference(context.Background(), u)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Person")
}

// The POST side additionally signs the body digest.
func TestDeliverOnceSignsDigest(t *testing.T) {
	tp, priv := testTransport(t)
	payload := []byte(`{"id":"https://example.com/users/alyssa/activities/1","type":"Create"}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, body)

		sum := sha256.Sum256(body)
		wantDigest := "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
		assert.Equal(t, wantDigest, r.Header.Get("Digest"))

		v, err := httpsig.NewVerifier(r)
		require.NoError(t, err)
		assert.NoError(t, v.Verify(&priv.PublicKey, httpsig.RSA_SHA256))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/users/x/inbox")
	require.NoError(t, tp.deliverOnce(context.Background(), payload, u))
}

// 4xx delivery responses are fatal, 5xx are retryable.
func TestDeliverOnceStatusClassification(t *testing.T) {
	tp, _ := testTransport(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fatal":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	fatalURL, _ := url.Parse(srv.URL + "/fatal")
	err := tp.deliverOnce(context.Background(), []byte("{}"), fatalURL)
	var fatal *fatalDeliveryError
	require.Error(t, err)
	assert.True(t, isFatal(err, &fatal))

	retryURL, _ := url.Parse(srv.URL + "/retry")
	err = tp.deliverOnce(context.Background(), []byte("{}"), retryURL)
	require.Error(t, err)
	assert.False(t, isFatal(err, &fatal))
}
