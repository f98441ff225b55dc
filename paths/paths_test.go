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

package paths

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIRIs(t *testing.T) {
	u := UserIRIFor("https", "example.com", InboxPathKey, "alyssa")
	assert.Equal(t, "https://example.com/users/alyssa/inbox", u.String())

	k := PublicKeyIRIFor("https", "example.com", "alyssa")
	assert.Equal(t, "https://example.com/users/alyssa#main-key", k.String())

	user, err := UserFromPath(u.Path)
	require.NoError(t, err)
	assert.Equal(t, "alyssa", user)
}

func TestULIDOrderingAndPaths(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewULID(t0)
	b := NewULID(t0.Add(time.Second))
	assert.Less(t, a.String(), b.String())
	assert.Equal(t, t0, a.Time())

	iri := UserDataIRIFor("https", "example.com", ObjectPathKey, "alyssa", a)
	got, err := ULIDFromPath(iri.Path)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestIRIForActorID(t *testing.T) {
	actor, _ := url.Parse("https://example.com/users/alyssa")
	fl, err := IRIForActorID(FollowersPathKey, actor)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/users/alyssa/followers", fl.String())
	assert.True(t, IsFollowersPath(fl))
	assert.True(t, IsUserPath(actor))
	assert.False(t, IsUserPath(fl))
	assert.True(t, IsCollectionPath(fl))
}

func TestPageQueries(t *testing.T) {
	base, _ := url.Parse("https://example.com/users/alyssa/outbox")
	assert.False(t, IsGetCollectionPage(base))

	first := FirstPageIRI(base)
	assert.True(t, IsGetCollectionPage(first))

	id := NewULID(time.Now())
	older := PageIRIBefore(base, id)
	got, ok := GetMaxID(older)
	require.True(t, ok)
	assert.Equal(t, id, got)

	newer := PageIRIAfter(base, id)
	got, ok = GetMinID(newer)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = GetMaxID(newer)
	assert.False(t, ok)
}
