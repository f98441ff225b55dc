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

package streams

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRIEquals(t *testing.T) {
	for _, tc := range []struct {
		name string
		a, b IRI
		want bool
	}{
		{"identical", "https://example.com/users/alyssa", "https://example.com/users/alyssa", true},
		{"host case", "https://Example.COM/users/alyssa", "https://example.com/users/alyssa", true},
		{"path case differs", "https://example.com/users/Alyssa", "https://example.com/users/alyssa", false},
		{"percent escape", "https://example.com/users/a%2Fb", "https://example.com/users/a/b", true},
		{"different", "https://example.com/users/alyssa", "https://example.com/users/ben", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equals(tc.b))
		})
	}
}

func TestTypeHierarchy(t *testing.T) {
	assert.True(t, CreateType.IsOrExtends(ActivityType))
	assert.True(t, BlockType.IsOrExtends(IgnoreType))
	assert.True(t, BlockType.IsOrExtends(ActivityType))
	assert.True(t, OrderedCollectionPageType.IsOrExtends(CollectionType))
	assert.True(t, TombstoneType.IsOrExtends(ObjectType))
	assert.False(t, NoteType.IsOrExtends(ActivityType))
	assert.False(t, ActivityType.IsOrExtends(CreateType))
}

func TestToItemDecodesCreate(t *testing.T) {
	raw := []byte(`{
	  "@context": "https://www.w3.org/ns/activitystreams",
	  "id": "https://chatty.example/users/ben/activities/a29a6843",
	  "type": "Create",
	  "actor": "https://chatty.example/users/ben",
	  "to": ["https://example.com/users/alyssa", "https://www.w3.org/ns/activitystreams#Public"],
	  "object": {
	    "id": "https://chatty.example/users/ben/objects/49e2d03d",
	    "type": "Note",
	    "attributedTo": "https://chatty.example/users/ben",
	    "content": "Say, did you finish reading that book I lent you?",
	    "published": "2024-03-01T12:00:00Z"
	  }
	}`)
	it, err := ToItem(raw)
	require.NoError(t, err)
	act, ok := it.(*Activity)
	require.True(t, ok, "expected *Activity, got %T", it)
	assert.Equal(t, CreateType, act.GetType())
	assert.Equal(t, IRI("https://chatty.example/users/ben/activities/a29a6843"), act.GetID())
	assert.Equal(t, IRI("https://chatty.example/users/ben"), act.Actor.GetLink())
	require.Len(t, act.To, 2)
	assert.True(t, IsPublic(act.To[1]))

	ob, err := ToObject(act.Object)
	require.NoError(t, err)
	assert.Equal(t, NoteType, ob.Type)
	assert.Equal(t, "Say, did you finish reading that book I lent you?", ob.Content.First())
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ob.Published)
}

func TestRoundTripPreservesProperties(t *testing.T) {
	raw := []byte(`{
	  "id": "https://example.com/users/alyssa/objects/01HV",
	  "type": "Note",
	  "attributedTo": "https://example.com/users/alyssa",
	  "to": "https://www.w3.org/ns/activitystreams#Public",
	  "cc": ["https://example.com/users/alyssa/followers"],
	  "content": "hello",
	  "contentMap": {"fr": "bonjour"},
	  "published": "2024-05-05T10:30:00Z"
	}`)
	it, err := ToItem(raw)
	require.NoError(t, err)

	out, err := MarshalItem(it)
	require.NoError(t, err)

	back, err := ToItem(out)
	require.NoError(t, err)
	ob, err := ToObject(back)
	require.NoError(t, err)
	assert.Equal(t, IRI("https://example.com/users/alyssa/objects/01HV"), ob.ID)
	assert.Equal(t, NoteType, ob.Type)
	assert.Equal(t, "hello", ob.Content.Get(NilLangRef))
	assert.Equal(t, "bonjour", ob.Content.Get("fr"))
	require.Len(t, ob.To, 1)
	assert.True(t, IsPublic(ob.To[0]))
	require.Len(t, ob.CC, 1)
	assert.Equal(t, IRI("https://example.com/users/alyssa/followers"), ob.CC[0].GetLink())
	assert.Equal(t, time.Date(2024, 5, 5, 10, 30, 0, 0, time.UTC), ob.Published)
}

func TestMultiTypeSurvivesRoundTrip(t *testing.T) {
	raw := []byte(`{"id":"https://example.com/o/1","type":["Note","toot:Emoji"],"content":"x"}`)
	it, err := ToItem(raw)
	require.NoError(t, err)
	out, err := MarshalItem(it)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"type":["Note","toot:Emoji"]`)
}

func TestActorDecodesKeyAndEndpoints(t *testing.T) {
	raw := []byte(`{
	  "id": "https://chatty.example/users/ben",
	  "type": "Person",
	  "preferredUsername": "ben",
	  "inbox": "https://chatty.example/users/ben/inbox",
	  "outbox": "https://chatty.example/users/ben/outbox",
	  "followers": "https://chatty.example/users/ben/followers",
	  "endpoints": {"sharedInbox": "https://chatty.example/inbox"},
	  "publicKey": {
	    "id": "https://chatty.example/users/ben#main-key",
	    "owner": "https://chatty.example/users/ben",
	    "publicKeyPem": "-----BEGIN PUBLIC KEY-----..."
	  }
	}`)
	it, err := ToItem(raw)
	require.NoError(t, err)
	a, err := ToActor(it)
	require.NoError(t, err)
	assert.Equal(t, "ben", a.PreferredUsername.First())
	assert.Equal(t, IRI("https://chatty.example/users/ben/inbox"), a.Inbox.GetLink())
	require.NotNil(t, a.Endpoints)
	assert.Equal(t, IRI("https://chatty.example/inbox"), a.Endpoints.SharedInbox.GetLink())
	assert.Equal(t, ID("https://chatty.example/users/ben#main-key"), a.PublicKey.ID)
	assert.Equal(t, a.GetID(), a.PublicKey.Owner)
}

func TestOrderedCollectionPage(t *testing.T) {
	p := OrderedCollectionPageNew("https://example.com/users/alyssa/outbox?page=true", IRI("https://example.com/users/alyssa/outbox"))
	p.Append(IRI("https://example.com/users/alyssa/activities/01B"))
	p.Append(IRI("https://example.com/users/alyssa/activities/01A"))
	// Idempotent add.
	p.Append(IRI("https://example.com/users/alyssa/activities/01A"))
	assert.Equal(t, uint(2), p.Count())

	out, err := MarshalItem(p)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `"orderedItems"`)
	assert.Contains(t, s, `"partOf"`)

	back, err := ToItem(out)
	require.NoError(t, err)
	page, err := ToCollectionPage(back)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Ordered())
}

func TestSingleOrderedItemStaysArray(t *testing.T) {
	c := OrderedCollectionNew("https://example.com/users/alyssa/inbox")
	c.Append(IRI("https://example.com/a/1"))
	out, err := MarshalItem(c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"orderedItems":["https://example.com/a/1"]`)
}

func TestTombstoneFor(t *testing.T) {
	ob := ObjectNew(NoteType)
	ob.ID = "https://example.com/users/alyssa/objects/01X"
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ts := TombstoneFor(ob, now)
	assert.Equal(t, ob.ID, ts.ID)
	assert.Equal(t, TombstoneType, ts.Type)
	assert.Equal(t, NoteType, ts.FormerType)
	assert.Equal(t, now, ts.Deleted)

	out, err := MarshalItem(ts)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"formerType":"Note"`)
}

func TestRecipientsAndClean(t *testing.T) {
	a := CreateNew("https://example.com/a/1", nil)
	a.To = ItemCollection{IRI("https://example.com/users/ben")}
	a.CC = ItemCollection{IRI("https://example.com/users/ben"), IRI("https://example.com/users/carol")}
	a.BCC = ItemCollection{IRI("https://example.com/users/dan")}

	rec := a.Recipients()
	assert.Len(t, rec, 3)

	a.Clean()
	assert.Nil(t, a.BCC)
	assert.Nil(t, a.Bto)
	out, err := MarshalItem(a)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "bcc")
}

func TestSerializeAttachesContext(t *testing.T) {
	n := ObjectNew(NoteType)
	n.ID = "https://example.com/users/alyssa/objects/01Y"
	out, err := Serialize(n)
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.Contains(s, "@context"), "missing @context in %s", s)
	assert.Contains(t, s, ActivityStreamsContextIRI)
	assert.Contains(t, s, string(n.ID))
}

func TestUnknownTypeFallsBackToObject(t *testing.T) {
	raw := []byte(`{"id":"https://example.com/x/1","type":"CustomThing","content":"x"}`)
	it, err := ToItem(raw)
	require.NoError(t, err)
	ob, ok := it.(*Object)
	require.True(t, ok)
	assert.Equal(t, ActivityVocabularyType("CustomThing"), ob.Type)
}
