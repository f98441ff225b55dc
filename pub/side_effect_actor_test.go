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

package pub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db    *fakeDatabase
	tr    *fakeTransport
	s2s   *fakeFederating
	c2s   *fakeSocial
	actor Actor
}

func newHarness(t *testing.T) *harness {
	clock := fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	db := newFakeDatabase(clock)
	tr := &fakeTransport{remote: make(map[string][]byte)}
	s2s := &fakeFederating{db: db, onFollow: OnFollowAutomaticallyAccept}
	c2s := &fakeSocial{}
	common := &fakeCommon{t: tr}
	return &harness{
		db:    db,
		tr:    tr,
		s2s:   s2s,
		c2s:   c2s,
		actor: NewActor(common, c2s, s2s, db, clock),
	}
}

// addLocalActor stores the actor document for a local user.
func (h *harness) addLocalActor(t *testing.T, name string) *streams.Actor {
	base := "https://" + localHost + "/users/" + name
	a := streams.PersonNew(streams.IRI(base))
	a.PreferredUsername = streams.NaturalLanguageValuesNew(name)
	a.Inbox = streams.IRI(base + "/inbox")
	a.Outbox = streams.IRI(base + "/outbox")
	a.Followers = streams.IRI(base + "/followers")
	a.Following = streams.IRI(base + "/following")
	a.Liked = streams.IRI(base + "/liked")
	require.NoError(t, h.db.Create(context.Background(), a))
	return a
}

// addRemoteActor registers a dereferenceable remote actor document.
func (h *harness) addRemoteActor(t *testing.T, base string) {
	a := streams.PersonNew(streams.IRI(base))
	a.Inbox = streams.IRI(base + "/inbox")
	raw, err := streams.Serialize(a)
	require.NoError(t, err)
	h.tr.remote[base] = raw
}

func (h *harness) postInbox(t *testing.T, user, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "https://"+localHost+"/users/"+user+"/inbox", strings.NewReader(body))
	r.Host = localHost
	r.Header.Set("Content-Type", ActivityStreamsContentType)
	w := httptest.NewRecorder()
	uc := &util.Context{Context: context.Background()}
	uc.WithUserPath(user)
	uc.WithActorIRI(mustURL("https://" + localHost + "/users/" + user))
	handled, err := h.actor.PostInbox(uc.Context, w, r)
	require.NoError(t, err)
	require.True(t, handled)
	return w
}

func (h *harness) postOutbox(t *testing.T, user, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "https://"+localHost+"/users/"+user+"/outbox", strings.NewReader(body))
	r.Host = localHost
	r.Header.Set("Content-Type", ActivityStreamsContentType)
	w := httptest.NewRecorder()
	uc := &util.Context{Context: context.Background()}
	uc.WithUserPath(user)
	uc.WithActorIRI(mustURL("https://" + localHost + "/users/" + user))
	handled, err := h.actor.PostOutbox(uc.Context, w, r)
	require.NoError(t, err)
	require.True(t, handled)
	return w
}

const benActor = "https://chatty.example/users/ben"

const dedupCreate = `{
  "@context": "https://www.w3.org/ns/activitystreams",
  "id": "https://chatty.example/users/ben/activities/a29a6843-9feb-4c74-a7f7-081b9c9201d3",
  "type": "Create",
  "actor": "https://chatty.example/users/ben",
  "to": "https://example.com/users/alyssa",
  "object": {
    "id": "https://chatty.example/users/ben/objects/1f6b2a7c",
    "type": "Note",
    "attributedTo": "https://chatty.example/users/ben",
    "content": "hi"
  }
}`

// S1: posting the same activity twice yields one inbox entry and one set of
// side effects.
func TestInboxDeduplicatesByActivityID(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	w1 := h.postInbox(t, "alyssa", dedupCreate)
	assert.Equal(t, http.StatusOK, w1.Code)
	w2 := h.postInbox(t, "alyssa", dedupCreate)
	assert.Equal(t, http.StatusOK, w2.Code)

	inbox := h.db.inboxes["https://example.com/users/alyssa/inbox"]
	assert.Len(t, inbox, 1)
	// Activity persisted once, object persisted once, actor doc pre-seeded.
	assert.Equal(t, 3, h.db.createCalls)
}

// Wrong content type responds 415.
func TestInboxRejectsWrongContentType(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	r := httptest.NewRequest(http.MethodPost, "https://example.com/users/alyssa/inbox", strings.NewReader(dedupCreate))
	r.Host = localHost
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handled, err := h.actor.PostInbox(context.Background(), w, r)
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

// S2 / actor spoofing: the signer does not match the claimed actor.
func TestInboxRejectsActorSpoof(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	// charlie signs an activity claiming ben as actor.
	h.s2s.signer = mustURL("https://chatty.example/users/charlie")

	w := h.postInbox(t, "alyssa", dedupCreate)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "actor_spoofed")
	assert.Empty(t, h.db.inboxes["https://example.com/users/alyssa/inbox"])
}

// Object spoofing: an Update whose embedded object contradicts the stored
// object responds 422 and leaves storage unchanged.
func TestInboxRejectsObjectSpoof(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	h.postInbox(t, "alyssa", dedupCreate)

	update := `{
	  "id": "https://chatty.example/users/ben/activities/upd1",
	  "type": "Update",
	  "actor": "https://chatty.example/users/ben",
	  "object": {
	    "id": "https://chatty.example/users/ben/objects/1f6b2a7c",
	    "type": "Article",
	    "attributedTo": "https://chatty.example/users/ben",
	    "content": "changed"
	  }
	}`
	w := h.postInbox(t, "alyssa", update)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "object_spoofed")

	stored, err := h.db.Get(context.Background(), mustURL("https://chatty.example/users/ben/objects/1f6b2a7c"))
	require.NoError(t, err)
	ob, err := streams.ToObject(stored)
	require.NoError(t, err)
	assert.Equal(t, streams.NoteType, ob.Type)
	assert.Equal(t, "hi", ob.Content.First())
}

// A legitimate Update by the owner replaces the stored object.
func TestInboxUpdateReplacesObject(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)
	h.postInbox(t, "alyssa", dedupCreate)

	update := `{
	  "id": "https://chatty.example/users/ben/activities/upd2",
	  "type": "Update",
	  "actor": "https://chatty.example/users/ben",
	  "object": {
	    "id": "https://chatty.example/users/ben/objects/1f6b2a7c",
	    "type": "Note",
	    "attributedTo": "https://chatty.example/users/ben",
	    "content": "edited"
	  }
	}`
	w := h.postInbox(t, "alyssa", update)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := h.db.Get(context.Background(), mustURL("https://chatty.example/users/ben/objects/1f6b2a7c"))
	require.NoError(t, err)
	ob, err := streams.ToObject(stored)
	require.NoError(t, err)
	assert.Equal(t, "edited", ob.Content.First())
}

// S3: Follow with the automatically-accept policy adds the follower and
// delivers exactly one Accept to the follower's inbox.
func TestFollowAutoAccept(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.addRemoteActor(t, benActor)
	h.s2s.signer = mustURL(benActor)

	follow := `{
	  "id": "https://chatty.example/users/ben/activities/f1",
	  "type": "Follow",
	  "actor": "https://chatty.example/users/ben",
	  "object": "https://example.com/users/alyssa"
	}`
	w := h.postInbox(t, "alyssa", follow)
	assert.Equal(t, http.StatusOK, w.Code)

	followers := h.db.collections["https://example.com/users/alyssa/followers"]
	require.Len(t, followers, 1)
	assert.Equal(t, benActor, followers[0])
	assert.True(t, h.db.follows[benActor+" https://example.com/users/alyssa"])

	sent := h.tr.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, benActor+"/inbox", sent[0].to)
	assert.Contains(t, string(sent[0].payload), `"type":"Accept"`)
	// The Accept lands in alyssa's outbox too.
	assert.Len(t, h.db.outboxes["https://example.com/users/alyssa/outbox"], 1)
}

// Reject policy leaves no relationship behind.
func TestFollowAutoReject(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.addRemoteActor(t, benActor)
	h.s2s.signer = mustURL(benActor)
	h.s2s.onFollow = OnFollowAutomaticallyReject

	follow := `{
	  "id": "https://chatty.example/users/ben/activities/f2",
	  "type": "Follow",
	  "actor": "https://chatty.example/users/ben",
	  "object": "https://example.com/users/alyssa"
	}`
	w := h.postInbox(t, "alyssa", follow)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.db.collections["https://example.com/users/alyssa/followers"])
	assert.Empty(t, h.db.follows)

	sent := h.tr.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, string(sent[0].payload), `"type":"Reject"`)
}

// An inbound Accept of a Follow this actor sent extends following.
func TestInboxAcceptExtendsFollowing(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	accept := `{
	  "id": "https://chatty.example/users/ben/activities/acc1",
	  "type": "Accept",
	  "actor": "https://chatty.example/users/ben",
	  "object": {
	    "id": "https://example.com/users/alyssa/activities/01f",
	    "type": "Follow",
	    "actor": "https://example.com/users/alyssa",
	    "object": "https://chatty.example/users/ben"
	  }
	}`
	w := h.postInbox(t, "alyssa", accept)
	assert.Equal(t, http.StatusOK, w.Code)
	following := h.db.collections["https://example.com/users/alyssa/following"]
	require.Len(t, following, 1)
	assert.Equal(t, benActor, following[0])
	assert.True(t, h.db.follows["https://example.com/users/alyssa "+benActor])
}

// S6-companion: Reject leaves following empty.
func TestInboxRejectLeavesFollowingEmpty(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	reject := `{
	  "id": "https://chatty.example/users/ben/activities/rej1",
	  "type": "Reject",
	  "actor": "https://chatty.example/users/ben",
	  "object": {
	    "id": "https://example.com/users/alyssa/activities/01g",
	    "type": "Follow",
	    "actor": "https://example.com/users/alyssa",
	    "object": "https://chatty.example/users/ben"
	  }
	}`
	w := h.postInbox(t, "alyssa", reject)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.db.collections["https://example.com/users/alyssa/following"])
	assert.Empty(t, h.db.follows)
}

// S4: Delete replaces the object with a Tombstone carrying formerType.
func TestDeleteTombstonesObject(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)
	h.postInbox(t, "alyssa", dedupCreate)

	del := `{
	  "id": "https://chatty.example/users/ben/activities/d1",
	  "type": "Delete",
	  "actor": "https://chatty.example/users/ben",
	  "object": "https://chatty.example/users/ben/objects/1f6b2a7c"
	}`
	w := h.postInbox(t, "alyssa", del)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := h.db.Get(context.Background(), mustURL("https://chatty.example/users/ben/objects/1f6b2a7c"))
	require.NoError(t, err)
	ob, err := streams.ToObject(stored)
	require.NoError(t, err)
	assert.True(t, ob.IsTombstone())
	assert.Equal(t, streams.NoteType, ob.FormerType)

	raw, err := streams.MarshalItem(ob)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"formerType":"Note"`)
}

// A Delete signed by a different origin is refused.
func TestDeleteFromWrongOriginRejected(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)
	h.postInbox(t, "alyssa", dedupCreate)

	h.s2s.signer = mustURL("https://evil.example/users/mallory")
	del := `{
	  "id": "https://evil.example/users/mallory/activities/d2",
	  "type": "Delete",
	  "actor": "https://evil.example/users/mallory",
	  "object": "https://chatty.example/users/ben/objects/1f6b2a7c"
	}`
	w := h.postInbox(t, "alyssa", del)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	stored, err := h.db.Get(context.Background(), mustURL("https://chatty.example/users/ben/objects/1f6b2a7c"))
	require.NoError(t, err)
	ob, err := streams.ToObject(stored)
	require.NoError(t, err)
	assert.False(t, ob.IsTombstone())
}

// S5: an inbound Create addressed to a local followers collection and
// replying to a local note is forwarded exactly once per follower.
func TestInboxForwardingToFollowers(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.addRemoteActor(t, "https://chatty.example/users/daria")
	h.s2s.signer = mustURL(benActor)

	// daria follows alyssa.
	require.NoError(t, h.db.AddToCollection(context.Background(),
		mustURL("https://example.com/users/alyssa/followers"),
		mustURL("https://chatty.example/users/daria")))

	// A local note by alyssa that the inbound create replies to.
	note := streams.ObjectNew(streams.NoteType)
	note.ID = "https://example.com/users/alyssa/objects/01hvx"
	note.AttributedTo = streams.IRI("https://example.com/users/alyssa")
	require.NoError(t, h.db.Create(context.Background(), note))

	reply := `{
	  "id": "https://chatty.example/users/ben/activities/r1",
	  "type": "Create",
	  "actor": "https://chatty.example/users/ben",
	  "to": "https://example.com/users/alyssa/followers",
	  "bcc": "https://chatty.example/users/hidden",
	  "object": {
	    "id": "https://chatty.example/users/ben/objects/r1note",
	    "type": "Note",
	    "attributedTo": "https://chatty.example/users/ben",
	    "inReplyTo": "https://example.com/users/alyssa/objects/01hvx",
	    "content": "a reply"
	  }
	}`
	w := h.postInbox(t, "alyssa", reply)
	assert.Equal(t, http.StatusOK, w.Code)

	sent := h.tr.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://chatty.example/users/daria/inbox", sent[0].to)
	payload := string(sent[0].payload)
	assert.Contains(t, payload, "https://chatty.example/users/ben/objects/r1note")
	assert.NotContains(t, payload, "bcc")

	// Re-posting the same activity does not forward again.
	h.postInbox(t, "alyssa", reply)
	assert.Len(t, h.tr.sent(), 1)
}

// Activities involving blocked actors are dropped silently with 200.
func TestInboxBlockedActorDroppedSilently(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)
	require.NoError(t, h.db.Block(context.Background(),
		mustURL("https://example.com/users/alyssa"), mustURL(benActor)))

	w := h.postInbox(t, "alyssa", dedupCreate)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.db.inboxes["https://example.com/users/alyssa/inbox"])
}

// Undo Follow reverts the relationship and the followers collection.
func TestInboxUndoFollow(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.addRemoteActor(t, benActor)
	h.s2s.signer = mustURL(benActor)

	follow := `{
	  "id": "https://chatty.example/users/ben/activities/f3",
	  "type": "Follow",
	  "actor": "https://chatty.example/users/ben",
	  "object": "https://example.com/users/alyssa"
	}`
	h.postInbox(t, "alyssa", follow)
	require.Len(t, h.db.collections["https://example.com/users/alyssa/followers"], 1)

	undo := `{
	  "id": "https://chatty.example/users/ben/activities/u1",
	  "type": "Undo",
	  "actor": "https://chatty.example/users/ben",
	  "object": {
	    "id": "https://chatty.example/users/ben/activities/f3",
	    "type": "Follow",
	    "actor": "https://chatty.example/users/ben",
	    "object": "https://example.com/users/alyssa"
	  }
	}`
	w := h.postInbox(t, "alyssa", undo)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.db.collections["https://example.com/users/alyssa/followers"])
	assert.Empty(t, h.db.follows)
}

// Undo of an unsupported type is a 422.
func TestInboxUndoUnsupportedType(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	undo := `{
	  "id": "https://chatty.example/users/ben/activities/u2",
	  "type": "Undo",
	  "actor": "https://chatty.example/users/ben",
	  "object": {
	    "id": "https://chatty.example/users/ben/activities/c9",
	    "type": "Create",
	    "actor": "https://chatty.example/users/ben",
	    "object": "https://chatty.example/users/ben/objects/x"
	  }
	}`
	w := h.postInbox(t, "alyssa", undo)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "undo_type_not_supported")
}

// An inbound Like of a locally owned object lands in its likes collection.
func TestInboxLikeAppendsToLikes(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.s2s.signer = mustURL(benActor)

	note := streams.ObjectNew(streams.NoteType)
	note.ID = "https://example.com/users/alyssa/objects/01hvy"
	note.AttributedTo = streams.IRI("https://example.com/users/alyssa")
	require.NoError(t, h.db.Create(context.Background(), note))

	like := `{
	  "id": "https://chatty.example/users/ben/activities/l1",
	  "type": "Like",
	  "actor": "https://chatty.example/users/ben",
	  "object": "https://example.com/users/alyssa/objects/01hvy"
	}`
	w := h.postInbox(t, "alyssa", like)
	assert.Equal(t, http.StatusOK, w.Code)
	likes := h.db.collections["https://example.com/users/alyssa/objects/01hvy/likes"]
	require.Len(t, likes, 1)
	assert.Equal(t, "https://chatty.example/users/ben/activities/l1", likes[0])
}

// S6: posting a bare Note wraps it in a Create with mirrored audience and a
// freshly minted object id under the submitting user.
func TestOutboxWrapsBareObject(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.c2s.user = mustURL("https://example.com/users/alyssa")

	note := `{
	  "type": "Note",
	  "to": "https://www.w3.org/ns/activitystreams#Public",
	  "cc": "https://example.com/users/alyssa/followers",
	  "content": "hello world"
	}`
	w := h.postOutbox(t, "alyssa", note)
	require.Equal(t, http.StatusCreated, w.Code)

	location := w.Header().Get("Location")
	require.NotEmpty(t, location)
	assert.True(t, strings.HasPrefix(location, "https://example.com/users/alyssa/activities/"), location)

	stored, err := h.db.Get(context.Background(), mustURL(location))
	require.NoError(t, err)
	act, err := streams.ToActivity(stored)
	require.NoError(t, err)
	assert.Equal(t, streams.CreateType, act.Type)
	assert.Equal(t, streams.IRI("https://example.com/users/alyssa"), act.Actor.GetLink())
	require.Len(t, act.To, 1)
	assert.True(t, streams.IsPublic(act.To[0]))
	require.Len(t, act.CC, 1)

	ob, err := streams.ToObject(act.Object)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ob.ID), "https://example.com/users/alyssa/objects/"), string(ob.ID))
	assert.Equal(t, streams.IRI("https://example.com/users/alyssa"), ob.AttributedTo.GetLink())

	// The object is retrievable at its own IRI.
	obURL, err := ob.ID.URL()
	require.NoError(t, err)
	_, err = h.db.Get(context.Background(), obURL)
	assert.NoError(t, err)

	assert.Len(t, h.db.outboxes["https://example.com/users/alyssa/outbox"], 1)
}

// An outbox submission claiming another actor is refused.
func TestOutboxRejectsForeignActor(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.c2s.user = mustURL("https://example.com/users/alyssa")

	body := `{
	  "type": "Create",
	  "actor": "https://example.com/users/mallory",
	  "object": {"type": "Note", "content": "x"}
	}`
	w := h.postOutbox(t, "alyssa", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "actor_spoofed")
}

// Outbox Follow records a pending relationship and delivers to the target.
func TestOutboxFollowIsPendingAndDelivered(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.addRemoteActor(t, benActor)
	h.c2s.user = mustURL("https://example.com/users/alyssa")

	body := `{
	  "type": "Follow",
	  "actor": "https://example.com/users/alyssa",
	  "to": "https://chatty.example/users/ben",
	  "object": "https://chatty.example/users/ben"
	}`
	w := h.postOutbox(t, "alyssa", body)
	require.Equal(t, http.StatusCreated, w.Code)

	accepted, ok := h.db.follows["https://example.com/users/alyssa "+benActor]
	require.True(t, ok)
	assert.False(t, accepted, "follow must be pending until the Accept arrives")

	waitFor(t, func() bool { return len(h.tr.sent()) == 1 })
	sent := h.tr.sent()
	assert.Equal(t, benActor+"/inbox", sent[0].to)
	assert.Contains(t, string(sent[0].payload), `"type":"Follow"`)
}

// A client-supplied id on outbox submission is discarded.
func TestOutboxMintsFreshID(t *testing.T) {
	h := newHarness(t)
	h.addLocalActor(t, "alyssa")
	h.c2s.user = mustURL("https://example.com/users/alyssa")

	body := `{
	  "id": "https://example.com/users/alyssa/activities/client-chosen",
	  "type": "Create",
	  "actor": "https://example.com/users/alyssa",
	  "object": {"type": "Note", "content": "x"}
	}`
	w := h.postOutbox(t, "alyssa", body)
	require.Equal(t, http.StatusCreated, w.Code)
	location := w.Header().Get("Location")
	assert.NotContains(t, location, "client-chosen")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition not met before deadline")
}
