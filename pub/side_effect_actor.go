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
	"net/url"

	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

var _ DelegateActor = &sideEffectActor{}

// sideEffectActor is the protocol state machine. It carries no per-request
// state; everything request-scoped travels in the context.
type sideEffectActor struct {
	common CommonBehavior
	s2s    FederatingProtocol
	c2s    SocialProtocol
	db     Database
	clock  Clock
}

// NewSideEffectActor builds the DelegateActor implementing the ActivityPub
// inbox and outbox pipelines.
func NewSideEffectActor(c CommonBehavior, s2s FederatingProtocol, c2s SocialProtocol, db Database, clock Clock) DelegateActor {
	return &sideEffectActor{
		common: c,
		s2s:    s2s,
		c2s:    c2s,
		db:     db,
		clock:  clock,
	}
}

func (a *sideEffectActor) PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error) {
	return a.s2s.PostInboxRequestBodyHook(c, r, activity)
}

func (a *sideEffectActor) PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error) {
	return a.c2s.PostOutboxRequestBodyHook(c, r, data)
}

func (a *sideEffectActor) AuthenticatePostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	return a.s2s.AuthenticatePostInbox(c, w, r)
}

func (a *sideEffectActor) AuthenticateGetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	return a.common.AuthenticateGetInbox(c, w, r)
}

func (a *sideEffectActor) AuthenticatePostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	return a.c2s.AuthenticatePostOutbox(c, w, r)
}

func (a *sideEffectActor) AuthenticateGetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	return a.common.AuthenticateGetOutbox(c, w, r)
}

// AuthorizePostInbox rejects activities whose claimed actor does not match
// the request signer, and silently drops activities involving blocked
// actors. A Block activity is never exposed to the blocked party, so the
// dropped cases still respond 200.
func (a *sideEffectActor) AuthorizePostInbox(c context.Context, w http.ResponseWriter, activity *streams.Activity) (bool, error) {
	uc := util.Context{Context: c}
	signer, err := uc.RequestSignedBy()
	if err != nil {
		return false, NewError(KindUnauthenticated, "request signer unknown")
	}
	actors := activityActorURLs(activity)
	if len(actors) == 0 {
		return false, ErrActorRequired
	}
	signerIRI := streams.IRI(signer.String())
	match := false
	for _, act := range actors {
		if signerIRI.Equals(streams.IRI(act.String())) {
			match = true
			break
		}
	}
	if !match {
		WriteError(w, NewError(KindActorSpoofed, "activity actor does not match signing key owner"))
		return false, nil
	}
	blocked, err := a.s2s.Blocked(c, actors)
	if err != nil {
		return false, err
	}
	if blocked {
		w.WriteHeader(http.StatusOK)
		return false, nil
	}
	return true, nil
}

// PostInbox deduplicates, persists, and side-effects an inbound activity.
// Re-observation of an already-seen id is an idempotent no-op. Dispatch
// errors do not undo persistence.
func (a *sideEffectActor) PostInbox(c context.Context, inboxIRI *url.URL, activity *streams.Activity) (bool, error) {
	id, err := activity.ID.URL()
	if err != nil {
		return false, NewError(KindMalformedBody, "activity id is not an IRI")
	}
	if err := a.db.Lock(c, id); err != nil {
		return false, err
	}
	defer a.db.Unlock(c, id)
	contains, err := a.db.InboxContains(c, inboxIRI, id)
	if err != nil {
		return false, err
	}
	if contains {
		return false, nil
	}
	if err := a.validateIncomingObjects(c, activity); err != nil {
		return false, err
	}
	exists, err := a.db.Exists(c, id)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := a.db.Create(c, activity); err != nil {
			return false, err
		}
	}
	if err := a.db.PrependInboxItem(c, inboxIRI, id); err != nil {
		return false, err
	}
	wrapped, other, err := a.s2s.FederatingCallbacks(c)
	if err != nil {
		return true, err
	}
	wrapped.parent = a
	wrapped.inboxIRI = inboxIRI
	if err := wrapped.dispatch(c, activity, other, a.s2s.DefaultCallback); err != nil {
		return true, err
	}
	return true, nil
}

// validateIncomingObjects is the spoofing check for Update, Like, and
// Announce: the referenced object's stored type and attribution must match
// what the activity embeds.
func (a *sideEffectActor) validateIncomingObjects(c context.Context, activity *streams.Activity) error {
	switch activity.Type {
	case streams.UpdateType, streams.LikeType, streams.AnnounceType:
	default:
		return nil
	}
	for _, ob := range objectItems(activity.Object) {
		embedded, err := streams.ToObject(ob)
		if err != nil || streams.IsIRI(ob) {
			// A reference carries no claims to cross-check.
			continue
		}
		id, err := embedded.ID.URL()
		if err != nil {
			return NewError(KindObjectSpoofed, "embedded object has no id")
		}
		exists, err := a.db.Exists(c, id)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		stored, err := a.db.Get(c, id)
		if err != nil {
			return err
		}
		storedOb, err := streams.ToObject(stored)
		if err != nil {
			return NewError(KindObjectSpoofed, "stored value at %s is not an object", id)
		}
		if storedOb.Type != embedded.Type {
			return NewError(KindObjectSpoofed, "object type does not match stored object at %s", id)
		}
		if !streams.IsNil(embedded.AttributedTo) && !streams.IsNil(storedOb.AttributedTo) &&
			!storedOb.AttributedTo.GetLink().Equals(embedded.AttributedTo.GetLink()) {
			return NewError(KindObjectSpoofed, "object attribution does not match stored object at %s", id)
		}
	}
	return nil
}

// InboxForwarding re-delivers a newly seen activity when it addresses a
// locally-owned collection and transitively references a locally-owned
// object. Only the recipients named by the origin are considered; recursion
// picks up no new ones.
func (a *sideEffectActor) InboxForwarding(c context.Context, inboxIRI *url.URL, activity *streams.Activity) error {
	recipients := append(itemsToURLs(activity.To), itemsToURLs(activity.CC)...)
	recipients = append(recipients, itemsToURLs(activity.Audience)...)
	var localCollections []*url.URL
	for _, r := range recipients {
		owns, err := a.db.Owns(c, r)
		if err != nil {
			return err
		}
		if !owns {
			continue
		}
		if _, err := a.db.CollectionOwner(c, r); err == nil {
			localCollections = append(localCollections, r)
		}
	}
	if len(localCollections) == 0 {
		return nil
	}
	maxDepth := a.s2s.MaxInboxForwardingRecursionDepth(c)
	references, err := a.referencesLocalObject(c, inboxIRI, activity, maxDepth, 0)
	if err != nil {
		return err
	}
	if !references {
		return nil
	}
	filtered, err := a.s2s.FilterForwarding(c, localCollections, activity)
	if err != nil {
		return err
	}
	if len(filtered) == 0 {
		return nil
	}
	t, err := a.common.NewTransport(c, inboxIRI)
	if err != nil {
		return err
	}
	maxDeliveryDepth := a.s2s.MaxDeliveryRecursionDepth(c)
	inboxes, err := a.resolveInboxes(c, t, filtered, maxDeliveryDepth)
	if err != nil {
		return err
	}
	// Do not echo the activity back into the inbox that received it.
	var targets []*url.URL
	for _, u := range inboxes {
		if canonicalKey(u) != canonicalKey(inboxIRI) {
			targets = append(targets, u)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	payload, err := serializeForDelivery(activity)
	if err != nil {
		return err
	}
	return t.BatchDeliver(c, payload, dedupeURLs(targets))
}

// referencesLocalObject walks inReplyTo, object, target, and tag looking for
// a locally-owned object, dereferencing remote references until the depth
// bound.
func (a *sideEffectActor) referencesLocalObject(c context.Context, inboxIRI *url.URL, it streams.Item, maxDepth, depth int) (bool, error) {
	if maxDepth > 0 && depth >= maxDepth {
		return false, nil
	}
	fields := make(streams.ItemCollection, 0, 4)
	if ob, err := streams.ToObject(it); err == nil {
		if !streams.IsNil(ob.InReplyTo) {
			fields = append(fields, ob.InReplyTo)
		}
		fields = append(fields, ob.Tag...)
	}
	if act, err := streams.ToActivity(it); err == nil {
		if !streams.IsNil(act.Object) {
			fields = append(fields, objectItems(act.Object)...)
		}
		if !streams.IsNil(act.Target) {
			fields = append(fields, act.Target)
		}
	}
	for _, f := range fields {
		id, err := toURL(f)
		if err != nil {
			continue
		}
		owns, err := a.db.Owns(c, id)
		if err != nil {
			return false, err
		}
		if owns {
			return true, nil
		}
		next := f
		if streams.IsIRI(f) {
			t, err := a.common.NewTransport(c, inboxIRI)
			if err != nil {
				return false, err
			}
			raw, err := t.Dereference(c, id)
			if err != nil {
				// An unreachable branch cannot name a local object.
				continue
			}
			next, err = streams.ToItem(raw)
			if err != nil {
				continue
			}
		}
		found, err := a.referencesLocalObject(c, inboxIRI, next, maxDepth, depth+1)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// WrapInCreate wraps a bare object in a Create whose actor is the outbox
// owner and whose audience mirrors the object's.
func (a *sideEffectActor) WrapInCreate(c context.Context, it streams.Item, outboxIRI *url.URL) (*streams.Activity, error) {
	actorIRI, err := a.db.ActorForOutbox(c, outboxIRI)
	if err != nil {
		return nil, err
	}
	ob, err := streams.ToObject(it)
	if err != nil {
		return nil, NewError(KindMalformedBody, "request body is not an object")
	}
	if streams.IsNil(ob.AttributedTo) {
		ob.AttributedTo = streams.IRI(actorIRI.String())
	}
	create := streams.CreateNew("", it)
	create.Actor = streams.IRI(actorIRI.String())
	create.To = append(streams.ItemCollection(nil), ob.To...)
	create.Bto = append(streams.ItemCollection(nil), ob.Bto...)
	create.CC = append(streams.ItemCollection(nil), ob.CC...)
	create.BCC = append(streams.ItemCollection(nil), ob.BCC...)
	create.Audience = append(streams.ItemCollection(nil), ob.Audience...)
	return create, nil
}

// AddNewIDs mints the activity id, discarding any client-supplied one, and
// ids for embedded Create objects that lack one.
func (a *sideEffectActor) AddNewIDs(c context.Context, act *streams.Activity) error {
	id, err := a.db.NewID(c, act)
	if err != nil {
		return err
	}
	act.ID = streams.IRI(id.String())
	if act.Published.IsZero() {
		act.Published = a.clock.Now()
	}
	if act.Type != streams.CreateType {
		return nil
	}
	for _, it := range objectItems(act.Object) {
		ob, err := streams.ToObject(it)
		if err != nil {
			continue
		}
		if !ob.ID.IsValid() {
			obID, err := a.db.NewID(c, it)
			if err != nil {
				return err
			}
			ob.ID = streams.IRI(obID.String())
		}
		if ob.Published.IsZero() {
			ob.Published = act.Published
		}
	}
	return nil
}

// PostOutbox validates ownership claims, applies the outgoing side effects,
// and appends the activity to the outbox.
func (a *sideEffectActor) PostOutbox(c context.Context, act *streams.Activity, outboxIRI *url.URL, rawJSON []byte) (bool, error) {
	if err := a.verifyActorAndAttributedTo(c, act, outboxIRI); err != nil {
		return false, err
	}
	if err := a.validateIncomingObjects(c, act); err != nil {
		return false, err
	}
	id, err := act.ID.URL()
	if err != nil {
		return false, NewError(KindMalformedBody, "activity id is not an IRI")
	}
	if err := a.db.Lock(c, id); err != nil {
		return false, err
	}
	defer a.db.Unlock(c, id)
	if err := a.db.Create(c, act); err != nil {
		return false, err
	}
	wrapped, other, err := a.c2s.SocialCallbacks(c)
	if err != nil {
		return false, err
	}
	wrapped.parent = a
	wrapped.outboxIRI = outboxIRI
	if err := wrapped.dispatch(c, act, other, a.c2s.DefaultCallback); err != nil {
		return false, err
	}
	if err := a.db.PrependOutboxItem(c, outboxIRI, id); err != nil {
		return false, err
	}
	return true, nil
}

// verifyActorAndAttributedTo enforces that the activity's actor, and for a
// Create its objects' attribution, equal the authenticated user.
func (a *sideEffectActor) verifyActorAndAttributedTo(c context.Context, act *streams.Activity, outboxIRI *url.URL) error {
	owner, err := a.db.ActorForOutbox(c, outboxIRI)
	if err != nil {
		return err
	}
	ownerIRI := streams.IRI(owner.String())
	if streams.IsNil(act.Actor) {
		act.Actor = ownerIRI
	}
	for _, u := range activityActorURLs(act) {
		if !ownerIRI.Equals(streams.IRI(u.String())) {
			return NewError(KindActorSpoofed, "activity actor is not the authenticated user")
		}
	}
	if act.Type == streams.CreateType {
		for _, it := range objectItems(act.Object) {
			ob, err := streams.ToObject(it)
			if err != nil {
				continue
			}
			if streams.IsNil(ob.AttributedTo) {
				ob.AttributedTo = ownerIRI
				continue
			}
			if !ownerIRI.Equals(ob.AttributedTo.GetLink()) {
				return NewError(KindUnauthorizedCreate, "object is not attributed to the authenticated user")
			}
		}
	}
	return nil
}

// Deliver federates the activity to its expanded recipient set. Without a
// federating protocol there is nowhere to deliver to.
func (a *sideEffectActor) Deliver(c context.Context, outboxIRI *url.URL, act *streams.Activity) error {
	if a.s2s == nil {
		return nil
	}
	recipients, err := a.prepare(c, outboxIRI, act)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}
	payload, err := serializeForDelivery(act)
	if err != nil {
		return err
	}
	t, err := a.common.NewTransport(c, outboxIRI)
	if err != nil {
		return err
	}
	return t.BatchDeliver(c, payload, recipients)
}

// actorCollection reads the actor document and returns the IRI of one of
// its collections.
func (a *sideEffectActor) actorCollection(c context.Context, actorIRI *url.URL, pick func(*streams.Actor) streams.Item) (*url.URL, error) {
	it, err := a.db.Get(c, actorIRI)
	if err != nil {
		return nil, err
	}
	actor, err := streams.ToActor(it)
	if err != nil {
		return nil, NewError(KindNotFound, "%s is not an actor", actorIRI)
	}
	col := pick(actor)
	if streams.IsNil(col) {
		return nil, ErrNotFound
	}
	return toURL(col)
}

func (a *sideEffectActor) GetInbox(c context.Context, r *http.Request) (*streams.CollectionPage, error) {
	if a.s2s == nil {
		return nil, ErrNotFound
	}
	return a.s2s.GetInbox(c, r)
}

func (a *sideEffectActor) GetOutbox(c context.Context, r *http.Request) (*streams.CollectionPage, error) {
	return a.common.GetOutbox(c, r)
}
