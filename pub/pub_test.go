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
	"strings"
	"sync"
	"time"

	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

const localHost = "example.com"

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

// fakeDatabase is an in-memory Database for pipeline tests.
type fakeDatabase struct {
	mu          sync.Mutex
	store       map[string]streams.Item
	inboxes     map[string][]string
	outboxes    map[string][]string
	collections map[string][]string
	follows     map[string]bool // "follower target" -> accepted
	blocks      map[string]bool // "owner target"
	createCalls int
	clock       fakeClock
}

func newFakeDatabase(clock fakeClock) *fakeDatabase {
	return &fakeDatabase{
		store:       make(map[string]streams.Item),
		inboxes:     make(map[string][]string),
		outboxes:    make(map[string][]string),
		collections: make(map[string][]string),
		follows:     make(map[string]bool),
		blocks:      make(map[string]bool),
		clock:       clock,
	}
}

func key(u *url.URL) string { return paths.Normalize(u).String() }

func (f *fakeDatabase) Lock(c context.Context, id *url.URL) error   { return nil }
func (f *fakeDatabase) Unlock(c context.Context, id *url.URL) error { return nil }

func (f *fakeDatabase) Owns(c context.Context, id *url.URL) (bool, error) {
	return id.Host == localHost, nil
}

func (f *fakeDatabase) Exists(c context.Context, id *url.URL) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.store[key(id)]
	return ok, nil
}

func (f *fakeDatabase) Get(c context.Context, id *url.URL) (streams.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.store[key(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return it, nil
}

func (f *fakeDatabase) Create(c context.Context, it streams.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := it.GetID().URL()
	if err != nil {
		return err
	}
	f.createCalls++
	f.store[key(u)] = it
	return nil
}

func (f *fakeDatabase) Update(c context.Context, it streams.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := it.GetID().URL()
	if err != nil {
		return err
	}
	f.store[key(u)] = it
	return nil
}

func (f *fakeDatabase) Delete(c context.Context, id *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.store[key(id)]
	if !ok {
		return ErrNotFound
	}
	ob, err := streams.ToObject(it)
	if err != nil {
		return err
	}
	f.store[key(id)] = streams.TombstoneFor(ob, f.clock.Now())
	return nil
}

func (f *fakeDatabase) NewID(c context.Context, it streams.Item) (*url.URL, error) {
	owner := "alyssa"
	kind := paths.ObjectPathKey
	if act, err := streams.ToActivity(it); err == nil {
		kind = paths.ActivityPathKey
		if !streams.IsNil(act.Actor) {
			if u, err := act.Actor.GetLink().URL(); err == nil {
				if name, err := paths.UserFromPath(u.Path); err == nil {
					owner = name
				}
			}
		}
	} else if ob, err := streams.ToObject(it); err == nil && !streams.IsNil(ob.AttributedTo) {
		if u, err := ob.AttributedTo.GetLink().URL(); err == nil {
			if name, err := paths.UserFromPath(u.Path); err == nil {
				owner = name
			}
		}
	}
	return paths.UserDataIRIFor("https", localHost, kind, owner, paths.NewULID(f.clock.Now())), nil
}

func (f *fakeDatabase) InboxContains(c context.Context, inbox, id *url.URL) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.inboxes[key(inbox)] {
		if v == key(id) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDatabase) PrependInboxItem(c context.Context, inbox, item *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inboxes[key(inbox)] = append([]string{key(item)}, f.inboxes[key(inbox)]...)
	return nil
}

func (f *fakeDatabase) PrependOutboxItem(c context.Context, outbox, item *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outboxes[key(outbox)] = append([]string{key(item)}, f.outboxes[key(outbox)]...)
	return nil
}

func trimBox(box *url.URL, suffix string) *url.URL {
	c := *box
	c.Path = strings.TrimSuffix(strings.TrimSuffix(c.Path, "/"), "/"+suffix)
	c.RawQuery = ""
	return &c
}

func (f *fakeDatabase) ActorForInbox(c context.Context, inbox *url.URL) (*url.URL, error) {
	return trimBox(inbox, "inbox"), nil
}

func (f *fakeDatabase) ActorForOutbox(c context.Context, outbox *url.URL) (*url.URL, error) {
	return trimBox(outbox, "outbox"), nil
}

func (f *fakeDatabase) OutboxForInbox(c context.Context, inbox *url.URL) (*url.URL, error) {
	actor := trimBox(inbox, "inbox")
	o := *actor
	o.Path += "/outbox"
	return &o, nil
}

func (f *fakeDatabase) AddToCollection(c context.Context, collection, item *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(collection)
	for _, v := range f.collections[k] {
		if v == key(item) {
			return nil
		}
	}
	f.collections[k] = append(f.collections[k], key(item))
	return nil
}

func (f *fakeDatabase) RemoveFromCollection(c context.Context, collection, item *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(collection)
	out := f.collections[k][:0]
	for _, v := range f.collections[k] {
		if v != key(item) {
			out = append(out, v)
		}
	}
	f.collections[k] = out
	return nil
}

func (f *fakeDatabase) CollectionContains(c context.Context, collection, item *url.URL) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.collections[key(collection)] {
		if v == key(item) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDatabase) CollectionOwner(c context.Context, collection *url.URL) (*url.URL, error) {
	if !paths.IsCollectionPath(collection) {
		return nil, ErrNotFound
	}
	user, err := paths.UserFromPath(collection.Path)
	if err != nil {
		return nil, ErrNotFound
	}
	return paths.UserIRIFor(collection.Scheme, collection.Host, paths.UserPathKey, user), nil
}

func (f *fakeDatabase) CollectionItems(c context.Context, collection *url.URL) (streams.IRIs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out streams.IRIs
	for _, v := range f.collections[key(collection)] {
		out = append(out, streams.IRI(v))
	}
	return out, nil
}

func relKey(a, b *url.URL) string { return key(a) + " " + key(b) }

func (f *fakeDatabase) Follow(c context.Context, follower, target *url.URL, accepted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.follows[relKey(follower, target)] = accepted
	return nil
}

func (f *fakeDatabase) AcceptFollow(c context.Context, follower, target *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.follows[relKey(follower, target)] = true
	return nil
}

func (f *fakeDatabase) Unfollow(c context.Context, follower, target *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.follows, relKey(follower, target))
	return nil
}

func (f *fakeDatabase) Block(c context.Context, owner, target *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[relKey(owner, target)] = true
	return nil
}

func (f *fakeDatabase) Unblock(c context.Context, owner, target *url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocks, relKey(owner, target))
	return nil
}

func (f *fakeDatabase) AnyBlocked(c context.Context, owner *url.URL, actors []*url.URL) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range actors {
		if f.blocks[relKey(owner, a)] {
			return true, nil
		}
	}
	return false, nil
}

// fakeTransport records deliveries and serves remote documents from a map.
type fakeTransport struct {
	mu         sync.Mutex
	remote     map[string][]byte
	deliveries []delivery
}

type delivery struct {
	to      string
	payload []byte
}

func (t *fakeTransport) Dereference(c context.Context, iri *url.URL) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.remote[iri.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (t *fakeTransport) Deliver(c context.Context, b []byte, to *url.URL) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deliveries = append(t.deliveries, delivery{to: to.String(), payload: b})
	return nil
}

func (t *fakeTransport) BatchDeliver(c context.Context, b []byte, recipients []*url.URL) error {
	for _, r := range recipients {
		if err := t.Deliver(c, b, r); err != nil {
			return err
		}
	}
	return nil
}

func (t *fakeTransport) sent() []delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]delivery, len(t.deliveries))
	copy(out, t.deliveries)
	return out
}

// fakeCommon implements CommonBehavior.
type fakeCommon struct {
	t *fakeTransport
}

func (f *fakeCommon) AuthenticateGetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	return c, true, nil
}

func (f *fakeCommon) AuthenticateGetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	return c, true, nil
}

func (f *fakeCommon) GetOutbox(c context.Context, r *http.Request) (*streams.CollectionPage, error) {
	return streams.OrderedCollectionPageNew("", nil), nil
}

func (f *fakeCommon) NewTransport(c context.Context, actorBoxIRI *url.URL) (Transport, error) {
	return f.t, nil
}

// fakeFederating implements FederatingProtocol.
type fakeFederating struct {
	db       *fakeDatabase
	signer   *url.URL
	onFollow OnFollowBehavior
}

func (f *fakeFederating) PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error) {
	uc := &util.Context{Context: c}
	uc.WithActivity(activity)
	return uc.Context, nil
}

func (f *fakeFederating) AuthenticatePostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	if f.signer == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return c, false, nil
	}
	uc := &util.Context{Context: c}
	uc.WithRequestSignedBy(f.signer)
	return uc.Context, true, nil
}

func (f *fakeFederating) Blocked(c context.Context, actorIRIs []*url.URL) (bool, error) {
	uc := util.Context{Context: c}
	recipient, err := uc.ActorIRI()
	if err != nil {
		return false, nil
	}
	return f.db.AnyBlocked(c, recipient, actorIRIs)
}

func (f *fakeFederating) FederatingCallbacks(c context.Context) (FederatingWrappedCallbacks, TypeHandlers, error) {
	return FederatingWrappedCallbacks{OnFollow: f.onFollow}, nil, nil
}

func (f *fakeFederating) DefaultCallback(c context.Context, activity *streams.Activity) error {
	return nil
}

func (f *fakeFederating) MaxInboxForwardingRecursionDepth(c context.Context) int { return 4 }
func (f *fakeFederating) MaxDeliveryRecursionDepth(c context.Context) int        { return 4 }

func (f *fakeFederating) FilterForwarding(c context.Context, potential []*url.URL, a *streams.Activity) ([]*url.URL, error) {
	return potential, nil
}

func (f *fakeFederating) GetInbox(c context.Context, r *http.Request) (*streams.CollectionPage, error) {
	return streams.OrderedCollectionPageNew("", nil), nil
}

func (f *fakeFederating) ResolveInboxIRIs(c context.Context, receivers, hidden []*url.URL) ([]*url.URL, []*url.URL, error) {
	return nil, append(receivers, hidden...), nil
}

// fakeSocial implements SocialProtocol.
type fakeSocial struct {
	user *url.URL
}

func (f *fakeSocial) PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error) {
	return c, nil
}

func (f *fakeSocial) AuthenticatePostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	if f.user == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return c, false, nil
	}
	uc := &util.Context{Context: c}
	uc.WithCurrentUserIRI(f.user)
	return uc.Context, true, nil
}

func (f *fakeSocial) SocialCallbacks(c context.Context) (SocialWrappedCallbacks, TypeHandlers, error) {
	return SocialWrappedCallbacks{}, nil, nil
}

func (f *fakeSocial) DefaultCallback(c context.Context, activity *streams.Activity) error {
	return nil
}

// mustURL parses or panics; test helper.
func mustURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
