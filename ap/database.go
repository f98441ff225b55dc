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
	"database/sql"
	"errors"
	"net/url"
	"sync"

	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

var _ pub.Database = &Database{}

// Database adapts the services layer to the protocol engine's storage
// capability.
type Database struct {
	Scheme        string
	Host          string
	Data          *services.Data
	Users         *services.Users
	Collections   *services.Collections
	Relationships *services.Relationships
	Clock         pub.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock serializes writers of the id. Collection updates for the same
// (owner, kind) take the same lock.
func (d *Database) Lock(c context.Context, id *url.URL) error {
	d.lockFor(id).Lock()
	return nil
}

func (d *Database) Unlock(c context.Context, id *url.URL) error {
	d.lockFor(id).Unlock()
	return nil
}

func (d *Database) lockFor(id *url.URL) *sync.Mutex {
	key := paths.Normalize(id).String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locks == nil {
		d.locks = make(map[string]*sync.Mutex)
	}
	m, ok := d.locks[key]
	if !ok {
		m = &sync.Mutex{}
		d.locks[key] = m
	}
	return m
}

func (d *Database) Owns(c context.Context, id *url.URL) (bool, error) {
	return d.Data.Owns(id), nil
}

func (d *Database) Exists(c context.Context, id *url.URL) (bool, error) {
	return d.Data.Exists(util.Context{Context: c}, id)
}

func (d *Database) Get(c context.Context, id *url.URL) (streams.Item, error) {
	it, err := d.Data.Get(util.Context{Context: c}, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pub.ErrNotFound
	}
	return it, err
}

func (d *Database) Create(c context.Context, it streams.Item) error {
	return d.Data.Create(util.Context{Context: c}, it)
}

func (d *Database) Update(c context.Context, it streams.Item) error {
	return d.Data.Update(util.Context{Context: c}, it)
}

func (d *Database) Delete(c context.Context, id *url.URL) error {
	return d.Data.Delete(util.Context{Context: c}, id)
}

// NewID mints a ULID-based IRI under the owning actor.
func (d *Database) NewID(c context.Context, it streams.Item) (*url.URL, error) {
	kind := paths.ObjectPathKey
	var owner streams.Item
	if act, err := streams.ToActivity(it); err == nil {
		kind = paths.ActivityPathKey
		owner = act.Actor
	} else if ob, err := streams.ToObject(it); err == nil {
		owner = ob.AttributedTo
	}
	user := ""
	if !streams.IsNil(owner) {
		if u, err := owner.GetLink().URL(); err == nil {
			if name, err := paths.UserFromPath(u.Path); err == nil {
				user = name
			}
		}
	}
	if user == "" {
		// Fall back to the actor addressed by the current request.
		uc := util.Context{Context: c}
		actorIRI, err := uc.ActorIRI()
		if err != nil {
			return nil, pub.NewError(pub.KindActorRequired, "cannot determine the owner for a new id")
		}
		name, err := paths.UserFromPath(actorIRI.Path)
		if err != nil {
			return nil, err
		}
		user = name
	}
	return paths.UserDataIRIFor(d.Scheme, d.Host, kind, user, paths.NewULID(d.Clock.Now())), nil
}

func (d *Database) InboxContains(c context.Context, inbox, id *url.URL) (bool, error) {
	return d.Collections.Contains(util.Context{Context: c}, inbox, id)
}

func (d *Database) PrependInboxItem(c context.Context, inbox, item *url.URL) error {
	return d.prependBoxItem(c, inbox, item)
}

func (d *Database) PrependOutboxItem(c context.Context, outbox, item *url.URL) error {
	return d.prependBoxItem(c, outbox, item)
}

// prependBoxItem orders box entries by the item's own ULID when its path
// carries one, so local activity order matches (published, id); entries
// without one order by receipt time.
func (d *Database) prependBoxItem(c context.Context, box, item *url.URL) error {
	uc := util.Context{Context: c}
	now := d.Clock.Now()
	if ulid, err := paths.ULIDFromPath(item.Path); err == nil {
		return d.Collections.AddWithOrd(uc, box, item, ulid, ulid.Time())
	}
	return d.Collections.Add(uc, box, item, now)
}

func (d *Database) ActorForInbox(c context.Context, inbox *url.URL) (*url.URL, error) {
	return d.Users.ActorIDForInbox(util.Context{Context: c}, inbox)
}

func (d *Database) ActorForOutbox(c context.Context, outbox *url.URL) (*url.URL, error) {
	return d.Users.ActorIDForOutbox(util.Context{Context: c}, outbox)
}

func (d *Database) OutboxForInbox(c context.Context, inbox *url.URL) (*url.URL, error) {
	return d.Users.OutboxForInbox(util.Context{Context: c}, inbox)
}

func (d *Database) AddToCollection(c context.Context, collection, item *url.URL) error {
	return d.prependBoxItem(c, collection, item)
}

func (d *Database) RemoveFromCollection(c context.Context, collection, item *url.URL) error {
	return d.Collections.Remove(util.Context{Context: c}, collection, item)
}

func (d *Database) CollectionContains(c context.Context, collection, item *url.URL) (bool, error) {
	return d.Collections.Contains(util.Context{Context: c}, collection, item)
}

func (d *Database) CollectionOwner(c context.Context, collection *url.URL) (*url.URL, error) {
	owner, err := d.Collections.Owner(collection)
	if err != nil {
		return nil, pub.ErrNotFound
	}
	return owner, nil
}

func (d *Database) CollectionItems(c context.Context, collection *url.URL) (streams.IRIs, error) {
	return d.Collections.Items(util.Context{Context: c}, collection)
}

func (d *Database) Follow(c context.Context, follower, target *url.URL, accepted bool) error {
	return d.Relationships.Follow(util.Context{Context: c}, follower, target, accepted)
}

func (d *Database) AcceptFollow(c context.Context, follower, target *url.URL) error {
	return d.Relationships.AcceptFollow(util.Context{Context: c}, follower, target)
}

func (d *Database) Unfollow(c context.Context, follower, target *url.URL) error {
	return d.Relationships.Unfollow(util.Context{Context: c}, follower, target)
}

func (d *Database) Block(c context.Context, owner, target *url.URL) error {
	return d.Relationships.Block(util.Context{Context: c}, owner, target)
}

func (d *Database) Unblock(c context.Context, owner, target *url.URL) error {
	return d.Relationships.Unblock(util.Context{Context: c}, owner, target)
}

func (d *Database) AnyBlocked(c context.Context, owner *url.URL, actors []*url.URL) (bool, error) {
	return d.Relationships.AnyBlocked(util.Context{Context: c}, owner, actors)
}
