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

// Package pub implements the ActivityPub side-effect actor: the protocol
// state machine that receives, authenticates, validates, side-effects, and
// fans out activities between local and remote actors.
package pub

import (
	"context"
	"net/url"
	"time"

	"github.com/halcyon-social/halcyon/streams"
)

// Clock determines the time for the protocol's Date headers, published
// stamps, and tombstones.
type Clock interface {
	Now() time.Time
}

// Transport makes outbound HTTP requests on behalf of a local actor, signing
// them with the actor's key.
type Transport interface {
	// Dereference fetches the IRI with ActivityStreams content negotiation
	// and returns the raw response body.
	Dereference(c context.Context, iri *url.URL) ([]byte, error)
	// Deliver POSTs the payload to a single federated inbox.
	Deliver(c context.Context, b []byte, to *url.URL) error
	// BatchDeliver POSTs the payload to each federated inbox.
	BatchDeliver(c context.Context, b []byte, recipients []*url.URL) error
}

// Database is the storage capability the side-effect actor mutates. All
// writes are single-writer per (actor, collection); callers bracket related
// reads and writes between Lock and Unlock of the owning id.
type Database interface {
	// Lock takes the write lock associated with the id.
	Lock(c context.Context, id *url.URL) error
	// Unlock releases the write lock associated with the id.
	Unlock(c context.Context, id *url.URL) error

	// Owns reports whether the IRI belongs to this server.
	Owns(c context.Context, id *url.URL) (bool, error)
	// Exists reports whether a record is stored under the id.
	Exists(c context.Context, id *url.URL) (bool, error)
	// Get returns the stored value at the id. A deleted local object
	// returns its Tombstone.
	Get(c context.Context, id *url.URL) (streams.Item, error)
	// Create stores a new value under its id.
	Create(c context.Context, it streams.Item) error
	// Update replaces the stored value at the item's id.
	Update(c context.Context, it streams.Item) error
	// Delete removes the value; locally owned objects are replaced by a
	// Tombstone that keeps responding at the same IRI.
	Delete(c context.Context, id *url.URL) error
	// NewID mints a fresh IRI for the value, under the owning actor.
	NewID(c context.Context, it streams.Item) (*url.URL, error)

	// InboxContains reports whether the inbox already holds the activity.
	InboxContains(c context.Context, inbox, id *url.URL) (bool, error)
	// PrependInboxItem atomically prepends the item to the inbox.
	PrependInboxItem(c context.Context, inbox, item *url.URL) error
	// PrependOutboxItem atomically prepends the item to the outbox.
	PrependOutboxItem(c context.Context, outbox, item *url.URL) error
	// ActorForInbox resolves the inbox IRI to its owning actor.
	ActorForInbox(c context.Context, inbox *url.URL) (*url.URL, error)
	// ActorForOutbox resolves the outbox IRI to its owning actor.
	ActorForOutbox(c context.Context, outbox *url.URL) (*url.URL, error)
	// OutboxForInbox resolves an inbox to the same actor's outbox.
	OutboxForInbox(c context.Context, inbox *url.URL) (*url.URL, error)

	// AddToCollection idempotently adds the item to a local collection.
	AddToCollection(c context.Context, collection, item *url.URL) error
	// RemoveFromCollection removes the item from a local collection.
	RemoveFromCollection(c context.Context, collection, item *url.URL) error
	// CollectionContains reports membership in a local collection.
	CollectionContains(c context.Context, collection, item *url.URL) (bool, error)
	// CollectionOwner resolves a local collection to its owning actor.
	CollectionOwner(c context.Context, collection *url.URL) (*url.URL, error)
	// CollectionItems lists the member IRIs of a local collection.
	CollectionItems(c context.Context, collection *url.URL) (streams.IRIs, error)

	// Follow records a relationship in the given state.
	Follow(c context.Context, follower, target *url.URL, accepted bool) error
	// AcceptFollow transitions a pending relationship to accepted.
	AcceptFollow(c context.Context, follower, target *url.URL) error
	// Unfollow removes the relationship regardless of state.
	Unfollow(c context.Context, follower, target *url.URL) error
	// Block records a block of target by owner.
	Block(c context.Context, owner, target *url.URL) error
	// Unblock removes a block.
	Unblock(c context.Context, owner, target *url.URL) error
	// AnyBlocked reports whether the owner blocks any of the actors.
	AnyBlocked(c context.Context, owner *url.URL, actors []*url.URL) (bool, error)
}
