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
	"net/url"

	"github.com/halcyon-social/halcyon/streams"
)

// SocialWrappedCallbacks lists the outgoing side effects natively supported
// by the engine. Fields mirror FederatingWrappedCallbacks but apply in the
// outgoing direction.
type SocialWrappedCallbacks struct {
	Create   func(context.Context, *streams.Activity) error
	Update   func(context.Context, *streams.Activity) error
	Delete   func(context.Context, *streams.Activity) error
	Follow   func(context.Context, *streams.Activity) error
	Accept   func(context.Context, *streams.Activity) error
	Reject   func(context.Context, *streams.Activity) error
	Like     func(context.Context, *streams.Activity) error
	Announce func(context.Context, *streams.Activity) error
	Add      func(context.Context, *streams.Activity) error
	Remove   func(context.Context, *streams.Activity) error
	Block    func(context.Context, *streams.Activity) error
	Undo     func(context.Context, *streams.Activity) error

	parent    *sideEffectActor
	outboxIRI *url.URL
}

func (w *SocialWrappedCallbacks) dispatch(c context.Context, act *streams.Activity, other TypeHandlers, def func(context.Context, *streams.Activity) error) error {
	builtin := map[streams.ActivityVocabularyType]func(context.Context, *streams.Activity) error{
		streams.CreateType:   w.create,
		streams.UpdateType:   w.update,
		streams.DeleteType:   w.delete,
		streams.FollowType:   w.follow,
		streams.AcceptType:   w.accept,
		streams.RejectType:   w.reject,
		streams.LikeType:     w.like,
		streams.AnnounceType: w.announce,
		streams.AddType:      w.add,
		streams.RemoveType:   w.remove,
		streams.BlockType:    w.block,
		streams.UndoType:     w.undo,
	}
	if h, ok := builtin[act.Type]; ok {
		return h(c, act)
	}
	if h, ok := other[act.Type]; ok {
		return h(c, act)
	}
	return def(c, act)
}

func (w *SocialWrappedCallbacks) owner(c context.Context) (*url.URL, error) {
	return w.parent.db.ActorForOutbox(c, w.outboxIRI)
}

// create persists the embedded objects so each is retrievable at its own
// IRI.
func (w *SocialWrappedCallbacks) create(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	for _, it := range objectItems(act.Object) {
		ob, err := streams.ToObject(it)
		if err != nil {
			return NewError(KindMalformedBody, "create object must be embedded")
		}
		id, err := ob.ID.URL()
		if err != nil {
			return NewError(KindMalformedBody, "create object has no id")
		}
		if err := db.Lock(c, id); err != nil {
			return err
		}
		err = db.Create(c, it)
		db.Unlock(c, id)
		if err != nil {
			return err
		}
	}
	if w.Create != nil {
		return w.Create(c, act)
	}
	return nil
}

// update fully replaces the stored object. The id and attribution are
// immutable; partial merge is intentionally not supported.
func (w *SocialWrappedCallbacks) update(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	ownerIRI := streams.IRI(owner.String())
	for _, it := range objectItems(act.Object) {
		ob, err := streams.ToObject(it)
		if err != nil {
			return NewError(KindMalformedBody, "update object must be embedded")
		}
		id, err := ob.ID.URL()
		if err != nil {
			return NewError(KindMalformedBody, "update object has no id")
		}
		if err := db.Lock(c, id); err != nil {
			return err
		}
		var stored streams.Item
		stored, err = db.Get(c, id)
		if err == nil {
			storedOb, convErr := streams.ToObject(stored)
			if convErr != nil {
				err = NewError(KindNotFound, "no object stored at %s", id)
			} else if streams.IsNil(storedOb.AttributedTo) || !ownerIRI.Equals(storedOb.AttributedTo.GetLink()) {
				err = NewError(KindActorSpoofed, "update of an object not attributed to the authenticated user")
			} else {
				ob.AttributedTo = storedOb.AttributedTo
				err = db.Update(c, it)
			}
		}
		db.Unlock(c, id)
		if err != nil {
			return err
		}
	}
	if w.Update != nil {
		return w.Update(c, act)
	}
	return nil
}

// delete tombstones the locally stored object.
func (w *SocialWrappedCallbacks) delete(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	ownerIRI := streams.IRI(owner.String())
	for _, it := range objectItems(act.Object) {
		id, err := toURL(it)
		if err != nil {
			return NewError(KindMalformedBody, "delete object has no id")
		}
		if err := db.Lock(c, id); err != nil {
			return err
		}
		var stored streams.Item
		stored, err = db.Get(c, id)
		if err == nil {
			storedOb, convErr := streams.ToObject(stored)
			if convErr != nil || streams.IsNil(storedOb.AttributedTo) || !ownerIRI.Equals(storedOb.AttributedTo.GetLink()) {
				err = NewError(KindActorSpoofed, "delete of an object not attributed to the authenticated user")
			} else {
				err = db.Delete(c, id)
			}
		}
		db.Unlock(c, id)
		if err != nil {
			return err
		}
	}
	if w.Delete != nil {
		return w.Delete(c, act)
	}
	return nil
}

// follow records the pending relationship; following only grows once the
// remote Accept arrives.
func (w *SocialWrappedCallbacks) follow(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		target, err := toURL(it)
		if err != nil {
			continue
		}
		if err := db.Lock(c, owner); err != nil {
			return err
		}
		err = db.Follow(c, owner, target, false)
		db.Unlock(c, owner)
		if err != nil {
			return err
		}
	}
	if w.Follow != nil {
		return w.Follow(c, act)
	}
	return nil
}

// accept approves a Follow received earlier: the relationship becomes
// accepted and the follower joins the followers collection.
func (w *SocialWrappedCallbacks) accept(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		follow, err := w.resolveActivity(c, it)
		if err != nil || follow == nil || follow.Type != streams.FollowType {
			continue
		}
		follower, err := toURL(follow.Actor)
		if err != nil {
			continue
		}
		if err := db.Lock(c, owner); err != nil {
			return err
		}
		err = db.AcceptFollow(c, follower, owner)
		if err == nil {
			var followers *url.URL
			followers, err = w.parent.actorCollection(c, owner, func(a *streams.Actor) streams.Item { return a.Followers })
			if err == nil {
				err = db.AddToCollection(c, followers, follower)
			}
		}
		db.Unlock(c, owner)
		if err != nil {
			return err
		}
	}
	if w.Accept != nil {
		return w.Accept(c, act)
	}
	return nil
}

// reject declines a Follow received earlier.
func (w *SocialWrappedCallbacks) reject(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		follow, err := w.resolveActivity(c, it)
		if err != nil || follow == nil || follow.Type != streams.FollowType {
			continue
		}
		follower, err := toURL(follow.Actor)
		if err != nil {
			continue
		}
		if err := db.Lock(c, owner); err != nil {
			return err
		}
		err = db.Unfollow(c, follower, owner)
		db.Unlock(c, owner)
		if err != nil {
			return err
		}
	}
	if w.Reject != nil {
		return w.Reject(c, act)
	}
	return nil
}

// like appends to the actor's liked collection and, for local objects, to
// the object's likes collection.
func (w *SocialWrappedCallbacks) like(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	actID, err := act.ID.URL()
	if err != nil {
		return NewError(KindMalformedBody, "activity has no id")
	}
	liked, err := w.parent.actorCollection(c, owner, func(a *streams.Actor) streams.Item { return a.Liked })
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		obID, err := toURL(it)
		if err != nil {
			continue
		}
		if err := db.Lock(c, liked); err != nil {
			return err
		}
		err = db.AddToCollection(c, liked, obID)
		db.Unlock(c, liked)
		if err != nil {
			return err
		}
		owns, err := db.Owns(c, obID)
		if err != nil {
			return err
		}
		if owns {
			col := subCollectionIRI(obID, "likes")
			if err := db.Lock(c, col); err != nil {
				return err
			}
			err = db.AddToCollection(c, col, actID)
			db.Unlock(c, col)
			if err != nil {
				return err
			}
		}
	}
	if w.Like != nil {
		return w.Like(c, act)
	}
	return nil
}

// announce appends to the local object's shares collection.
func (w *SocialWrappedCallbacks) announce(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	actID, err := act.ID.URL()
	if err != nil {
		return NewError(KindMalformedBody, "activity has no id")
	}
	for _, it := range objectItems(act.Object) {
		obID, err := toURL(it)
		if err != nil {
			continue
		}
		owns, err := db.Owns(c, obID)
		if err != nil {
			return err
		}
		if !owns {
			continue
		}
		col := subCollectionIRI(obID, "shares")
		if err := db.Lock(c, col); err != nil {
			return err
		}
		err = db.AddToCollection(c, col, actID)
		db.Unlock(c, col)
		if err != nil {
			return err
		}
	}
	if w.Announce != nil {
		return w.Announce(c, act)
	}
	return nil
}

// add inserts the object into the local target collection owned by the
// authenticated user.
func (w *SocialWrappedCallbacks) add(c context.Context, act *streams.Activity) error {
	if err := w.mutateTargetCollection(c, act, w.parent.db.AddToCollection); err != nil {
		return err
	}
	if w.Add != nil {
		return w.Add(c, act)
	}
	return nil
}

func (w *SocialWrappedCallbacks) remove(c context.Context, act *streams.Activity) error {
	if err := w.mutateTargetCollection(c, act, w.parent.db.RemoveFromCollection); err != nil {
		return err
	}
	if w.Remove != nil {
		return w.Remove(c, act)
	}
	return nil
}

func (w *SocialWrappedCallbacks) mutateTargetCollection(c context.Context, act *streams.Activity, mutate func(context.Context, *url.URL, *url.URL) error) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	if streams.IsNil(act.Target) {
		return ErrTargetRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	target, err := toURL(act.Target)
	if err != nil {
		return ErrTargetRequired
	}
	owns, err := db.Owns(c, target)
	if err != nil {
		return err
	}
	if !owns {
		return nil
	}
	colOwner, err := db.CollectionOwner(c, target)
	if err != nil {
		return NewError(KindObjectSpoofed, "target is not a mutable collection")
	}
	if canonicalKey(colOwner) != canonicalKey(owner) {
		return NewError(KindObjectSpoofed, "target collection is not owned by the authenticated user")
	}
	for _, it := range objectItems(act.Object) {
		obID, err := toURL(it)
		if err != nil {
			continue
		}
		if err := db.Lock(c, target); err != nil {
			return err
		}
		err = mutate(c, target, obID)
		db.Unlock(c, target)
		if err != nil {
			return err
		}
	}
	return nil
}

// block records the block. The activity is appended to the outbox but never
// delivered to the blocked actor.
func (w *SocialWrappedCallbacks) block(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		target, err := toURL(it)
		if err != nil {
			continue
		}
		if err := db.Lock(c, owner); err != nil {
			return err
		}
		err = db.Block(c, owner, target)
		db.Unlock(c, owner)
		if err != nil {
			return err
		}
	}
	if w.Block != nil {
		return w.Block(c, act)
	}
	return nil
}

// undo reverts a prior outgoing Follow, Block, Like, or Announce.
func (w *SocialWrappedCallbacks) undo(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := w.owner(c)
	if err != nil {
		return err
	}
	ownerIRI := streams.IRI(owner.String())
	for _, it := range objectItems(act.Object) {
		undone, err := w.resolveActivity(c, it)
		if err != nil || undone == nil {
			continue
		}
		undoneActor, err := toURL(undone.Actor)
		if err != nil || !ownerIRI.Equals(streams.IRI(undoneActor.String())) {
			return NewError(KindActorSpoofed, "undo of an activity by another actor")
		}
		switch undone.Type {
		case streams.FollowType:
			for _, target := range objectItems(undone.Object) {
				targetURL, err := toURL(target)
				if err != nil {
					continue
				}
				if err := db.Lock(c, owner); err != nil {
					return err
				}
				err = db.Unfollow(c, owner, targetURL)
				if err == nil {
					var following *url.URL
					following, err = w.parent.actorCollection(c, owner, func(a *streams.Actor) streams.Item { return a.Following })
					if err == nil {
						err = db.RemoveFromCollection(c, following, targetURL)
					}
				}
				db.Unlock(c, owner)
				if err != nil {
					return err
				}
			}
		case streams.BlockType:
			for _, target := range objectItems(undone.Object) {
				targetURL, err := toURL(target)
				if err != nil {
					continue
				}
				if err := db.Lock(c, owner); err != nil {
					return err
				}
				err = db.Unblock(c, owner, targetURL)
				db.Unlock(c, owner)
				if err != nil {
					return err
				}
			}
		case streams.LikeType, streams.AnnounceType:
			sub := "likes"
			if undone.Type == streams.AnnounceType {
				sub = "shares"
			}
			undoneID, err := undone.ID.URL()
			if err != nil {
				continue
			}
			for _, target := range objectItems(undone.Object) {
				obID, err := toURL(target)
				if err != nil {
					continue
				}
				if undone.Type == streams.LikeType {
					liked, err := w.parent.actorCollection(c, owner, func(a *streams.Actor) streams.Item { return a.Liked })
					if err == nil {
						if err := db.Lock(c, liked); err != nil {
							return err
						}
						err = db.RemoveFromCollection(c, liked, obID)
						db.Unlock(c, liked)
						if err != nil {
							return err
						}
					}
				}
				owns, err := db.Owns(c, obID)
				if err != nil || !owns {
					continue
				}
				col := subCollectionIRI(obID, sub)
				if err := db.Lock(c, col); err != nil {
					return err
				}
				err = db.RemoveFromCollection(c, col, undoneID)
				db.Unlock(c, col)
				if err != nil {
					return err
				}
			}
		default:
			return NewError(KindUndoTypeNotSupported, "cannot undo a %s", undone.Type)
		}
	}
	if w.Undo != nil {
		return w.Undo(c, act)
	}
	return nil
}

func (w *SocialWrappedCallbacks) resolveActivity(c context.Context, it streams.Item) (*streams.Activity, error) {
	if act, err := streams.ToActivity(it); err == nil {
		return act, nil
	}
	id, err := toURL(it)
	if err != nil {
		return nil, err
	}
	stored, err := w.parent.db.Get(c, id)
	if err != nil {
		return nil, err
	}
	return streams.ToActivity(stored)
}
