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
	"github.com/halcyon-social/halcyon/util"
)

// FederatingWrappedCallbacks lists the inbound side effects natively
// supported by the engine. An application may set any field to dependency
// inject extra behavior running after the built-in one.
type FederatingWrappedCallbacks struct {
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

	// OnFollow selects how incoming Follow activities are handled.
	OnFollow OnFollowBehavior

	parent   *sideEffectActor
	inboxIRI *url.URL
}

// dispatch routes the activity to the built-in handler for its type, then to
// the application's injected extra, or to the other/default handlers for
// types outside the built-in set.
func (w *FederatingWrappedCallbacks) dispatch(c context.Context, act *streams.Activity, other TypeHandlers, def func(context.Context, *streams.Activity) error) error {
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

func (w *FederatingWrappedCallbacks) signer(c context.Context) (*url.URL, error) {
	uc := util.Context{Context: c}
	return uc.RequestSignedBy()
}

// create persists each embedded object of the activity.
func (w *FederatingWrappedCallbacks) create(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	for _, it := range objectItems(act.Object) {
		ob, err := streams.ToObject(it)
		if err != nil {
			continue
		}
		if !ob.ID.IsValid() {
			return NewError(KindMalformedBody, "created object has no id")
		}
		id, err := ob.ID.URL()
		if err != nil {
			return NewError(KindMalformedBody, "created object id is not an IRI")
		}
		if err := db.Lock(c, id); err != nil {
			return err
		}
		exists, err := db.Exists(c, id)
		if err == nil && !exists {
			err = db.Create(c, it)
		}
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

// update performs a complete replacement of the stored object, provided the
// signer owns it.
func (w *FederatingWrappedCallbacks) update(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	signer, err := w.signer(c)
	if err != nil {
		return err
	}
	db := w.parent.db
	for _, it := range objectItems(act.Object) {
		ob, err := streams.ToObject(it)
		if err != nil {
			return NewError(KindMalformedBody, "update object must be embedded")
		}
		if streams.IsNil(ob.AttributedTo) ||
			!ob.AttributedTo.GetLink().Equals(streams.IRI(signer.String())) {
			return NewError(KindActorSpoofed, "update of an object not attributed to the signer")
		}
		id, err := ob.ID.URL()
		if err != nil {
			return NewError(KindMalformedBody, "update object has no id")
		}
		if err := db.Lock(c, id); err != nil {
			return err
		}
		err = db.Update(c, it)
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

// delete replaces the stored object with a Tombstone.
func (w *FederatingWrappedCallbacks) delete(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	signer, err := w.signer(c)
	if err != nil {
		return err
	}
	db := w.parent.db
	for _, it := range objectItems(act.Object) {
		id, err := toURL(it)
		if err != nil {
			return NewError(KindMalformedBody, "delete object has no id")
		}
		// Only the origin may delete: same authority as the signing actor.
		if id.Host != signer.Host {
			return NewError(KindActorSpoofed, "delete of an object from another origin")
		}
		if err := db.Lock(c, id); err != nil {
			return err
		}
		err = db.Delete(c, id)
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

// follow records the relationship and, per the OnFollow policy, answers with
// an Accept or Reject delivered back to the follower.
func (w *FederatingWrappedCallbacks) follow(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	recipient, err := db.ActorForInbox(c, w.inboxIRI)
	if err != nil {
		return err
	}
	follower, err := toURL(act.Actor)
	if err != nil {
		return ErrActorRequired
	}
	// The Follow must name this actor as its object.
	targeted := false
	for _, it := range objectItems(act.Object) {
		if u, err := toURL(it); err == nil && canonicalKey(u) == canonicalKey(recipient) {
			targeted = true
			break
		}
	}
	if !targeted {
		return NewError(KindObjectSpoofed, "follow does not target the receiving actor")
	}
	switch w.OnFollow {
	case OnFollowAutomaticallyAccept:
		if err := db.Lock(c, recipient); err != nil {
			return err
		}
		err = db.Follow(c, follower, recipient, true)
		if err == nil {
			var followers *url.URL
			followers, err = w.parent.actorCollection(c, recipient, func(a *streams.Actor) streams.Item { return a.Followers })
			if err == nil {
				err = db.AddToCollection(c, followers, follower)
			}
		}
		db.Unlock(c, recipient)
		if err != nil {
			return err
		}
		response := streams.AcceptNew("", act)
		if err := w.respondToFollow(c, recipient, follower, response); err != nil {
			return err
		}
	case OnFollowAutomaticallyReject:
		response := streams.RejectNew("", act)
		if err := w.respondToFollow(c, recipient, follower, response); err != nil {
			return err
		}
	case OnFollowDoNothing:
		if err := db.Lock(c, recipient); err != nil {
			return err
		}
		err = db.Follow(c, follower, recipient, false)
		db.Unlock(c, recipient)
		if err != nil {
			return err
		}
	}
	if w.Follow != nil {
		return w.Follow(c, act)
	}
	return nil
}

// respondToFollow mints, persists, and delivers the synthesized Accept or
// Reject to the follower's inbox.
func (w *FederatingWrappedCallbacks) respondToFollow(c context.Context, recipient, follower *url.URL, response *streams.Activity) error {
	db := w.parent.db
	response.Actor = streams.IRI(recipient.String())
	response.To = streams.ItemCollection{streams.IRI(follower.String())}
	if err := w.parent.AddNewIDs(c, response); err != nil {
		return err
	}
	id, err := response.ID.URL()
	if err != nil {
		return err
	}
	if err := db.Lock(c, id); err != nil {
		return err
	}
	err = db.Create(c, response)
	db.Unlock(c, id)
	if err != nil {
		return err
	}
	outboxIRI, err := db.OutboxForInbox(c, w.inboxIRI)
	if err != nil {
		return err
	}
	if err := db.PrependOutboxItem(c, outboxIRI, id); err != nil {
		return err
	}
	return w.parent.Deliver(c, outboxIRI, response)
}

// accept marks a previously-sent Follow as accepted and extends the
// recipient's following collection.
func (w *FederatingWrappedCallbacks) accept(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	recipient, err := db.ActorForInbox(c, w.inboxIRI)
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		follow, err := w.resolveActivity(c, it)
		if err != nil || follow == nil || follow.Type != streams.FollowType {
			continue
		}
		followActor, err := toURL(follow.Actor)
		if err != nil || canonicalKey(followActor) != canonicalKey(recipient) {
			// Not a Follow this actor sent; nothing to accept.
			continue
		}
		for _, target := range objectItems(follow.Object) {
			targetURL, err := toURL(target)
			if err != nil {
				continue
			}
			if err := db.Lock(c, recipient); err != nil {
				return err
			}
			err = db.AcceptFollow(c, recipient, targetURL)
			if err == nil {
				var following *url.URL
				following, err = w.parent.actorCollection(c, recipient, func(a *streams.Actor) streams.Item { return a.Following })
				if err == nil {
					err = db.AddToCollection(c, following, targetURL)
				}
			}
			db.Unlock(c, recipient)
			if err != nil {
				return err
			}
		}
	}
	if w.Accept != nil {
		return w.Accept(c, act)
	}
	return nil
}

// reject removes the pending relationship of a previously-sent Follow. The
// target is never added to following.
func (w *FederatingWrappedCallbacks) reject(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	recipient, err := db.ActorForInbox(c, w.inboxIRI)
	if err != nil {
		return err
	}
	for _, it := range objectItems(act.Object) {
		follow, err := w.resolveActivity(c, it)
		if err != nil || follow == nil || follow.Type != streams.FollowType {
			continue
		}
		followActor, err := toURL(follow.Actor)
		if err != nil || canonicalKey(followActor) != canonicalKey(recipient) {
			continue
		}
		for _, target := range objectItems(follow.Object) {
			targetURL, err := toURL(target)
			if err != nil {
				continue
			}
			if err := db.Lock(c, recipient); err != nil {
				return err
			}
			err = db.Unfollow(c, recipient, targetURL)
			db.Unlock(c, recipient)
			if err != nil {
				return err
			}
		}
	}
	if w.Reject != nil {
		return w.Reject(c, act)
	}
	return nil
}

// like appends the activity to the liked object's likes collection, if the
// object is locally owned.
func (w *FederatingWrappedCallbacks) like(c context.Context, act *streams.Activity) error {
	return w.appendToObjectCollection(c, act, "likes", w.Like)
}

// announce appends the activity to the shared object's shares collection.
func (w *FederatingWrappedCallbacks) announce(c context.Context, act *streams.Activity) error {
	return w.appendToObjectCollection(c, act, "shares", w.Announce)
}

func (w *FederatingWrappedCallbacks) appendToObjectCollection(c context.Context, act *streams.Activity, sub string, extra func(context.Context, *streams.Activity) error) error {
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
		col := subCollectionIRI(obID, sub)
		if err := db.Lock(c, col); err != nil {
			return err
		}
		err = db.AddToCollection(c, col, actID)
		db.Unlock(c, col)
		if err != nil {
			return err
		}
	}
	if extra != nil {
		return extra(c, act)
	}
	return nil
}

// add inserts the object into a locally-owned target collection, when the
// signer is permitted to mutate it.
func (w *FederatingWrappedCallbacks) add(c context.Context, act *streams.Activity) error {
	if err := w.mutateTargetCollection(c, act, w.parent.db.AddToCollection); err != nil {
		return err
	}
	if w.Add != nil {
		return w.Add(c, act)
	}
	return nil
}

// remove is symmetric to add.
func (w *FederatingWrappedCallbacks) remove(c context.Context, act *streams.Activity) error {
	if err := w.mutateTargetCollection(c, act, w.parent.db.RemoveFromCollection); err != nil {
		return err
	}
	if w.Remove != nil {
		return w.Remove(c, act)
	}
	return nil
}

func (w *FederatingWrappedCallbacks) mutateTargetCollection(c context.Context, act *streams.Activity, mutate func(context.Context, *url.URL, *url.URL) error) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	if streams.IsNil(act.Target) {
		return ErrTargetRequired
	}
	db := w.parent.db
	signer, err := w.signer(c)
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
		// Remote targets are mutated by their own servers.
		return nil
	}
	owner, err := db.CollectionOwner(c, target)
	if err != nil {
		return NewError(KindObjectSpoofed, "target is not a mutable collection")
	}
	if canonicalKey(owner) != canonicalKey(signer) {
		return NewError(KindObjectSpoofed, "target collection is not owned by the signer")
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

// block records the block; the engine never forwards nor exposes the block
// to the blocked party.
func (w *FederatingWrappedCallbacks) block(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	owner, err := toURL(act.Actor)
	if err != nil {
		return ErrActorRequired
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

// undo reverts the side effect of a prior Accept, Follow, Block, Like, or
// Announce. The undoing actor must equal the undone activity's actor.
func (w *FederatingWrappedCallbacks) undo(c context.Context, act *streams.Activity) error {
	if streams.IsNil(act.Object) {
		return ErrObjectRequired
	}
	db := w.parent.db
	recipient, err := db.ActorForInbox(c, w.inboxIRI)
	if err != nil {
		return err
	}
	undoer, err := toURL(act.Actor)
	if err != nil {
		return ErrActorRequired
	}
	for _, it := range objectItems(act.Object) {
		undone, err := w.resolveActivity(c, it)
		if err != nil || undone == nil {
			continue
		}
		undoneActor, err := toURL(undone.Actor)
		if err != nil || canonicalKey(undoneActor) != canonicalKey(undoer) {
			return NewError(KindActorSpoofed, "undo of an activity by another actor")
		}
		switch undone.Type {
		case streams.FollowType:
			for _, target := range objectItems(undone.Object) {
				targetURL, err := toURL(target)
				if err != nil {
					continue
				}
				if err := db.Lock(c, targetURL); err != nil {
					return err
				}
				err = db.Unfollow(c, undoneActor, targetURL)
				if err == nil {
					var followers *url.URL
					followers, err = w.parent.actorCollection(c, targetURL, func(a *streams.Actor) streams.Item { return a.Followers })
					if err == nil {
						err = db.RemoveFromCollection(c, followers, undoneActor)
					} else {
						err = nil
					}
				}
				db.Unlock(c, targetURL)
				if err != nil {
					return err
				}
			}
		case streams.AcceptType:
			// The remote retracts its acceptance of a Follow this actor
			// sent; the relationship returns to pending.
			for _, accepted := range objectItems(undone.Object) {
				follow, err := w.resolveActivity(c, accepted)
				if err != nil || follow == nil || follow.Type != streams.FollowType {
					continue
				}
				for _, target := range objectItems(follow.Object) {
					targetURL, err := toURL(target)
					if err != nil {
						continue
					}
					if err := db.Lock(c, recipient); err != nil {
						return err
					}
					err = db.Follow(c, recipient, targetURL, false)
					if err == nil {
						var following *url.URL
						following, err = w.parent.actorCollection(c, recipient, func(a *streams.Actor) streams.Item { return a.Following })
						if err == nil {
							err = db.RemoveFromCollection(c, following, targetURL)
						}
					}
					db.Unlock(c, recipient)
					if err != nil {
						return err
					}
				}
			}
		case streams.BlockType:
			for _, target := range objectItems(undone.Object) {
				targetURL, err := toURL(target)
				if err != nil {
					continue
				}
				if err := db.Lock(c, undoneActor); err != nil {
					return err
				}
				err = db.Unblock(c, undoneActor, targetURL)
				db.Unlock(c, undoneActor)
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

// resolveActivity materializes an activity referenced by id or embedded.
func (w *FederatingWrappedCallbacks) resolveActivity(c context.Context, it streams.Item) (*streams.Activity, error) {
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
