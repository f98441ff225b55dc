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

// maxCollectionPageFetches bounds how many pages of a single remote
// collection recipient expansion walks.
const maxCollectionPageFetches = 25

// prepare computes the de-duplicated inbox set for an activity: the union of
// the addressing properties, recursively expanded through collections up to
// the configured depth, excluding the sender, the Public IRI, blocked
// actors, and unresolvable recipients.
func (a *sideEffectActor) prepare(c context.Context, outboxIRI *url.URL, act *streams.Activity) ([]*url.URL, error) {
	normal := append(itemsToURLs(act.To), itemsToURLs(act.CC)...)
	normal = append(normal, itemsToURLs(act.Audience)...)
	hidden := append(itemsToURLs(act.Bto), itemsToURLs(act.BCC)...)

	resolved, remaining, err := a.s2s.ResolveInboxIRIs(c, normal, hidden)
	if err != nil {
		return nil, err
	}
	t, err := a.common.NewTransport(c, outboxIRI)
	if err != nil {
		return nil, err
	}
	sender, err := a.db.ActorForOutbox(c, outboxIRI)
	if err != nil {
		return nil, err
	}
	maxDepth := a.s2s.MaxDeliveryRecursionDepth(c)
	actorIRIs, err := a.expandRecipients(c, t, remaining, maxDepth)
	if err != nil {
		return nil, err
	}
	var inboxes []*url.URL
	inboxes = append(inboxes, resolved...)
	for _, actor := range actorIRIs {
		if canonicalKey(actor) == canonicalKey(sender) {
			continue
		}
		blocked, err := a.db.AnyBlocked(c, sender, []*url.URL{actor})
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}
		inbox, err := a.inboxFor(c, t, actor)
		if err != nil || inbox == nil {
			util.InfoLogger.Infof("dropping undeliverable recipient %s", actor)
			continue
		}
		inboxes = append(inboxes, inbox)
	}
	return dedupeURLs(inboxes), nil
}

// expandRecipients resolves each recipient IRI to the actors it stands for,
// substituting collections by their members recursively. Exceeding the depth
// bound truncates without error.
func (a *sideEffectActor) expandRecipients(c context.Context, t Transport, recipients []*url.URL, maxDepth int) ([]*url.URL, error) {
	var actors []*url.URL
	for _, r := range recipients {
		found, err := a.expandOne(c, t, r, maxDepth, 0)
		if err != nil {
			return nil, err
		}
		actors = append(actors, found...)
	}
	return dedupeURLs(actors), nil
}

func (a *sideEffectActor) expandOne(c context.Context, t Transport, r *url.URL, maxDepth, depth int) ([]*url.URL, error) {
	if streams.IRI(r.String()).Equals(streams.PublicNS) {
		return nil, nil
	}
	if maxDepth > 0 && depth >= maxDepth {
		return nil, nil
	}
	owns, err := a.db.Owns(c, r)
	if err != nil {
		return nil, err
	}
	if owns {
		// A local collection expands from storage; anything else local is
		// an actor.
		if _, err := a.db.CollectionOwner(c, r); err == nil {
			items, err := a.db.CollectionItems(c, r)
			if err != nil {
				return nil, err
			}
			var members []*url.URL
			for _, iri := range items {
				u, err := iri.URL()
				if err != nil {
					continue
				}
				found, err := a.expandOne(c, t, u, maxDepth, depth+1)
				if err != nil {
					return nil, err
				}
				members = append(members, found...)
			}
			return members, nil
		}
		return []*url.URL{r}, nil
	}
	raw, err := t.Dereference(c, r)
	if err != nil {
		util.InfoLogger.Infof("dropping unresolvable recipient %s: %s", r, err)
		return nil, nil
	}
	it, err := streams.ToItem(raw)
	if err != nil {
		return nil, nil
	}
	switch v := it.(type) {
	case *streams.Actor:
		return []*url.URL{r}, nil
	case *streams.Collection:
		return a.expandCollection(c, t, v, nil, maxDepth, depth)
	case *streams.CollectionPage:
		return a.expandCollection(c, t, &v.Collection, v.Next, maxDepth, depth)
	case *streams.Object:
		// Not an actor nor a collection; nothing to deliver to.
		return nil, nil
	}
	return []*url.URL{r}, nil
}

// expandCollection substitutes a collection by its members, walking items
// and following first/next page links.
func (a *sideEffectActor) expandCollection(c context.Context, t Transport, col *streams.Collection, next streams.Item, maxDepth, depth int) ([]*url.URL, error) {
	var members []*url.URL
	walk := func(items streams.ItemCollection) error {
		for _, it := range items {
			u, err := toURL(it)
			if err != nil {
				continue
			}
			found, err := a.expandOne(c, t, u, maxDepth, depth+1)
			if err != nil {
				return err
			}
			members = append(members, found...)
		}
		return nil
	}
	if err := walk(col.Items); err != nil {
		return nil, err
	}
	pageLink := next
	if streams.IsNil(pageLink) && len(col.Items) == 0 {
		pageLink = col.First
	}
	for fetches := 0; !streams.IsNil(pageLink) && fetches < maxCollectionPageFetches; fetches++ {
		u, err := toURL(pageLink)
		if err != nil {
			break
		}
		raw, err := t.Dereference(c, u)
		if err != nil {
			break
		}
		it, err := streams.ToItem(raw)
		if err != nil {
			break
		}
		page, err := streams.ToCollectionPage(it)
		if err != nil {
			break
		}
		if err := walk(page.Items); err != nil {
			return nil, err
		}
		pageLink = page.Next
	}
	return members, nil
}

// inboxFor maps an actor IRI to its inbox, reading local actors from storage
// and remote actors over the wire.
func (a *sideEffectActor) inboxFor(c context.Context, t Transport, actor *url.URL) (*url.URL, error) {
	owns, err := a.db.Owns(c, actor)
	if err != nil {
		return nil, err
	}
	var it streams.Item
	if owns {
		it, err = a.db.Get(c, actor)
		if err != nil {
			return nil, err
		}
	} else {
		raw, err := t.Dereference(c, actor)
		if err != nil {
			return nil, err
		}
		it, err = streams.ToItem(raw)
		if err != nil {
			return nil, err
		}
	}
	act, err := streams.ToActor(it)
	if err != nil {
		return nil, ErrNotFound
	}
	if streams.IsNil(act.Inbox) {
		return nil, ErrNotFound
	}
	return toURL(act.Inbox)
}

// resolveInboxes expands collections straight to inboxes; used by inbox
// forwarding where recipients are locally-owned collections.
func (a *sideEffectActor) resolveInboxes(c context.Context, t Transport, recipients []*url.URL, maxDepth int) ([]*url.URL, error) {
	actors, err := a.expandRecipients(c, t, recipients, maxDepth)
	if err != nil {
		return nil, err
	}
	var inboxes []*url.URL
	for _, actor := range actors {
		inbox, err := a.inboxFor(c, t, actor)
		if err != nil || inbox == nil {
			continue
		}
		inboxes = append(inboxes, inbox)
	}
	return dedupeURLs(inboxes), nil
}
