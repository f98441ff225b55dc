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
	"io"
	"net/http"
	"net/url"

	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

// maxInboundBodyBytes bounds the request bodies the pipelines will read.
const maxInboundBodyBytes = 1 << 20

// baseActor drives the HTTP pipelines over a DelegateActor.
type baseActor struct {
	delegate  DelegateActor
	enableC2S bool
	enableS2S bool
	clock     Clock
}

// NewActor builds the side-effect actor for an application supporting both
// the Social API and the Federated Protocol.
func NewActor(c CommonBehavior, c2s SocialProtocol, s2s FederatingProtocol, db Database, clock Clock) Actor {
	return &baseActor{
		delegate:  NewSideEffectActor(c, s2s, c2s, db, clock),
		enableC2S: true,
		enableS2S: true,
		clock:     clock,
	}
}

// NewFederatingActor builds an actor supporting only the Federated Protocol.
func NewFederatingActor(c CommonBehavior, s2s FederatingProtocol, db Database, clock Clock) Actor {
	return &baseActor{
		delegate:  NewSideEffectActor(c, s2s, nil, db, clock),
		enableS2S: true,
		clock:     clock,
	}
}

// NewCustomActor wraps an application-provided DelegateActor.
func NewCustomActor(delegate DelegateActor, enableC2S, enableS2S bool, clock Clock) Actor {
	return &baseActor{
		delegate:  delegate,
		enableC2S: enableC2S,
		enableS2S: enableS2S,
		clock:     clock,
	}
}

// PostInbox runs the S2S inbox pipeline: body parse, body hook,
// authentication, authorization, dedup and side effects, then conditional
// inbox forwarding. The response is 200 with an empty body unless an earlier
// step wrote one.
func (b *baseActor) PostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error) {
	return b.PostInboxScheme(c, w, r, "https")
}

func (b *baseActor) PostInboxScheme(c context.Context, w http.ResponseWriter, r *http.Request, scheme string) (bool, error) {
	if r.Method != http.MethodPost {
		return false, nil
	}
	if !isActivityPubMediaType(r.Header.Get("Content-Type")) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return true, nil
	}
	if !b.enableS2S {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return true, nil
	}
	activity, err := readActivity(r)
	if err != nil {
		WriteError(w, err)
		return true, nil
	}
	// The body hook runs before authentication; it may only attach context.
	c, err = b.delegate.PostInboxRequestBodyHook(c, r, activity)
	if err != nil {
		return true, err
	}
	c, authenticated, err := b.delegate.AuthenticatePostInbox(c, w, r)
	if err != nil {
		return true, err
	} else if !authenticated {
		return true, nil
	}
	authorized, err := b.delegate.AuthorizePostInbox(c, w, activity)
	if err != nil {
		WriteError(w, err)
		return true, nil
	} else if !authorized {
		return true, nil
	}
	inboxIRI := requestIRI(r, scheme)
	isNew, err := b.delegate.PostInbox(c, inboxIRI, activity)
	if err != nil {
		WriteError(w, err)
		return true, nil
	}
	// Forwarding failures are logged, never surfaced to the peer.
	if isNew {
		if err := b.delegate.InboxForwarding(c, inboxIRI, activity); err != nil {
			util.ErrorLogger.Errorf("inbox forwarding of %s: %s", activity.ID, err)
		}
	}
	w.WriteHeader(http.StatusOK)
	return true, nil
}

// GetInbox serves the inbox collection, filtered for the viewer.
func (b *baseActor) GetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error) {
	if !IsActivityPubGet(r) {
		return false, nil
	}
	c, authenticated, err := b.delegate.AuthenticateGetInbox(c, w, r)
	if err != nil {
		return true, err
	} else if !authenticated {
		return true, nil
	}
	page, err := b.delegate.GetInbox(c, r)
	if err != nil {
		return true, err
	}
	return true, writeItem(w, page)
}

// PostOutbox runs the C2S outbox pipeline: authentication, body parse and
// hook, bare-object wrapping, id minting, side effects, outbox append, 201
// response, then federated delivery off the request goroutine.
func (b *baseActor) PostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error) {
	return b.PostOutboxScheme(c, w, r, "https")
}

func (b *baseActor) PostOutboxScheme(c context.Context, w http.ResponseWriter, r *http.Request, scheme string) (bool, error) {
	if r.Method != http.MethodPost {
		return false, nil
	}
	if !isActivityPubMediaType(r.Header.Get("Content-Type")) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return true, nil
	}
	if !b.enableC2S {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return true, nil
	}
	c, authenticated, err := b.delegate.AuthenticatePostOutbox(c, w, r)
	if err != nil {
		return true, err
	} else if !authenticated {
		return true, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBodyBytes))
	if err != nil {
		return true, err
	}
	it, err := streams.ToItem(raw)
	if err != nil {
		WriteError(w, NewError(KindMalformedBody, "could not parse request body"))
		return true, nil
	}
	c, err = b.delegate.PostOutboxRequestBodyHook(c, r, it)
	if err != nil {
		return true, err
	}
	outboxIRI := requestIRI(r, scheme)
	activity, isActivity := it.(*streams.Activity)
	if !isActivity {
		// A bare object is wrapped in a Create sharing its audience.
		activity, err = b.delegate.WrapInCreate(c, it, outboxIRI)
		if err != nil {
			WriteError(w, err)
			return true, nil
		}
	}
	if err = b.delegate.AddNewIDs(c, activity); err != nil {
		WriteError(w, err)
		return true, nil
	}
	deliverable, err := b.delegate.PostOutbox(c, activity, outboxIRI, raw)
	if err != nil {
		WriteError(w, err)
		return true, nil
	}
	w.Header().Set("Location", activity.ID.String())
	w.WriteHeader(http.StatusCreated)
	if deliverable {
		// Delivery never blocks nor fails the response.
		go func(dc context.Context) {
			if err := b.delegate.Deliver(dc, outboxIRI, activity); err != nil {
				util.ErrorLogger.Errorf("delivery of %s: %s", activity.ID, err)
			}
		}(context.WithoutCancel(c))
	}
	return true, nil
}

// GetOutbox serves the outbox collection.
func (b *baseActor) GetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error) {
	if !IsActivityPubGet(r) {
		return false, nil
	}
	c, authenticated, err := b.delegate.AuthenticateGetOutbox(c, w, r)
	if err != nil {
		return true, err
	} else if !authenticated {
		return true, nil
	}
	page, err := b.delegate.GetOutbox(c, r)
	if err != nil {
		return true, err
	}
	return true, writeItem(w, page)
}

func readActivity(r *http.Request) (*streams.Activity, error) {
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBodyBytes))
	if err != nil {
		return nil, NewError(KindMalformedBody, "could not read request body")
	}
	activity, err := streams.ToActivityFromJSON(raw)
	if err != nil {
		return nil, NewError(KindMalformedBody, "request body is not an activity")
	}
	if !activity.ID.IsValid() {
		return nil, NewError(KindMalformedBody, "activity has no id")
	}
	return activity, nil
}

func requestIRI(r *http.Request, scheme string) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = scheme
	return &u
}

func writeItem(w http.ResponseWriter, it streams.Item) error {
	raw, err := streams.Serialize(it)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ActivityStreamsContentType)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(raw)
	return err
}
