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
)

// OnFollowBehavior instructs the side-effect actor what to do when a Follow
// arrives at a local actor's inbox.
type OnFollowBehavior int

const (
	// OnFollowDoNothing records the relationship as pending and takes no
	// further action.
	OnFollowDoNothing OnFollowBehavior = iota
	// OnFollowAutomaticallyAccept accepts the relationship and delivers an
	// Accept referencing the Follow back to its actor.
	OnFollowAutomaticallyAccept
	// OnFollowAutomaticallyReject delivers a Reject referencing the Follow
	// back to its actor.
	OnFollowAutomaticallyReject
)

// TypeHandlers maps activity types outside the built-in dispatch set to
// application-supplied handlers.
type TypeHandlers map[streams.ActivityVocabularyType]func(context.Context, *streams.Activity) error

// CommonBehavior contains behaviors an application requires regardless of
// which protocols are enabled.
type CommonBehavior interface {
	// AuthenticateGetInbox authenticates a GET to an actor's inbox. If
	// authentication fails the implementation writes the response and
	// returns authenticated == false.
	AuthenticateGetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// AuthenticateGetOutbox authenticates a GET to an actor's outbox.
	AuthenticateGetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// GetOutbox returns the outbox page appropriate for the viewer.
	GetOutbox(c context.Context, r *http.Request) (*streams.CollectionPage, error)
	// NewTransport returns a Transport signing as the actor owning the
	// given box IRI.
	NewTransport(c context.Context, actorBoxIRI *url.URL) (Transport, error)
}

// FederatingProtocol contains behaviors an application needs to satisfy for
// the full ActivityPub S2S implementation to be supported.
type FederatingProtocol interface {
	// PostInboxRequestBodyHook is called after parsing the request body
	// and before any authentication. It may only attach contextual
	// information; it must not write a response.
	PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error)
	// AuthenticatePostInbox verifies the HTTP signature of an inbox POST.
	// On success the signer's actor IRI is recorded in the context.
	AuthenticatePostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// Blocked determines whether interaction with the given actors is
	// forbidden for the receiving user.
	Blocked(c context.Context, actorIRIs []*url.URL) (bool, error)
	// FederatingCallbacks returns the side-effect overrides and the
	// handlers for types outside the built-in dispatch set.
	FederatingCallbacks(c context.Context) (FederatingWrappedCallbacks, TypeHandlers, error)
	// DefaultCallback is called for activity types with no built-in or
	// application-supplied handler.
	DefaultCallback(c context.Context, activity *streams.Activity) error
	// MaxInboxForwardingRecursionDepth bounds the search for locally-owned
	// objects when deciding whether to forward. Zero or negative means
	// unbounded.
	MaxInboxForwardingRecursionDepth(c context.Context) int
	// MaxDeliveryRecursionDepth bounds recursive expansion of peer
	// collections during delivery. Zero or negative means unbounded.
	MaxDeliveryRecursionDepth(c context.Context) int
	// FilterForwarding reduces the potential forwarding recipients by
	// application policy. Only recipients in the returned slice are
	// forwarded to.
	FilterForwarding(c context.Context, potentialRecipients []*url.URL, a *streams.Activity) ([]*url.URL, error)
	// GetInbox returns the inbox page appropriate for the viewer.
	GetInbox(c context.Context, r *http.Request) (*streams.CollectionPage, error)
	// ResolveInboxIRIs optionally maps receiving actors to inboxes ahead
	// of the default resolution, for example to use shared inboxes.
	// Hidden receivers come from bto and bcc and must never be replaced
	// by a shared inbox. Returning the receivers unchanged is acceptable.
	ResolveInboxIRIs(c context.Context, receivers, hiddenReceivers []*url.URL) (inboxes []*url.URL, remaining []*url.URL, err error)
}

// SocialProtocol contains behaviors an application needs to satisfy for the
// ActivityPub C2S implementation.
type SocialProtocol interface {
	// PostOutboxRequestBodyHook is called after parsing the request body
	// and before side effects.
	PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error)
	// AuthenticatePostOutbox authenticates the submitting user. On success
	// the current user's actor IRI is recorded in the context.
	AuthenticatePostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// SocialCallbacks returns the side-effect overrides and the handlers
	// for types outside the built-in dispatch set.
	SocialCallbacks(c context.Context) (SocialWrappedCallbacks, TypeHandlers, error)
	// DefaultCallback is called for activity types with no built-in or
	// application-supplied handler.
	DefaultCallback(c context.Context, activity *streams.Activity) error
}

// Actor handles the HTTP endpoints of an ActivityPub actor. The returned
// bool reports whether the request was an ActivityPub request; when false,
// nothing was written and the caller may serve other content.
type Actor interface {
	PostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error)
	GetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error)
	PostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error)
	GetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (bool, error)
}

// DelegateActor contains the detailed steps of the inbox and outbox
// pipelines. It is implemented by the side-effect actor and may be decorated
// by applications needing custom pipeline behavior.
type DelegateActor interface {
	// Hook callback after parsing an inbox request body.
	PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error)
	// Hook callback after parsing an outbox request body.
	PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error)
	// AuthenticatePostInbox verifies the inbox POST request.
	AuthenticatePostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// AuthenticateGetInbox verifies the inbox GET request.
	AuthenticateGetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// AuthenticatePostOutbox verifies the outbox POST request.
	AuthenticatePostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// AuthenticateGetOutbox verifies the outbox GET request.
	AuthenticateGetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error)
	// AuthorizePostInbox rejects spoofed and blocked activities. When it
	// returns authorized == false it has already written the response.
	AuthorizePostInbox(c context.Context, w http.ResponseWriter, activity *streams.Activity) (bool, error)
	// PostInbox persists the activity and applies its side effects. It
	// reports whether this was the first observation of the activity.
	PostInbox(c context.Context, inboxIRI *url.URL, activity *streams.Activity) (bool, error)
	// InboxForwarding applies the inbox-forwarding rules to a newly seen
	// activity.
	InboxForwarding(c context.Context, inboxIRI *url.URL, activity *streams.Activity) error
	// WrapInCreate wraps a bare object in a Create activity addressed as
	// the object is.
	WrapInCreate(c context.Context, it streams.Item, outboxIRI *url.URL) (*streams.Activity, error)
	// AddNewIDs mints ids for the activity and its embedded objects.
	AddNewIDs(c context.Context, a *streams.Activity) error
	// PostOutbox applies outgoing side effects and appends to the outbox.
	// It reports whether the activity should be federated.
	PostOutbox(c context.Context, a *streams.Activity, outboxIRI *url.URL, rawJSON []byte) (bool, error)
	// Deliver federates the activity from the given outbox.
	Deliver(c context.Context, outboxIRI *url.URL, a *streams.Activity) error
	// GetInbox returns the inbox page for the request.
	GetInbox(c context.Context, r *http.Request) (*streams.CollectionPage, error)
	// GetOutbox returns the outbox page for the request.
	GetOutbox(c context.Context, r *http.Request) (*streams.CollectionPage, error)
}
