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

// Package app declares the interfaces an application implements to embed
// the framework.
package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/streams"
)

// Software identifies the application for User-Agent strings.
type Software struct {
	Name         string
	MajorVersion int
	MinorVersion int
	PatchVersion int
}

func (s Software) UserAgent() string {
	return fmt.Sprintf("%s/%d.%d.%d (ActivityPub)", s.Name, s.MajorVersion, s.MinorVersion, s.PatchVersion)
}

// CurrentUser is the authenticated submitter of a Social API request. How
// the token or session maps to an actor is entirely the application's
// concern; the framework only consumes the actor IRI.
type CurrentUser struct {
	ActorIRI *url.URL
}

// Application is the behavior every embedding application supplies.
type Application interface {
	// Software identifies the application.
	Software() Software
	// CurrentUser resolves the authenticated user of a request; a nil
	// user means the request is anonymous.
	CurrentUser(c context.Context, r *http.Request) (*CurrentUser, error)
	// DefaultCallback handles activity types outside the built-in
	// dispatch set. Returning nil ignores the activity.
	DefaultCallback(c context.Context, activity *streams.Activity) error
}

// S2SApplication adds the behaviors used by the Federated Protocol.
type S2SApplication interface {
	Application
	// PostInboxRequestBodyHook attaches context after the inbox body is
	// parsed and before authentication. It must not write a response.
	PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error)
	// OnFollow selects the behavior for incoming Follow activities.
	OnFollow(c context.Context) pub.OnFollowBehavior
	// ApplyFederatingCallbacks lets the application wrap or extend the
	// built-in inbound side effects, returning handlers for other types.
	ApplyFederatingCallbacks(fwc *pub.FederatingWrappedCallbacks) pub.TypeHandlers
}

// C2SApplication adds the behaviors used by the Social API.
type C2SApplication interface {
	Application
	// PostOutboxRequestBodyHook attaches context after the outbox body
	// is parsed.
	PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error)
	// ScopePermitsPrivateGetInbox reports whether the authenticated user
	// may view non-public inbox items.
	ScopePermitsPrivateGetInbox(c context.Context, user *CurrentUser, boxOwner *url.URL) bool
	// ScopePermitsPrivateGetOutbox is the outbox analogue.
	ScopePermitsPrivateGetOutbox(c context.Context, user *CurrentUser, boxOwner *url.URL) bool
	// ApplySocialCallbacks lets the application wrap or extend the
	// built-in outgoing side effects.
	ApplySocialCallbacks(swc *pub.SocialWrappedCallbacks) pub.TypeHandlers
}
