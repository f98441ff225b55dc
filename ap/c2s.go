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
	"net/http"

	"github.com/halcyon-social/halcyon/app"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

var _ pub.SocialProtocol = &SocialBehavior{}

// SocialBehavior implements the Social API callbacks over the application.
type SocialBehavior struct {
	app app.C2SApplication
}

func NewSocialBehavior(a app.C2SApplication) *SocialBehavior {
	return &SocialBehavior{app: a}
}

func (s *SocialBehavior) PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error) {
	return s.app.PostOutboxRequestBodyHook(c, r, data)
}

// AuthenticatePostOutbox requires the authenticated user to own the
// addressed outbox.
func (s *SocialBehavior) AuthenticatePostOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	u, err := s.app.CurrentUser(c, r)
	if err != nil {
		return c, false, err
	}
	uc := util.Context{Context: c}
	owner, err := uc.ActorIRI()
	if err != nil {
		return c, false, err
	}
	if u == nil || u.ActorIRI == nil || !streams.IRI(owner.String()).Equals(streams.IRI(u.ActorIRI.String())) {
		pub.WriteError(w, pub.NewError(pub.KindUnauthenticated, "the authenticated user does not own this outbox"))
		return c, false, nil
	}
	ctx := &util.Context{Context: c}
	ctx.WithCurrentUserIRI(u.ActorIRI)
	return ctx.Context, true, nil
}

func (s *SocialBehavior) SocialCallbacks(c context.Context) (pub.SocialWrappedCallbacks, pub.TypeHandlers, error) {
	wrapped := pub.SocialWrappedCallbacks{}
	other := s.app.ApplySocialCallbacks(&wrapped)
	return wrapped, other, nil
}

func (s *SocialBehavior) DefaultCallback(c context.Context, activity *streams.Activity) error {
	return s.app.DefaultCallback(c, activity)
}
