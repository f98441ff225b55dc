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
	"net/url"

	"github.com/halcyon-social/halcyon/app"
	"github.com/halcyon-social/halcyon/framework/conn"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

var _ pub.CommonBehavior = &commonBehavior{}

// commonBehavior implements the protocol-independent behaviors.
type commonBehavior struct {
	app   app.Application
	users *services.Users
	pk    *services.PrivateKeys
	col   *services.Collections
	tc    *conn.Controller
}

func newCommonBehavior(
	a app.Application,
	users *services.Users,
	pk *services.PrivateKeys,
	col *services.Collections,
	tc *conn.Controller) *commonBehavior {
	return &commonBehavior{
		app:   a,
		users: users,
		pk:    pk,
		col:   col,
		tc:    tc,
	}
}

// authenticateGet always permits public access and grants private scope
// when the application's authorization allows it for the box owner.
func (a *commonBehavior) authenticateGet(c context.Context, r *http.Request,
	permits func(context.Context, *app.CurrentUser, *url.URL) bool) (context.Context, bool, error) {
	uc := &util.Context{Context: c}
	owner, err := uc.ActorIRI()
	if err != nil {
		return c, false, err
	}
	u, err := a.app.CurrentUser(c, r)
	if err != nil {
		return c, false, err
	}
	if u != nil && permits != nil && permits(c, u, owner) {
		uc.WithPrivateScope(true)
	}
	return uc.Context, true, nil
}

func (a *commonBehavior) AuthenticateGetInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	permits := func(c context.Context, u *app.CurrentUser, owner *url.URL) bool {
		c2s, ok := a.app.(app.C2SApplication)
		return ok && c2s.ScopePermitsPrivateGetInbox(c, u, owner)
	}
	return a.authenticateGet(c, r, permits)
}

func (a *commonBehavior) AuthenticateGetOutbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	permits := func(c context.Context, u *app.CurrentUser, owner *url.URL) bool {
		c2s, ok := a.app.(app.C2SApplication)
		return ok && c2s.ScopePermitsPrivateGetOutbox(c, u, owner)
	}
	return a.authenticateGet(c, r, permits)
}

// GetOutbox serves the outbox page: every item for the private scope, the
// publicly visible ones otherwise.
func (a *commonBehavior) GetOutbox(c context.Context, r *http.Request) (*streams.CollectionPage, error) {
	uc := util.Context{Context: c}
	outboxIRI, err := uc.CompleteRequestURL()
	if err != nil {
		return nil, err
	}
	var viewer *url.URL
	filter := true
	if uc.HasPrivateScope() {
		filter = false
	}
	it, err := a.col.GetCollection(uc, outboxIRI, viewer, filter)
	if err != nil {
		return nil, err
	}
	if page, err := streams.ToCollectionPage(it); err == nil {
		return page, nil
	}
	col, err := streams.ToCollection(it)
	if err != nil {
		return nil, err
	}
	page := streams.OrderedCollectionPageNew(col.ID, nil)
	page.TotalItems = col.TotalItems
	page.First = col.First
	return page, nil
}

// NewTransport builds a transport signing as the owner of the given box.
func (a *commonBehavior) NewTransport(c context.Context, actorBoxIRI *url.URL) (pub.Transport, error) {
	uc := util.Context{Context: c}
	actorIRI, err := a.users.ActorIDForOutbox(uc, actorBoxIRI)
	if err != nil {
		actorIRI, err = a.users.ActorIDForInbox(uc, actorBoxIRI)
	}
	if err != nil {
		return nil, err
	}
	privKey, pubKeyID, err := a.pk.GetUserHTTPSignatureKey(uc, actorIRI)
	if err != nil {
		return nil, err
	}
	return a.tc.Get(privKey, pubKeyID.String())
}
