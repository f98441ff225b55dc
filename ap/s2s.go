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
	"time"

	"github.com/halcyon-social/halcyon/app"
	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/halcyon-social/halcyon/framework/conn"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

var _ pub.FederatingProtocol = &FederatingBehavior{}

// FederatingBehavior implements the Federated Protocol callbacks over the
// application and services.
type FederatingBehavior struct {
	maxInboxForwardingDepth int
	maxDeliveryDepth        int
	maxClockSkew            time.Duration
	app                     app.S2SApplication
	db                      *Database
	rel                     *services.Relationships
	pk                      *services.PrivateKeys
	col                     *services.Collections
	tc                      *conn.Controller
	keyCache                *util.TTLCache
	clock                   pub.Clock
}

func NewFederatingBehavior(c *config.Config,
	a app.S2SApplication,
	db *Database,
	rel *services.Relationships,
	pk *services.PrivateKeys,
	col *services.Collections,
	tc *conn.Controller,
	clock pub.Clock) *FederatingBehavior {
	return &FederatingBehavior{
		maxInboxForwardingDepth: c.ActivityPubConfig.MaxInboxForwardingRecursionDepth,
		maxDeliveryDepth:        c.ActivityPubConfig.MaxDeliveryRecursionDepth,
		maxClockSkew:            time.Duration(c.ActivityPubConfig.HttpSignaturesConfig.MaxClockSkewSeconds) * time.Second,
		app:                     a,
		db:                      db,
		rel:                     rel,
		pk:                      pk,
		col:                     col,
		tc:                      tc,
		keyCache:                util.NewTTLCache(time.Duration(c.ActivityPubConfig.KeyCacheTTLSeconds) * time.Second),
		clock:                   clock,
	}
}

func (f *FederatingBehavior) PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error) {
	ctx := &util.Context{Context: c}
	ctx.WithActivity(activity)
	return f.app.PostInboxRequestBodyHook(ctx.Context, r, activity)
}

// AuthenticatePostInbox verifies the HTTP signature and records the signer.
func (f *FederatingBehavior) AuthenticatePostInbox(c context.Context, w http.ResponseWriter, r *http.Request) (context.Context, bool, error) {
	signer, err := verifyHttpSignatures(c, r, f.db, f.tc, f.pk, f.keyCache, f.maxClockSkew, f.clock.Now)
	if err != nil {
		util.InfoLogger.Infof("rejecting unsigned or badly signed inbox POST: %s", err)
		pub.WriteError(w, pub.NewError(pub.KindUnauthenticated, "request signature could not be verified"))
		return c, false, nil
	}
	ctx := &util.Context{Context: c}
	ctx.WithRequestSignedBy(signer)
	return ctx.Context, true, nil
}

// Blocked consults the receiving user's block list.
func (f *FederatingBehavior) Blocked(c context.Context, actorIRIs []*url.URL) (bool, error) {
	uc := util.Context{Context: c}
	recipient, err := uc.ActorIRI()
	if err != nil {
		return false, err
	}
	return f.rel.AnyBlocked(uc, recipient, actorIRIs)
}

func (f *FederatingBehavior) FederatingCallbacks(c context.Context) (pub.FederatingWrappedCallbacks, pub.TypeHandlers, error) {
	wrapped := pub.FederatingWrappedCallbacks{
		OnFollow: f.app.OnFollow(c),
	}
	other := f.app.ApplyFederatingCallbacks(&wrapped)
	return wrapped, other, nil
}

func (f *FederatingBehavior) DefaultCallback(c context.Context, activity *streams.Activity) error {
	return f.app.DefaultCallback(c, activity)
}

func (f *FederatingBehavior) MaxInboxForwardingRecursionDepth(c context.Context) int {
	return f.maxInboxForwardingDepth
}

func (f *FederatingBehavior) MaxDeliveryRecursionDepth(c context.Context) int {
	return f.maxDeliveryDepth
}

// FilterForwarding limits forwarding to the receiving user's own followers
// collection.
func (f *FederatingBehavior) FilterForwarding(c context.Context, potentialRecipients []*url.URL, a *streams.Activity) ([]*url.URL, error) {
	uc := util.Context{Context: c}
	actorIRI, err := uc.ActorIRI()
	if err != nil {
		return nil, err
	}
	followers, err := paths.IRIForActorID(paths.FollowersPathKey, actorIRI)
	if err != nil {
		return nil, err
	}
	followersIRI := streams.IRI(followers.String())
	var filtered []*url.URL
	for _, r := range potentialRecipients {
		if followersIRI.Equals(streams.IRI(r.String())) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// GetInbox serves the inbox page, filtered for the viewer.
func (f *FederatingBehavior) GetInbox(c context.Context, r *http.Request) (*streams.CollectionPage, error) {
	uc := util.Context{Context: c}
	inboxIRI, err := uc.CompleteRequestURL()
	if err != nil {
		return nil, err
	}
	var viewer *url.URL
	if uc.HasPrivateScope() {
		viewer, _ = uc.ActorIRI()
	}
	it, err := f.col.GetCollection(uc, inboxIRI, viewer, true)
	if err != nil {
		return nil, err
	}
	if page, err := streams.ToCollectionPage(it); err == nil {
		return page, nil
	}
	// The summary form; wrap it into the page shape the engine serves.
	col, err := streams.ToCollection(it)
	if err != nil {
		return nil, err
	}
	page := streams.OrderedCollectionPageNew(col.ID, nil)
	page.TotalItems = col.TotalItems
	page.First = col.First
	return page, nil
}

// ResolveInboxIRIs keeps the default recipient resolution; shared-inbox
// delivery is recognized but not exercised.
func (f *FederatingBehavior) ResolveInboxIRIs(c context.Context, receivers, hiddenReceivers []*url.URL) ([]*url.URL, []*url.URL, error) {
	return []*url.URL{}, append(receivers, hiddenReceivers...), nil
}
