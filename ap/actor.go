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
	"github.com/halcyon-social/halcyon/app"
	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/halcyon-social/halcyon/framework/conn"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
)

// Services bundles what the behaviors need from the application layer.
type Services struct {
	Users            *services.Users
	Data             *services.Data
	Collections      *services.Collections
	Relationships    *services.Relationships
	PrivateKeys      *services.PrivateKeys
	DeliveryAttempts *services.DeliveryAttempts
}

// NewActor wires the protocol engine for an application implementing both
// protocols.
func NewActor(c *config.Config,
	a app.Application,
	db *Database,
	sv Services,
	tc *conn.Controller,
	clock pub.Clock) pub.Actor {
	common := newCommonBehavior(a, sv.Users, sv.PrivateKeys, sv.Collections, tc)
	s2s, _ := a.(app.S2SApplication)
	c2s, _ := a.(app.C2SApplication)
	if s2s != nil && c2s != nil {
		fed := NewFederatingBehavior(c, s2s, db, sv.Relationships, sv.PrivateKeys, sv.Collections, tc, clock)
		soc := NewSocialBehavior(c2s)
		return pub.NewActor(common, soc, fed, db, clock)
	}
	if s2s != nil {
		fed := NewFederatingBehavior(c, s2s, db, sv.Relationships, sv.PrivateKeys, sv.Collections, tc, clock)
		return pub.NewFederatingActor(common, fed, db, clock)
	}
	// A C2S-only deployment still uses the full actor with federation
	// disabled at the HTTP layer.
	soc := NewSocialBehavior(c2s)
	return pub.NewCustomActor(pub.NewSideEffectActor(common, nil, soc, db, clock), true, false, clock)
}
