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
	"testing"
	"time"

	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveryHarness(t *testing.T) (*sideEffectActor, *fakeDatabase, *fakeTransport, *fakeFederating) {
	clock := fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
	db := newFakeDatabase(clock)
	tr := &fakeTransport{remote: make(map[string][]byte)}
	s2s := &fakeFederating{db: db}
	c2s := &fakeSocial{}
	common := &fakeCommon{t: tr}
	actor := NewSideEffectActor(common, s2s, c2s, db, clock).(*sideEffectActor)
	return actor, db, tr, s2s
}

func addRemoteCollection(t *testing.T, tr *fakeTransport, id string, members ...string) {
	col := streams.OrderedCollectionNew(streams.IRI(id))
	for _, m := range members {
		col.Append(streams.IRI(m))
	}
	raw, err := streams.Serialize(col)
	require.NoError(t, err)
	tr.remote[id] = raw
}

func addRemoteDelActor(t *testing.T, tr *fakeTransport, base string) {
	a := streams.PersonNew(streams.IRI(base))
	a.Inbox = streams.IRI(base + "/inbox")
	raw, err := streams.Serialize(a)
	require.NoError(t, err)
	tr.remote[base] = raw
}

// Invariant: recipient expansion terminates on cyclic collection graphs and
// produces a finite, de-duplicated inbox set; exceeding the depth bound
// truncates without error.
func TestRecipientExpansionTerminatesOnCycles(t *testing.T) {
	actor, _, tr, _ := deliveryHarness(t)

	// Two collections referencing each other, plus a real member.
	addRemoteCollection(t, tr, "https://chatty.example/groups/a",
		"https://chatty.example/groups/b",
		"https://chatty.example/users/ben")
	addRemoteCollection(t, tr, "https://chatty.example/groups/b",
		"https://chatty.example/groups/a")
	addRemoteDelActor(t, tr, "https://chatty.example/users/ben")

	act := streams.CreateNew("https://example.com/users/alyssa/activities/01x", nil)
	act.Actor = streams.IRI("https://example.com/users/alyssa")
	act.To = streams.ItemCollection{streams.IRI("https://chatty.example/groups/a")}

	uc := &util.Context{Context: context.Background()}
	uc.WithActorIRI(mustURL("https://example.com/users/alyssa"))
	recipients, err := actor.prepare(uc.Context, mustURL("https://example.com/users/alyssa/outbox"), act)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "https://chatty.example/users/ben/inbox", recipients[0].String())
}

// The Public IRI and the sender are never delivery targets.
func TestRecipientExpansionExcludesPublicAndSelf(t *testing.T) {
	actor, _, tr, _ := deliveryHarness(t)
	addRemoteDelActor(t, tr, "https://chatty.example/users/ben")

	act := streams.CreateNew("https://example.com/users/alyssa/activities/01y", nil)
	act.Actor = streams.IRI("https://example.com/users/alyssa")
	act.To = streams.ItemCollection{
		streams.PublicNS,
		streams.IRI("https://example.com/users/alyssa"),
		streams.IRI("https://chatty.example/users/ben"),
	}

	uc := &util.Context{Context: context.Background()}
	uc.WithActorIRI(mustURL("https://example.com/users/alyssa"))
	recipients, err := actor.prepare(uc.Context, mustURL("https://example.com/users/alyssa/outbox"), act)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "https://chatty.example/users/ben/inbox", recipients[0].String())
}

// Blocked actors are excluded from delivery.
func TestRecipientExpansionExcludesBlocked(t *testing.T) {
	actor, db, tr, _ := deliveryHarness(t)
	addRemoteDelActor(t, tr, "https://chatty.example/users/ben")
	addRemoteDelActor(t, tr, "https://chatty.example/users/eve")
	require.NoError(t, db.Block(context.Background(),
		mustURL("https://example.com/users/alyssa"),
		mustURL("https://chatty.example/users/eve")))

	act := streams.CreateNew("https://example.com/users/alyssa/activities/01z", nil)
	act.Actor = streams.IRI("https://example.com/users/alyssa")
	act.To = streams.ItemCollection{
		streams.IRI("https://chatty.example/users/ben"),
		streams.IRI("https://chatty.example/users/eve"),
	}

	uc := &util.Context{Context: context.Background()}
	uc.WithActorIRI(mustURL("https://example.com/users/alyssa"))
	recipients, err := actor.prepare(uc.Context, mustURL("https://example.com/users/alyssa/outbox"), act)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "https://chatty.example/users/ben/inbox", recipients[0].String())
}

// Duplicate recipients collapse to one inbox.
func TestRecipientExpansionDeduplicates(t *testing.T) {
	actor, _, tr, _ := deliveryHarness(t)
	addRemoteDelActor(t, tr, "https://chatty.example/users/ben")

	act := streams.CreateNew("https://example.com/users/alyssa/activities/02a", nil)
	act.Actor = streams.IRI("https://example.com/users/alyssa")
	act.To = streams.ItemCollection{streams.IRI("https://chatty.example/users/ben")}
	act.CC = streams.ItemCollection{streams.IRI("https://chatty.example/users/ben")}
	act.Bto = streams.ItemCollection{streams.IRI("https://chatty.example/users/ben")}

	uc := &util.Context{Context: context.Background()}
	uc.WithActorIRI(mustURL("https://example.com/users/alyssa"))
	recipients, err := actor.prepare(uc.Context, mustURL("https://example.com/users/alyssa/outbox"), act)
	require.NoError(t, err)
	assert.Len(t, recipients, 1)
}

// serializeForDelivery strips hidden recipients from the payload but leaves
// the in-memory activity intact for expansion.
func TestSerializeForDeliveryStripsHidden(t *testing.T) {
	act := streams.CreateNew("https://example.com/users/alyssa/activities/02b", nil)
	act.Actor = streams.IRI("https://example.com/users/alyssa")
	act.Bto = streams.ItemCollection{streams.IRI("https://chatty.example/users/ben")}
	act.BCC = streams.ItemCollection{streams.IRI("https://chatty.example/users/eve")}

	payload, err := serializeForDelivery(act)
	require.NoError(t, err)
	s := string(payload)
	assert.NotContains(t, s, "bto")
	assert.NotContains(t, s, "bcc")
	assert.Len(t, act.Bto, 1)
	assert.Len(t, act.BCC, 1)
}
