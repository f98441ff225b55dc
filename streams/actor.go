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

package streams

import (
	"github.com/valyala/fastjson"
)

// Actor is an ActivityPub end user: an Object whose type is one of the actor
// types, carrying the protocol box references and a public key.
type Actor struct {
	objectProps
	// Inbox is the OrderedCollection of messages received by the actor.
	Inbox Item
	// Outbox is the OrderedCollection of messages produced by the actor.
	Outbox Item
	// Following links the collection of actors this actor follows.
	Following Item
	// Followers links the collection of actors following this actor.
	Followers Item
	// Liked links the collection of objects this actor liked.
	Liked Item
	// Featured links the collection of objects pinned by this actor.
	Featured Item
	// PreferredUsername is a non-unique short handle.
	PreferredUsername NaturalLanguageValues
	// Endpoints maps additional server-wide endpoints.
	Endpoints *Endpoints
	// PublicKey exposes the actor's HTTP-signature key.
	PublicKey PublicKey
}

// PublicKey is the w3id security/v1 key document embedded in an actor.
type PublicKey struct {
	ID           ID
	Owner        IRI
	PublicKeyPem string
}

// Endpoints maps server-wide endpoints useful for this actor.
type Endpoints struct {
	// SharedInbox is an optional endpoint for wide delivery of publicly
	// addressed activities.
	SharedInbox Item
}

// ActorNew initializes an actor of the given type.
func ActorNew(id ID, typ ActivityVocabularyType) *Actor {
	if !ActorTypes.Contains(typ) {
		typ = PersonType
	}
	a := &Actor{}
	a.ID = id
	a.Type = typ
	return a
}

func PersonNew(id ID) *Actor  { return ActorNew(id, PersonType) }
func ServiceNew(id ID) *Actor { return ActorNew(id, ServiceType) }
func GroupNew(id ID) *Actor   { return ActorNew(id, GroupType) }

func (a *Actor) UnmarshalJSON(data []byte) error {
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(data)
	if err != nil {
		return err
	}
	typ, extra := jsonGetTypes(v)
	a.fromValue(v, typ, extra)
	return nil
}

func (a *Actor) fromValue(v *fastjson.Value, typ ActivityVocabularyType, extra []ActivityVocabularyType) {
	a.Type = typ
	a.extraTypes = extra
	a.readProps(v)
	a.Inbox = jsonGetItem(v, "inbox")
	a.Outbox = jsonGetItem(v, "outbox")
	a.Following = jsonGetItem(v, "following")
	a.Followers = jsonGetItem(v, "followers")
	a.Liked = jsonGetItem(v, "liked")
	a.Featured = jsonGetItem(v, "featured")
	a.PreferredUsername = jsonGetNaturalLanguage(v, "preferredUsername")
	if ep := v.Get("endpoints"); ep != nil && ep.Type() == fastjson.TypeObject {
		a.Endpoints = &Endpoints{SharedInbox: jsonGetItem(ep, "sharedInbox")}
	}
	if pk := v.Get("publicKey"); pk != nil && pk.Type() == fastjson.TypeObject {
		a.PublicKey = PublicKey{
			ID:           ID(pk.GetStringBytes("id")),
			Owner:        IRI(pk.GetStringBytes("owner")),
			PublicKeyPem: string(pk.GetStringBytes("publicKeyPem")),
		}
	}
}

func (a Actor) MarshalJSON() ([]byte, error) {
	w := &propWriter{}
	a.writeProps(w)
	w.item("inbox", a.Inbox)
	w.item("outbox", a.Outbox)
	w.item("following", a.Following)
	w.item("followers", a.Followers)
	w.item("liked", a.Liked)
	w.item("featured", a.Featured)
	w.natLang("preferredUsername", a.PreferredUsername)
	if a.Endpoints != nil && !IsNil(a.Endpoints.SharedInbox) {
		ew := &propWriter{}
		ew.item("sharedInbox", a.Endpoints.SharedInbox)
		w.raw("endpoints", ew.finish())
	}
	if a.PublicKey.ID != "" {
		kw := &propWriter{}
		kw.str("id", string(a.PublicKey.ID))
		kw.str("owner", string(a.PublicKey.Owner))
		kw.str("publicKeyPem", a.PublicKey.PublicKeyPem)
		w.raw("publicKey", kw.finish())
	}
	return w.finish(), nil
}
