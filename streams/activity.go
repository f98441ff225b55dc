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

// Activity describes an action that has occurred or will occur, with an
// actor and, for transitive activities, an object.
type Activity struct {
	objectProps
	// Actor describes the entities that performed the activity.
	Actor Item
	// Object is the direct object of the activity.
	Object Item
	// Target is the indirect object ("to" target of Add/Remove).
	Target Item
	// Result describes the outcome of the activity.
	Result Item
	// Origin describes where the activity started from ("from" of Move).
	Origin Item
	// Instrument identifies what was used to complete the activity.
	Instrument Item
}

// ActivityNew initializes a basic activity of the given type.
func ActivityNew(id ID, typ ActivityVocabularyType, ob Item) *Activity {
	if !ActivityTypes.Contains(typ) {
		typ = ActivityType
	}
	a := &Activity{Object: ob}
	a.ID = id
	a.Type = typ
	return a
}

func CreateNew(id ID, ob Item) *Activity   { return ActivityNew(id, CreateType, ob) }
func UpdateNew(id ID, ob Item) *Activity   { return ActivityNew(id, UpdateType, ob) }
func DeleteNew(id ID, ob Item) *Activity   { return ActivityNew(id, DeleteType, ob) }
func FollowNew(id ID, ob Item) *Activity   { return ActivityNew(id, FollowType, ob) }
func AcceptNew(id ID, ob Item) *Activity   { return ActivityNew(id, AcceptType, ob) }
func RejectNew(id ID, ob Item) *Activity   { return ActivityNew(id, RejectType, ob) }
func LikeNew(id ID, ob Item) *Activity     { return ActivityNew(id, LikeType, ob) }
func AnnounceNew(id ID, ob Item) *Activity { return ActivityNew(id, AnnounceType, ob) }
func AddNew(id ID, ob, target Item) *Activity {
	a := ActivityNew(id, AddType, ob)
	a.Target = target
	return a
}
func RemoveNew(id ID, ob, target Item) *Activity {
	a := ActivityNew(id, RemoveType, ob)
	a.Target = target
	return a
}
func BlockNew(id ID, ob Item) *Activity { return ActivityNew(id, BlockType, ob) }
func UndoNew(id ID, ob Item) *Activity  { return ActivityNew(id, UndoType, ob) }

// Recipients returns the deduplicated union of the activity's addressing
// properties.
func (a *Activity) Recipients() ItemCollection {
	return ItemCollectionDeduplication(&a.To, &a.Bto, &a.CC, &a.BCC, &a.Audience)
}

// Clean removes hidden addressing from the activity and its embedded object.
func (a *Activity) Clean() {
	a.Bto = nil
	a.BCC = nil
	if ob, err := ToObject(a.Object); err == nil && ob != nil {
		ob.Clean()
	}
}

func (a *Activity) UnmarshalJSON(data []byte) error {
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

func (a *Activity) fromValue(v *fastjson.Value, typ ActivityVocabularyType, extra []ActivityVocabularyType) {
	a.Type = typ
	a.extraTypes = extra
	a.readProps(v)
	a.Actor = jsonGetItem(v, "actor")
	a.Object = jsonGetItem(v, "object")
	a.Target = jsonGetItem(v, "target")
	a.Result = jsonGetItem(v, "result")
	a.Origin = jsonGetItem(v, "origin")
	a.Instrument = jsonGetItem(v, "instrument")
}

func (a Activity) MarshalJSON() ([]byte, error) {
	w := &propWriter{}
	a.writeProps(w)
	w.item("actor", a.Actor)
	w.item("object", a.Object)
	w.item("target", a.Target)
	w.item("result", a.Result)
	w.item("origin", a.Origin)
	w.item("instrument", a.Instrument)
	return w.finish(), nil
}
