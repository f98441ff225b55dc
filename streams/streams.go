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

// Package streams models the ActivityStreams 2.0 vocabulary as tagged Go
// values. Types are discriminated by the JSON "type" member, property values
// are ordered sequences of items, and each item is either an unresolved IRI,
// an embedded typed value, or a literal.
package streams

import (
	"fmt"
)

// ActivityVocabularyType is the "type" discriminator of an ActivityStreams
// value.
type ActivityVocabularyType string

// ActivityVocabularyTypes is a set of vocabulary types.
type ActivityVocabularyTypes []ActivityVocabularyType

// Contains reports whether typ is a member of the set.
func (a ActivityVocabularyTypes) Contains(typ ActivityVocabularyType) bool {
	for _, v := range a {
		if v == typ {
			return true
		}
	}
	return false
}

// MimeType is a MIME media type literal.
type MimeType string

// Core object types.
const (
	ObjectType       ActivityVocabularyType = "Object"
	LinkType         ActivityVocabularyType = "Link"
	ArticleType      ActivityVocabularyType = "Article"
	AudioType        ActivityVocabularyType = "Audio"
	DocumentType     ActivityVocabularyType = "Document"
	EventType        ActivityVocabularyType = "Event"
	ImageType        ActivityVocabularyType = "Image"
	NoteType         ActivityVocabularyType = "Note"
	PageType         ActivityVocabularyType = "Page"
	PlaceType        ActivityVocabularyType = "Place"
	ProfileType      ActivityVocabularyType = "Profile"
	RelationshipType ActivityVocabularyType = "Relationship"
	TombstoneType    ActivityVocabularyType = "Tombstone"
	VideoType        ActivityVocabularyType = "Video"
	MentionType      ActivityVocabularyType = "Mention"
)

// Actor types.
const (
	ApplicationType  ActivityVocabularyType = "Application"
	GroupType        ActivityVocabularyType = "Group"
	OrganizationType ActivityVocabularyType = "Organization"
	PersonType       ActivityVocabularyType = "Person"
	ServiceType      ActivityVocabularyType = "Service"
)

// Activity types.
const (
	ActivityType        ActivityVocabularyType = "Activity"
	IntransitiveType    ActivityVocabularyType = "IntransitiveActivity"
	AcceptType          ActivityVocabularyType = "Accept"
	AddType             ActivityVocabularyType = "Add"
	AnnounceType        ActivityVocabularyType = "Announce"
	ArriveType          ActivityVocabularyType = "Arrive"
	BlockType           ActivityVocabularyType = "Block"
	CreateType          ActivityVocabularyType = "Create"
	DeleteType          ActivityVocabularyType = "Delete"
	DislikeType         ActivityVocabularyType = "Dislike"
	FlagType            ActivityVocabularyType = "Flag"
	FollowType          ActivityVocabularyType = "Follow"
	IgnoreType          ActivityVocabularyType = "Ignore"
	InviteType          ActivityVocabularyType = "Invite"
	JoinType            ActivityVocabularyType = "Join"
	LeaveType           ActivityVocabularyType = "Leave"
	LikeType            ActivityVocabularyType = "Like"
	ListenType          ActivityVocabularyType = "Listen"
	MoveType            ActivityVocabularyType = "Move"
	OfferType           ActivityVocabularyType = "Offer"
	QuestionType        ActivityVocabularyType = "Question"
	RejectType          ActivityVocabularyType = "Reject"
	ReadType            ActivityVocabularyType = "Read"
	RemoveType          ActivityVocabularyType = "Remove"
	TentativeAcceptType ActivityVocabularyType = "TentativeAccept"
	TentativeRejectType ActivityVocabularyType = "TentativeReject"
	TravelType          ActivityVocabularyType = "Travel"
	UndoType            ActivityVocabularyType = "Undo"
	UpdateType          ActivityVocabularyType = "Update"
	ViewType            ActivityVocabularyType = "View"
)

// Collection types.
const (
	CollectionType            ActivityVocabularyType = "Collection"
	OrderedCollectionType     ActivityVocabularyType = "OrderedCollection"
	CollectionPageType        ActivityVocabularyType = "CollectionPage"
	OrderedCollectionPageType ActivityVocabularyType = "OrderedCollectionPage"
)

var ActorTypes = ActivityVocabularyTypes{
	ApplicationType,
	GroupType,
	OrganizationType,
	PersonType,
	ServiceType,
}

var ActivityTypes = ActivityVocabularyTypes{
	ActivityType,
	IntransitiveType,
	AcceptType,
	AddType,
	AnnounceType,
	ArriveType,
	BlockType,
	CreateType,
	DeleteType,
	DislikeType,
	FlagType,
	FollowType,
	IgnoreType,
	InviteType,
	JoinType,
	LeaveType,
	LikeType,
	ListenType,
	MoveType,
	OfferType,
	QuestionType,
	RejectType,
	ReadType,
	RemoveType,
	TentativeAcceptType,
	TentativeRejectType,
	TravelType,
	UndoType,
	UpdateType,
	ViewType,
}

var CollectionTypes = ActivityVocabularyTypes{
	CollectionType,
	OrderedCollectionType,
	CollectionPageType,
	OrderedCollectionPageType,
}

var ObjectTypes = ActivityVocabularyTypes{
	ObjectType,
	ArticleType,
	AudioType,
	DocumentType,
	EventType,
	ImageType,
	NoteType,
	PageType,
	PlaceType,
	ProfileType,
	RelationshipType,
	TombstoneType,
	VideoType,
}

// parentTypes declares the is_or_extends edge for every non-root type.
// Polymorphic checks walk this table instead of relying on language
// inheritance.
var parentTypes = map[ActivityVocabularyType]ActivityVocabularyType{
	ArticleType:      ObjectType,
	AudioType:        DocumentType,
	DocumentType:     ObjectType,
	EventType:        ObjectType,
	ImageType:        DocumentType,
	NoteType:         ObjectType,
	PageType:         DocumentType,
	PlaceType:        ObjectType,
	ProfileType:      ObjectType,
	RelationshipType: ObjectType,
	TombstoneType:    ObjectType,
	VideoType:        DocumentType,
	MentionType:      LinkType,

	ApplicationType:  ObjectType,
	GroupType:        ObjectType,
	OrganizationType: ObjectType,
	PersonType:       ObjectType,
	ServiceType:      ObjectType,

	ActivityType:        ObjectType,
	IntransitiveType:    ActivityType,
	AcceptType:          ActivityType,
	AddType:             ActivityType,
	AnnounceType:        ActivityType,
	ArriveType:          IntransitiveType,
	BlockType:           IgnoreType,
	CreateType:          ActivityType,
	DeleteType:          ActivityType,
	DislikeType:         ActivityType,
	FlagType:            ActivityType,
	FollowType:          ActivityType,
	IgnoreType:          ActivityType,
	InviteType:          OfferType,
	JoinType:            ActivityType,
	LeaveType:           ActivityType,
	LikeType:            ActivityType,
	ListenType:          ActivityType,
	MoveType:            ActivityType,
	OfferType:           ActivityType,
	QuestionType:        IntransitiveType,
	RejectType:          ActivityType,
	ReadType:            ActivityType,
	RemoveType:          ActivityType,
	TentativeAcceptType: AcceptType,
	TentativeRejectType: RejectType,
	TravelType:          IntransitiveType,
	UndoType:            ActivityType,
	UpdateType:          ActivityType,
	ViewType:            ActivityType,

	CollectionPageType:        CollectionType,
	OrderedCollectionType:     CollectionType,
	OrderedCollectionPageType: OrderedCollectionType,
}

// IsOrExtends reports whether t equals other or transitively extends it.
func (t ActivityVocabularyType) IsOrExtends(other ActivityVocabularyType) bool {
	for cur := t; ; {
		if cur == other {
			return true
		}
		p, ok := parentTypes[cur]
		if !ok {
			return false
		}
		cur = p
	}
}

// Item is any ActivityStreams value: an IRI, an object, an activity, an
// actor, or a collection.
type Item interface {
	GetID() IRI
	GetLink() IRI
	GetType() ActivityVocabularyType
	IsLink() bool
	IsObject() bool
	IsCollection() bool
}

// ItemCollection is an ordered sequence of items.
type ItemCollection []Item

// GetID returns the ID of the first element, or the empty IRI.
func (i ItemCollection) GetID() IRI {
	if len(i) == 0 {
		return EmptyIRI
	}
	return i[0].GetID()
}

// GetLink returns the IRI of the first element.
func (i ItemCollection) GetLink() IRI {
	return i.GetID()
}

// GetType returns the item collection pseudo type.
func (i ItemCollection) GetType() ActivityVocabularyType {
	return CollectionType
}

func (i ItemCollection) IsLink() bool       { return false }
func (i ItemCollection) IsObject() bool     { return false }
func (i ItemCollection) IsCollection() bool { return true }

// First returns the first element, or nil.
func (i ItemCollection) First() Item {
	if len(i) == 0 {
		return nil
	}
	return i[0]
}

// Contains reports whether the collection holds an item with the given IRI.
func (i ItemCollection) Contains(iri IRI) bool {
	for _, it := range i {
		if it != nil && it.GetLink().Equals(iri) {
			return true
		}
	}
	return false
}

// Append adds items, skipping ones already present by IRI.
func (i *ItemCollection) Append(items ...Item) {
	for _, it := range items {
		if it == nil {
			continue
		}
		if id := it.GetLink(); len(id) > 0 && i.Contains(id) {
			continue
		}
		*i = append(*i, it)
	}
}

// IRIs returns the identifiers of the member items, dropping anonymous ones.
func (i ItemCollection) IRIs() IRIs {
	res := make(IRIs, 0, len(i))
	for _, it := range i {
		if it == nil {
			continue
		}
		if id := it.GetLink(); len(id) > 0 {
			res = append(res, id)
		}
	}
	return res
}

// ItemCollectionDeduplication flattens the given collections into a single
// collection with every IRI appearing at most once.
func ItemCollectionDeduplication(recCols ...*ItemCollection) ItemCollection {
	rec := make(ItemCollection, 0)
	for _, col := range recCols {
		if col == nil {
			continue
		}
		rec.Append(*col...)
	}
	return rec
}

// IsNil reports whether the item is nil or a typed nil.
func IsNil(it Item) bool {
	if it == nil {
		return true
	}
	switch v := it.(type) {
	case IRI:
		return len(v) == 0
	case *Object:
		return v == nil
	case *Activity:
		return v == nil
	case *Actor:
		return v == nil
	case *Collection:
		return v == nil
	case *CollectionPage:
		return v == nil
	case ItemCollection:
		return len(v) == 0
	}
	return false
}

// IsIRI reports whether the item is an unresolved IRI.
func IsIRI(it Item) bool {
	_, ok := it.(IRI)
	return ok
}

// ToObject coerces an item to its object form. Activities, actors, and
// collections all expose their underlying object attributes.
func ToObject(it Item) (*Object, error) {
	switch v := it.(type) {
	case *Object:
		return v, nil
	case Object:
		return &v, nil
	case *Activity:
		return &v.objectProps, nil
	case *Actor:
		return &v.objectProps, nil
	case *Collection:
		return &v.objectProps, nil
	case *CollectionPage:
		return &v.objectProps, nil
	}
	return nil, fmt.Errorf("unable to convert %T to object", it)
}

// ToActivity coerces an item to an Activity.
func ToActivity(it Item) (*Activity, error) {
	switch v := it.(type) {
	case *Activity:
		return v, nil
	case Activity:
		return &v, nil
	}
	return nil, fmt.Errorf("unable to convert %T to activity", it)
}

// ToActor coerces an item to an Actor.
func ToActor(it Item) (*Actor, error) {
	switch v := it.(type) {
	case *Actor:
		return v, nil
	case Actor:
		return &v, nil
	}
	return nil, fmt.Errorf("unable to convert %T to actor", it)
}

// ToCollection coerces an item to a Collection. Pages coerce to their
// embedded collection.
func ToCollection(it Item) (*Collection, error) {
	switch v := it.(type) {
	case *Collection:
		return v, nil
	case Collection:
		return &v, nil
	case *CollectionPage:
		return &v.Collection, nil
	}
	return nil, fmt.Errorf("unable to convert %T to collection", it)
}

// ToCollectionPage coerces an item to a CollectionPage.
func ToCollectionPage(it Item) (*CollectionPage, error) {
	switch v := it.(type) {
	case *CollectionPage:
		return v, nil
	case CollectionPage:
		return &v, nil
	}
	return nil, fmt.Errorf("unable to convert %T to collection page", it)
}
