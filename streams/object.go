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
	"time"

	"github.com/valyala/fastjson"
)

// Object is the base ActivityStreams type. All other vocabulary types carry
// its attributes.
type Object struct {
	// ID is the globally unique identifier.
	ID ID
	// Type discriminates the vocabulary type. A JSON "type" set keeps its
	// first member here and the remainder in extraTypes.
	Type       ActivityVocabularyType
	extraTypes []ActivityVocabularyType
	// Name is a plain-text, possibly language-mapped name.
	Name NaturalLanguageValues
	// Summary is a natural language summary, possibly language-mapped.
	Summary NaturalLanguageValues
	// Content is the textual representation, HTML by default.
	Content NaturalLanguageValues
	// Attachment is a related resource.
	Attachment Item
	// AttributedTo identifies the entity the object is attributed to.
	AttributedTo Item
	// Audience is the total population the object is relevant to.
	Audience ItemCollection
	// Context groups objects sharing a common origin or purpose.
	Context Item
	// MediaType identifies the MIME type of Content.
	MediaType MimeType
	// Icon is a small-presentation image.
	Icon Item
	// Image is a full-size image.
	Image Item
	// InReplyTo names the entities this object responds to.
	InReplyTo Item
	// Published is the publication instant.
	Published time.Time
	// Updated is the last-update instant.
	Updated time.Time
	// Replies is a collection of responses to this object.
	Replies Item
	// Tag is the set of associated-by-reference objects.
	Tag ItemCollection
	// URL links to representations of the object.
	URL Item
	// To is the public primary audience.
	To ItemCollection
	// Bto is the private primary audience.
	Bto ItemCollection
	// CC is the public secondary audience.
	CC ItemCollection
	// BCC is the private secondary audience.
	BCC ItemCollection
	// Duration is the approximate length of a time-bound resource.
	Duration time.Duration
	// Likes collects Like activities targeting this object.
	Likes Item
	// Shares collects Announce activities targeting this object.
	Shares Item
	// Source carries the pre-conversion markup of Content.
	Source Source
	// FormerType is set on a Tombstone to the type of the deleted object.
	FormerType ActivityVocabularyType
	// Deleted is set on a Tombstone to the deletion instant.
	Deleted time.Time
}

// objectProps is the embeddable alias used by the other vocabulary types so
// that their own "object" properties do not collide with the promoted field.
type objectProps = Object

// Source conveys the markup an object's content was derived from.
type Source struct {
	Content   NaturalLanguageValues
	MediaType MimeType
}

// ObjectNew initializes an Object of the given type.
func ObjectNew(typ ActivityVocabularyType) *Object {
	if typ == "" {
		typ = ObjectType
	}
	return &Object{Type: typ}
}

func (o Object) GetID() IRI                      { return o.ID }
func (o Object) GetLink() IRI                    { return o.ID }
func (o Object) GetType() ActivityVocabularyType { return o.Type }
func (o Object) IsLink() bool                    { return false }
func (o Object) IsObject() bool                  { return true }
func (o Object) IsCollection() bool              { return false }

// IsTombstone reports whether the object is a deletion placeholder.
func (o Object) IsTombstone() bool {
	return o.Type == TombstoneType
}

// Recipients returns the deduplicated union of the addressing properties.
func (o *Object) Recipients() ItemCollection {
	return ItemCollectionDeduplication(&o.To, &o.Bto, &o.CC, &o.BCC, &o.Audience)
}

// Clean removes the hidden addressing properties before serialization for
// delivery.
func (o *Object) Clean() {
	o.Bto = nil
	o.BCC = nil
}

func (o *Object) UnmarshalJSON(data []byte) error {
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(data)
	if err != nil {
		return err
	}
	typ, extra := jsonGetTypes(v)
	o.fromValue(v, typ, extra)
	return nil
}

func (o *Object) fromValue(v *fastjson.Value, typ ActivityVocabularyType, extra []ActivityVocabularyType) {
	o.Type = typ
	o.extraTypes = extra
	o.readProps(v)
}

func (o *Object) readProps(v *fastjson.Value) {
	o.ID = jsonGetID(v)
	o.Name = jsonGetNaturalLanguage(v, "name")
	o.Summary = jsonGetNaturalLanguage(v, "summary")
	o.Content = jsonGetNaturalLanguage(v, "content")
	o.Attachment = jsonGetItem(v, "attachment")
	o.AttributedTo = jsonGetItem(v, "attributedTo")
	o.Audience = jsonGetItems(v, "audience")
	o.Context = jsonGetItem(v, "context")
	o.MediaType = MimeType(jsonGetString(v, "mediaType"))
	o.Icon = jsonGetItem(v, "icon")
	o.Image = jsonGetItem(v, "image")
	o.InReplyTo = jsonGetItem(v, "inReplyTo")
	o.Published = jsonGetTime(v, "published")
	o.Updated = jsonGetTime(v, "updated")
	o.Replies = jsonGetItem(v, "replies")
	o.Tag = jsonGetItems(v, "tag")
	o.URL = jsonGetItem(v, "url")
	o.To = jsonGetItems(v, "to")
	o.Bto = jsonGetItems(v, "bto")
	o.CC = jsonGetItems(v, "cc")
	o.BCC = jsonGetItems(v, "bcc")
	o.Duration = jsonGetDuration(v, "duration")
	o.Likes = jsonGetItem(v, "likes")
	o.Shares = jsonGetItem(v, "shares")
	if src := v.Get("source"); src != nil {
		o.Source.Content = jsonGetNaturalLanguage(src, "content")
		o.Source.MediaType = MimeType(jsonGetString(src, "mediaType"))
	}
	o.FormerType = ActivityVocabularyType(jsonGetString(v, "formerType"))
	o.Deleted = jsonGetTime(v, "deleted")
}

func (o Object) MarshalJSON() ([]byte, error) {
	w := &propWriter{}
	o.writeProps(w)
	return w.finish(), nil
}

func (o *Object) writeProps(w *propWriter) {
	w.str("id", string(o.ID))
	w.typ(o.Type, o.extraTypes)
	w.natLang("name", o.Name)
	w.natLang("summary", o.Summary)
	w.natLang("content", o.Content)
	w.item("attachment", o.Attachment)
	w.item("attributedTo", o.AttributedTo)
	w.items("audience", o.Audience)
	w.item("context", o.Context)
	w.str("mediaType", string(o.MediaType))
	w.item("icon", o.Icon)
	w.item("image", o.Image)
	w.item("inReplyTo", o.InReplyTo)
	w.timeProp("published", o.Published)
	w.timeProp("updated", o.Updated)
	w.item("replies", o.Replies)
	w.items("tag", o.Tag)
	w.item("url", o.URL)
	w.items("to", o.To)
	w.items("bto", o.Bto)
	w.items("cc", o.CC)
	w.items("bcc", o.BCC)
	w.duration("duration", o.Duration)
	w.item("likes", o.Likes)
	w.item("shares", o.Shares)
	if !o.Source.Content.Empty() {
		sw := &propWriter{}
		sw.natLang("content", o.Source.Content)
		sw.str("mediaType", string(o.Source.MediaType))
		w.raw("source", sw.finish())
	}
	w.str("formerType", string(o.FormerType))
	w.timeProp("deleted", o.Deleted)
}

// TombstoneFor builds the Tombstone replacing the given object.
func TombstoneFor(o *Object, deleted time.Time) *Object {
	return &Object{
		ID:         o.ID,
		Type:       TombstoneType,
		FormerType: o.Type,
		Deleted:    deleted,
	}
}
