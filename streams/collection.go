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

// Collection is an ordered or unordered set of items. Ordering is carried by
// the type member (OrderedCollection serializes items under "orderedItems").
type Collection struct {
	objectProps
	// TotalItems is the total number of items across all pages.
	TotalItems uint
	// Items holds the member items of this value.
	Items ItemCollection
	// First links the first page.
	First Item
	// Last links the last page.
	Last Item
	// Current links the page with the most recent items.
	Current Item
}

// CollectionPage is one page of a collection.
type CollectionPage struct {
	Collection
	// PartOf links the collection this page belongs to.
	PartOf Item
	// Next links the following page.
	Next Item
	// Prev links the preceding page.
	Prev Item
}

// CollectionNew initializes an unordered Collection.
func CollectionNew(id ID) *Collection {
	c := &Collection{}
	c.ID = id
	c.Type = CollectionType
	return c
}

// OrderedCollectionNew initializes an OrderedCollection.
func OrderedCollectionNew(id ID) *Collection {
	c := &Collection{}
	c.ID = id
	c.Type = OrderedCollectionType
	return c
}

// OrderedCollectionPageNew initializes a page of an OrderedCollection.
func OrderedCollectionPageNew(id ID, partOf Item) *CollectionPage {
	p := &CollectionPage{}
	p.ID = id
	p.Type = OrderedCollectionPageType
	p.PartOf = partOf
	return p
}

// CollectionPageNew initializes a page of an unordered Collection.
func CollectionPageNew(id ID, partOf Item) *CollectionPage {
	p := &CollectionPage{}
	p.ID = id
	p.Type = CollectionPageType
	p.PartOf = partOf
	return p
}

func (c Collection) IsCollection() bool { return true }

// Ordered reports whether items carry insertion order.
func (c Collection) Ordered() bool {
	return c.Type == OrderedCollectionType || c.Type == OrderedCollectionPageType
}

// Count returns the number of items on this value.
func (c Collection) Count() uint {
	return uint(len(c.Items))
}

// Contains reports whether the collection holds the IRI.
func (c Collection) Contains(iri IRI) bool {
	return c.Items.Contains(iri)
}

// Append adds items to the collection, adjusting TotalItems.
func (c *Collection) Append(items ...Item) {
	before := len(c.Items)
	c.Items.Append(items...)
	c.TotalItems += uint(len(c.Items) - before)
}

func (c *Collection) UnmarshalJSON(data []byte) error {
	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(data)
	if err != nil {
		return err
	}
	typ, extra := jsonGetTypes(v)
	c.fromValue(v, typ, extra)
	return nil
}

func (c *Collection) fromValue(v *fastjson.Value, typ ActivityVocabularyType, extra []ActivityVocabularyType) {
	c.Type = typ
	c.extraTypes = extra
	c.readProps(v)
	c.TotalItems = jsonGetUint(v, "totalItems")
	if c.Ordered() {
		c.Items = jsonGetItems(v, "orderedItems")
	} else {
		c.Items = jsonGetItems(v, "items")
	}
	c.First = jsonGetItem(v, "first")
	c.Last = jsonGetItem(v, "last")
	c.Current = jsonGetItem(v, "current")
}

func (c Collection) MarshalJSON() ([]byte, error) {
	w := &propWriter{}
	c.writeCollectionProps(w)
	return w.finish(), nil
}

func (c *Collection) writeCollectionProps(w *propWriter) {
	c.writeProps(w)
	w.uint("totalItems", c.TotalItems, true)
	name := "items"
	if c.Ordered() {
		name = "orderedItems"
	}
	if len(c.Items) == 1 {
		// A one-element page still serializes as an array.
		raw, err := MarshalItem(c.Items)
		if err == nil {
			w.raw(name, raw)
		}
	} else {
		w.items(name, c.Items)
	}
	w.item("first", c.First)
	w.item("last", c.Last)
	w.item("current", c.Current)
}

func (p *CollectionPage) UnmarshalJSON(data []byte) error {
	par := parserPool.Get()
	defer parserPool.Put(par)
	v, err := par.ParseBytes(data)
	if err != nil {
		return err
	}
	typ, extra := jsonGetTypes(v)
	p.fromValue(v, typ, extra)
	return nil
}

func (p *CollectionPage) fromValue(v *fastjson.Value, typ ActivityVocabularyType, extra []ActivityVocabularyType) {
	p.Collection.fromValue(v, typ, extra)
	p.PartOf = jsonGetItem(v, "partOf")
	p.Next = jsonGetItem(v, "next")
	p.Prev = jsonGetItem(v, "prev")
}

func (p CollectionPage) MarshalJSON() ([]byte, error) {
	w := &propWriter{}
	p.writeCollectionProps(w)
	w.item("partOf", p.PartOf)
	w.item("next", p.Next)
	w.item("prev", p.Prev)
	return w.finish(), nil
}
