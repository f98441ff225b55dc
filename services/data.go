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

package services

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
	"github.com/microcosm-cc/bluemonday"
)

// Data stores and retrieves ActivityStreams payloads, routing locally-owned
// IRIs to local storage and everything else to federated storage.
type Data struct {
	DB        *sql.DB
	Hostname  string
	FedData   *models.FedData
	LocalData *models.LocalData
	Clock     pub.Clock

	sanitizer *bluemonday.Policy
}

// NewData builds the data service with the user-generated-content HTML
// sanitizer applied to stored content.
func NewData(db *sql.DB, hostname string, fd *models.FedData, ld *models.LocalData, clock pub.Clock) *Data {
	return &Data{
		DB:        db,
		Hostname:  hostname,
		FedData:   fd,
		LocalData: ld,
		Clock:     clock,
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Owns reports whether the IRI belongs to this server.
func (d *Data) Owns(id *url.URL) bool {
	return strings.EqualFold(id.Host, d.Hostname)
}

// Exists reports whether a payload is stored at the IRI.
func (d *Data) Exists(c util.Context, id *url.URL) (exists bool, err error) {
	err = doInTx(c, d.DB, func(tx *sql.Tx) error {
		if d.Owns(id) {
			exists, err = d.LocalData.Exists(c, tx, paths.Normalize(id))
		} else {
			exists, err = d.FedData.Exists(c, tx, paths.Normalize(id))
		}
		return err
	})
	return
}

// Get returns the value stored at the IRI. Tombstoned local data is
// returned as its Tombstone.
func (d *Data) Get(c util.Context, id *url.URL) (it streams.Item, err error) {
	var payload []byte
	err = doInTx(c, d.DB, func(tx *sql.Tx) error {
		if d.Owns(id) {
			payload, _, err = d.LocalData.Get(c, tx, paths.Normalize(id))
		} else {
			payload, err = d.FedData.Get(c, tx, paths.Normalize(id))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return streams.ToItem(payload)
}

// Create stores a new payload under its id.
func (d *Data) Create(c util.Context, it streams.Item) error {
	d.sanitizeContent(it)
	id, raw, err := d.serialize(it)
	if err != nil {
		return err
	}
	return doInTx(c, d.DB, func(tx *sql.Tx) error {
		if d.Owns(id) {
			return d.LocalData.Create(c, tx, id, raw)
		}
		return d.FedData.Create(c, tx, id, raw)
	})
}

// Update performs a complete replacement of the payload at the item's id.
func (d *Data) Update(c util.Context, it streams.Item) error {
	d.sanitizeContent(it)
	id, raw, err := d.serialize(it)
	if err != nil {
		return err
	}
	return doInTx(c, d.DB, func(tx *sql.Tx) error {
		if d.Owns(id) {
			return d.LocalData.Update(c, tx, id, raw)
		}
		return d.FedData.Update(c, tx, id, raw)
	})
}

// Delete replaces the stored object, local or federated, with its Tombstone.
// A federated payload that is not an object is removed outright.
func (d *Data) Delete(c util.Context, id *url.URL) error {
	id = paths.Normalize(id)
	if !d.Owns(id) {
		stored, err := d.Get(c, id)
		if err != nil {
			return err
		}
		return doInTx(c, d.DB, func(tx *sql.Tx) error {
			ob, err := streams.ToObject(stored)
			if err != nil {
				return d.FedData.Delete(c, tx, id)
			}
			raw, err := streams.MarshalItem(streams.TombstoneFor(ob, d.now()))
			if err != nil {
				return err
			}
			return d.FedData.Update(c, tx, id, raw)
		})
	}
	stored, err := d.Get(c, id)
	if err != nil {
		return err
	}
	ob, err := streams.ToObject(stored)
	if err != nil {
		return err
	}
	raw, err := streams.MarshalItem(streams.TombstoneFor(ob, d.now()))
	if err != nil {
		return err
	}
	return doInTx(c, d.DB, func(tx *sql.Tx) error {
		return d.LocalData.Tombstone(c, tx, id, raw)
	})
}

func (d *Data) now() time.Time {
	if d.Clock != nil {
		return d.Clock.Now()
	}
	return time.Now().UTC()
}

func (d *Data) serialize(it streams.Item) (*url.URL, []byte, error) {
	id, err := it.GetID().URL()
	if err != nil {
		return nil, nil, err
	}
	raw, err := streams.MarshalItem(it)
	if err != nil {
		return nil, nil, err
	}
	return paths.Normalize(id), raw, nil
}

// sanitizeContent scrubs the HTML of content fields before storage.
func (d *Data) sanitizeContent(it streams.Item) {
	ob, err := streams.ToObject(it)
	if err != nil {
		return
	}
	for i, v := range ob.Content {
		ob.Content[i].Value = d.sanitizer.Sanitize(v.Value)
	}
	for i, v := range ob.Summary {
		ob.Summary[i].Value = d.sanitizer.Sanitize(v.Value)
	}
	if act, err := streams.ToActivity(it); err == nil && !streams.IsNil(act.Object) {
		if inner, err := streams.ToObject(act.Object); err == nil {
			for i, v := range inner.Content {
				inner.Content[i].Value = d.sanitizer.Sanitize(v.Value)
			}
		}
	}
}
