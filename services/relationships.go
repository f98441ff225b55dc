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

	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/util"
)

// Relationships manages follower and block records. Block lists are
// read-mostly and cached with a short TTL, invalidated on local mutation.
type Relationships struct {
	DB            *sql.DB
	Relationships *models.Relationships
	BlockCache    *util.TTLCache
}

// Follow records the relationship in the given state.
func (s *Relationships) Follow(c util.Context, follower, target *url.URL, accepted bool) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Relationships.Follow(c, tx, paths.Normalize(follower), paths.Normalize(target), accepted)
	})
}

// AcceptFollow transitions pending to accepted.
func (s *Relationships) AcceptFollow(c util.Context, follower, target *url.URL) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Relationships.AcceptFollow(c, tx, paths.Normalize(follower), paths.Normalize(target))
	})
}

// Unfollow removes the relationship.
func (s *Relationships) Unfollow(c util.Context, follower, target *url.URL) error {
	return doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Relationships.Unfollow(c, tx, paths.Normalize(follower), paths.Normalize(target))
	})
}

// FollowState reports whether the relationship exists and is accepted.
func (s *Relationships) FollowState(c util.Context, follower, target *url.URL) (exists, accepted bool, err error) {
	err = doInTx(c, s.DB, func(tx *sql.Tx) error {
		exists, accepted, err = s.Relationships.FollowState(c, tx, paths.Normalize(follower), paths.Normalize(target))
		return err
	})
	return
}

// Block records the block and invalidates the owner's cached block list.
func (s *Relationships) Block(c util.Context, owner, target *url.URL) error {
	err := doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Relationships.Block(c, tx, paths.Normalize(owner), paths.Normalize(target))
	})
	if err == nil && s.BlockCache != nil {
		s.BlockCache.Invalidate(paths.Normalize(owner).String())
	}
	return err
}

// Unblock removes the block and invalidates the owner's cached block list.
func (s *Relationships) Unblock(c util.Context, owner, target *url.URL) error {
	err := doInTx(c, s.DB, func(tx *sql.Tx) error {
		return s.Relationships.Unblock(c, tx, paths.Normalize(owner), paths.Normalize(target))
	})
	if err == nil && s.BlockCache != nil {
		s.BlockCache.Invalidate(paths.Normalize(owner).String())
	}
	return err
}

// AnyBlocked reports whether the owner blocks any of the given actors.
func (s *Relationships) AnyBlocked(c util.Context, owner *url.URL, actors []*url.URL) (bool, error) {
	blocked, err := s.blockedSet(c, owner)
	if err != nil {
		return false, err
	}
	for _, a := range actors {
		if blocked[paths.Normalize(a).String()] {
			return true, nil
		}
	}
	return false, nil
}

func (s *Relationships) blockedSet(c util.Context, owner *url.URL) (map[string]bool, error) {
	key := paths.Normalize(owner).String()
	if s.BlockCache != nil {
		if v, ok := s.BlockCache.Get(key); ok {
			return v.(map[string]bool), nil
		}
	}
	var listed []string
	err := doInTx(c, s.DB, func(tx *sql.Tx) (err error) {
		listed, err = s.Relationships.ListBlocked(c, tx, paths.Normalize(owner))
		return
	})
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(listed))
	for _, v := range listed {
		set[v] = true
	}
	if s.BlockCache != nil {
		s.BlockCache.Put(key, set)
	}
	return set, nil
}
