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
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/halcyon-social/halcyon/models"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServices(t *testing.T) (*Collections, *Data, *Relationships) {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	dialect, err := models.NewSqlDialect("sqlite")
	require.NoError(t, err)

	colModel := &models.Collections{}
	fedModel := &models.FedData{}
	localModel := &models.LocalData{}
	relModel := &models.Relationships{}
	tx, err := sqlDB.Begin()
	require.NoError(t, err)
	for _, m := range []models.Model{colModel, fedModel, localModel, relModel} {
		require.NoError(t, m.CreateTable(tx, dialect))
	}
	require.NoError(t, tx.Commit())
	for _, m := range []models.Model{colModel, fedModel, localModel, relModel} {
		require.NoError(t, m.Prepare(sqlDB, dialect))
	}

	data := NewData(sqlDB, "example.com", fedModel, localModel, nil)
	col := &Collections{
		DB:          sqlDB,
		Collections: colModel,
		Data:        data,
		DefaultSize: 30,
		MaxSize:     200,
	}
	rel := &Relationships{DB: sqlDB, Relationships: relModel, BlockCache: util.NewTTLCache(time.Minute)}
	return col, data, rel
}

func uc() util.Context {
	return util.Context{Context: context.Background()}
}

func TestCollectionPagingInvariants(t *testing.T) {
	col, _, _ := testServices(t)
	col.DefaultSize = 10
	base, _ := url.Parse("https://example.com/users/alyssa/outbox")

	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	total := 25
	for i := 0; i < total; i++ {
		item, _ := url.Parse(fmt.Sprintf("https://example.com/users/alyssa/activities/%d", i))
		require.NoError(t, col.AddWithOrd(uc(), base, item, paths.NewULID(t0.Add(time.Duration(i)*time.Minute)), t0))
	}
	// Duplicate adds are idempotent.
	dup, _ := url.Parse("https://example.com/users/alyssa/activities/0")
	require.NoError(t, col.Add(uc(), base, dup, t0))

	it, err := col.GetCollection(uc(), base, nil, false)
	require.NoError(t, err)
	summary, err := streams.ToCollection(it)
	require.NoError(t, err)
	assert.Equal(t, uint(total), summary.TotalItems)
	require.False(t, streams.IsNil(summary.First))

	// Walk every page via next; the page item counts must sum to total and
	// the ordering keys must strictly descend.
	pageIRI, err := summary.First.GetLink().URL()
	require.NoError(t, err)
	seen := 0
	var lastOrd string
	for pages := 0; pageIRI != nil && pages < 10; pages++ {
		it, err := col.GetCollection(uc(), pageIRI, nil, false)
		require.NoError(t, err)
		page, err := streams.ToCollectionPage(it)
		require.NoError(t, err)
		seen += len(page.Items)
		if streams.IsNil(page.Next) {
			pageIRI = nil
		} else {
			next, err := page.Next.GetLink().URL()
			require.NoError(t, err)
			// The next cursor continues strictly older.
			cursor, ok := paths.GetMaxID(next)
			require.True(t, ok)
			if lastOrd != "" {
				assert.Less(t, cursor.String(), lastOrd)
			}
			lastOrd = cursor.String()
			pageIRI = next
		}
	}
	assert.Equal(t, total, seen, "sum of page sizes must equal totalItems")
}

func TestCollectionPagingCursors(t *testing.T) {
	col, _, _ := testServices(t)
	col.DefaultSize = 10
	base, _ := url.Parse("https://example.com/users/alyssa/inbox")

	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var ords []paths.ULID
	for i := 0; i < 5; i++ {
		item, _ := url.Parse(fmt.Sprintf("https://example.com/users/alyssa/activities/c%d", i))
		ord := paths.NewULID(t0.Add(time.Duration(i) * time.Minute))
		ords = append(ords, ord)
		require.NoError(t, col.AddWithOrd(uc(), base, item, ord, t0))
	}

	// max_id pages strictly older than the cursor.
	older, err := col.GetCollection(uc(), paths.PageIRIBefore(base, ords[2]), nil, false)
	require.NoError(t, err)
	olderPage, err := streams.ToCollectionPage(older)
	require.NoError(t, err)
	assert.Len(t, olderPage.Items, 2)

	// min_id pages strictly newer than the cursor.
	newer, err := col.GetCollection(uc(), paths.PageIRIAfter(base, ords[2]), nil, false)
	require.NoError(t, err)
	newerPage, err := streams.ToCollectionPage(newer)
	require.NoError(t, err)
	assert.Len(t, newerPage.Items, 2)
	// Presentation order stays newest-first.
	assert.Equal(t, "https://example.com/users/alyssa/activities/c4", newerPage.Items[0].GetLink().String())
}

func TestViewerFiltering(t *testing.T) {
	col, data, _ := testServices(t)
	base, _ := url.Parse("https://example.com/users/alyssa/inbox")

	pub := streams.ObjectNew(streams.NoteType)
	pub.ID = "https://example.com/users/alyssa/objects/pub1"
	pub.To = streams.ItemCollection{streams.PublicNS}
	require.NoError(t, data.Create(uc(), pub))

	private := streams.ObjectNew(streams.NoteType)
	private.ID = "https://example.com/users/alyssa/objects/priv1"
	private.To = streams.ItemCollection{streams.IRI("https://example.com/users/alyssa")}
	require.NoError(t, data.Create(uc(), private))

	t0 := time.Now()
	for _, iri := range []string{string(pub.ID), string(private.ID)} {
		u, _ := url.Parse(iri)
		require.NoError(t, col.Add(uc(), base, u, t0))
		t0 = t0.Add(time.Second)
	}

	anon, err := col.GetCollection(uc(), paths.FirstPageIRI(base), nil, true)
	require.NoError(t, err)
	anonPage, err := streams.ToCollectionPage(anon)
	require.NoError(t, err)
	require.Len(t, anonPage.Items, 1)
	assert.Equal(t, pub.ID, anonPage.Items[0].GetLink())

	viewer, _ := url.Parse("https://example.com/users/alyssa")
	owned, err := col.GetCollection(uc(), paths.FirstPageIRI(base), viewer, true)
	require.NoError(t, err)
	ownedPage, err := streams.ToCollectionPage(owned)
	require.NoError(t, err)
	assert.Len(t, ownedPage.Items, 2)
}

func TestDataTombstone(t *testing.T) {
	_, data, _ := testServices(t)
	note := streams.ObjectNew(streams.NoteType)
	note.ID = "https://example.com/users/alyssa/objects/t1"
	note.AttributedTo = streams.IRI("https://example.com/users/alyssa")
	require.NoError(t, data.Create(uc(), note))

	id, _ := url.Parse(string(note.ID))
	require.NoError(t, data.Delete(uc(), id))

	it, err := data.Get(uc(), id)
	require.NoError(t, err)
	ob, err := streams.ToObject(it)
	require.NoError(t, err)
	assert.True(t, ob.IsTombstone())
	assert.Equal(t, streams.NoteType, ob.FormerType)
}

func TestRelationships(t *testing.T) {
	_, _, rel := testServices(t)
	alyssa, _ := url.Parse("https://example.com/users/alyssa")
	ben, _ := url.Parse("https://chatty.example/users/ben")

	require.NoError(t, rel.Follow(uc(), ben, alyssa, false))
	exists, accepted, err := rel.FollowState(uc(), ben, alyssa)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.False(t, accepted)

	require.NoError(t, rel.AcceptFollow(uc(), ben, alyssa))
	_, accepted, err = rel.FollowState(uc(), ben, alyssa)
	require.NoError(t, err)
	assert.True(t, accepted)

	require.NoError(t, rel.Unfollow(uc(), ben, alyssa))
	exists, _, err = rel.FollowState(uc(), ben, alyssa)
	require.NoError(t, err)
	assert.False(t, exists)

	blocked, err := rel.AnyBlocked(uc(), alyssa, []*url.URL{ben})
	require.NoError(t, err)
	assert.False(t, blocked)
	require.NoError(t, rel.Block(uc(), alyssa, ben))
	blocked, err = rel.AnyBlocked(uc(), alyssa, []*url.URL{ben})
	require.NoError(t, err)
	assert.True(t, blocked)
	require.NoError(t, rel.Unblock(uc(), alyssa, ben))
	blocked, err = rel.AnyBlocked(uc(), alyssa, []*url.URL{ben})
	require.NoError(t, err)
	assert.False(t, blocked)
}
