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

// Package framework wires the protocol engine, services, and configuration
// into a runnable HTTP server.
package framework

import (
	"net/http"

	"github.com/go-ap/errors"
	"github.com/gorilla/mux"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/services"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
)

// handlers serves the non-pipeline ActivityPub documents: actor documents,
// collections, and stored activities and objects.
type handlers struct {
	scheme string
	host   string
	users  *services.Users
	data   *services.Data
	col    *services.Collections
}

func (h *handlers) ctx(r *http.Request) util.Context {
	user := mux.Vars(r)["user"]
	return util.WithUserAPHTTPContext(h.scheme, h.host, r, user)
}

func (h *handlers) writeItem(w http.ResponseWriter, r *http.Request, it streams.Item, status int) {
	raw, err := streams.Serialize(it)
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", pub.ActivityStreamsContentType)
	w.WriteHeader(status)
	w.Write(raw)
}

// getActor serves the actor document with the security context attached.
func (h *handlers) getActor(w http.ResponseWriter, r *http.Request) {
	uc := h.ctx(r)
	user := mux.Vars(r)["user"]
	u, err := h.users.ByNickname(uc, user)
	if err != nil {
		errors.HandleError(errors.NotFoundf("unknown actor: %s", user)).ServeHTTP(w, r)
		return
	}
	it, err := streams.ToItem(u.Actor)
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	actor, err := streams.ToActor(it)
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	raw, err := streams.SerializeActor(actor)
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", pub.ActivityStreamsContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// getData serves a stored activity or object, answering 410 Gone with the
// tombstone body after a deletion.
func (h *handlers) getData(w http.ResponseWriter, r *http.Request) {
	uc := h.ctx(r)
	iri, err := uc.CompleteRequestURL()
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	it, err := h.data.Get(uc, iri)
	if err != nil {
		errors.HandleError(errors.NotFoundf("nothing stored at %s", iri)).ServeHTTP(w, r)
		return
	}
	if ob, err := streams.ToObject(it); err == nil && ob.IsTombstone() {
		h.writeItem(w, r, it, http.StatusGone)
		return
	}
	h.writeItem(w, r, it, http.StatusOK)
}

// getCollection serves a public collection: followers, following, liked,
// featured, likes, shares.
func (h *handlers) getCollection(w http.ResponseWriter, r *http.Request) {
	uc := h.ctx(r)
	iri, err := uc.CompleteRequestURL()
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	it, err := h.col.GetCollection(uc, iri, nil, false)
	if err != nil {
		errors.HandleError(err).ServeHTTP(w, r)
		return
	}
	h.writeItem(w, r, it, http.StatusOK)
}

// userExists guards user-scoped routes.
func (h *handlers) userExists(uc util.Context, user string) bool {
	_, err := h.users.ByNickname(uc, user)
	return err == nil
}

// requireUser 404s unknown users before the wrapped handler runs.
func (h *handlers) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc := h.ctx(r)
		user := mux.Vars(r)["user"]
		if !h.userExists(uc, user) {
			errors.HandleError(errors.NotFoundf("unknown actor: %s", user)).ServeHTTP(w, r)
			return
		}
		next(w, r.WithContext(uc.Context))
	}
}
