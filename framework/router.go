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

package framework

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/util"
)

// buildRouter lays out the wire-exact ActivityPub endpoints.
func (f *Framework) buildRouter() *mux.Router {
	r := mux.NewRouter()
	h := f.handlers

	if f.config.WebFingerConfig.EnableWebFinger {
		r.HandleFunc("/.well-known/webfinger", h.webfinger).Methods(http.MethodGet)
	}

	r.HandleFunc("/users/{user}", h.requireUser(h.getActor)).Methods(http.MethodGet)

	r.HandleFunc("/users/{user}/inbox", h.requireUser(f.postInbox)).Methods(http.MethodPost)
	r.HandleFunc("/users/{user}/inbox", h.requireUser(f.getInbox)).Methods(http.MethodGet)
	r.HandleFunc("/users/{user}/outbox", h.requireUser(f.postOutbox)).Methods(http.MethodPost)
	r.HandleFunc("/users/{user}/outbox", h.requireUser(f.getOutbox)).Methods(http.MethodGet)

	for _, col := range []string{"followers", "following", "liked", "featured"} {
		r.HandleFunc("/users/{user}/"+col, h.requireUser(h.getCollection)).Methods(http.MethodGet)
	}

	r.HandleFunc("/users/{user}/activities/{id}", h.requireUser(h.getData)).Methods(http.MethodGet)
	r.HandleFunc("/users/{user}/objects/{id}", h.requireUser(h.getData)).Methods(http.MethodGet)
	r.HandleFunc("/users/{user}/objects/{id}/likes", h.requireUser(h.getCollection)).Methods(http.MethodGet)
	r.HandleFunc("/users/{user}/objects/{id}/shares", h.requireUser(h.getCollection)).Methods(http.MethodGet)

	return r
}

// The pipeline endpoints delegate to the protocol actor; per-request
// context was attached by requireUser.
func (f *Framework) postInbox(w http.ResponseWriter, r *http.Request) {
	if handled, err := f.actor.PostInbox(r.Context(), w, r); err != nil {
		util.ErrorLogger.Errorf("postInbox: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
	} else if !handled {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *Framework) getInbox(w http.ResponseWriter, r *http.Request) {
	if handled, err := f.actor.GetInbox(r.Context(), w, r); err != nil {
		util.ErrorLogger.Errorf("getInbox: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
	} else if !handled {
		// A plain browser request for the inbox has no HTML rendering
		// here; insist on ActivityPub negotiation.
		w.Header().Set("Accept", pub.ActivityStreamsContentType)
		w.WriteHeader(http.StatusNotAcceptable)
	}
}

func (f *Framework) postOutbox(w http.ResponseWriter, r *http.Request) {
	if handled, err := f.actor.PostOutbox(r.Context(), w, r); err != nil {
		util.ErrorLogger.Errorf("postOutbox: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
	} else if !handled {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *Framework) getOutbox(w http.ResponseWriter, r *http.Request) {
	if handled, err := f.actor.GetOutbox(r.Context(), w, r); err != nil {
		util.ErrorLogger.Errorf("getOutbox: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
	} else if !handled {
		w.Header().Set("Accept", pub.ActivityStreamsContentType)
		w.WriteHeader(http.StatusNotAcceptable)
	}
}
