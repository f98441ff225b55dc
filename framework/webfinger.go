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
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-ap/errors"
	"github.com/halcyon-social/halcyon/paths"
	"github.com/halcyon-social/halcyon/util"
)

const jrdContentType = "application/jrd+json"

// jrd is the JSON Resource Descriptor served for actor discovery.
type jrd struct {
	Subject string    `json:"subject"`
	Aliases []string  `json:"aliases,omitempty"`
	Links   []jrdLink `json:"links"`
}

type jrdLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// webfinger resolves acct:name@host resources to the actor document.
func (h *handlers) webfinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		errors.HandleError(errors.BadRequestf("missing resource query parameter")).ServeHTTP(w, r)
		return
	}
	acct := strings.TrimPrefix(resource, "acct:")
	name, host, found := strings.Cut(acct, "@")
	if !found || !strings.EqualFold(host, h.host) {
		errors.HandleError(errors.NotFoundf("unknown resource: %s", resource)).ServeHTTP(w, r)
		return
	}
	uc := util.WithAPHTTPContext(h.scheme, h.host, r)
	if !h.userExists(uc, name) {
		errors.HandleError(errors.NotFoundf("unknown resource: %s", resource)).ServeHTTP(w, r)
		return
	}
	actorIRI := paths.UserIRIFor(h.scheme, h.host, paths.UserPathKey, name).String()
	doc := jrd{
		Subject: "acct:" + name + "@" + h.host,
		Aliases: []string{actorIRI},
		Links: []jrdLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: actorIRI,
			},
		},
	}
	w.Header().Set("Content-Type", jrdContentType)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}
