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

package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/halcyon-social/halcyon/streams"
)

type contextKey string

const (
	activityContextKey           contextKey = "activity"
	userPathContextKey           contextKey = "userPath"
	actorIRIContextKey           contextKey = "actorIRI"
	completeRequestURLContextKey contextKey = "completeRequestURL"
	privateScopeContextKey       contextKey = "privateScope"
	signedByContextKey           contextKey = "requestSignedBy"
	currentUserIRIContextKey     contextKey = "currentUserIRI"
)

// Context decorates a context.Context with the request-scoped values the
// ActivityPub pipelines thread through their steps.
type Context struct {
	context.Context
}

// WithUserAPHTTPContext sets the user path, actor IRI, and complete request
// URL for a request addressed to a user-scoped endpoint.
func WithUserAPHTTPContext(scheme, host string, r *http.Request, user string) Context {
	c := &Context{r.Context()}
	c.WithUserPath(user)
	c.WithActorIRI(&url.URL{Scheme: scheme, Host: host, Path: "/users/" + user})
	c.WithCompleteRequestURL(r, scheme, host)
	return *c
}

// WithAPHTTPContext sets the complete request URL only.
func WithAPHTTPContext(scheme, host string, r *http.Request) Context {
	c := &Context{r.Context()}
	c.WithCompleteRequestURL(r, scheme, host)
	return *c
}

// WithActivity is used for federating contexts.
func (c *Context) WithActivity(a *streams.Activity) {
	c.Context = context.WithValue(c.Context, activityContextKey, a)
}

// WithUserPath records the username of the box owner being addressed.
func (c *Context) WithUserPath(user string) {
	c.Context = context.WithValue(c.Context, userPathContextKey, user)
}

// WithActorIRI records the IRI of the box owner being addressed.
func (c *Context) WithActorIRI(id *url.URL) {
	c.Context = context.WithValue(c.Context, actorIRIContextKey, id)
}

// WithCompleteRequestURL rebuilds the request URL with the configured scheme
// and host.
func (c *Context) WithCompleteRequestURL(r *http.Request, scheme, host string) {
	u := *r.URL // Copy
	u.Host = host
	u.Scheme = scheme
	c.Context = context.WithValue(c.Context, completeRequestURLContextKey, &u)
}

// WithPrivateScope marks the request as permitted to view private items.
func (c *Context) WithPrivateScope(b bool) {
	c.Context = context.WithValue(c.Context, privateScopeContextKey, b)
}

// WithRequestSignedBy records the actor IRI whose key signed the request.
func (c *Context) WithRequestSignedBy(id *url.URL) {
	c.Context = context.WithValue(c.Context, signedByContextKey, id)
}

// WithCurrentUserIRI records the authenticated C2S user's actor IRI.
func (c *Context) WithCurrentUserIRI(id *url.URL) {
	c.Context = context.WithValue(c.Context, currentUserIRIContextKey, id)
}

// Activity is available in federating contexts after the body is parsed.
func (c Context) Activity() (*streams.Activity, error) {
	v := c.Value(activityContextKey)
	if v == nil {
		return nil, errors.New("no activity in context")
	}
	a, ok := v.(*streams.Activity)
	if !ok {
		return nil, errors.New("activity in context is not a *streams.Activity")
	}
	return a, nil
}

// UserPath is the username of the addressed box owner.
func (c Context) UserPath() (string, error) {
	v := c.Value(userPathContextKey)
	if v == nil {
		return "", errors.New("no user path in context")
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New("user path in context is not a string")
	}
	return s, nil
}

// ActorIRI is the IRI of the addressed box owner.
func (c Context) ActorIRI() (*url.URL, error) {
	return c.toURLValue("actor IRI", actorIRIContextKey)
}

// CompleteRequestURL is available in all ActivityPub HTTP contexts.
func (c Context) CompleteRequestURL() (*url.URL, error) {
	return c.toURLValue("complete request URL", completeRequestURLContextKey)
}

// RequestSignedBy is available after S2S authentication.
func (c Context) RequestSignedBy() (*url.URL, error) {
	return c.toURLValue("request signer", signedByContextKey)
}

// CurrentUserIRI is available after C2S authentication.
func (c Context) CurrentUserIRI() (*url.URL, error) {
	return c.toURLValue("current user IRI", currentUserIRIContextKey)
}

// HasPrivateScope is available in all GET http requests.
func (c Context) HasPrivateScope() bool {
	v := c.Value(privateScopeContextKey)
	b, ok := v.(bool)
	return ok && b
}

func (c Context) toURLValue(name string, key contextKey) (*url.URL, error) {
	v := c.Value(key)
	if v == nil {
		return nil, fmt.Errorf("no %s in context", name)
	}
	u, ok := v.(*url.URL)
	if !ok {
		return nil, fmt.Errorf("%s in context is not a *url.URL", name)
	}
	return u, nil
}
