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

package pub

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the namespaced class of a protocol error. The HTTP boundary maps
// kinds to status codes; dispatch errors carry their kind to the 422 body.
type Kind string

const (
	KindMalformedBody        Kind = "malformed_body"
	KindUnauthenticated      Kind = "unauthenticated"
	KindUnauthorizedCreate   Kind = "unauthorized_create"
	KindActorSpoofed         Kind = "actor_spoofed"
	KindObjectSpoofed        Kind = "object_spoofed"
	KindActorRequired        Kind = "actor_required"
	KindObjectRequired       Kind = "object_required"
	KindTargetRequired       Kind = "target_required"
	KindNotFound             Kind = "not_found"
	KindGone                 Kind = "gone"
	KindBlocked              Kind = "blocked"
	KindUndoTypeNotSupported Kind = "undo_type_not_supported"
	KindInternalDatabase     Kind = "internal_database_error"
)

// Error is a protocol error with a machine-readable kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a typed protocol error.
func NewError(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors for the required-property checks done throughout dispatch.
var (
	ErrActorRequired  = &Error{Kind: KindActorRequired, Message: "activity has no actor"}
	ErrObjectRequired = &Error{Kind: KindObjectRequired, Message: "activity has no object"}
	ErrTargetRequired = &Error{Kind: KindTargetRequired, Message: "activity has no target"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrGone           = &Error{Kind: KindGone, Message: "gone"}
)

// KindOf extracts the protocol kind of an error, defaulting to the internal
// database kind for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalDatabase
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind Kind) int {
	switch kind {
	case KindMalformedBody:
		return http.StatusBadRequest
	case KindUnauthenticated, KindActorSpoofed, KindUnauthorizedCreate:
		return http.StatusUnauthorized
	case KindBlocked:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindGone:
		return http.StatusGone
	case KindObjectSpoofed, KindObjectRequired, KindTargetRequired, KindActorRequired, KindUndoTypeNotSupported:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// WriteError writes the JSON error body for a typed error. 5xx responses
// carry no detail.
func WriteError(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	status := StatusOf(kind)
	if status >= http.StatusInternalServerError {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	var e *Error
	msg := ""
	if errors.As(err, &e) {
		msg = e.Message
	}
	fmt.Fprintf(w, `{"error":%q,"error_description":%q}`, string(kind), msg)
}
