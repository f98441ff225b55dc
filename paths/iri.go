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

package paths

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Normalize strips the query and fragment of an IRI for storage and
// comparison.
func Normalize(i *url.URL) *url.URL {
	c := *i
	c.RawQuery = ""
	c.Fragment = ""
	return &c
}

// NormalizeAsIRI parses and normalizes a string IRI.
func NormalizeAsIRI(s string) (*url.URL, error) {
	c, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return Normalize(c), nil
}

// ULID is a lexicographically sortable identifier used as the path leaf for
// users' activities and objects, and as the collection paging cursor.
type ULID string

// NewULID mints a ULID for the given instant.
func NewULID(t time.Time) ULID {
	return ULID(ulid.MustNew(ulid.Timestamp(t), rand.Reader).String())
}

// ParseULID validates a ULID path segment.
func ParseULID(s string) (ULID, error) {
	u, err := ulid.ParseStrict(strings.ToUpper(s))
	if err != nil {
		return "", fmt.Errorf("invalid ulid %q: %w", s, err)
	}
	return ULID(u.String()), nil
}

// Time returns the timestamp embedded in the ULID.
func (u ULID) Time() time.Time {
	id, err := ulid.ParseStrict(string(u))
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(id.Time())).UTC()
}

func (u ULID) String() string { return string(u) }

// Actor is a reserved non-user actor of the server.
type Actor string

// InstanceActor is the reserved non-user actor name; IRIForActorID builds its
// IRIs under the /actors/ prefix instead of /users/.
const InstanceActor Actor = "instance"

// PathKey selects one of the known IRI shapes rooted under an actor.
type PathKey string

const (
	UserPathKey      PathKey = "users"
	InboxPathKey     PathKey = "inbox"
	OutboxPathKey    PathKey = "outbox"
	FollowersPathKey PathKey = "followers"
	FollowingPathKey PathKey = "following"
	LikedPathKey     PathKey = "liked"
	FeaturedPathKey  PathKey = "featured"
	ActivityPathKey  PathKey = "activities"
	ObjectPathKey    PathKey = "objects"
	LikesPathKey     PathKey = "likes"
	SharesPathKey    PathKey = "shares"
	HttpSigPubKeyKey PathKey = "httpsigPubKey"
)

var knownPaths = map[PathKey]string{
	UserPathKey:      "{user}",
	InboxPathKey:     "{user}/inbox",
	OutboxPathKey:    "{user}/outbox",
	FollowersPathKey: "{user}/followers",
	FollowingPathKey: "{user}/following",
	LikedPathKey:     "{user}/liked",
	FeaturedPathKey:  "{user}/featured",
	ActivityPathKey:  "{user}/activities/{id}",
	ObjectPathKey:    "{user}/objects/{id}",
	LikesPathKey:     "{user}/objects/{id}/likes",
	SharesPathKey:    "{user}/objects/{id}/shares",
	HttpSigPubKeyKey: "{user}",
}

func knownPath(prefix string, k PathKey) string {
	var b strings.Builder
	b.WriteRune('/')
	b.WriteString(prefix)
	b.WriteRune('/')
	b.WriteString(knownPaths[k])
	return b.String()
}

func knownUserPaths(k PathKey) string {
	return knownPath("users", k)
}

func knownActorsPaths(k PathKey) string {
	return knownPath("actors", k)
}

// UserPathFor returns the path for a user-scoped IRI kind.
func UserPathFor(k PathKey, user string) string {
	return strings.ReplaceAll(knownUserPaths(k), "{user}", user)
}

// UserIRIFor builds the IRI for a user-scoped kind.
func UserIRIFor(scheme, host string, k PathKey, user string) *url.URL {
	return &url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   UserPathFor(k, user),
	}
}

// ActorIRIFor builds the IRI for a reserved server actor.
func ActorIRIFor(scheme, host string, k PathKey, c Actor) *url.URL {
	return &url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   strings.ReplaceAll(knownActorsPaths(k), "{user}", string(c)),
	}
}

// UserDataIRIFor builds the IRI of an activity or object leaf owned by the
// user.
func UserDataIRIFor(scheme, host string, k PathKey, user string, id ULID) *url.URL {
	p := UserPathFor(k, user)
	p = strings.ReplaceAll(p, "{id}", strings.ToLower(string(id)))
	return &url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   p,
	}
}

// PublicKeyIRIFor builds the actor's key id IRI: the actor document with the
// main-key fragment.
func PublicKeyIRIFor(scheme, host string, user string) *url.URL {
	u := UserIRIFor(scheme, host, HttpSigPubKeyKey, user)
	u.Fragment = "main-key"
	return u
}

// UserFromPath extracts the username segment of a known user path.
func UserFromPath(path string) (string, error) {
	s := strings.Split(path, "/")
	if len(s) < 3 || (s[1] != "users" && s[1] != "actors") {
		return "", fmt.Errorf("path does not contain a user: %s", path)
	}
	return s[2], nil
}

// ULIDFromPath extracts the ULID leaf of an activity or object path.
func ULIDFromPath(path string) (ULID, error) {
	s := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(s) == 0 {
		return "", fmt.Errorf("path does not contain an id: %s", path)
	}
	return ParseULID(s[len(s)-1])
}

// IRIForActorID rebuilds a user-scoped IRI from an actor id IRI.
func IRIForActorID(k PathKey, actorID *url.URL) (*url.URL, error) {
	user, err := UserFromPath(actorID.Path)
	if err != nil {
		return nil, err
	}
	pFn := knownUserPaths
	if user == string(InstanceActor) {
		pFn = knownActorsPaths
	}
	return &url.URL{
		Scheme: actorID.Scheme,
		Host:   actorID.Host,
		Path:   strings.ReplaceAll(pFn(k), "{user}", user),
	}, nil
}

// Route returns the mux route pattern for a user-scoped kind.
func Route(k PathKey) string {
	return knownUserPaths(k)
}

// IsUserPath reports whether the IRI identifies an actor document.
func IsUserPath(id *url.URL) bool {
	s := strings.Split(id.Path, "/")
	return len(s) == 3 && (s[1] == "users" || s[1] == "actors")
}

func IsFollowersPath(id *url.URL) bool { return isSubPath(id, "followers") }
func IsFollowingPath(id *url.URL) bool { return isSubPath(id, "following") }
func IsLikedPath(id *url.URL) bool     { return isSubPath(id, "liked") }
func IsInboxPath(id *url.URL) bool     { return isSubPath(id, "inbox") }
func IsOutboxPath(id *url.URL) bool    { return isSubPath(id, "outbox") }

// IsCollectionPath reports whether the IRI names one of the known actor
// collections.
func IsCollectionPath(id *url.URL) bool {
	for _, sub := range []string{"inbox", "outbox", "followers", "following", "liked", "featured", "likes", "shares"} {
		if isSubPath(id, sub) {
			return true
		}
	}
	return false
}

func isSubPath(id *url.URL, sub string) bool {
	s := strings.Split(strings.TrimSuffix(id.Path, "/"), "/")
	return len(s) > 3 &&
		(s[1] == "users" || s[1] == "actors") &&
		s[len(s)-1] == sub
}
