// Package ownership decides who owns a forum post and who may act on it.
//
// Actor identities are namespaced strings: "user:<username>" for signed-in
// accounts, "author:<slug>" for posts written before accounts existed, and
// opaque tokens chosen by guests for everything else.
package ownership

import (
	"errors"
	"strings"

	"github.com/Matcry12/careervr/pkg/models"
)

const (
	UserPrefix   = "user:"
	AuthorPrefix = "author:"

	anonymousSlug = "anonymous"
)

var (
	// ErrIdentitySpoofing is returned when a caller claims an actor id that
	// belongs to somebody else.
	ErrIdentitySpoofing = errors.New("identity_spoofing")
	// ErrReservedNamespace is returned when a guest claims an account or
	// legacy author identity.
	ErrReservedNamespace = errors.New("reserved_actor_namespace")
)

// Session is an authenticated caller.
type Session struct {
	Username string
	Role     string
}

// UserActor is the actor id of an account.
func UserActor(username string) string { return UserPrefix + username }

// LegacyActor is the actor id derived from a free-text author name.
func LegacyActor(author string) string {
	s := Slug(author)
	if s == "" {
		s = anonymousSlug
	}
	return AuthorPrefix + s
}

// IsLegacy reports whether actor was derived from an author display name.
func IsLegacy(actor string) bool { return strings.HasPrefix(actor, AuthorPrefix) }

// ResolveActor returns the actor id a request acts as. A session always
// wins; a supplied "user:" id that disagrees with it is spoofing. Without a
// session the account and legacy namespaces cannot be claimed. An empty
// result means the caller is an anonymous guest.
func ResolveActor(supplied string, sess *Session) (string, error) {
	supplied = strings.TrimSpace(supplied)
	if sess != nil && sess.Username != "" {
		actor := UserActor(sess.Username)
		if strings.HasPrefix(supplied, UserPrefix) && supplied != actor {
			return "", ErrIdentitySpoofing
		}
		return actor, nil
	}
	if strings.HasPrefix(supplied, UserPrefix) {
		return "", ErrIdentitySpoofing
	}
	if IsLegacy(supplied) {
		return "", ErrReservedNamespace
	}
	return supplied, nil
}

// ResolveOwner returns the canonical owner of p, trusting a stored
// non-legacy ownerActor first, then the account username, then the legacy
// author name.
func ResolveOwner(p *models.Post) string {
	if owner := strings.TrimSpace(p.OwnerActor); owner != "" && !IsLegacy(owner) {
		return owner
	}
	if u := strings.TrimSpace(p.AuthorUsername); u != "" {
		return UserActor(u)
	}
	return LegacyActor(p.Author)
}
