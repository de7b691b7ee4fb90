package ownership

import (
	"strings"

	"github.com/Matcry12/careervr/pkg/models"
)

// Decision reasons, logged with every permission check.
const (
	ReasonAdminRole        = "admin_role"
	ReasonOwnerActorMatch  = "owner_actor_match"
	ReasonUsernameMatch    = "username_match"
	ReasonLegacyNameMatch  = "legacy_name_match"
	ReasonNotAuthenticated = "not_authenticated"
	ReasonOwnerMismatch    = "owner_mismatch"
)

// Requester is the identity asking to modify a post.
type Requester struct {
	ActorID  string
	Username string
	Role     string
}

type Decision struct {
	Allowed bool
	Reason  string
}

// CanModify decides whether r may delete or otherwise administer p.
//
// The legacy name fallback compares a username with a display name and is
// ambiguous when two people share a name. It only applies to posts that have
// no account behind them.
func CanModify(p *models.Post, r Requester) Decision {
	if r.Role == models.RoleAdmin {
		return Decision{Allowed: true, Reason: ReasonAdminRole}
	}
	actor := strings.TrimSpace(r.ActorID)
	if actor != "" && actor == ResolveOwner(p) {
		return Decision{Allowed: true, Reason: ReasonOwnerActorMatch}
	}
	if r.Username != "" {
		if p.AuthorUsername != "" && r.Username == p.AuthorUsername {
			return Decision{Allowed: true, Reason: ReasonUsernameMatch}
		}
		if p.AuthorUsername == "" && isLegacyOwned(p) && Slug(r.Username) != "" && Slug(r.Username) == Slug(p.Author) {
			return Decision{Allowed: true, Reason: ReasonLegacyNameMatch}
		}
	}
	if actor == "" && r.Username == "" {
		return Decision{Reason: ReasonNotAuthenticated}
	}
	return Decision{Reason: ReasonOwnerMismatch}
}

func isLegacyOwned(p *models.Post) bool {
	return p.OwnerActor == "" || IsLegacy(p.OwnerActor)
}
