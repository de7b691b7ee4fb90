package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
	contract "github.com/Matcry12/careervr/pkg/repository"
)

const ReasonUsernameTaken = "username_taken"

// Users stores accounts keyed by username. The uniqueness check and the
// insert are two steps, so two concurrent registrations of one name can both
// pass the check; the later write wins.
type Users struct {
	backend store.Backend
	guard   guard
	logger  *slog.Logger
}

var _ contract.UserRepo = (*Users)(nil)

func NewUsers(backend store.Backend, g gate.Gate, logger *slog.Logger) *Users {
	return &Users{backend: backend, guard: newGuard("users", g, logger), logger: logger}
}

// Get returns nil, nil when the user does not exist.
func (r *Users) Get(ctx context.Context, username string) (*models.User, error) {
	doc, err := r.backend.FindOne(ctx, store.Users, store.Filter{"username": username})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	if doc == nil {
		return nil, nil
	}
	return codec.DecodeUser(doc)
}

// Create stores a new account. The password must already be hashed.
func (r *Users) Create(ctx context.Context, u models.User) contract.Result {
	return r.guard.run(ctx, "create", func() contract.Result {
		u.Username = strings.TrimSpace(u.Username)
		if u.Username == "" {
			return contract.Invalid("missing_username")
		}
		if u.HashedPassword == "" {
			return contract.Invalid("missing_password")
		}
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if !models.IsRole(u.Role) {
			return contract.Invalid("invalid_role")
		}

		existing, err := r.backend.FindOne(ctx, store.Users, store.Filter{"username": u.Username})
		if err != nil {
			return r.guard.fail("create_lookup", err)
		}
		if existing != nil {
			return contract.Invalid(ReasonUsernameTaken)
		}

		now := codec.Timestamp(codec.Now())
		if u.CreatedAt == "" {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
		return r.write(ctx, "create", u)
	})
}

// UpdateProfile applies upd to the named account.
func (r *Users) UpdateProfile(ctx context.Context, username string, upd codec.ProfileUpdate) (*models.User, contract.Result) {
	var updated *models.User
	res := r.guard.run(ctx, "update_profile", func() contract.Result {
		if err := upd.Validate(); err != nil {
			reason, _ := codec.Reason(err)
			return contract.Invalid(reason)
		}
		u, res := r.load(ctx, username)
		if u == nil {
			return res
		}
		upd.Apply(u)
		u.UpdatedAt = codec.Timestamp(codec.Now())
		if res := r.write(ctx, "update_profile", *u); !res.OK {
			return res
		}
		updated = u
		return contract.Success(1)
	})
	return updated, res
}

// SetHistory stores value under key in the account's history map.
func (r *Users) SetHistory(ctx context.Context, username, key string, value any) contract.Result {
	return r.guard.run(ctx, "set_history", func() contract.Result {
		if err := codec.CheckHistoryKey(key); err != nil {
			reason, _ := codec.Reason(err)
			return contract.Invalid(reason)
		}
		u, res := r.load(ctx, username)
		if u == nil {
			return res
		}
		if u.History == nil {
			u.History = map[string]any{}
		}
		u.History[key] = value
		u.UpdatedAt = codec.Timestamp(codec.Now())
		return r.write(ctx, "set_history", *u)
	})
}

func (r *Users) load(ctx context.Context, username string) (*models.User, contract.Result) {
	u, err := r.Get(ctx, username)
	if err != nil {
		return nil, r.guard.fail("load", err, slog.String("username", username))
	}
	if u == nil {
		return nil, contract.NotFound(contract.ReasonUserNotFound)
	}
	return u, contract.Success(0)
}

func (r *Users) write(ctx context.Context, op string, u models.User) contract.Result {
	doc, err := store.Encode(u)
	if err != nil {
		return r.guard.fail(op+"_encode", err)
	}
	if err := r.backend.Upsert(ctx, store.Users, "username", doc); err != nil {
		return r.guard.fail(op, err, slog.String("username", u.Username))
	}
	return contract.Success(1)
}
