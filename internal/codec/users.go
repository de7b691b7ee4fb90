package codec

import (
	"regexp"
	"strings"

	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// NewUser is the registration payload.
type NewUser struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user mentor admin"`
	FullName string `json:"full_name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Bio      string `json:"bio" validate:"max=500"`
}

// Normalize trims the free-text fields and lowercases the username.
func (u *NewUser) Normalize() {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.FullName = strings.TrimSpace(u.FullName)
	u.Email = strings.TrimSpace(u.Email)
	u.Bio = strings.TrimSpace(u.Bio)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
}

func (u *NewUser) Validate() error {
	u.Normalize()
	return validateStruct(u)
}

// ProfileUpdate carries the fields a PATCH may change; nil leaves a field
// alone, an empty string clears it.
type ProfileUpdate struct {
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
	Email    *string `json:"email" validate:"omitempty,email|len=0"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	Role     *string `json:"role" validate:"omitempty,oneof=user mentor admin"`
}

func (p *ProfileUpdate) Validate() error {
	for _, f := range []*string{p.FullName, p.Email, p.Bio} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	return validateStruct(p)
}

// Apply copies the set fields onto u.
func (p *ProfileUpdate) Apply(u *models.User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

// CheckHistoryKey rejects keys that cannot be stored as a document field
// on every backend.
func CheckHistoryKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return invalid("missing_key")
	case len(key) > 64, strings.ContainsAny(key, ".$"):
		return invalid("invalid_key")
	}
	return nil
}

func DecodeUser(doc store.Document) (*models.User, error) {
	var u models.User
	if err := store.Decode(doc, &u); err != nil {
		return nil, err
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	return &u, nil
}
