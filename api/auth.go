package api

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

// UserStore is what the account handlers need from the user repository.
type UserStore interface {
	Get(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, u models.User) repository.Result
	UpdateProfile(ctx context.Context, username string, upd codec.ProfileUpdate) (*models.User, repository.Result)
	SetHistory(ctx context.Context, username, key string, value any) repository.Result
}

type AuthHandler struct {
	users         UserStore
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(users UserStore, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

// userView is a user as the API shows it. History is only shown to the
// account itself and to admins.
type userView struct {
	Username  string         `json:"username"`
	Role      string         `json:"role"`
	FullName  string         `json:"full_name,omitempty"`
	Email     string         `json:"email,omitempty"`
	Bio       string         `json:"bio,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	History   map[string]any `json:"history,omitempty"`
}

func viewOf(u *models.User, private bool) userView {
	v := userView{
		Username:  u.Username,
		Role:      u.Role,
		FullName:  u.FullName,
		Email:     u.Email,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if private {
		v.History = u.History
	} else {
		v.Email = ""
	}
	return v
}

func (h *AuthHandler) issueToken(u *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.Username,
		"role": u.Role,
		"exp":  time.Now().Add(h.tokenDuration).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}

// Register creates an account. Only an admin may create accounts with a
// role other than "user".
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req codec.NewUser
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := req.Validate(); err != nil {
		reason, _ := codec.Reason(err)
		writeError(w, http.StatusBadRequest, reason)
		return
	}
	sess := SessionFrom(r.Context())
	if req.Role != models.RoleUser && (sess == nil || sess.Role != models.RoleAdmin) {
		writeError(w, http.StatusForbidden, "role_requires_admin")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}
	u := models.User{
		Username:       req.Username,
		HashedPassword: string(hash),
		Role:           req.Role,
		FullName:       req.FullName,
		Email:          req.Email,
		Bio:            req.Bio,
	}
	if res := h.users.Create(r.Context(), u); !res.OK {
		writeJSON(w, res, statusFor(res))
		return
	}

	created, err := h.users.Get(r.Context(), u.Username)
	if err != nil || created == nil {
		logger.Error("reload registered user", slog.String("username", u.Username), slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	tokenStr, err := h.issueToken(created)
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, authResponse{Token: tokenStr, User: viewOf(created, true)}, http.StatusCreated)
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	u, err := h.users.Get(r.Context(), req.Username)
	if err != nil {
		logger.Error("load user for login", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	tokenStr, err := h.issueToken(u)
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, authResponse{Token: tokenStr, User: viewOf(u, true)}, http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "not_authenticated")
		return
	}
	h.writeUser(w, r, sess.Username, true)
}

func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	h.writeUser(w, r, username, canManage(SessionFrom(r.Context()), username))
}

func (h *AuthHandler) writeUser(w http.ResponseWriter, r *http.Request, username string, private bool) {
	u, err := h.users.Get(r.Context(), username)
	if err != nil {
		logger.Error("load user", slog.String("username", username), slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, repository.ReasonUserNotFound)
		return
	}
	writeJSON(w, viewOf(u, private), http.StatusOK)
}

// canManage reports whether sess may change the named account.
func canManage(sess *ownership.Session, username string) bool {
	return sess != nil && (sess.Username == username || sess.Role == models.RoleAdmin)
}

func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	sess := SessionFrom(r.Context())
	if !canManage(sess, username) {
		writeError(w, http.StatusForbidden, ownership.ReasonOwnerMismatch)
		return
	}

	var upd codec.ProfileUpdate
	if err := decodeJSON(r, &upd, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if upd.Role != nil && sess.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "role_requires_admin")
		return
	}

	u, res := h.users.UpdateProfile(r.Context(), username, upd)
	if !res.OK {
		writeJSON(w, res, statusFor(res))
		return
	}
	writeJSON(w, viewOf(u, true), http.StatusOK)
}

type historyRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// AddHistory stores one entry in the caller's own history map.
func (h *AuthHandler) AddHistory(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	sess := SessionFrom(r.Context())
	if sess == nil || sess.Username != username {
		writeError(w, http.StatusForbidden, ownership.ReasonOwnerMismatch)
		return
	}

	var req historyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res := h.users.SetHistory(r.Context(), username, req.Key, req.Value)
	writeResult(w, res, nil, http.StatusOK)
}
