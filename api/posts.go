package api

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"github.com/gorilla/mux"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/moderation"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

// PostStore is what the forum handlers need from the post repository.
type PostStore interface {
	Feed(ctx context.Context) ([]models.Post, error)
	Create(ctx context.Context, in codec.NewPost, sess *ownership.Session) (*models.Post, repository.Result)
	AddComment(ctx context.Context, postID string, in codec.NewComment, sess *ownership.Session) (*models.Comment, repository.Result)
	Delete(ctx context.Context, postID string, req ownership.Requester) repository.Result
}

type PostsHandler struct {
	posts  PostStore
	engine *moderation.Engine
}

func NewPostsHandler(posts PostStore, engine *moderation.Engine) *PostsHandler {
	return &PostsHandler{posts: posts, engine: engine}
}

type commentView struct {
	models.Comment
	IsHelpful bool `json:"isHelpful"`
}

// postView is a post as clients see it: each comment carries its helpful
// flag, read from helpfulCommentId.
type postView struct {
	models.Post
	Comments []commentView `json:"comments"`
}

func viewOfPost(p *models.Post) *postView {
	if p == nil {
		return nil
	}
	v := &postView{Post: *p, Comments: make([]commentView, len(p.Comments))}
	for i, c := range p.Comments {
		v.Comments[i] = commentView{Comment: c, IsHelpful: p.IsHelpful(c.ID)}
	}
	return v
}

// writePost writes a post result. A nil *postView must not reach writeResult
// as a non-nil interface.
func writePost(w http.ResponseWriter, res repository.Result, p *models.Post, status int) {
	if p == nil {
		writeResult(w, res, nil, status)
		return
	}
	writeResult(w, res, viewOfPost(p), status)
}

// actorRequest is embedded by every body that may carry a guest identity.
type actorRequest struct {
	ActorID string `json:"actorId"`
}

// actor resolves the identity the request acts as and writes the failure
// response when it cannot.
func actor(w http.ResponseWriter, r *http.Request, supplied string) (string, bool) {
	id, err := ownership.ResolveActor(supplied, SessionFrom(r.Context()))
	if err != nil {
		reason := "invalid_actor"
		if errors.Is(err, ownership.ErrIdentitySpoofing) || errors.Is(err, ownership.ErrReservedNamespace) {
			reason = err.Error()
		}
		writeError(w, http.StatusForbidden, reason)
		return "", false
	}
	return id, true
}

func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Feed(r.Context())
	if err != nil {
		logger.Error("list posts", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	views := make([]*postView, len(posts))
	for i := range posts {
		views[i] = viewOfPost(&posts[i])
	}
	writeJSON(w, views, http.StatusOK)
}

func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req codec.NewPost
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	p, res := h.posts.Create(r.Context(), req, SessionFrom(r.Context()))
	writePost(w, res, p, http.StatusCreated)
}

func (h *PostsHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req codec.NewComment
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	c, res := h.posts.AddComment(r.Context(), mux.Vars(r)["id"], req, SessionFrom(r.Context()))
	if c == nil {
		writeResult(w, res, nil, http.StatusCreated)
		return
	}
	writeResult(w, res, commentView{Comment: *c}, http.StatusCreated)
}

type likeRequest struct {
	actorRequest
	Liked *bool `json:"liked"`
}

// Like toggles the caller's like, or sets it when "liked" is sent.
func (h *PostsHandler) Like(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	id, ok := actor(w, r, req.ActorID)
	if !ok {
		return
	}
	p, res := h.engine.ToggleLike(r.Context(), mux.Vars(r)["id"], id, moderation.IntentFrom(req.Liked))
	writePost(w, res, p, http.StatusOK)
}

// Report files a report on the post, or on one of its comments when the
// route carries a comment id.
func (h *PostsHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req codec.NewReport
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := req.Validate(); err != nil {
		reason, _ := codec.Reason(err)
		writeError(w, http.StatusBadRequest, reason)
		return
	}
	id, ok := actor(w, r, req.ActorID)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	p, res := h.engine.Report(r.Context(), vars["id"], vars["cid"], id, req.Reason, req.Detail)
	writePost(w, res, p, http.StatusOK)
}

type pinRequest struct {
	Pinned *bool `json:"pinned"`
}

func (h *PostsHandler) Pin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	p, res := h.engine.SetPin(r.Context(), mux.Vars(r)["id"], moderation.IntentFrom(req.Pinned))
	writePost(w, res, p, http.StatusOK)
}

type helpfulRequest struct {
	actorRequest
	Helpful *bool `json:"helpful"`
}

func (h *PostsHandler) Helpful(w http.ResponseWriter, r *http.Request) {
	var req helpfulRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	id, ok := actor(w, r, req.ActorID)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	p, res := h.engine.SetHelpful(r.Context(), vars["id"], vars["cid"], id, moderation.IntentFrom(req.Helpful))
	writePost(w, res, p, http.StatusOK)
}

// DeletePost reads the guest identity from the body or the actorId query
// parameter, since some clients cannot send a DELETE body.
func (h *PostsHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ActorID == "" {
		req.ActorID = r.URL.Query().Get("actorId")
	}
	id, ok := actor(w, r, req.ActorID)
	if !ok {
		return
	}

	requester := ownership.Requester{ActorID: id}
	if sess := SessionFrom(r.Context()); sess != nil {
		requester.Username = sess.Username
		requester.Role = sess.Role
	}
	res := h.posts.Delete(r.Context(), mux.Vars(r)["id"], requester)
	writeResult(w, res, nil, http.StatusOK)
}

func (h *PostsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.Metrics(r.Context())
	if err != nil {
		logger.Error("forum metrics", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	writeJSON(w, m, http.StatusOK)
}
