package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
	contract "github.com/Matcry12/careervr/pkg/repository"
)

// Posts stores forum posts with their comments embedded.
type Posts struct {
	backend store.Backend
	guard   guard
	logger  *slog.Logger
}

var _ contract.PostRepo = (*Posts)(nil)

func NewPosts(backend store.Backend, g gate.Gate, logger *slog.Logger) *Posts {
	return &Posts{backend: backend, guard: newGuard("posts", g, logger), logger: logger}
}

// Get returns nil, nil when the post does not exist.
func (r *Posts) Get(ctx context.Context, id string) (*models.Post, error) {
	doc, err := r.backend.FindOne(ctx, store.Posts, store.Filter{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return codec.DecodePost(doc)
}

// List returns posts in storage order.
func (r *Posts) List(ctx context.Context) ([]models.Post, error) {
	docs, err := r.backend.FindAll(ctx, store.Posts, nil)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	out := make([]models.Post, 0, len(docs))
	for _, d := range docs {
		p, err := codec.DecodePost(d)
		if err != nil {
			r.logger.Warn("skipping unreadable post", slog.Any("id", d["id"]), slog.Any("err", err))
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// Feed returns posts pinned first, then newest first. Posts whose timestamp
// does not parse sort last.
func (r *Posts) Feed(ctx context.Context) ([]models.Post, error) {
	posts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	SortFeed(posts)
	return posts, nil
}

func SortFeed(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		ta, oka := codec.ParseTimestamp(a.Timestamp)
		tb, okb := codec.ParseTimestamp(b.Timestamp)
		if oka != okb {
			return oka
		}
		return ta.After(tb)
	})
}

// actorResult maps identity errors to forbidden results.
func actorResult(err error) contract.Result {
	switch {
	case errors.Is(err, ownership.ErrIdentitySpoofing):
		return contract.Forbidden(ownership.ErrIdentitySpoofing.Error())
	case errors.Is(err, ownership.ErrReservedNamespace):
		return contract.Forbidden(ownership.ErrReservedNamespace.Error())
	default:
		return contract.Forbidden("invalid_actor")
	}
}

func invalidResult(err error) contract.Result {
	reason, ok := codec.Reason(err)
	if !ok {
		reason = "invalid_input"
	}
	return contract.Invalid(reason)
}

// Create stores a new post. A signed-in author owns it as "user:<name>"; a
// guest owns it through the actor id they supplied, or through their display
// name when they supplied none.
func (r *Posts) Create(ctx context.Context, in codec.NewPost, sess *ownership.Session) (*models.Post, contract.Result) {
	var created *models.Post
	res := r.guard.run(ctx, "create", func() contract.Result {
		if err := in.Validate(); err != nil {
			return invalidResult(err)
		}
		actor, err := ownership.ResolveActor(in.ActorID, sess)
		if err != nil {
			return actorResult(err)
		}

		p := models.Post{
			ID:        uuid.NewString(),
			Title:     in.Title,
			Category:  in.Category,
			Author:    in.Author,
			Content:   in.Content,
			Timestamp: codec.Timestamp(codec.Now()),
			Comments:  []models.Comment{},
			LikedBy:   []string{},
			Reports:   []models.Report{},
		}
		if sess != nil {
			p.AuthorUsername = sess.Username
		}
		p.OwnerActor = actor
		if p.OwnerActor == "" {
			p.OwnerActor = ownership.ResolveOwner(&p)
		}

		if res := r.write(ctx, "create", p); !res.OK {
			return res
		}
		r.logger.Info("post created", slog.String("post_id", p.ID), slog.String("owner", p.OwnerActor))
		created = &p
		return contract.Success(1)
	})
	return created, res
}

// AddComment appends a comment to the post.
func (r *Posts) AddComment(ctx context.Context, postID string, in codec.NewComment, sess *ownership.Session) (*models.Comment, contract.Result) {
	var added *models.Comment
	res := r.guard.run(ctx, "add_comment", func() contract.Result {
		if err := in.Validate(); err != nil {
			return invalidResult(err)
		}
		if _, err := ownership.ResolveActor(in.ActorID, sess); err != nil {
			return actorResult(err)
		}
		p, err := r.Get(ctx, postID)
		if err != nil {
			return r.guard.fail("add_comment_load", err, slog.String("post_id", postID))
		}
		if p == nil {
			return contract.NotFound(contract.ReasonPostNotFound)
		}

		c := models.Comment{
			ID:        uuid.NewString(),
			Author:    in.Author,
			Content:   in.Content,
			Timestamp: codec.Timestamp(codec.Now()),
			Reports:   []models.Report{},
		}
		if sess != nil {
			c.AuthorUsername = sess.Username
		}
		p.Comments = append(p.Comments, c)
		if res := r.write(ctx, "add_comment", *p); !res.OK {
			return res
		}
		added = &c
		return contract.Success(1)
	})
	return added, res
}

// Save writes p back whole. likesCount is recomputed from likedBy.
func (r *Posts) Save(ctx context.Context, p models.Post) contract.Result {
	return r.guard.run(ctx, "save", func() contract.Result {
		if p.ID == "" {
			return contract.Invalid("missing_id")
		}
		return r.write(ctx, "save", p)
	})
}

// Delete removes the post when req may modify it.
func (r *Posts) Delete(ctx context.Context, postID string, req ownership.Requester) contract.Result {
	return r.guard.run(ctx, "delete", func() contract.Result {
		p, err := r.Get(ctx, postID)
		if err != nil {
			return r.guard.fail("delete_load", err, slog.String("post_id", postID))
		}
		if p == nil {
			return contract.NotFound(contract.ReasonPostNotFound)
		}

		d := ownership.CanModify(p, req)
		r.logger.Info("post delete decision",
			slog.String("post_id", postID),
			slog.String("actor", req.ActorID),
			slog.String("username", req.Username),
			slog.Bool("allowed", d.Allowed),
			slog.String("reason", d.Reason))
		if !d.Allowed {
			return contract.Forbidden(d.Reason)
		}

		n, err := r.backend.Delete(ctx, store.Posts, store.Filter{"id": postID})
		if err != nil {
			return r.guard.fail("delete", err, slog.String("post_id", postID))
		}
		return contract.Result{OK: true, Reason: d.Reason, Affected: n}
	})
}

func (r *Posts) write(ctx context.Context, op string, p models.Post) contract.Result {
	p.LikesCount = len(p.LikedBy)
	doc, err := codec.EncodePost(p)
	if err != nil {
		return r.guard.fail(op+"_encode", err)
	}
	if err := r.backend.Upsert(ctx, store.Posts, "id", doc); err != nil {
		return r.guard.fail(op, err, slog.String("post_id", p.ID))
	}
	return contract.Success(1)
}
