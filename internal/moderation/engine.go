// Package moderation implements likes, reports, pins and the helpful-comment
// mark on forum posts, plus the forum activity rollup.
//
// Every engine call reads the post through the post repository, applies one
// pure primitive and writes the whole post back. The write goes through the
// repository, so the write gate and backend error handling apply as for any
// other mutation.
package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

const ReasonMissingActor = "missing_actor"

type Engine struct {
	posts  repository.PostRepo
	logger *slog.Logger
	now    func() time.Time
}

func New(posts repository.PostRepo, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{posts: posts, logger: logger, now: codec.Now}
}

// WithClock replaces the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// load fetches a post. A nil post with an OK result never happens: either
// the post is returned or the result says why not.
func (e *Engine) load(ctx context.Context, postID string) (*models.Post, repository.Result) {
	p, err := e.posts.Get(ctx, postID)
	if err != nil {
		e.logger.Error("load post", slog.String("post_id", postID), slog.Any("err", err))
		return nil, repository.BackendError()
	}
	if p == nil {
		return nil, repository.NotFound(repository.ReasonPostNotFound)
	}
	return p, repository.Success(0)
}

func (e *Engine) save(ctx context.Context, p *models.Post) (*models.Post, repository.Result) {
	res := e.posts.Save(ctx, *p)
	if !res.OK {
		return nil, res
	}
	return p, res
}

// ToggleLike applies intent to actorID's like. The returned post is nil when
// the result is not OK.
func (e *Engine) ToggleLike(ctx context.Context, postID, actorID string, intent Intent) (*models.Post, repository.Result) {
	if strings.TrimSpace(actorID) == "" {
		return nil, repository.Invalid(ReasonMissingActor)
	}
	p, res := e.load(ctx, postID)
	if p == nil {
		return nil, res
	}
	SetLike(p, actorID, intent)
	return e.save(ctx, p)
}

// Report files or replaces actorID's report on the post, or on one of its
// comments when commentID is set.
func (e *Engine) Report(ctx context.Context, postID, commentID, actorID, reason, detail string) (*models.Post, repository.Result) {
	if strings.TrimSpace(actorID) == "" {
		return nil, repository.Invalid(ReasonMissingActor)
	}
	if !models.IsReportReason(reason) {
		return nil, repository.Invalid("invalid_reason")
	}
	p, res := e.load(ctx, postID)
	if p == nil {
		return nil, res
	}

	now := e.now()
	if commentID == "" {
		p.Reports = UpsertReport(p.Reports, actorID, reason, detail, now)
	} else {
		i := p.Comment(commentID)
		if i < 0 {
			return nil, repository.NotFound(repository.ReasonCommentMissing)
		}
		p.Comments[i].Reports = UpsertReport(p.Comments[i].Reports, actorID, reason, detail, now)
	}
	e.logger.Info("report filed",
		slog.String("post_id", postID),
		slog.String("comment_id", commentID),
		slog.String("actor", actorID),
		slog.String("reason", reason))
	return e.save(ctx, p)
}

// SetPin applies intent to the post's pin. Callers check the moderator role.
func (e *Engine) SetPin(ctx context.Context, postID string, intent Intent) (*models.Post, repository.Result) {
	p, res := e.load(ctx, postID)
	if p == nil {
		return nil, res
	}
	SetPin(p, intent, e.now())
	return e.save(ctx, p)
}

// SetHelpful marks or unmarks commentID as the post's helpful comment. Only
// the post owner may do this; everyone else is forbidden.
func (e *Engine) SetHelpful(ctx context.Context, postID, commentID, actorID string, intent Intent) (*models.Post, repository.Result) {
	if strings.TrimSpace(actorID) == "" {
		return nil, repository.Forbidden(ownership.ReasonNotAuthenticated)
	}
	p, res := e.load(ctx, postID)
	if p == nil {
		return nil, res
	}
	if p.Comment(commentID) < 0 {
		return nil, repository.NotFound(repository.ReasonCommentMissing)
	}
	if owner := ownership.ResolveOwner(p); actorID != owner {
		e.logger.Info("helpful mark denied",
			slog.String("post_id", postID),
			slog.String("actor", actorID),
			slog.String("owner", owner))
		return nil, repository.Forbidden(ownership.ReasonOwnerMismatch)
	}
	SetHelpful(p, commentID, intent)
	return e.save(ctx, p)
}

// Metrics computes the rollup over every stored post.
func (e *Engine) Metrics(ctx context.Context) (Metrics, error) {
	posts, err := e.posts.List(ctx)
	if err != nil {
		return Metrics{}, err
	}
	return Rollup(posts, e.now()), nil
}
