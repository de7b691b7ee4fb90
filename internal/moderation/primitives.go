package moderation

import (
	"time"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/pkg/models"
)

// SetLike applies intent to actorID's membership in p.LikedBy and
// recomputes LikesCount. It returns the new membership.
func SetLike(p *models.Post, actorID string, intent Intent) bool {
	liked := intent.Apply(p.Liked(actorID))
	kept := make([]string, 0, len(p.LikedBy)+1)
	for _, a := range p.LikedBy {
		if a != actorID {
			kept = append(kept, a)
		}
	}
	if liked {
		kept = append(kept, actorID)
	}
	p.LikedBy = kept
	p.LikesCount = len(p.LikedBy)
	return liked
}

// UpsertReport records a report from actorID, replacing that actor's earlier
// report in place so each actor holds at most one report per target.
func UpsertReport(reports []models.Report, actorID, reason, detail string, now time.Time) []models.Report {
	r := models.Report{
		ActorID:   actorID,
		Reason:    reason,
		Detail:    codec.TruncateDetail(detail),
		Timestamp: codec.Timestamp(now),
		Status:    models.ReportStatusOpen,
	}
	for i := range reports {
		if reports[i].ActorID == actorID {
			reports[i] = r
			return reports
		}
	}
	return append(reports, r)
}

// SetPin applies intent to p.IsPinned, stamping or clearing PinnedAt.
func SetPin(p *models.Post, intent Intent, now time.Time) bool {
	p.IsPinned = intent.Apply(p.IsPinned)
	if p.IsPinned {
		ts := codec.Timestamp(now)
		p.PinnedAt = &ts
	} else {
		p.PinnedAt = nil
	}
	return p.IsPinned
}

// SetHelpful applies intent to commentID's helpful mark. The post holds a
// single slot, so marking one comment unmarks any other, and unmarking a
// comment that is not the current one changes nothing.
func SetHelpful(p *models.Post, commentID string, intent Intent) bool {
	marked := intent.Apply(p.IsHelpful(commentID))
	switch {
	case marked:
		id := commentID
		p.HelpfulCommentID = &id
	case p.IsHelpful(commentID):
		p.HelpfulCommentID = nil
	}
	return marked
}
