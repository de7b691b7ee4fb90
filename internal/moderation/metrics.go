package moderation

import (
	"math"
	"time"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/pkg/models"
)

const day = 24 * time.Hour

type Metrics struct {
	TotalPosts         int     `json:"totalPosts"`
	TotalComments      int     `json:"totalComments"`
	TotalLikes         int     `json:"totalLikes"`
	TotalReports       int     `json:"totalReports"`
	PinnedPosts        int     `json:"pinnedPosts"`
	HelpfulMarkedPosts int     `json:"helpfulMarkedPosts"`
	PostsLast7Days     int     `json:"postsLast7Days"`
	PostsLast30Days    int     `json:"postsLast30Days"`
	CommentsLast7Days  int     `json:"commentsLast7Days"`
	CommentsLast30Days int     `json:"commentsLast30Days"`
	ActiveAuthors30d   int     `json:"activeAuthors30d"`
	EngagementPerPost  float64 `json:"engagementPerPost"`
	GeneratedAt        string  `json:"generatedAt"`
}

// Rollup summarizes posts relative to now. Records whose timestamp does not
// parse, or lies after now, count towards totals but not towards any window.
func Rollup(posts []models.Post, now time.Time) Metrics {
	m := Metrics{TotalPosts: len(posts), GeneratedAt: codec.Timestamp(now)}
	since7 := now.Add(-7 * day)
	since30 := now.Add(-30 * day)
	authors := make(map[string]struct{})

	window := func(ts string) (in7, in30 bool) {
		t, ok := codec.ParseTimestamp(ts)
		if !ok || t.After(now) {
			return false, false
		}
		return !t.Before(since7), !t.Before(since30)
	}

	for i := range posts {
		p := &posts[i]
		m.TotalComments += len(p.Comments)
		m.TotalLikes += len(p.LikedBy)
		m.TotalReports += len(p.Reports)
		if p.IsPinned {
			m.PinnedPosts++
		}
		if p.HelpfulCommentID != nil && p.Comment(*p.HelpfulCommentID) >= 0 {
			m.HelpfulMarkedPosts++
		}

		in7, in30 := window(p.Timestamp)
		if in7 {
			m.PostsLast7Days++
		}
		if in30 {
			m.PostsLast30Days++
			authors[ownership.ResolveOwner(p)] = struct{}{}
		}

		for j := range p.Comments {
			c := &p.Comments[j]
			m.TotalReports += len(c.Reports)
			in7, in30 := window(c.Timestamp)
			if in7 {
				m.CommentsLast7Days++
			}
			if in30 {
				m.CommentsLast30Days++
				authors[commentActor(c)] = struct{}{}
			}
		}
	}

	m.ActiveAuthors30d = len(authors)
	if m.TotalPosts > 0 {
		ratio := float64(m.TotalComments+m.TotalLikes+m.HelpfulMarkedPosts) / float64(m.TotalPosts)
		m.EngagementPerPost = math.Round(ratio*100) / 100
	}
	return m
}

func commentActor(c *models.Comment) string {
	if c.AuthorUsername != "" {
		return ownership.UserActor(c.AuthorUsername)
	}
	return ownership.LegacyActor(c.Author)
}
