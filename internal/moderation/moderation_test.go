package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
	"github.com/Matcry12/careervr/pkg/repository/mock"
)

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func samplePost() models.Post {
	return models.Post{
		ID:         "p1",
		Title:      "Hello",
		Category:   models.CategoryGeneral,
		Author:     "Lan",
		OwnerActor: "guest:lan1",
		Content:    "Hello",
		Timestamp:  codec.Timestamp(fixedNow.Add(-time.Hour)),
		Comments: []models.Comment{
			{ID: "c1", Author: "Minh", Content: "hi", Timestamp: codec.Timestamp(fixedNow), Reports: []models.Report{}},
			{ID: "c2", Author: "Hoa", Content: "yo", Timestamp: codec.Timestamp(fixedNow), Reports: []models.Report{}},
		},
		LikedBy: []string{},
		Reports: []models.Report{},
	}
}

func newEngine(posts ...models.Post) (*Engine, *mock.PostRepo) {
	repo := mock.NewPostRepo(posts...)
	return New(repo, nil).WithClock(func() time.Time { return fixedNow }), repo
}

func TestIntent(t *testing.T) {
	yes, no := true, false
	assert.Equal(t, Toggle, IntentFrom(nil))
	assert.Equal(t, On, IntentFrom(&yes))
	assert.Equal(t, Off, IntentFrom(&no))
	assert.True(t, Toggle.Apply(false))
	assert.False(t, Toggle.Apply(true))
	assert.True(t, On.Apply(true))
	assert.False(t, Off.Apply(true))
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(samplePost())

	p, res := e.ToggleLike(ctx, "p1", "guest:a", Toggle)
	require.True(t, res.OK, res.Reason)
	assert.Equal(t, []string{"guest:a"}, p.LikedBy)
	assert.Equal(t, 1, p.LikesCount)

	p, res = e.ToggleLike(ctx, "p1", "guest:a", Toggle)
	require.True(t, res.OK)
	assert.Empty(t, p.LikedBy)
	assert.Equal(t, 0, p.LikesCount)
}

func TestLikeSetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(samplePost())

	for range 3 {
		p, res := e.ToggleLike(ctx, "p1", "guest:a", On)
		require.True(t, res.OK)
		assert.Equal(t, 1, p.LikesCount)
	}
	p, res := e.ToggleLike(ctx, "p1", "guest:b", On)
	require.True(t, res.OK)
	assert.Equal(t, len(p.LikedBy), p.LikesCount)
	assert.Equal(t, 2, p.LikesCount)

	p, res = e.ToggleLike(ctx, "p1", "guest:a", Off)
	require.True(t, res.OK)
	assert.Equal(t, []string{"guest:b"}, p.LikedBy)
}

func TestSetLikeRepairsDuplicates(t *testing.T) {
	p := samplePost()
	p.LikedBy = []string{"a", "a", "b"}
	p.LikesCount = 7
	SetLike(&p, "a", On)
	assert.Equal(t, []string{"b", "a"}, p.LikedBy)
	assert.Equal(t, 2, p.LikesCount)
}

func TestToggleLikeFailures(t *testing.T) {
	ctx := context.Background()
	e, repo := newEngine(samplePost())

	p, res := e.ToggleLike(ctx, "missing", "guest:a", Toggle)
	assert.Nil(t, p)
	assert.Equal(t, repository.KindNotFound, res.Kind)

	_, res = e.ToggleLike(ctx, "p1", " ", Toggle)
	assert.Equal(t, ReasonMissingActor, res.Reason)

	disabled := repository.WritesDisabled()
	repo.SaveResult = &disabled
	p, res = e.ToggleLike(ctx, "p1", "guest:a", Toggle)
	assert.Nil(t, p)
	assert.Equal(t, repository.ReasonWritesDisabled, res.Reason)

	repo.SaveResult = nil
	repo.GetErr = errors.New("connection reset")
	_, res = e.ToggleLike(ctx, "p1", "guest:a", Toggle)
	assert.Equal(t, repository.KindBackend, res.Kind)
}

func TestUpsertReportOnePerActor(t *testing.T) {
	var reports []models.Report
	reports = UpsertReport(reports, "guest:a", models.ReasonSpam, "first", fixedNow)
	reports = UpsertReport(reports, "guest:b", models.ReasonOther, "", fixedNow)
	reports = UpsertReport(reports, "guest:a", models.ReasonHarassment, "second", fixedNow.Add(time.Minute))

	require.Len(t, reports, 2)
	assert.Equal(t, "guest:a", reports[0].ActorID)
	assert.Equal(t, models.ReasonHarassment, reports[0].Reason)
	assert.Equal(t, "second", reports[0].Detail)
	assert.Equal(t, models.ReportStatusOpen, reports[0].Status)
	assert.Equal(t, codec.Timestamp(fixedNow.Add(time.Minute)), reports[0].Timestamp)
}

func TestReportPostAndComment(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(samplePost())

	p, res := e.Report(ctx, "p1", "", "guest:a", models.ReasonSpam, "ads")
	require.True(t, res.OK)
	assert.Len(t, p.Reports, 1)

	p, res = e.Report(ctx, "p1", "", "guest:a", models.ReasonOffTopic, "wrong place")
	require.True(t, res.OK)
	require.Len(t, p.Reports, 1)
	assert.Equal(t, models.ReasonOffTopic, p.Reports[0].Reason)

	p, res = e.Report(ctx, "p1", "c2", "guest:a", models.ReasonInappropriate, "")
	require.True(t, res.OK)
	assert.Len(t, p.Comments[1].Reports, 1)
	assert.Empty(t, p.Comments[0].Reports)

	_, res = e.Report(ctx, "p1", "c9", "guest:a", models.ReasonSpam, "")
	assert.Equal(t, repository.ReasonCommentMissing, res.Reason)

	_, res = e.Report(ctx, "p1", "", "guest:a", "boring", "")
	assert.Equal(t, repository.KindValidation, res.Kind)
}

func TestSetPinStampsAndClears(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(samplePost())

	p, res := e.SetPin(ctx, "p1", Toggle)
	require.True(t, res.OK)
	assert.True(t, p.IsPinned)
	require.NotNil(t, p.PinnedAt)
	assert.Equal(t, codec.Timestamp(fixedNow), *p.PinnedAt)

	p, res = e.SetPin(ctx, "p1", Off)
	require.True(t, res.OK)
	assert.False(t, p.IsPinned)
	assert.Nil(t, p.PinnedAt)
}

func TestSetHelpfulOwnerOnlySingleSlot(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(samplePost())

	_, res := e.SetHelpful(ctx, "p1", "c1", "guest:other", On)
	assert.Equal(t, repository.KindForbidden, res.Kind)
	assert.Equal(t, "owner_mismatch", res.Reason)

	_, res = e.SetHelpful(ctx, "p1", "c1", "", On)
	assert.Equal(t, repository.KindForbidden, res.Kind)

	_, res = e.SetHelpful(ctx, "p1", "c9", "guest:lan1", On)
	assert.Equal(t, repository.KindNotFound, res.Kind)

	p, res := e.SetHelpful(ctx, "p1", "c1", "guest:lan1", On)
	require.True(t, res.OK)
	assert.True(t, p.IsHelpful("c1"))

	p, res = e.SetHelpful(ctx, "p1", "c2", "guest:lan1", Toggle)
	require.True(t, res.OK)
	assert.True(t, p.IsHelpful("c2"))
	assert.False(t, p.IsHelpful("c1"), "marking a second comment unmarks the first")

	p, res = e.SetHelpful(ctx, "p1", "c1", "guest:lan1", Off)
	require.True(t, res.OK)
	assert.True(t, p.IsHelpful("c2"), "unmarking a non-current comment changes nothing")

	p, res = e.SetHelpful(ctx, "p1", "c2", "guest:lan1", Toggle)
	require.True(t, res.OK)
	assert.Nil(t, p.HelpfulCommentID)
}

func TestRollup(t *testing.T) {
	now := fixedNow
	helpful := "c1"
	posts := []models.Post{
		{
			ID: "p1", Author: "Lan", OwnerActor: "guest:lan1",
			Timestamp: codec.Timestamp(now.Add(-2 * day)),
			LikedBy:   []string{"a", "b"},
			Reports:   []models.Report{{ActorID: "x"}},
			IsPinned:  true,
			Comments: []models.Comment{
				{ID: "c1", Author: "Minh", Timestamp: codec.Timestamp(now.Add(-time.Hour)), Reports: []models.Report{{ActorID: "y"}}},
				{ID: "c2", Author: "Hoa", AuthorUsername: "hoa", Timestamp: "not a date"},
			},
			HelpfulCommentID: &helpful,
		},
		{
			ID: "p2", Author: "Old", AuthorUsername: "old",
			Timestamp: "2026-04-20T09:00:00",
			LikedBy:   []string{"a"},
		},
		{
			ID: "p3", Author: "Ancient",
			Timestamp: codec.Timestamp(now.Add(-90 * day)),
		},
		{ID: "p4", Author: "Broken", Timestamp: "??"},
	}

	m := Rollup(posts, now)
	assert.Equal(t, 4, m.TotalPosts)
	assert.Equal(t, 2, m.TotalComments)
	assert.Equal(t, 3, m.TotalLikes)
	assert.Equal(t, 2, m.TotalReports)
	assert.Equal(t, 1, m.PinnedPosts)
	assert.Equal(t, 1, m.HelpfulMarkedPosts)
	assert.Equal(t, 1, m.PostsLast7Days)
	assert.Equal(t, 2, m.PostsLast30Days)
	assert.Equal(t, 1, m.CommentsLast7Days)
	assert.Equal(t, 1, m.CommentsLast30Days)
	// guest:lan1, user:old, author:minh
	assert.Equal(t, 3, m.ActiveAuthors30d)
	assert.Equal(t, 1.5, m.EngagementPerPost)

	empty := Rollup(nil, now)
	assert.Equal(t, 0.0, empty.EngagementPerPost)
}

func TestRollupSkipsFutureTimestamps(t *testing.T) {
	now := fixedNow
	posts := []models.Post{
		{
			ID: "p1", Author: "Skewed", OwnerActor: "guest:skew",
			Timestamp: codec.Timestamp(now.Add(3 * time.Hour)),
			Comments: []models.Comment{
				{ID: "c1", Author: "Later", Timestamp: codec.Timestamp(now.Add(48 * time.Hour))},
			},
		},
		{ID: "p2", Author: "Now", OwnerActor: "guest:now", Timestamp: codec.Timestamp(now)},
	}

	m := Rollup(posts, now)
	assert.Equal(t, 2, m.TotalPosts)
	assert.Equal(t, 1, m.TotalComments)
	assert.Equal(t, 1, m.PostsLast7Days)
	assert.Equal(t, 1, m.PostsLast30Days)
	assert.Equal(t, 0, m.CommentsLast7Days)
	assert.Equal(t, 1, m.ActiveAuthors30d)
}

func TestEngineMetrics(t *testing.T) {
	e, repo := newEngine(samplePost())
	m, err := e.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalPosts)
	assert.Equal(t, 2, m.CommentsLast7Days)

	repo.GetErr = errors.New("down")
	_, err = e.Metrics(context.Background())
	assert.Error(t, err)
}
