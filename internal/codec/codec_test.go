package codec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	r, ok := Reason(err)
	require.True(t, ok, "expected codec error, got %v", err)
	return r
}

func TestNormalizeRiasec(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"rie", "RIE", true},
		{"R-I-C", "RIC", true},
		{" s a e ", "SAE", true},
		{"RI", "RI", false},
		{"RIEC", "RIEC", false},
		{"XYZ", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeRiasec(c.in)
		assert.Equal(t, c.want, got, c.in)
		assert.Equal(t, c.ok, ok, c.in)
	}
}

func TestDecodeJobs(t *testing.T) {
	ctx := context.Background()

	jobs, err := DecodeJobs(ctx, []any{
		map[string]any{"id": "j1", "title": "Pilot", "videoId": "abc", "riasecCode": "rie"},
	}, false)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "RIE", jobs[0].RiasecCode)
	assert.Equal(t, DefaultJobIcon, jobs[0].Icon)

	// Typed input goes through the same path.
	jobs, err = DecodeJobs(ctx, []models.Job{{ID: "j2", Title: "Dev", VideoID: "v", RiasecCode: "I-R-C", Icon: "💻"}}, false)
	require.NoError(t, err)
	assert.Equal(t, "IRC", jobs[0].RiasecCode)
	assert.Equal(t, "💻", jobs[0].Icon)

	cases := []struct {
		name       string
		payload    any
		allowEmpty bool
		reason     string
	}{
		{"not a list", map[string]any{"id": "j1"}, false, "jobs_must_be_list"},
		{"nil", nil, false, "jobs_must_be_list"},
		{"empty", []any{}, false, "empty_jobs"},
		{"not an object", []any{"j1"}, false, "invalid_job_0"},
		{"wrong type", []any{map[string]any{"id": 5}}, false, "invalid_job_0"},
		{"missing title", []any{
			map[string]any{"id": "j1", "title": "a", "videoId": "v", "riasecCode": "RIE"},
			map[string]any{"id": "j2", "videoId": "v", "riasecCode": "RIE"},
		}, false, "missing_title_1"},
		{"blank video", []any{map[string]any{"id": "j1", "title": "a", "videoId": "  ", "riasecCode": "RIE"}}, false, "missing_videoId_0"},
		{"bad riasec", []any{map[string]any{"id": "j1", "title": "a", "videoId": "v", "riasecCode": "RX"}}, false, "invalid_riasec_j1"},
		{"duplicate", []any{
			map[string]any{"id": "j1", "title": "Pilot", "videoId": "abc", "riasecCode": "rie"},
			map[string]any{"id": "j1", "title": "Pilot 2", "videoId": "abd", "riasecCode": "rie"},
		}, false, "duplicate_id_j1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeJobs(ctx, c.payload, c.allowEmpty)
			assert.Equal(t, c.reason, reasonOf(t, err))
		})
	}

	jobs, err = DecodeJobs(ctx, []any{}, true)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestDecodeJobNormalizesStoredCode(t *testing.T) {
	j, err := DecodeJob(store.Document{"id": "j1", "riasecCode": "r-i-e"})
	require.NoError(t, err)
	assert.Equal(t, "RIE", j.RiasecCode)
}

func validSubmission() map[string]any {
	answers := make([]any, AnswerCount)
	for i := range answers {
		answers[i] = float64(i%5 + 1)
	}
	return map[string]any{
		"riasec":  []any{"R", "I", "E"},
		"scores":  map[string]any{"R": 10, "I": 9, "A": 3, "S": 4, "E": 8, "C": 2},
		"answers": answers,
	}
}

func TestDecodeSubmission(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	orig := Now
	Now = func() time.Time { return fixed }
	t.Cleanup(func() { Now = orig })

	s, err := DecodeSubmission(ctx, validSubmission())
	require.NoError(t, err)
	assert.Equal(t, models.AnonymousAuthor, s.Name)
	assert.Equal(t, "-", s.Class)
	assert.Equal(t, "-", s.School)
	assert.Equal(t, Timestamp(fixed), s.Time)
	assert.Len(t, s.Answers, AnswerCount)
	assert.Equal(t, 10, s.Scores["R"])

	raw := validSubmission()
	raw["name"] = "Lan"
	raw["time"] = "2025-01-01T10:00:00"
	s, err = DecodeSubmission(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "Lan", s.Name)
	assert.Equal(t, "2025-01-01T10:00:00", s.Time)

	short := validSubmission()
	short["answers"] = []any{1, 2, 3}
	_, err = DecodeSubmission(ctx, short)
	assert.Equal(t, "invalid_answers", reasonOf(t, err))

	outOfRange := validSubmission()
	outOfRange["answers"].([]any)[7] = float64(6)
	_, err = DecodeSubmission(ctx, outOfRange)
	assert.Equal(t, "invalid_answers", reasonOf(t, err))

	noScores := validSubmission()
	delete(noScores, "scores")
	_, err = DecodeSubmission(ctx, noScores)
	assert.Equal(t, "invalid_submission", reasonOf(t, err))

	partialScores := validSubmission()
	partialScores["scores"] = map[string]any{"R": 1}
	_, err = DecodeSubmission(ctx, partialScores)
	assert.Equal(t, "invalid_scores", reasonOf(t, err))
}

func TestNewUserValidate(t *testing.T) {
	u := NewUser{Username: "  Lan_01 ", Password: "secret1"}
	require.NoError(t, u.Validate())
	assert.Equal(t, "lan_01", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)

	bad := NewUser{Username: "a", Password: "secret1"}
	assert.Equal(t, "invalid_username", reasonOf(t, bad.Validate()))

	noPass := NewUser{Username: "minh"}
	assert.Equal(t, "missing_password", reasonOf(t, noPass.Validate()))

	badRole := NewUser{Username: "minh", Password: "secret1", Role: "root"}
	assert.Equal(t, "invalid_role", reasonOf(t, badRole.Validate()))

	badMail := NewUser{Username: "minh", Password: "secret1", Email: "nope"}
	assert.Equal(t, "invalid_email", reasonOf(t, badMail.Validate()))
}

func TestProfileUpdate(t *testing.T) {
	name, empty := " Lan ", ""
	p := ProfileUpdate{FullName: &name, Email: &empty}
	require.NoError(t, p.Validate())

	u := models.User{Username: "lan", FullName: "old", Email: "old@example.com", Bio: "kept"}
	p.Apply(&u)
	assert.Equal(t, "Lan", u.FullName)
	assert.Equal(t, "", u.Email)
	assert.Equal(t, "kept", u.Bio)

	role := "owner"
	assert.Equal(t, "invalid_role", reasonOf(t, (&ProfileUpdate{Role: &role}).Validate()))
}

func TestCheckHistoryKey(t *testing.T) {
	assert.NoError(t, CheckHistoryKey("last_result"))
	assert.Equal(t, "missing_key", reasonOf(t, CheckHistoryKey(" ")))
	assert.Equal(t, "invalid_key", reasonOf(t, CheckHistoryKey("a.b")))
	assert.Equal(t, "invalid_key", reasonOf(t, CheckHistoryKey("$set")))
	assert.Equal(t, "invalid_key", reasonOf(t, CheckHistoryKey(strings.Repeat("k", 65))))
}

func TestNewPostDefaults(t *testing.T) {
	p := NewPost{Content: "  Hello\nworld  "}
	require.NoError(t, p.Validate())
	assert.Equal(t, models.AnonymousAuthor, p.Author)
	assert.Equal(t, models.CategoryGeneral, p.Category)
	assert.Equal(t, "Hello", p.Title)

	bad := NewPost{Content: "x", Category: "memes"}
	assert.Equal(t, "invalid_category", reasonOf(t, bad.Validate()))

	empty := NewPost{Content: "   "}
	assert.Equal(t, "missing_content", reasonOf(t, empty.Validate()))
}

func TestNewReportValidate(t *testing.T) {
	r := NewReport{Reason: "SPAM", Detail: strings.Repeat("é", 400)}
	require.NoError(t, r.Validate())
	assert.Equal(t, models.ReasonSpam, r.Reason)
	assert.Equal(t, MaxReportDetail, len([]rune(r.Detail)))

	assert.Equal(t, "invalid_reason", reasonOf(t, (&NewReport{Reason: "boring"}).Validate()))
	assert.Equal(t, "missing_reason", reasonOf(t, (&NewReport{}).Validate()))
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Untitled post", DeriveTitle("   "))
	assert.Equal(t, "Short", DeriveTitle("Short"))
	long := strings.Repeat("ả", 70)
	got := DeriveTitle(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, titleRunes+3, len([]rune(got)))
}

func TestDecodePostRepairsLegacyShape(t *testing.T) {
	p, err := DecodePost(store.Document{
		"id":      "p1",
		"author":  "Lan",
		"content": "Hello",
		"likedBy": []any{"a", "b"},
		"comments": []any{
			map[string]any{"id": "c1", "author": "Minh", "content": "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, p.LikesCount)
	assert.Equal(t, models.CategoryGeneral, p.Category)
	assert.NotNil(t, p.Reports)
	assert.NotNil(t, p.Comments[0].Reports)
	assert.Nil(t, p.HelpfulCommentID)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{
		"2026-01-02T03:04:05Z",
		"2026-01-02T03:04:05.123456+07:00",
		"2026-01-02T03:04:05.123456",
		"2026-01-02 03:04:05",
	} {
		_, ok := ParseTimestamp(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
}
