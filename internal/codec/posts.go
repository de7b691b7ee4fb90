package codec

import (
	"strings"

	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
)

// MaxReportDetail is the rune limit of a report's free-text detail.
const MaxReportDetail = 300

// NewPost is the create-post payload. ActorID is the caller-supplied guest
// identity; authenticated callers get theirs from the session.
type NewPost struct {
	Author   string `json:"author" validate:"max=80"`
	Title    string `json:"title" validate:"max=200"`
	Category string `json:"category" validate:"omitempty,category"`
	Content  string `json:"content" validate:"required,max=10000"`
	ActorID  string `json:"actorId" validate:"max=128"`
}

func (p *NewPost) Validate() error {
	p.Author = strings.TrimSpace(p.Author)
	p.Title = strings.TrimSpace(p.Title)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	p.Content = strings.TrimSpace(p.Content)
	p.ActorID = strings.TrimSpace(p.ActorID)
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.Author == "" {
		p.Author = models.AnonymousAuthor
	}
	if p.Category == "" {
		p.Category = models.CategoryGeneral
	}
	if p.Title == "" {
		p.Title = DeriveTitle(p.Content)
	}
	return nil
}

type NewComment struct {
	Author  string `json:"author" validate:"max=80"`
	Content string `json:"content" validate:"required,max=5000"`
	ActorID string `json:"actorId" validate:"max=128"`
}

func (c *NewComment) Validate() error {
	c.Author = strings.TrimSpace(c.Author)
	c.Content = strings.TrimSpace(c.Content)
	c.ActorID = strings.TrimSpace(c.ActorID)
	if err := validateStruct(c); err != nil {
		return err
	}
	if c.Author == "" {
		c.Author = models.AnonymousAuthor
	}
	return nil
}

type NewReport struct {
	Reason  string `json:"reason" validate:"required,report_reason"`
	Detail  string `json:"detail"`
	ActorID string `json:"actorId" validate:"max=128"`
}

func (r *NewReport) Validate() error {
	r.Reason = strings.ToLower(strings.TrimSpace(r.Reason))
	r.Detail = truncateRunes(strings.TrimSpace(r.Detail), MaxReportDetail)
	r.ActorID = strings.TrimSpace(r.ActorID)
	return validateStruct(r)
}

// TruncateDetail limits a report detail to MaxReportDetail runes.
func TruncateDetail(s string) string { return truncateRunes(s, MaxReportDetail) }

const titleRunes = 60

// DeriveTitle builds a title from the first line of content.
func DeriveTitle(content string) string {
	line := strings.TrimSpace(content)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return "Untitled post"
	}
	if t := truncateRunes(line, titleRunes); t != line {
		return strings.TrimSpace(t) + "..."
	}
	return line
}

// DecodePost reads a stored post and repairs the shapes older documents
// carry: absent lists become empty and likesCount follows likedBy.
func DecodePost(doc store.Document) (*models.Post, error) {
	var p models.Post
	if err := store.Decode(doc, &p); err != nil {
		return nil, err
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}
	for i := range p.Comments {
		if p.Comments[i].Reports == nil {
			p.Comments[i].Reports = []models.Report{}
		}
	}
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.Reports == nil {
		p.Reports = []models.Report{}
	}
	if p.Category == "" {
		p.Category = models.CategoryGeneral
	}
	p.LikesCount = len(p.LikedBy)
	return &p, nil
}

func EncodePost(p models.Post) (store.Document, error) {
	return store.Encode(p)
}
