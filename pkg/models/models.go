package models

// Domain models as persisted by every storage backend. JSON names are the
// on-disk field names of the local collection files and the document bodies
// stored remotely.

// Roles a user account may hold.
const (
	RoleUser   = "user"
	RoleMentor = "mentor"
	RoleAdmin  = "admin"
)

// Post categories. Anything else is rejected on create and reset to
// CategoryGeneral by the schema migrator.
const (
	CategoryGeneral    = "general"
	CategoryQuestion   = "question"
	CategoryCareer     = "career"
	CategoryStudy      = "study"
	CategoryExperience = "experience"
)

// Report reasons.
const (
	ReasonSpam           = "spam"
	ReasonHarassment     = "harassment"
	ReasonInappropriate  = "inappropriate"
	ReasonMisinformation = "misinformation"
	ReasonOffTopic       = "off_topic"
	ReasonOther          = "other"
)

const ReportStatusOpen = "open"

// AnonymousAuthor is the display name used when a post or comment is created
// without one.
const AnonymousAuthor = "Ẩn danh"

var Categories = []string{CategoryGeneral, CategoryQuestion, CategoryCareer, CategoryStudy, CategoryExperience}

var ReportReasons = []string{ReasonSpam, ReasonHarassment, ReasonInappropriate, ReasonMisinformation, ReasonOffTopic, ReasonOther}

func IsCategory(s string) bool { return contains(Categories, s) }

func IsReportReason(s string) bool { return contains(ReportReasons, s) }

func IsRole(s string) bool { return s == RoleUser || s == RoleMentor || s == RoleAdmin }

type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	VideoID     string `json:"videoId"`
	RiasecCode  string `json:"riasecCode"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Submission is one completed quiz attempt. It is never updated or deleted.
type Submission struct {
	Name            string         `json:"name"`
	Class           string         `json:"class"`
	School          string         `json:"school"`
	Riasec          []string       `json:"riasec"`
	Scores          map[string]int `json:"scores"`
	Answers         []int          `json:"answers"`
	SuggestedMajors string         `json:"suggestedMajors"`
	Combinations    string         `json:"combinations"`
	Time            string         `json:"time"`
}

type User struct {
	Username       string         `json:"username"`
	HashedPassword string         `json:"hashed_password"`
	Role           string         `json:"role"`
	FullName       string         `json:"full_name,omitempty"`
	Email          string         `json:"email,omitempty"`
	Bio            string         `json:"bio,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at,omitempty"`
	History        map[string]any `json:"history,omitempty"`
}

type Report struct {
	ActorID   string `json:"actorId"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type Comment struct {
	ID             string   `json:"id"`
	Author         string   `json:"author"`
	AuthorUsername string   `json:"authorUsername,omitempty"`
	Content        string   `json:"content"`
	Timestamp      string   `json:"timestamp"`
	Reports        []Report `json:"reports"`
}

type Post struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Category         string    `json:"category"`
	Author           string    `json:"author"`
	AuthorUsername   string    `json:"authorUsername,omitempty"`
	OwnerActor       string    `json:"ownerActor"`
	Content          string    `json:"content"`
	Timestamp        string    `json:"timestamp"`
	Comments         []Comment `json:"comments"`
	LikedBy          []string  `json:"likedBy"`
	LikesCount       int       `json:"likesCount"`
	Reports          []Report  `json:"reports"`
	IsPinned         bool      `json:"isPinned"`
	PinnedAt         *string   `json:"pinnedAt"`
	HelpfulCommentID *string   `json:"helpfulCommentId"`
}

// Comment returns the index of the comment with the given id, or -1.
func (p *Post) Comment(id string) int {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

// IsHelpful reports whether commentID is the post's helpful comment. The
// post-level field is the only source of truth.
func (p *Post) IsHelpful(commentID string) bool {
	return p.HelpfulCommentID != nil && *p.HelpfulCommentID == commentID
}

// Liked reports whether actorID is in likedBy.
func (p *Post) Liked(actorID string) bool { return contains(p.LikedBy, actorID) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
