package repository

import (
	"context"

	"github.com/Matcry12/careervr/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// Kind classifies why a mutating operation did not succeed.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindWritesDisabled Kind = "writes_disabled"
	KindBackend        Kind = "backend_error"
)

// Reasons shared by several repositories.
const (
	ReasonWritesDisabled = "writes_disabled"
	ReasonBackendError   = "backend_error"
	ReasonPostNotFound   = "post_not_found"
	ReasonCommentMissing = "comment_not_found"
	ReasonUserNotFound   = "user_not_found"
)

// Result is returned by every mutating operation instead of an error for the
// expected failure modes. Reason is machine readable.
type Result struct {
	OK       bool   `json:"ok"`
	Kind     Kind   `json:"error,omitempty"`
	Reason   string `json:"reason"`
	Affected int    `json:"affected,omitempty"`
}

func Success(affected int) Result {
	return Result{OK: true, Reason: "ok", Affected: affected}
}

func Failure(kind Kind, reason string) Result {
	return Result{Kind: kind, Reason: reason}
}

func Invalid(reason string) Result { return Failure(KindValidation, reason) }

func NotFound(reason string) Result { return Failure(KindNotFound, reason) }

func Forbidden(reason string) Result { return Failure(KindForbidden, reason) }

func WritesDisabled() Result { return Failure(KindWritesDisabled, ReasonWritesDisabled) }

func BackendError() Result { return Failure(KindBackend, ReasonBackendError) }

type JobRepo interface {
	List(ctx context.Context) ([]models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	SyncJobs(ctx context.Context, payload any, allowEmpty bool) Result
}

type SubmissionRepo interface {
	Add(ctx context.Context, raw map[string]any) (models.Submission, Result)
	List(ctx context.Context) ([]models.Submission, error)
}

type UserRepo interface {
	Get(ctx context.Context, username string) (*models.User, error)
}

// PostRepo is the narrow contract the moderation engine needs: fetch a post
// and write it back whole.
type PostRepo interface {
	Get(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	Save(ctx context.Context, p models.Post) Result
}
