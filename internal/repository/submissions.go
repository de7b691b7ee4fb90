package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
	contract "github.com/Matcry12/careervr/pkg/repository"
)

// Submissions is append-only.
type Submissions struct {
	backend store.Backend
	guard   guard
	logger  *slog.Logger
}

var _ contract.SubmissionRepo = (*Submissions)(nil)

func NewSubmissions(backend store.Backend, g gate.Gate, logger *slog.Logger) *Submissions {
	return &Submissions{backend: backend, guard: newGuard("submissions", g, logger), logger: logger}
}

func (r *Submissions) Add(ctx context.Context, raw map[string]any) (models.Submission, contract.Result) {
	var sub models.Submission
	res := r.guard.run(ctx, "add", func() contract.Result {
		s, err := codec.DecodeSubmission(ctx, raw)
		if err != nil {
			if reason, ok := codec.Reason(err); ok {
				return contract.Invalid(reason)
			}
			return r.guard.fail("add_validate", err)
		}
		doc, err := store.Encode(s)
		if err != nil {
			return r.guard.fail("add_encode", err)
		}
		if err := r.backend.Append(ctx, store.Submissions, doc); err != nil {
			return r.guard.fail("add", err)
		}
		sub = s
		return contract.Success(1)
	})
	return sub, res
}

func (r *Submissions) List(ctx context.Context) ([]models.Submission, error) {
	docs, err := r.backend.FindAll(ctx, store.Submissions, nil)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]models.Submission, 0, len(docs))
	for _, d := range docs {
		s, err := codec.DecodeSubmissionDoc(d)
		if err != nil {
			r.logger.Warn("skipping unreadable submission", slog.Any("err", err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
