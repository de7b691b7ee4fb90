// Package repository implements the repository contracts of pkg/repository
// over a store.Backend.
//
// Every mutation runs through one guard per repository: the write gate is
// consulted first, then the operation, then backend failures are logged and
// turned into a backend_error result. Raw backend errors never reach the
// caller of a mutation.
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/metrics"
	"github.com/Matcry12/careervr/internal/store"
	contract "github.com/Matcry12/careervr/pkg/repository"
)

// Repos bundles the repositories sharing one backend and gate.
type Repos struct {
	Jobs        *Jobs
	Submissions *Submissions
	Users       *Users
	Posts       *Posts
}

func New(backend store.Backend, g gate.Gate, logger *slog.Logger) *Repos {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repos{
		Jobs:        NewJobs(backend, g, logger),
		Submissions: NewSubmissions(backend, g, logger),
		Users:       NewUsers(backend, g, logger),
		Posts:       NewPosts(backend, g, logger),
	}
}

type guard struct {
	repo   string
	gate   gate.Gate
	logger *slog.Logger
}

func newGuard(repo string, g gate.Gate, logger *slog.Logger) guard {
	return guard{repo: repo, gate: g, logger: logger.With(slog.String("repo", repo))}
}

// run executes fn when the gate allows writes and records the outcome.
func (g guard) run(ctx context.Context, op string, fn func() contract.Result) contract.Result {
	start := time.Now()
	var res contract.Result
	if !g.gate.WritesAllowed() {
		g.logger.Warn("write rejected by gate", slog.String("op", op), slog.String("mode", g.gate.Mode()))
		res = contract.WritesDisabled()
	} else {
		res = fn()
	}
	outcome := "ok"
	if !res.OK {
		outcome = string(res.Kind)
	}
	metrics.ObserveOperation(g.repo, op, outcome, time.Since(start))
	return res
}

// fail logs a backend error and hides it behind a backend_error result.
func (g guard) fail(op string, err error, attrs ...any) contract.Result {
	args := append([]any{slog.String("op", op), slog.Any("err", err)}, attrs...)
	g.logger.Error("backend operation failed", args...)
	return contract.BackendError()
}
