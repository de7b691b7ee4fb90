package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	dbfs "github.com/Matcry12/careervr/db"
	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
	contract "github.com/Matcry12/careervr/pkg/repository"
)

// syncParallelism bounds concurrent upserts during a remote catalog sync.
const syncParallelism = 8

// Jobs is the job catalog.
//
// On a remote backend a sync upserts every entry and then deletes stored
// entries missing from the batch. Replaying a batch converges to the same
// state, but the two phases are not atomic: if the process dies between
// them, stale entries stay until the next sync.
type Jobs struct {
	backend store.Backend
	guard   guard
	logger  *slog.Logger
}

var _ contract.JobRepo = (*Jobs)(nil)

func NewJobs(backend store.Backend, g gate.Gate, logger *slog.Logger) *Jobs {
	return &Jobs{backend: backend, guard: newGuard("jobs", g, logger), logger: logger}
}

func (r *Jobs) List(ctx context.Context) ([]models.Job, error) {
	docs, err := r.backend.FindAll(ctx, store.Jobs, nil)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]models.Job, 0, len(docs))
	for _, d := range docs {
		j, err := codec.DecodeJob(d)
		if err != nil {
			r.logger.Warn("skipping unreadable job", slog.Any("id", d["id"]), slog.Any("err", err))
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// Get returns nil, nil when the job does not exist.
func (r *Jobs) Get(ctx context.Context, id string) (*models.Job, error) {
	doc, err := r.backend.FindOne(ctx, store.Jobs, store.Filter{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	j, err := codec.DecodeJob(doc)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// SyncJobs replaces the catalog with payload after validating all of it.
func (r *Jobs) SyncJobs(ctx context.Context, payload any, allowEmpty bool) contract.Result {
	return r.guard.run(ctx, "sync", func() contract.Result {
		jobs, err := codec.DecodeJobs(ctx, payload, allowEmpty)
		if err != nil {
			if reason, ok := codec.Reason(err); ok {
				return contract.Invalid(reason)
			}
			return r.guard.fail("sync_validate", err)
		}
		docs, err := codec.JobDocuments(jobs)
		if err != nil {
			return r.guard.fail("sync_encode", err)
		}

		if !r.backend.Remote() {
			if err := r.backend.ReplaceAll(ctx, store.Jobs, "id", docs); err != nil {
				return r.guard.fail("sync_replace", err)
			}
			r.logger.Info("job catalog replaced", slog.String("backend", r.backend.Name()), slog.Int("count", len(docs)))
			return contract.Success(len(docs))
		}
		return r.syncRemote(ctx, docs)
	})
}

func (r *Jobs) syncRemote(ctx context.Context, docs []store.Document) contract.Result {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncParallelism)
	keep := make(map[string]bool, len(docs))
	order := make([]string, len(docs))
	for i, d := range docs {
		order[i] = d["id"].(string)
		keep[order[i]] = true
		g.Go(func() error {
			return r.backend.Upsert(gctx, store.Jobs, "id", d)
		})
	}
	if err := g.Wait(); err != nil {
		return r.guard.fail("sync_upsert", err)
	}
	// Parallel upserts land in any order; put the catalog back in batch order.
	if p, ok := r.backend.(store.Positioner); ok {
		if err := p.Reorder(ctx, store.Jobs, order); err != nil {
			return r.guard.fail("sync_reorder", err)
		}
	}

	existing, err := r.backend.FindAll(ctx, store.Jobs, nil)
	if err != nil {
		r.logger.Warn("job sync upserted but could not prune stale entries", slog.Any("err", err))
		return r.guard.fail("sync_list", err)
	}
	removed := 0
	for _, d := range existing {
		id, _ := d["id"].(string)
		if id == "" || keep[id] {
			continue
		}
		n, err := r.backend.Delete(ctx, store.Jobs, store.Filter{"id": id})
		if err != nil {
			r.logger.Warn("job sync left stale entries", slog.String("id", id), slog.Int("removed", removed), slog.Any("err", err))
			return r.guard.fail("sync_prune", err, slog.String("id", id))
		}
		removed += n
	}
	r.logger.Info("job catalog synced",
		slog.String("backend", r.backend.Name()),
		slog.Int("upserted", len(docs)),
		slog.Int("removed", removed))
	return contract.Success(len(docs))
}

// SeedDefaults installs the bundled catalog when the stored one is empty.
// The result reason is "catalog_present" when nothing had to be done.
func (r *Jobs) SeedDefaults(ctx context.Context) contract.Result {
	existing, err := r.backend.FindAll(ctx, store.Jobs, nil)
	if err != nil {
		return r.guard.fail("seed_list", err)
	}
	if len(existing) > 0 {
		return contract.Result{OK: true, Reason: "catalog_present"}
	}

	defaults, err := DefaultJobs()
	if err != nil {
		return r.guard.fail("seed_load", err)
	}
	return r.SyncJobs(ctx, defaults, false)
}

// DefaultJobs returns the bundled catalog.
func DefaultJobs() ([]models.Job, error) {
	b, err := dbfs.SeedFiles.ReadFile("seed/jobs.json")
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	var jobs []models.Job
	if err := json.Unmarshal(b, &jobs); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	return jobs, nil
}
