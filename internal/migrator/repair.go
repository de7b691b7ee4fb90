package migrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Matcry12/careervr/internal/metrics"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

type OwnerFields struct {
	OwnerActor     string `json:"ownerActor"`
	AuthorUsername string `json:"authorUsername"`
}

type Sample struct {
	ID     string      `json:"id"`
	Before OwnerFields `json:"before"`
	After  OwnerFields `json:"after"`
}

type RepairReport struct {
	DryRun     bool     `json:"dryRun"`
	Limit      int      `json:"limit"`
	Scanned    int      `json:"scanned"`
	Candidates int      `json:"candidates"`
	Changed    int      `json:"changed"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Samples    []Sample `json:"samples"`
}

// RepairOwnership makes ownerActor and authorUsername agree. An account
// owner without a username gets the username back; every other post gets
// the owner the resolver computes. At most limit posts are changed (limit
// <= 0 means no cap). A dry run writes nothing and reports what it would do.
func (m *Migrator) RepairOwnership(ctx context.Context, dryRun bool, limit int) (RepairReport, repository.Result) {
	rep := RepairReport{DryRun: dryRun, Limit: limit, Samples: []Sample{}}
	if !dryRun && !m.gate.WritesAllowed() {
		return rep, repository.WritesDisabled()
	}

	docs, err := m.backend.FindAll(ctx, store.Posts, nil)
	if err != nil {
		m.logger.Error("repair: load posts", slog.Any("err", err))
		return rep, repository.BackendError()
	}

	for _, doc := range docs {
		rep.Scanned++
		id, _ := doc["id"].(string)
		if strings.TrimSpace(id) == "" {
			rep.Skipped++
			continue
		}

		before := ownerFields(doc)
		after := repairedOwner(doc)
		if before == after {
			continue
		}
		rep.Candidates++
		if limit > 0 && rep.Changed >= limit {
			continue
		}

		if !dryRun {
			doc["ownerActor"] = after.OwnerActor
			if after.AuthorUsername != "" {
				doc["authorUsername"] = after.AuthorUsername
			}
			if err := m.backend.Upsert(ctx, store.Posts, "id", doc); err != nil {
				rep.Failed++
				m.logger.Error("repair: write post", slog.String("id", id), slog.Any("err", err))
				continue
			}
		}
		rep.Changed++
		if len(rep.Samples) < MaxSamples {
			rep.Samples = append(rep.Samples, Sample{ID: id, Before: before, After: after})
		}
	}

	if !dryRun {
		metrics.AddMigrated("repair_ownership", "changed", rep.Changed)
		metrics.AddMigrated("repair_ownership", "failed", rep.Failed)
	}
	m.logger.Info("repair ownership finished",
		slog.Bool("dry_run", dryRun),
		slog.Int("limit", limit),
		slog.Int("scanned", rep.Scanned),
		slog.Int("candidates", rep.Candidates),
		slog.Int("changed", rep.Changed),
		slog.Int("failed", rep.Failed))

	if rep.Failed > 0 {
		return rep, repository.BackendError()
	}
	return rep, repository.Success(rep.Changed)
}

func ownerFields(doc store.Document) OwnerFields {
	owner, _ := doc["ownerActor"].(string)
	username, _ := doc["authorUsername"].(string)
	return OwnerFields{OwnerActor: owner, AuthorUsername: username}
}

func repairedOwner(doc store.Document) OwnerFields {
	cur := ownerFields(doc)
	author, _ := doc["author"].(string)

	username := cur.AuthorUsername
	if username == "" && strings.HasPrefix(cur.OwnerActor, ownership.UserPrefix) {
		username = strings.TrimPrefix(cur.OwnerActor, ownership.UserPrefix)
	}
	owner := ownership.ResolveOwner(&models.Post{
		Author:         author,
		AuthorUsername: username,
		OwnerActor:     cur.OwnerActor,
	})
	return OwnerFields{OwnerActor: owner, AuthorUsername: username}
}
