// Package migrator brings stored forum posts up to the current document
// shape and repairs ownership fields.
//
// Both passes read raw documents, since a typed decode cannot tell a missing
// field from a zero value. Each changed post is written back on its own; a
// document that cannot be understood is skipped and counted, never fatal.
package migrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Matcry12/careervr/internal/codec"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/metrics"
	"github.com/Matcry12/careervr/internal/ownership"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

// MaxSamples caps the before/after samples of a repair report.
const MaxSamples = 20

type Migrator struct {
	backend store.Backend
	gate    gate.Gate
	logger  *slog.Logger
	newID   func() string
}

func New(backend store.Backend, g gate.Gate, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{backend: backend, gate: g, logger: logger, newID: uuid.NewString}
}

type NormalizeReport struct {
	Scanned int            `json:"scanned"`
	Changed int            `json:"changed"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Fields  map[string]int `json:"fields"`
}

// NormalizeSchema backfills every field a post or comment is now expected to
// carry. A second run over its own output changes nothing.
func (m *Migrator) NormalizeSchema(ctx context.Context) (NormalizeReport, repository.Result) {
	start := time.Now()
	rep := NormalizeReport{Fields: map[string]int{}}
	if !m.gate.WritesAllowed() {
		return rep, repository.WritesDisabled()
	}

	docs, err := m.backend.FindAll(ctx, store.Posts, nil)
	if err != nil {
		m.logger.Error("normalize: load posts", slog.Any("err", err))
		return rep, repository.BackendError()
	}

	for _, doc := range docs {
		rep.Scanned++
		fields, err := normalizePost(doc, m.newID)
		if err != nil {
			rep.Skipped++
			m.logger.Warn("normalize: skipping malformed post", slog.Any("id", doc["id"]), slog.Any("err", err))
			continue
		}
		if len(fields) == 0 {
			continue
		}
		if err := m.backend.Upsert(ctx, store.Posts, "id", doc); err != nil {
			rep.Failed++
			m.logger.Error("normalize: write post", slog.Any("id", doc["id"]), slog.Any("err", err))
			continue
		}
		rep.Changed++
		for _, f := range fields {
			rep.Fields[f]++
		}
	}

	metrics.AddMigrated("normalize", "changed", rep.Changed)
	metrics.AddMigrated("normalize", "skipped", rep.Skipped)
	metrics.AddMigrated("normalize", "failed", rep.Failed)
	m.logger.Info("normalize schema finished",
		slog.Int("scanned", rep.Scanned),
		slog.Int("changed", rep.Changed),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed),
		slog.Duration("elapsed", time.Since(start)))

	if rep.Failed > 0 {
		return rep, repository.BackendError()
	}
	return rep, repository.Success(rep.Changed)
}

type errMalformed string

func (e errMalformed) Error() string { return string(e) }

// normalizePost fills missing fields of doc in place and returns the names
// of the fields it touched.
func normalizePost(doc store.Document, newID func() string) ([]string, error) {
	if id, _ := doc["id"].(string); strings.TrimSpace(id) == "" {
		return nil, errMalformed("post has no id")
	}

	var changed []string
	set := func(field string, v any) {
		doc[field] = v
		changed = append(changed, field)
	}

	comments, ok := listField(doc, "comments")
	if !ok {
		return nil, errMalformed("comments is not a list")
	}
	commentsChanged := doc["comments"] == nil
	commentIDs := make(map[string]bool, len(comments))
	for i, item := range comments {
		c, ok := item.(map[string]any)
		if !ok {
			return nil, errMalformed(fmt.Sprintf("comment %d is not an object", i))
		}
		// The first comment keeps a duplicated id; later ones get a new one.
		if id, _ := c["id"].(string); strings.TrimSpace(id) == "" || commentIDs[id] {
			c["id"] = newID()
			commentsChanged = true
		}
		if _, ok := c["reports"].([]any); !ok {
			c["reports"] = []any{}
			commentsChanged = true
		}
		commentIDs[c["id"].(string)] = true
	}
	if commentsChanged {
		set("comments", comments)
	}

	content, _ := doc["content"].(string)
	if title, _ := doc["title"].(string); strings.TrimSpace(title) == "" {
		set("title", codec.DeriveTitle(content))
	}
	if cat, _ := doc["category"].(string); !models.IsCategory(cat) {
		set("category", models.CategoryGeneral)
	}
	if owner, _ := doc["ownerActor"].(string); strings.TrimSpace(owner) == "" {
		author, _ := doc["author"].(string)
		username, _ := doc["authorUsername"].(string)
		set("ownerActor", ownership.ResolveOwner(&models.Post{Author: author, AuthorUsername: username}))
	}

	helpful, present := doc["helpfulCommentId"]
	switch h := helpful.(type) {
	case nil:
		if !present {
			set("helpfulCommentId", nil)
		}
	case string:
		if !commentIDs[h] {
			set("helpfulCommentId", nil)
		}
	default:
		set("helpfulCommentId", nil)
	}

	if _, ok := doc["reports"].([]any); !ok {
		set("reports", []any{})
	}
	if _, ok := doc["isPinned"].(bool); !ok {
		set("isPinned", false)
	}
	if _, present := doc["pinnedAt"]; !present {
		set("pinnedAt", nil)
	}

	liked, dirty := uniqueStrings(doc["likedBy"])
	if dirty {
		set("likedBy", liked)
	}
	if n, ok := toInt(doc["likesCount"]); !ok || n != len(liked) {
		set("likesCount", len(liked))
	}
	return changed, nil
}

// listField returns doc[key] as a list. A missing or null value is an empty
// list; any other non-list value is not ok.
func listField(doc store.Document, key string) ([]any, bool) {
	switch v := doc[key].(type) {
	case nil:
		return []any{}, true
	case []any:
		return v, true
	default:
		return nil, false
	}
}

// uniqueStrings returns the distinct strings of v in order, and whether that
// differs from what v held.
func uniqueStrings(v any) ([]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return []any{}, true
	}
	seen := make(map[string]bool, len(list))
	out := make([]any, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, len(out) != len(list)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
