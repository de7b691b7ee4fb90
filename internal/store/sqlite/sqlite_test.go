package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/internal/store/sqlite"
)

func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLocalBackend(t *testing.T) {
	st := setupStore(t)
	if st.Remote() {
		t.Fatalf("sqlite must not report remote")
	}
	if st.Name() != "sqlite" {
		t.Fatalf("unexpected name %q", st.Name())
	}
}

func TestUpsertKeepsPosition(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		if err := st.Upsert(ctx, store.Posts, "id", store.Document{"id": id, "title": "t-" + id}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	if err := st.Upsert(ctx, store.Posts, "id", store.Document{"id": "p1", "title": "changed"}); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	docs, err := st.FindAll(ctx, store.Posts, nil)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	if docs[0]["id"] != "p1" || docs[0]["title"] != "changed" {
		t.Fatalf("replaced doc moved or not updated: %#v", docs[0])
	}

	if err := st.Upsert(ctx, store.Posts, "id", store.Document{"title": "no id"}); err == nil {
		t.Fatalf("expected error for document without key")
	}
}

func TestFindOneAndFilter(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if err := st.Upsert(ctx, store.Users, "username", store.Document{"username": "lan", "role": "admin"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := st.Upsert(ctx, store.Users, "username", store.Document{"username": "minh", "role": "user"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := st.FindOne(ctx, store.Users, store.Filter{"role": "user"})
	if err != nil || got == nil || got["username"] != "minh" {
		t.Fatalf("FindOne = %#v, %v", got, err)
	}
	none, err := st.FindOne(ctx, store.Users, store.Filter{"username": "nobody"})
	if err != nil || none != nil {
		t.Fatalf("FindOne missing = %#v, %v", none, err)
	}
	// Collections do not leak into each other.
	posts, err := st.FindAll(ctx, store.Posts, nil)
	if err != nil || len(posts) != 0 {
		t.Fatalf("expected empty posts, got %#v, %v", posts, err)
	}
}

func TestAppendReplaceDelete(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for i := range 2 {
		if err := st.Append(ctx, store.Submissions, store.Document{"name": "s", "i": i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	subs, _ := st.FindAll(ctx, store.Submissions, nil)
	if len(subs) != 2 || subs[1]["i"] != float64(1) {
		t.Fatalf("append order broken: %#v", subs)
	}

	if err := st.ReplaceAll(ctx, store.Jobs, "id", []store.Document{{"id": "j1"}, {"id": "j2"}, {"id": "j3"}}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := st.ReplaceAll(ctx, store.Jobs, "id", []store.Document{{"id": "j9"}}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	jobs, _ := st.FindAll(ctx, store.Jobs, nil)
	if len(jobs) != 1 || jobs[0]["id"] != "j9" {
		t.Fatalf("ReplaceAll did not swap collection: %#v", jobs)
	}

	n, err := st.Delete(ctx, store.Submissions, store.Filter{"name": "s"})
	if err != nil || n != 2 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	n, err = st.Delete(ctx, store.Submissions, store.Filter{"name": "s"})
	if err != nil || n != 0 {
		t.Fatalf("second Delete = %d, %v", n, err)
	}
}

func TestInvalidCollection(t *testing.T) {
	st := setupStore(t)
	if _, err := st.FindAll(context.Background(), "../etc", nil); err == nil {
		t.Fatalf("expected invalid collection error")
	}
}

func TestFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "careervr.db")

	st, err := sqlite.Open(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Upsert(ctx, store.Jobs, "id", store.Document{"id": "job_1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	st.Close()

	st, err = sqlite.Open(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	docs, err := st.FindAll(ctx, store.Jobs, nil)
	if err != nil || len(docs) != 1 {
		t.Fatalf("expected persisted doc, got %#v, %v", docs, err)
	}
}
