// Package postgres is the remote document backend on PostgreSQL.
//
// Documents live in one JSONB table keyed by (collection, doc_key). Equality
// filters are pushed down as JSONB containment and re-checked in Go, since
// containment is looser than equality for arrays and objects.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	dbfs "github.com/Matcry12/careervr/db"
	"github.com/Matcry12/careervr/internal/db"
	"github.com/Matcry12/careervr/internal/store"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ store.Backend    = (*Store)(nil)
	_ store.Positioner = (*Store)(nil)
)

// Open connects to databaseURL, verifies the connection within timeout and
// ensures the documents table exists.
func Open(ctx context.Context, databaseURL string, timeout time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.ensureSchema(connectCtx, dbfs.PostgresMigrations, "postgres"); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema runs every schema file; they are written to be re-runnable.
func (s *Store) ensureSchema(ctx context.Context, fsys fs.FS, dir string) error {
	files, err := db.SQLFiles(fsys, dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		b, err := fs.ReadFile(fsys, path.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", f, err)
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply schema %s: %w", f, err)
		}
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Remote() bool { return true }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

type entry struct {
	key string
	doc store.Document
}

func (s *Store) scan(ctx context.Context, collection string, filter store.Filter) ([]entry, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = store.Filter{}
	}
	contains, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT doc_key, body FROM documents WHERE collection = $1 AND body @> $2::jsonb ORDER BY seq`,
		collection, string(contains))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []entry
	for rows.Next() {
		var key string
		var body []byte
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc store.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			s.logger.Warn("skipping corrupt document", slog.String("collection", collection), slog.String("key", key), slog.Any("err", err))
			continue
		}
		if store.Match(doc, filter) {
			out = append(out, entry{key: key, doc: doc})
		}
	}
	return out, rows.Err()
}

func (s *Store) FindAll(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	entries, err := s.scan(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.doc)
	}
	return out, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter store.Filter) (store.Document, error) {
	docs, err := s.FindAll(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

const upsertSQL = `INSERT INTO documents (collection, doc_key, body, updated_at) VALUES ($1, $2, $3::jsonb, NOW())
ON CONFLICT (collection, doc_key) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`

func (s *Store) Upsert(ctx context.Context, collection, keyField string, doc store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	key, err := store.KeyOf(doc, keyField)
	if err != nil {
		return err
	}
	return s.put(ctx, collection, key, doc)
}

func (s *Store) Append(ctx context.Context, collection string, doc store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	return s.put(ctx, collection, uuid.NewString(), doc)
}

func (s *Store) put(ctx context.Context, collection, key string, doc store.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.pool.Exec(ctx, upsertSQL, collection, key, string(body)); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return nil
}

// Reorder hands the documents fresh sequence numbers in the order given.
func (s *Store) Reorder(ctx context.Context, collection string, keys []string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(`UPDATE documents SET seq = nextval(pg_get_serial_sequence('documents', 'seq'))
WHERE collection = $1 AND doc_key = $2`, collection, k)
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("reorder %s: %w", collection, err)
	}
	return nil
}

func (s *Store) ReplaceAll(ctx context.Context, collection, keyField string, docs []store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM documents WHERE collection = $1`, collection)
	for i, d := range docs {
		key, err := store.KeyOf(d, keyField)
		if errors.Is(err, store.ErrMissingKey) {
			key = uuid.NewString()
		}
		body, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
		batch.Queue(upsertSQL, collection, key, string(body))
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) (int, error) {
	entries, err := s.scan(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND doc_key = ANY($2)`, collection, keys)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	return int(tag.RowsAffected()), nil
}
