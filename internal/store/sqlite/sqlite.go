// Package sqlite keeps document collections in a single SQLite table.
//
// It lives on the deployment filesystem like the JSON files, so it reports
// itself as a local backend to the write gate.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dbfs "github.com/Matcry12/careervr/db"
	"github.com/Matcry12/careervr/internal/db"
	"github.com/Matcry12/careervr/internal/store"
)

type Store struct {
	conn   *db.DB
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// Open opens the database at dsn and applies the embedded migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	conn, err := db.New(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations, "migrations"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return New(conn, logger), nil
}

// New wraps an already migrated connection.
func New(conn *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Remote() bool { return false }

func (s *Store) Close() error { return s.conn.Close() }

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

type row struct {
	key string
	doc store.Document
}

func (s *Store) scan(ctx context.Context, collection string) ([]row, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryRows(ctx, `SELECT doc_key, body FROM documents WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc store.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			s.logger.Warn("skipping corrupt document", slog.String("collection", collection), slog.String("key", key), slog.Any("err", err))
			continue
		}
		out = append(out, row{key: key, doc: doc})
	}
	return out, rows.Err()
}

func (s *Store) FindAll(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	rows, err := s.scan(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(rows))
	for _, r := range rows {
		if store.Match(r.doc, filter) {
			out = append(out, r.doc)
		}
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

const upsertSQL = `INSERT INTO documents (collection, doc_key, body, updated) VALUES (?, ?, ?, ?)
ON CONFLICT (collection, doc_key) DO UPDATE SET body = excluded.body, updated = excluded.updated`

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
	if _, err := s.conn.Exec(ctx, upsertSQL, collection, key, string(body), now()); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) ReplaceAll(ctx context.Context, collection, keyField string, docs []store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	return s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
			return fmt.Errorf("clear %s: %w", collection, err)
		}
		ts := now()
		for i, d := range docs {
			key, err := store.KeyOf(d, keyField)
			if errors.Is(err, store.ErrMissingKey) {
				key = uuid.NewString()
			}
			body, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encode document %d: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx, upsertSQL, collection, key, string(body), ts); err != nil {
				return fmt.Errorf("insert %s/%s: %w", collection, key, err)
			}
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) (int, error) {
	rows, err := s.scan(ctx, collection)
	if err != nil {
		return 0, err
	}
	var doomed []string
	for _, r := range rows {
		if store.Match(r.doc, filter) {
			doomed = append(doomed, r.key)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	err = s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		for _, k := range doomed {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND doc_key = ?`, collection, k); err != nil {
				return fmt.Errorf("delete %s/%s: %w", collection, k, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doomed), nil
}
