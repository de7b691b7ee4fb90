// Package local stores each collection as a JSON array in its own file.
//
// The data directory is created only when a write happens, so a process on a
// read-only filesystem can still serve reads. A missing or unreadable file
// is an empty collection for readers. A writer first renames a corrupt file
// to <collection>.json.corrupt-<unixnano> so its bytes are kept. Writes
// rewrite the whole file through a temporary file and a rename. A lock serializes writers inside one process; nothing
// coordinates separate processes, so concurrent writers from two processes
// can lose an update (the last rename wins).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Matcry12/careervr/internal/store"
)

type Store struct {
	dir    string
	logger *slog.Logger
	mu     chan struct{}
}

var _ store.Backend = (*Store)(nil)

func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, logger: logger, mu: make(chan struct{}, 1)}
	return s
}

func (s *Store) Name() string { return "local-json" }

func (s *Store) Remote() bool { return false }

func (s *Store) Dir() string { return s.dir }

func (s *Store) Close() error { return nil }

// lock acquires the writer lock or gives up when ctx is done.
func (s *Store) lock(ctx context.Context) error {
	select {
	case s.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock() { <-s.mu }

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

var errCorrupt = errors.New("collection file is not a JSON array")

// read returns the stored documents. A missing or blank file is an empty
// collection.
func (s *Store) read(collection string) ([]store.Document, error) {
	b, err := os.ReadFile(s.path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return []store.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []store.Document{}, nil
	}

	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}

	out := make([]store.Document, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, store.Document(m))
		}
	}
	return out, nil
}

// load is read for callers that only look: an unreadable file reads as empty.
func (s *Store) load(collection string) []store.Document {
	docs, err := s.read(collection)
	if err != nil {
		s.logger.Warn("unreadable collection file treated as empty", slog.String("path", s.path(collection)), slog.Any("err", err))
		return []store.Document{}
	}
	return docs
}

// loadForWrite is read for callers about to rewrite the file. A corrupt file
// is renamed aside so its bytes survive the rewrite; any other read error
// stops the write.
func (s *Store) loadForWrite(collection string) ([]store.Document, error) {
	docs, err := s.read(collection)
	if err == nil {
		return docs, nil
	}
	if !errors.Is(err, errCorrupt) {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	p := s.path(collection)
	aside := fmt.Sprintf("%s.corrupt-%d", p, time.Now().UnixNano())
	if rerr := os.Rename(p, aside); rerr != nil {
		return nil, fmt.Errorf("move corrupt %s aside: %w", collection, rerr)
	}
	s.logger.Warn("corrupt collection file moved aside", slog.String("path", p), slog.String("moved_to", aside), slog.Any("err", err))
	return []store.Document{}, nil
}

func (s *Store) save(collection string, docs []store.Document) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if docs == nil {
		docs = []store.Document{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), s.path(collection)); err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

func (s *Store) FindAll(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := s.load(collection)
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		if store.Match(d, filter) {
			out = append(out, d)
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

func (s *Store) Upsert(ctx context.Context, collection, keyField string, doc store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	key, err := store.KeyOf(doc, keyField)
	if err != nil {
		return err
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	docs, err := s.loadForWrite(collection)
	if err != nil {
		return err
	}
	replaced := false
	for i, d := range docs {
		if k, _ := d[keyField].(string); k == key {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}
	return s.save(collection, docs)
}

func (s *Store) ReplaceAll(ctx context.Context, collection, keyField string, docs []store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	if _, err := s.loadForWrite(collection); err != nil {
		return err
	}
	return s.save(collection, docs)
}

func (s *Store) Append(ctx context.Context, collection string, doc store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	docs, err := s.loadForWrite(collection)
	if err != nil {
		return err
	}
	return s.save(collection, append(docs, doc))
}

func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) (int, error) {
	if err := store.CheckCollection(collection); err != nil {
		return 0, err
	}
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.unlock()

	docs, err := s.loadForWrite(collection)
	if err != nil {
		return 0, err
	}
	kept := docs[:0]
	removed := 0
	for _, d := range docs {
		if store.Match(d, filter) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(collection, kept); err != nil {
		return 0, err
	}
	return removed, nil
}
