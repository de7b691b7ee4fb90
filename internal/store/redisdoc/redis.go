// Package redisdoc is the remote document backend on Redis.
//
// Each collection is a hash mapping a document key to its JSON body, a sorted
// set recording insertion order and a counter handing out positions. Writes
// to one document run inside MULTI/EXEC, so single-document operations are
// atomic. Reads scan the whole collection; collections here are small
// (catalog, forum, accounts).
package redisdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Matcry12/careervr/internal/store"
)

const defaultPrefix = "careervr"

type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var (
	_ store.Backend    = (*Store)(nil)
	_ store.Positioner = (*Store)(nil)
)

// Open connects to redisURL and verifies the connection within timeout.
func Open(ctx context.Context, redisURL, prefix string, timeout time.Duration, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, prefix, logger), nil
}

// NewWithClient creates a store from an existing Redis client.
func NewWithClient(client *redis.Client, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, prefix: prefix, logger: logger}
}

func (s *Store) Name() string { return "redis" }

func (s *Store) Remote() bool { return true }

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) hashKey(collection string) string  { return s.prefix + ":" + collection }
func (s *Store) orderKey(collection string) string { return s.prefix + ":" + collection + ":order" }
func (s *Store) seqKey(collection string) string   { return s.prefix + ":" + collection + ":seq" }

type entry struct {
	key string
	doc store.Document
}

func (s *Store) scan(ctx context.Context, collection string) ([]entry, error) {
	if err := store.CheckCollection(collection); err != nil {
		return nil, err
	}
	keys, err := s.client.ZRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.HMGet(ctx, s.hashKey(collection), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}

	out := make([]entry, 0, len(vals))
	for i, v := range vals {
		body, ok := v.(string)
		if !ok {
			continue
		}
		var doc store.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			s.logger.Warn("skipping corrupt document", slog.String("collection", collection), slog.String("key", keys[i]), slog.Any("err", err))
			continue
		}
		out = append(out, entry{key: keys[i], doc: doc})
	}
	return out, nil
}

func (s *Store) FindAll(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	entries, err := s.scan(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(entries))
	for _, e := range entries {
		if store.Match(e.doc, filter) {
			out = append(out, e.doc)
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
	return s.put(ctx, collection, key, doc)
}

func (s *Store) Append(ctx context.Context, collection string, doc store.Document) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	return s.put(ctx, collection, uuid.NewString(), doc)
}

// put writes one document. ZADD NX keeps the original position of a
// document that is being replaced.
func (s *Store) put(ctx context.Context, collection, key string, doc store.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	seq, err := s.client.Incr(ctx, s.seqKey(collection)).Result()
	if err != nil {
		return fmt.Errorf("next position %s: %w", collection, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(collection), key, body)
		pipe.ZAddNX(ctx, s.orderKey(collection), redis.Z{Score: float64(seq), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Reorder(ctx context.Context, collection string, keys []string) error {
	if err := store.CheckCollection(collection); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	last, err := s.client.IncrBy(ctx, s.seqKey(collection), int64(len(keys))).Result()
	if err != nil {
		return fmt.Errorf("reserve positions %s: %w", collection, err)
	}
	first := last - int64(len(keys)) + 1
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			pipe.ZAddXX(ctx, s.orderKey(collection), redis.Z{Score: float64(first + int64(i)), Member: k})
		}
		return nil
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

	bodies := make([]string, len(docs))
	keys := make([]string, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
		bodies[i] = string(b)
		k, err := store.KeyOf(d, keyField)
		if errors.Is(err, store.ErrMissingKey) {
			k = uuid.NewString()
		}
		keys[i] = k
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.hashKey(collection), s.orderKey(collection))
		for i := range docs {
			pipe.HSet(ctx, s.hashKey(collection), keys[i], bodies[i])
			pipe.ZAdd(ctx, s.orderKey(collection), redis.Z{Score: float64(i + 1), Member: keys[i]})
		}
		pipe.Set(ctx, s.seqKey(collection), len(docs), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) (int, error) {
	entries, err := s.scan(ctx, collection)
	if err != nil {
		return 0, err
	}

	var doomed []string
	for _, e := range entries {
		if store.Match(e.doc, filter) {
			doomed = append(doomed, e.key)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	members := make([]any, len(doomed))
	for i, k := range doomed {
		members[i] = k
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.hashKey(collection), doomed...)
		pipe.ZRem(ctx, s.orderKey(collection), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", collection, err)
	}
	return len(doomed), nil
}
