// Package store defines the storage capability every backend implements.
//
// A backend holds named collections of documents. Documents are plain
// key/value maps; the repositories above this package convert them to typed
// entities. Single-document operations are atomic on the remote backends.
// Sequences of operations (read a collection, modify it, write it back) are
// not atomic on any backend, and on the local JSON backend two processes
// writing the same collection can lose an update: the last writer replaces
// the whole file.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
)

// Collection names.
const (
	Jobs        = "jobs"
	Submissions = "submissions"
	Users       = "users"
	Posts       = "posts"
)

// Collections lists every collection the application stores, in dependency order.
var Collections = []string{Jobs, Users, Submissions, Posts}

var (
	ErrMissingKey        = errors.New("document has no usable key")
	ErrInvalidCollection = errors.New("invalid collection name")
)

type Document map[string]any

// Filter matches documents whose top-level fields equal every given value.
// An empty filter matches all documents.
type Filter map[string]any

type Backend interface {
	// Name identifies the backend in logs and health output.
	Name() string
	// Remote is true for connected database servers, false for backends
	// living on the deployment filesystem.
	Remote() bool
	FindAll(ctx context.Context, collection string, filter Filter) ([]Document, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	// Upsert inserts doc or replaces the document with the same value in
	// keyField. Documents keep their original insertion position.
	Upsert(ctx context.Context, collection, keyField string, doc Document) error
	// ReplaceAll swaps the whole collection for docs, in order.
	ReplaceAll(ctx context.Context, collection, keyField string, docs []Document) error
	Append(ctx context.Context, collection string, doc Document) error
	Delete(ctx context.Context, collection string, filter Filter) (int, error)
	Close() error
}

// Positioner is implemented by backends whose per-document writes cannot
// carry a batch order. Reorder moves the documents with the given keys, in
// that order, after every other document of the collection. Unknown keys
// are ignored.
type Positioner interface {
	Reorder(ctx context.Context, collection string, keys []string) error
}

var collectionRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// CheckCollection rejects names that cannot be used as file names or keys.
func CheckCollection(name string) error {
	if !collectionRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// KeyOf returns the string value of keyField in doc.
func KeyOf(doc Document, keyField string) (string, error) {
	v, ok := doc[keyField].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: field %q", ErrMissingKey, keyField)
	}
	return v, nil
}

// Match reports whether doc satisfies filter. Values are compared after
// normalizing through JSON so that numbers read back from storage (float64)
// equal the ints callers usually pass.
func Match(doc Document, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalize(got), normalize(want)) {
			return false
		}
	}
	return true
}

func normalize(v any) any {
	switch v.(type) {
	case string, bool, float64, nil:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// Encode converts a typed value to a Document through its JSON form.
func Encode(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills out from doc through its JSON form.
func Decode(doc Document, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Clone returns a deep copy of doc.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Clone(Document(t)))
	case Document:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
