package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/internal/store/backends"
)

// Collections restored by key. Submissions have no key and are appended.
var keyFields = map[string]string{
	store.Jobs:  "id",
	store.Users: "username",
	store.Posts: "id",
}

func main() {
	dir := "backup"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Restricted {
		fmt.Fprintln(os.Stderr, "Restore error: deployment is read-only")
		os.Exit(1)
	}
	backend := backends.Open(ctx, cfg.Storage, nil)
	defer backend.Close()

	for _, coll := range store.Collections {
		n, err := restore(ctx, backend, dir, coll)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Restore error: %s: %v\n", coll, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d documents\n", coll, n)
	}

	fmt.Printf("Database restore completed (%s <- %s).\n", backend.Name(), dir)
}

func restore(ctx context.Context, backend store.Backend, dir, coll string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, coll+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var docs []store.Document
	if err := json.Unmarshal(b, &docs); err != nil {
		return 0, err
	}

	if key, ok := keyFields[coll]; ok {
		return len(docs), backend.ReplaceAll(ctx, coll, key, docs)
	}
	if _, err := backend.Delete(ctx, coll, nil); err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if err := backend.Append(ctx, coll, doc); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}
