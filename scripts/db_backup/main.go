package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/internal/store/backends"
)

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
	backend := backends.Open(ctx, cfg.Storage, nil)
	defer backend.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	for _, coll := range store.Collections {
		docs, err := backend.FindAll(ctx, coll, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Backup error: %s: %v\n", coll, err)
			os.Exit(1)
		}
		if docs == nil {
			docs = []store.Document{}
		}
		b, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Backup error: %s: %v\n", coll, err)
			os.Exit(1)
		}
		if err := os.WriteFile(filepath.Join(dir, coll+".json"), b, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d documents\n", coll, len(docs))
	}

	fmt.Printf("Database backup completed (%s -> %s).\n", backend.Name(), dir)
}
