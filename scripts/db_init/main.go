package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/migrator"
	"github.com/Matcry12/careervr/internal/repository"
	"github.com/Matcry12/careervr/internal/store/backends"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	backend := backends.Open(ctx, cfg.Storage, nil)
	defer backend.Close()

	// Schemas are applied when the backend opens; what is left is data.
	g := gate.New(gate.Inputs{RemoteConnected: backend.Remote(), ForceLocalWrites: true})
	if _, res := migrator.New(backend, g, nil).NormalizeSchema(ctx); !res.OK {
		fmt.Fprintf(os.Stderr, "Migration error: %s\n", res.Reason)
		os.Exit(1)
	}
	res := repository.New(backend, g, nil).Jobs.SeedDefaults(ctx)
	if !res.OK {
		fmt.Fprintf(os.Stderr, "Seed error: %s\n", res.Reason)
		os.Exit(1)
	}

	fmt.Printf("Database initialized successfully (%s, %d jobs seeded).\n", backend.Name(), res.Affected)
}
