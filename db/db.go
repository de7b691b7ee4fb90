package db

import "embed"

// Migrations holds the SQLite schema for the embedded document backend.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// PostgresMigrations holds the schema for the PostgreSQL document backend.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS

// SeedFiles holds the default job catalog.
//
//go:embed seed/*.json
var SeedFiles embed.FS
