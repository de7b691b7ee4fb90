package main

import (
	"log/slog"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/metrics"
	"github.com/Matcry12/careervr/internal/store"
)

// newGate derives the write gate from the connected backend and publishes it.
func newGate(backend store.Backend, cfg config.StorageConfig, logger *slog.Logger) gate.Gate {
	g := gate.New(gate.Inputs{
		RemoteConnected:  backend.Remote(),
		ForceLocalWrites: cfg.ForceLocalWrites,
		Restricted:       cfg.Restricted,
	})
	metrics.SetWritesAllowed(g.WritesAllowed())
	logger.Info("write gate", slog.String("mode", g.Mode()), slog.Bool("writes_allowed", g.WritesAllowed()))
	return g
}
