// Package backends picks and connects the storage backend named by the
// configuration.
package backends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/internal/store/local"
	"github.com/Matcry12/careervr/internal/store/postgres"
	"github.com/Matcry12/careervr/internal/store/redisdoc"
	"github.com/Matcry12/careervr/internal/store/sqlite"
)

var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

// Open connects to the configured database. When none is configured,
// or it cannot be reached after the configured attempts, the local JSON files
// under DataDir are used instead.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) store.Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		logger.Info("no database configured, using local files", slog.String("dir", cfg.DataDir))
		return local.New(cfg.DataDir, logger)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(cfg.ConnectRetries)), ctx)
	attempt := 0
	var backend store.Backend
	err := backoff.Retry(func() error {
		attempt++
		be, err := Dial(ctx, cfg, logger)
		if err != nil {
			if errors.Is(err, ErrUnsupportedScheme) {
				return backoff.Permanent(err)
			}
			logger.Warn("database connection failed", slog.Int("attempt", attempt), slog.Any("err", err))
			return err
		}
		backend = be
		return nil
	}, b)
	if err != nil {
		logger.Warn("falling back to local files", slog.String("dir", cfg.DataDir), slog.Any("err", err))
		return local.New(cfg.DataDir, logger)
	}

	logger.Info("storage backend connected", slog.String("backend", backend.Name()), slog.Bool("remote", backend.Remote()))
	return backend
}

// Dial makes one connection attempt to the backend cfg.URL names.
func Dial(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (store.Backend, error) {
	url := strings.TrimSpace(cfg.URL)
	var (
		backend store.Backend
		err     error
	)
	switch {
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		var s *redisdoc.Store
		s, err = redisdoc.Open(ctx, url, cfg.KeyPrefix, cfg.ConnectTimeout, logger)
		backend = s
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		var s *postgres.Store
		s, err = postgres.Open(ctx, url, cfg.ConnectTimeout, logger)
		backend = s
	case strings.HasPrefix(url, "sqlite:"):
		var s *sqlite.Store
		s, err = sqlite.Open(ctx, strings.TrimPrefix(url, "sqlite:"), logger)
		backend = s
	default:
		scheme, _, _ := strings.Cut(url, ":")
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		// A typed nil would compare non-nil as a Backend.
		return nil, err
	}
	return backend, nil
}
