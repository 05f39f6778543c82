package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kyleking/primitive-db/internal/config"
	"github.com/kyleking/primitive-db/internal/logging"
)

// Open builds the repository selected by the storage configuration. The
// DuckDB backend is migrated before it is returned.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "", "file":
		codec, err := NewCodec(strings.ToLower(cfg.Storage.Format))
		if err != nil {
			return nil, err
		}

		logging.WithFields(map[string]interface{}{
			"directory": cfg.Storage.Directory,
			"format":    cfg.Storage.Format,
		}).Debug("Opening file repository")

		return NewFileRepository(cfg.Storage.Directory,
			WithMetaFile(cfg.Storage.MetaFile),
			WithDataDir(cfg.Storage.DataDir),
			WithCodec(codec),
		)
	case "duckdb":
		path := cfg.DuckDBFile()
		logging.WithField("path", path).Debug("Opening DuckDB repository")

		repo, err := NewDuckDBRepository(path)
		if err != nil {
			return nil, err
		}

		if err := repo.Initialize(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
