// Package factory builds storage repositories for the configured backend.
package factory

import (
	"context"
	"fmt"
	"io"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/storage/badger"
	"github.com/absmach/cortex/pkg/storage/objectstore"
	"github.com/absmach/cortex/pkg/storage/postgres"
	"github.com/absmach/cortex/pkg/storage/sqlite"
)

const (
	Memory   = "memory"
	Badger   = "badger"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

type Config struct {
	Type        string             `env:"TYPE"          envDefault:"memory"         toml:"type"         yaml:"type"`
	SQLitePath  string             `env:"SQLITE_PATH"   envDefault:"./cortex.db"    toml:"sqlite_path"  yaml:"sqlite_path"`
	BadgerPath  string             `env:"BADGER_PATH"   envDefault:"./data/badger" toml:"badger_path"  yaml:"badger_path"`
	Postgres    postgres.Config    `envPrefix:"POSTGRES_"                            toml:"postgres"     yaml:"postgres"`
	ObjectStore objectstore.Config `envPrefix:"OBJECT_STORE_"                        toml:"object_store" yaml:"object_store"`
}

type Repositories struct {
	Snapshots storage.SnapshotRepository
	Rounds    storage.RoundRepository
	// Closer closes the underlying database. It is nil for the in-memory backend.
	Closer io.Closer
}

// NewRepositories opens the configured backend. Snapshots go to the object
// store instead when it has an endpoint configured.
func NewRepositories(ctx context.Context, cfg Config) (*Repositories, error) {
	repos, err := newRepositories(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ObjectStore.Endpoint != "" {
		snapshots, err := objectstore.NewSnapshotRepository(ctx, cfg.ObjectStore)
		if err != nil {
			if repos.Closer != nil {
				_ = repos.Closer.Close()
			}

			return nil, err
		}
		repos.Snapshots = snapshots
	}

	return repos, nil
}

func newRepositories(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case Postgres:
		db, err := postgres.NewDatabase(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		repos := postgres.NewRepositories(db)

		return &Repositories{Snapshots: repos.Snapshots, Rounds: repos.Rounds, Closer: db}, nil
	case SQLite:
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repos := sqlite.NewRepositories(db)

		return &Repositories{Snapshots: repos.Snapshots, Rounds: repos.Rounds, Closer: db}, nil
	case Badger:
		db, err := badger.NewDatabase(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		repos := badger.NewRepositories(db)

		return &Repositories{Snapshots: repos.Snapshots, Rounds: repos.Rounds, Closer: db}, nil
	case Memory, "":
		return &Repositories{
			Snapshots: storage.NewMemorySnapshotRepository(),
			Rounds:    storage.NewMemoryRoundRepository(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
