package sqlite

import (
	"fmt"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/storage/sqlrepo"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrDBConnection, err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	database := &Database{DB: db}

	if err := database.Migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return database, nil
}

func NewRepositories(db *Database) *sqlrepo.Repositories {
	return sqlrepo.NewRepositories(db.DB)
}

func (db *Database) Migrate() error {
	migrations := &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "cortex_1",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS snapshots (
						id TEXT PRIMARY KEY,
						node_id TEXT NOT NULL,
						tick INTEGER NOT NULL,
						params TEXT NOT NULL,
						created_at INTEGER NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_snapshots_node ON snapshots(node_id, created_at DESC)`,
					`CREATE TABLE IF NOT EXISTS rounds (
						id TEXT PRIMARY KEY,
						node_id TEXT NOT NULL,
						round_index INTEGER NOT NULL,
						batches_processed INTEGER NOT NULL,
						mean_grad_norm_before REAL NOT NULL,
						mean_grad_norm_after REAL NOT NULL,
						epsilon_spent REAL NOT NULL,
						epsilon_total REAL NOT NULL,
						epsilon_remaining REAL NOT NULL,
						budget_exhausted BOOLEAN NOT NULL DEFAULT 0,
						at INTEGER NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_rounds_node ON rounds(node_id, at DESC)`,
				},
				Down: []string{
					`DROP INDEX IF EXISTS idx_rounds_node`,
					`DROP TABLE IF EXISTS rounds`,
					`DROP INDEX IF EXISTS idx_snapshots_node`,
					`DROP TABLE IF EXISTS snapshots`,
				},
			},
		},
	}

	if _, err := migrate.Exec(db.DB.DB, "sqlite3", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrMigration, err)
	}

	return nil
}
