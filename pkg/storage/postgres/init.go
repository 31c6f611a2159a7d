package postgres

import (
	"fmt"
	"time"

	"github.com/absmach/cortex/pkg/storage"
	"github.com/absmach/cortex/pkg/storage/sqlrepo"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

type Config struct {
	Host    string `env:"HOST"     envDefault:"localhost" toml:"host"     yaml:"host"`
	Port    string `env:"PORT"     envDefault:"5432"      toml:"port"     yaml:"port"`
	User    string `env:"USER"     envDefault:"cortex"    toml:"user"     yaml:"user"`
	Pass    string `env:"PASS"     envDefault:"cortex"    toml:"pass"     yaml:"pass"`
	Name    string `env:"NAME"     envDefault:"cortex"    toml:"name"     yaml:"name"`
	SSLMode string `env:"SSL_MODE" envDefault:"disable"   toml:"ssl_mode" yaml:"ssl_mode"`
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", c.Host, c.Port, c.User, c.Pass, c.Name, c.SSLMode)
}

type Database struct {
	*sqlx.DB
}

func NewDatabase(cfg Config) (*Database, error) {
	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrDBConnection, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
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
						id VARCHAR(36) PRIMARY KEY,
						node_id VARCHAR(255) NOT NULL,
						tick BIGINT NOT NULL,
						params TEXT NOT NULL,
						created_at BIGINT NOT NULL
					)`,
					`CREATE INDEX IF NOT EXISTS idx_snapshots_node ON snapshots(node_id, created_at DESC)`,
					`CREATE TABLE IF NOT EXISTS rounds (
						id VARCHAR(36) PRIMARY KEY,
						node_id VARCHAR(255) NOT NULL,
						round_index BIGINT NOT NULL,
						batches_processed BIGINT NOT NULL,
						mean_grad_norm_before DOUBLE PRECISION NOT NULL,
						mean_grad_norm_after DOUBLE PRECISION NOT NULL,
						epsilon_spent DOUBLE PRECISION NOT NULL,
						epsilon_total DOUBLE PRECISION NOT NULL,
						epsilon_remaining DOUBLE PRECISION NOT NULL,
						budget_exhausted BOOLEAN NOT NULL DEFAULT FALSE,
						at BIGINT NOT NULL
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

	if _, err := migrate.Exec(db.DB.DB, "postgres", migrations, migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrMigration, err)
	}

	return nil
}
