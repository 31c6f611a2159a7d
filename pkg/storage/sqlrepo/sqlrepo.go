// Package sqlrepo implements the storage repositories over any sqlx
// database. Queries are written with '?' placeholders and rebound to the
// driver's bind type.
package sqlrepo

import (
	"github.com/absmach/cortex/pkg/storage"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Snapshots storage.SnapshotRepository
	Rounds    storage.RoundRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Snapshots: NewSnapshotRepository(db),
		Rounds:    NewRoundRepository(db),
	}
}
