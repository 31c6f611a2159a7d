package storage

import "errors"

var (
	ErrDBConnection = errors.New("database connection error")
	ErrDBQuery      = errors.New("database query error")
	ErrDBScan       = errors.New("database scan error")
	ErrMigration    = errors.New("database migration error")
	ErrCreate       = errors.New("create error")
	ErrDelete       = errors.New("delete error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrNotFound     = errors.New("not found")
)
