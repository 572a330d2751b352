// Package kv is the durable key/value store the credit engine persists its
// entities in. Keys are namespaced per entity; values are opaque bytes.
//
// Contract: Get returns (nil, nil) for an absent key; Delete and
// DeletePrefix are idempotent.
package kv

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/creditkeeper/internal/dbx"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

// Factory binds a Repository to a handle, either the pool or an open
// transaction.
type Factory func(db dbx.DBTX) Repository

// escapeLike makes prefix safe for a LIKE pattern with ESCAPE '\'.
func escapeLike(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

// SQLiteFactory is the Factory for SQLite-backed stores.
func SQLiteFactory(db dbx.DBTX) Repository { return NewSQLiteRepository(db) }

// PostgresFactory is the Factory for PostgreSQL-backed stores.
func PostgresFactory(db dbx.DBTX) Repository { return NewPostgresRepository(db) }
