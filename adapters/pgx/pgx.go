package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ailearn/learnsync/core"
)

// DefaultNamespace separates the state of one client install from another
// sharing the same table.
const DefaultNamespace = "default"

// querier is the part of *pgxpool.Pool the adapter uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row
}

// Adapter stores client state in PostgreSQL.
type Adapter struct {
	db        querier
	namespace string
}

var _ core.Storage = (*Adapter)(nil)

func New(pool *pgxpool.Pool, namespace string) *Adapter {
	return newAdapter(pool, namespace)
}

func newAdapter(db querier, namespace string) *Adapter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Adapter{
		db:        db,
		namespace: namespace,
	}
}

// Connect opens a pool for dsn and verifies it answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (a *Adapter) Namespace() string { return a.namespace }
