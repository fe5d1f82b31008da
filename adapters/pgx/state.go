package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/ailearn/learnsync/core"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS client_state (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

	loadSQL = `SELECT value FROM client_state WHERE namespace = $1 AND key = $2`

	saveSQL = `INSERT INTO client_state (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	deleteSQL = `DELETE FROM client_state WHERE namespace = $1 AND key = $2`
)

// Migrate creates the state table if it does not exist.
func (a *Adapter) Migrate(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create client_state: %w", err)
	}
	return nil
}

func (a *Adapter) Load(ctx context.Context, key string) (string, error) {
	var value string
	err := a.db.QueryRow(ctx, loadSQL, a.namespace, key).Scan(&value)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return "", core.ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load %q: %w", key, err)
	}
	return value, nil
}

func (a *Adapter) Save(ctx context.Context, key, value string) error {
	if _, err := a.db.Exec(ctx, saveSQL, a.namespace, key, value); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if _, err := a.db.Exec(ctx, deleteSQL, a.namespace, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
