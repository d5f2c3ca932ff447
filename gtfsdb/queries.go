package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries groups every statement the engine runs against the store.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// Savepoint opens a nested scope inside the current transaction.
func (q *Queries) Savepoint(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, fmt.Sprintf("SAVEPOINT %s", name))
	return err
}

// RollbackToSavepoint discards everything written since Savepoint(name) and
// closes the scope.
func (q *Queries) RollbackToSavepoint(ctx context.Context, name string) error {
	if _, err := q.db.ExecContext(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name)); err != nil {
		return err
	}
	return q.ReleaseSavepoint(ctx, name)
}

func (q *Queries) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", name))
	return err
}
