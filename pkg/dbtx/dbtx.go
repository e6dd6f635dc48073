// Package dbtx carries a context-scoped *sql.Tx so repositories built for
// C3's tenant scoping can participate transparently in the single
// transaction a C4 use-case runs inside, without threading a transaction
// handle through every method signature. Grounded on the teacher's
// pkg/dbtx test contract.
package dbtx

import (
	"context"
	"database/sql"
)

type txContextKey struct{}

// Executor is satisfied by both *sql.DB and *sql.Tx, letting a repository
// method run unchanged whether or not a transaction is in flight.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContextWithTx attaches tx to ctx. A nil tx is stored as nil and
// TxFromContext will report it as absent.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the *sql.Tx attached by ContextWithTx, or nil when
// none is present.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

// GetExecutor returns the transaction in ctx if one is present, otherwise
// db itself.
func GetExecutor(ctx context.Context, db *sql.DB) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}

	return db
}

// RunInTransaction begins a transaction on db, runs fn with the
// transaction attached to ctx, and commits on success. fn's error rolls
// the transaction back and is returned unchanged; a panic inside fn rolls
// back and re-panics after cleanup, matching the teacher's dbtx discipline.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ContextWithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}
