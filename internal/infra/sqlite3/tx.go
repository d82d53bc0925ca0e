package sqlite3

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type TxFunc = func(tx *sqlx.Tx) error

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. A panic in fn rolls back and re-panics.
func InTx(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}
