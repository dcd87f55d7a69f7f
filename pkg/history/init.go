package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) a SQLite database at path and
// initializes the batches table and its indexes inside a single
// transaction, idempotently.
func Open(ctx context.Context, path string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*batchModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createUIDIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*batchModel)(nil)).
		Index("idx_batches_batch_uid").
		Column("batch_uid").
		Unique().
		IfNotExists().
		Exec(ctx)
	return err
}

func createEndedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*batchModel)(nil)).
		Index("idx_batches_ended_at").
		Column("ended_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func initSchema(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin schema tx: %w", err)
	}
	if err := createTable(ctx, tx); err != nil {
		return errors.Join(fmt.Errorf("history: create table: %w", err), tx.Rollback())
	}
	if err := createUIDIndex(ctx, tx); err != nil {
		return errors.Join(fmt.Errorf("history: create uid index: %w", err), tx.Rollback())
	}
	if err := createEndedIndex(ctx, tx); err != nil {
		return errors.Join(fmt.Errorf("history: create ended index: %w", err), tx.Rollback())
	}
	return tx.Commit()
}
