package history

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Cleaner permanently removes batch rows older than a retention
// threshold. Adapted from sql.Cleaner: same delete-by-cutoff shape,
// applied to batches instead of jobs. Unlike the teacher's terminal-
// status restriction (batches have no in-progress state once
// recorded), Cleaner here only restricts by EndedAt, since an
// unfinished batch (EndedAt == nil) must never be pruned.
type Cleaner struct {
	db *bun.DB
}

// NewCleaner creates a SQL-backed Cleaner over db.
func NewCleaner(db *bun.DB) *Cleaner {
	return &Cleaner{db: db}
}

// Clean deletes batches whose ended_at is non-null and <= before. It
// returns the number of deleted rows.
func (c *Cleaner) Clean(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.NewDelete().
		Model((*batchModel)(nil)).
		Where("ended_at IS NOT NULL AND ended_at <= ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return rows, nil
}
