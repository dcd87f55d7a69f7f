package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store records and queries batch summaries.
type Store struct {
	db *bun.DB
}

// NewStore wraps an initialized *bun.DB (see Open) as a Store.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// RecordInput is the set of fields known when a batch is first recorded
// (at launch time) or updated (at resume/completion time).
type RecordInput struct {
	BatchUID      string
	Cluster       string
	Queue         string
	SeededCount   int
	FinishedCount int
	FailedCount   int
	StartedAt     time.Time
	EndedAt       *time.Time
}

// Upsert inserts a new row for in.BatchUID or updates the existing one,
// keyed on the unique batch_uid column. On conflict only the finished
// and failed counts, EndedAt and UpdatedAt are updated. The launch
// command calls it once to insert the batch; no command in this module
// issues a later update of counts or EndedAt.
func (s *Store) Upsert(ctx context.Context, in RecordInput) error {
	model := &batchModel{
		ID:            uuid.New(),
		BatchUID:      in.BatchUID,
		Cluster:       in.Cluster,
		Queue:         in.Queue,
		SeededCount:   in.SeededCount,
		FinishedCount: in.FinishedCount,
		FailedCount:   in.FailedCount,
		StartedAt:     in.StartedAt,
		EndedAt:       in.EndedAt,
		UpdatedAt:     time.Now(),
	}
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (batch_uid) DO UPDATE").
		Set("finished_count = EXCLUDED.finished_count").
		Set("failed_count = EXCLUDED.failed_count").
		Set("ended_at = EXCLUDED.ended_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("history: upsert %s: %w", in.BatchUID, err)
	}
	return nil
}

// Get returns the recorded row for batchUID, if any.
func (s *Store) Get(ctx context.Context, batchUID string) (Batch, bool, error) {
	model := new(batchModel)
	err := s.db.NewSelect().
		Model(model).
		Where("batch_uid = ?", batchUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Batch{}, false, nil
		}
		return Batch{}, false, fmt.Errorf("history: get %s: %w", batchUID, err)
	}
	return model.toBatch(), true, nil
}

// List returns every recorded batch, most recently started first.
func (s *Store) List(ctx context.Context) ([]Batch, error) {
	var models []batchModel
	if err := s.db.NewSelect().Model(&models).OrderExpr("started_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	batches := make([]Batch, len(models))
	for i := range models {
		batches[i] = models[i].toBatch()
	}
	return batches, nil
}
