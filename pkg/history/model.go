package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// batchModel is one row of the batches table: the summary of a single
// smartdispatch launch, inserted at launch time with its seeded count
// and start time. EndedAt stays nil until a later upsert sets it.
type batchModel struct {
	bun.BaseModel `bun:"table:batches"`

	ID uuid.UUID `bun:"id,pk,type:uuid"`

	BatchUID string `bun:"batch_uid,notnull,unique"`

	Cluster string `bun:"cluster,notnull"`
	Queue   string `bun:"queue,notnull"`

	SeededCount   int `bun:"seeded_count,notnull"`
	FinishedCount int `bun:"finished_count,notnull"`
	FailedCount   int `bun:"failed_count,notnull"`

	StartedAt time.Time  `bun:"started_at,notnull"`
	EndedAt   *time.Time `bun:"ended_at,nullzero"`

	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Batch is the public, storage-agnostic view of a history row.
type Batch struct {
	BatchUID      string
	Cluster       string
	Queue         string
	SeededCount   int
	FinishedCount int
	FailedCount   int
	StartedAt     time.Time
	EndedAt       *time.Time
}

func (b *batchModel) toBatch() Batch {
	return Batch{
		BatchUID:      b.BatchUID,
		Cluster:       b.Cluster,
		Queue:         b.Queue,
		SeededCount:   b.SeededCount,
		FinishedCount: b.FinishedCount,
		FailedCount:   b.FailedCount,
		StartedAt:     b.StartedAt,
		EndedAt:       b.EndedAt,
	}
}
