package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sequenceCounter hands out the global monotonic sequence shared by every
// append-only table (ledger entries, badge awards, step transitions). Each
// lives in its own table, so per-table ids cannot order them against each
// other; the shared sequence can, and lets consumers resume from "everything
// after N".
//
// The RETURNING clause makes the increment atomic. Callers pass the executor
// so a reservation made inside a transaction rolls back with it.
type sequenceCounter struct{}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context, q execer) (int64, error) {
	first, err := sc.NextN(ctx, q, 1)
	if err != nil {
		return 0, err
	}
	return first, nil
}

// NextN reserves n consecutive sequence numbers and returns the first.
func (sc *sequenceCounter) NextN(ctx context.Context, q execer, n int) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("next sequence: n must be >= 1, got %d", n)
	}
	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + ? WHERE id = 1 RETURNING next_val - ?`, n, n,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
