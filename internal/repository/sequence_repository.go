package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Sequence names for human-readable ids.
const (
	SequenceTrainingRequest = "TR"
	SequenceVPA             = "VPA"
	SequenceVSR             = "VSR"
)

// SequenceRepository allocates human-readable sequential ids (TR01, VPA01,
// VSR01). Allocation is a single atomic statement so concurrent requests can
// never observe the same value; every id-issuing call site goes through here.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for the named sequence, seeding it
// on first use.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int, error) {
	const query = `INSERT INTO id_sequences (name, last_value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET last_value = id_sequences.last_value + 1
RETURNING last_value`
	var next int
	if err := r.db.GetContext(ctx, &next, query, name); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return next, nil
}

// NextID returns the next formatted id for the sequence, e.g. TR01.
func (r *SequenceRepository) NextID(ctx context.Context, name string) (string, error) {
	next, err := r.Next(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%02d", name, next), nil
}
