package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgGenerator struct {
	pool *pgxpool.Pool
}

func NewPgGenerator(pool *pgxpool.Pool) *PgGenerator {
	return &PgGenerator{pool: pool}
}

// Next increments the per-(prefix, bucket) counter atomically. The upsert
// happens in a single statement, so two concurrent callers can never
// observe the same value.
func (g *PgGenerator) Next(ctx context.Context, prefix, bucket string) (string, error) {
	var value int

	err := g.pool.QueryRow(ctx, `
		INSERT INTO id_sequences (prefix, bucket, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, bucket)
		DO UPDATE SET value = id_sequences.value + 1
		RETURNING value
	`, prefix, bucket).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("next id for %s%s: %w", prefix, bucket, err)
	}

	if value > maxSequence {
		return "", fmt.Errorf("bucket %s%s: %w", prefix, bucket, ErrBucketExhausted)
	}

	return format(prefix, bucket, value), nil
}
