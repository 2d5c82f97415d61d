package sequence

import (
	"context"
	"errors"
	"fmt"
)

// ErrBucketExhausted means a (prefix, bucket) pair has run past 9999 ids.
// The 4-digit suffix is part of the externally visible id format, so this
// is a fatal configuration error (bucket granularity too coarse), not
// something to retry.
var ErrBucketExhausted = errors.New("id sequence bucket exhausted")

const maxSequence = 9999

// Generator hands out human-readable sequential ids such as APT2024110007:
// prefix, bucket key (e.g. year-month), then a zero-padded 4-digit sequence
// that is monotonic within the bucket.
type Generator interface {
	Next(ctx context.Context, prefix, bucket string) (string, error)
}

func format(prefix, bucket string, n int) string {
	return fmt.Sprintf("%s%s%04d", prefix, bucket, n)
}
