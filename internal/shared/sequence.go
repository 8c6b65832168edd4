package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SequenceRow is the pgx query surface needed by the generator. Both a pool
// and an open transaction satisfy it.
type SequenceRow interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sequence hands out monotonic document numbers per code.
type Sequence struct {
	db SequenceRow
}

// NewSequence constructs a Sequence backed by the given querier.
func NewSequence(db SequenceRow) *Sequence {
	return &Sequence{db: db}
}

// NextValue increments the counter for code and returns the formatted number.
// The sequences row is created on first use.
func (s *Sequence) NextValue(ctx context.Context, code string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("sequence generator not initialised")
	}
	if code == "" {
		return "", errors.New("sequence code required")
	}
	var prefix string
	var value int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO sequences (code, prefix, value)
		VALUES ($1, upper(split_part($1, '.', 1)), 1)
		ON CONFLICT (code) DO UPDATE SET value = sequences.value + 1
		RETURNING prefix, value
	`, code).Scan(&prefix, &value)
	if err != nil {
		return "", fmt.Errorf("sequence %s: %w", code, err)
	}
	return fmt.Sprintf("%s/%05d", prefix, value), nil
}
