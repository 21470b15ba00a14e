package reaction

import (
	"context"
	"fmt"
)

// Tally is the aggregate of all reactions on one target.
type Tally struct {
	Positive           int     `json:"positive"`
	Negative           int     `json:"negative"`
	Total              int     `json:"total"`
	PercentagePositive float64 `json:"percentagePositive"`
}

func NewTally(positive, negative int) Tally {
	t := Tally{Positive: positive, Negative: negative, Total: positive + negative}
	if t.Total > 0 {
		t.PercentagePositive = float64(positive) * 100 / float64(t.Total)
	}
	return t
}

// Tally counts the reactions on key. Bound to a transaction it includes that
// transaction's own uncommitted writes.
func (s *Store[T, V, P]) Tally(ctx context.Context, key Key) (Tally, error) {
	var buckets []struct {
		Value V
		N     int64
	}
	err := s.db.WithContext(ctx).
		Model(new(T)).
		Select(s.valueColumn+" AS value, COUNT(*) AS n").
		Where("target_type = ? AND target_id = ?", key.Type, key.ID).
		Group(s.valueColumn).
		Scan(&buckets).Error
	if err != nil {
		return Tally{}, fmt.Errorf("tally reactions on %s: %w", key, err)
	}

	var positive, negative int
	for _, b := range buckets {
		if b.Value == s.positive {
			positive += int(b.N)
		} else {
			negative += int(b.N)
		}
	}
	return NewTally(positive, negative), nil
}
