// Package reaction stores one reaction per (user, target) and counts them.
// Likes on content and votes on contributions are both reactions; they only
// differ in the row type and in the value a reaction carries.
package reaction

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/database"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

// maxSetAttempts bounds how often Set retries after the row it conflicted
// with was deleted under it.
const maxSetAttempts = 5

// Key identifies the thing being reacted to.
type Key struct {
	Type models.TargetType
	ID   uint
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Type, k.ID)
}

type Outcome string

const (
	Created  Outcome = "created"
	Switched Outcome = "switched"
	Removed  Outcome = "removed"
)

// Row is the constraint satisfied by *models.Signal and *models.Vote.
type Row[T any, V comparable] interface {
	*T
	Polarity() V
	SetPolarity(V)
	Bind(userID string, targetType models.TargetType, targetID uint, value V)
}

// Resolver returns an apperr NotFound error when key does not name an
// existing target.
type Resolver func(ctx context.Context, tx *gorm.DB, key Key) error

type Result[T any] struct {
	Outcome Outcome
	// Row is the reaction after the write, or the deleted row when Outcome
	// is Removed.
	Row *T
}

type Store[T any, V comparable, P Row[T, V]] struct {
	db          *gorm.DB
	inTx        bool
	valueColumn string
	positive    V
	resolve     Resolver
}

// NewStore builds a store over the table of T. valueColumn is the column
// holding the reaction value and positive the value counted as a like or
// upvote.
func NewStore[T any, V comparable, P Row[T, V]](db *gorm.DB, valueColumn string, positive V, resolve Resolver) *Store[T, V, P] {
	return &Store[T, V, P]{db: db, valueColumn: valueColumn, positive: positive, resolve: resolve}
}

// WithTx returns a copy of the store that runs every statement on tx.
func (s *Store[T, V, P]) WithTx(tx *gorm.DB) *Store[T, V, P] {
	clone := *s
	clone.db = tx
	clone.inTx = true
	return &clone
}

func (s *Store[T, V, P]) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.inTx {
		return fn(s.db.WithContext(ctx))
	}
	return database.Transact(ctx, s.db, fn)
}

func scope(tx *gorm.DB, userID string, key Key) *gorm.DB {
	return tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, key.Type, key.ID)
}

// Set records value as userID's reaction to key. A first reaction is
// inserted, repeating the current value retracts it and the opposite value
// replaces it. Concurrent calls for the same user and target serialize on the
// unique index and the row lock, so at most one row ever exists.
func (s *Store[T, V, P]) Set(ctx context.Context, userID string, key Key, value V) (Result[T], error) {
	var res Result[T]
	err := s.run(ctx, func(tx *gorm.DB) error {
		if s.resolve != nil {
			if err := s.resolve(ctx, tx, key); err != nil {
				return err
			}
		}
		for attempt := 0; attempt < maxSetAttempts; attempt++ {
			row := P(new(T))
			row.Bind(userID, key.Type, key.ID, value)
			inserted := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "user_id"},
					{Name: "target_type"},
					{Name: "target_id"},
				},
				DoNothing: true,
			}).Create(row)
			if inserted.Error != nil {
				return fmt.Errorf("insert reaction: %w", inserted.Error)
			}
			if inserted.RowsAffected == 1 {
				res = Result[T]{Outcome: Created, Row: (*T)(row)}
				return nil
			}

			existing := P(new(T))
			err := scope(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, key).Take(existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// deleted between our insert and the lock; try again
				continue
			}
			if err != nil {
				return fmt.Errorf("lock reaction: %w", err)
			}

			if existing.Polarity() == value {
				if err := tx.Delete(existing).Error; err != nil {
					return fmt.Errorf("delete reaction: %w", err)
				}
				res = Result[T]{Outcome: Removed, Row: (*T)(existing)}
				return nil
			}
			existing.SetPolarity(value)
			if err := tx.Model(existing).Update(s.valueColumn, value).Error; err != nil {
				return fmt.Errorf("update reaction: %w", err)
			}
			res = Result[T]{Outcome: Switched, Row: (*T)(existing)}
			return nil
		}
		return fmt.Errorf("reaction on %s kept changing under concurrent writers", key)
	})
	return res, err
}

// Remove deletes userID's reaction to key. Removing a reaction that does not
// exist is not an error.
func (s *Store[T, V, P]) Remove(ctx context.Context, userID string, key Key) error {
	if err := scope(s.db.WithContext(ctx), userID, key).Delete(new(T)).Error; err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	return nil
}

// RemoveOwned deletes the reaction with the given id when it belongs to
// userID and returns it. Someone else's reaction is reported as not found.
func (s *Store[T, V, P]) RemoveOwned(ctx context.Context, userID string, id uint) (*T, error) {
	row := new(T)
	res := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(row)
	if res.Error != nil {
		return nil, fmt.Errorf("remove reaction %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("reaction %d not found", id)
	}
	return row, nil
}

// Purge deletes every reaction on key, used when the target itself goes away.
func (s *Store[T, V, P]) Purge(ctx context.Context, key Key) error {
	err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", key.Type, key.ID).
		Delete(new(T)).Error
	if err != nil {
		return fmt.Errorf("purge reactions on %s: %w", key, err)
	}
	return nil
}
