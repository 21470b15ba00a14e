// Package merge folds approved edit and delete contributions into the
// directory entries they target. Every function runs on the caller's
// transaction and never commits on its own.
package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
	"github.com/emilythestrangee/community-directory/backend/internal/signal"
)

type Executor struct {
	log zerolog.Logger
}

func NewExecutor(log zerolog.Logger) *Executor {
	return &Executor{log: log.With().Str("component", "merge").Logger()}
}

// Edit copies the fields set on pending onto the entry originalID and retires
// pending.
func (e *Executor) Edit(ctx context.Context, tx *gorm.DB, pending models.Entry, originalID uint) error {
	original, err := lockOriginal(ctx, tx, pending.Target(), originalID, "edit")
	if err != nil {
		return err
	}

	cols := pending.Columns()
	if len(cols) == 0 {
		return apperr.Validation("edit contribution %d does not change any field", pending.EntryID())
	}
	cols["updated_at"] = time.Now().UTC()
	if err := tx.WithContext(ctx).Model(original).Updates(cols).Error; err != nil {
		return fmt.Errorf("merge edit into %s %d: %w", original.TableName(), originalID, err)
	}
	if err := Retire(ctx, tx, pending); err != nil {
		return err
	}

	e.log.Info().
		Str("table", original.TableName()).
		Uint("original_id", originalID).
		Uint("contribution_id", pending.EntryID()).
		Int("fields", len(cols)-1).
		Msg("edit merged")
	return nil
}

// Delete removes the entry originalID and retires pending.
func (e *Executor) Delete(ctx context.Context, tx *gorm.DB, pending models.Entry, originalID uint) error {
	original, err := lockOriginal(ctx, tx, pending.Target(), originalID, "delete")
	if err != nil {
		return err
	}
	// retire first so the delete contribution is not withdrawn as a dependent
	if err := Retire(ctx, tx, pending); err != nil {
		return err
	}
	withdrawn, err := Remove(ctx, tx, original)
	if err != nil {
		return err
	}

	e.log.Info().
		Str("table", original.TableName()).
		Uint("original_id", originalID).
		Uint("contribution_id", pending.EntryID()).
		Int("withdrawn", withdrawn).
		Msg("delete merged")
	return nil
}

// lockOriginal loads the entry with id FOR UPDATE and checks it is still a
// live approved entry.
func lockOriginal(ctx context.Context, tx *gorm.DB, target models.TargetType, id uint, verb string) (models.Entry, error) {
	original, err := models.NewEntry(target)
	if err != nil {
		return nil, err
	}
	err = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Take(original, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Precondition("cannot %s a non-approved item", verb)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s %d: %w", original.TableName(), id, err)
	}
	if original.Meta().Status != models.StatusApproved {
		return nil, apperr.Precondition("cannot %s a non-approved item", verb)
	}
	return original, nil
}

// Retire marks a contribution as consumed: it is flagged approved, soft
// deleted and its votes are dropped.
func Retire(ctx context.Context, tx *gorm.DB, contribution models.Entry) error {
	tx = tx.WithContext(ctx)
	if err := dropVotes(tx, contribution.Target(), contribution.EntryID()); err != nil {
		return err
	}
	err := tx.Model(contribution).Update("status", models.StatusApproved).Error
	if err != nil {
		return fmt.Errorf("retire %s %d: %w", contribution.TableName(), contribution.EntryID(), err)
	}
	contribution.Meta().Status = models.StatusApproved
	if err := tx.Delete(contribution).Error; err != nil {
		return fmt.Errorf("retire %s %d: %w", contribution.TableName(), contribution.EntryID(), err)
	}
	return nil
}

// Remove soft deletes an approved entry, drops the signals on it and
// withdraws the pending edit and delete contributions that target it. It
// returns how many contributions were withdrawn.
func Remove(ctx context.Context, tx *gorm.DB, entry models.Entry) (int, error) {
	tx = tx.WithContext(ctx)
	target := entry.Target()

	var dependents []uint
	err := tx.Table(entry.TableName()).
		Where("original_id = ? AND status = ? AND deleted_at IS NULL", entry.EntryID(), models.StatusPending).
		Pluck("id", &dependents).Error
	if err != nil {
		return 0, fmt.Errorf("find contributions on %s %d: %w", entry.TableName(), entry.EntryID(), err)
	}
	if err := Withdraw(ctx, tx, target, dependents...); err != nil {
		return 0, err
	}

	if err := signal.NewStore(tx).Purge(ctx, reaction.Key{Type: target, ID: entry.EntryID()}); err != nil {
		return 0, err
	}
	if err := tx.Delete(entry).Error; err != nil {
		return 0, fmt.Errorf("delete %s %d: %w", entry.TableName(), entry.EntryID(), err)
	}
	return len(dependents), nil
}

// Withdraw hard deletes pending contributions and their votes. A withdrawn
// contribution is gone, not approved.
func Withdraw(ctx context.Context, tx *gorm.DB, target models.TargetType, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	tx = tx.WithContext(ctx)
	if err := dropVotes(tx, target, ids...); err != nil {
		return err
	}
	blank, err := models.NewEntry(target)
	if err != nil {
		return err
	}
	if err := tx.Unscoped().Where("id IN ?", ids).Delete(blank).Error; err != nil {
		return fmt.Errorf("withdraw %s contributions: %w", target, err)
	}
	return nil
}

func dropVotes(tx *gorm.DB, target models.TargetType, ids ...uint) error {
	err := tx.Where("target_type = ? AND target_id IN ?", target, ids).Delete(&models.Vote{}).Error
	if err != nil {
		return fmt.Errorf("drop votes on %s %v: %w", target, ids, err)
	}
	return nil
}
