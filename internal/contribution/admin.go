package contribution

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/database"
	"github.com/emilythestrangee/community-directory/backend/internal/merge"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

// ForceApprove approves contribution id of d regardless of its votes. It
// takes the same path as a vote that crosses the approval line.
func (s *Service) ForceApprove(ctx context.Context, actor Actor, d Domain, id uint) (models.Entry, error) {
	if !actor.Admin {
		return nil, apperr.Unauthorized("admin access required")
	}

	var entry models.Entry
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		p, err := s.lockPending(tx, d, id)
		if err != nil {
			return err
		}
		if err := s.approve(ctx, tx, d, p); err != nil {
			return err
		}
		entry = p.entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("domain", string(d)).Uint("id", id).Str("admin_id", actor.UserID).Msg("contribution force approved")
	return entry, nil
}

// ForceDelete removes row id of d. A pending contribution is rejected and
// disappears with its votes. An approved entry is deleted and the pending
// edits and delete requests against it are withdrawn.
func (s *Service) ForceDelete(ctx context.Context, actor Actor, d Domain, id uint) error {
	if !actor.Admin {
		return apperr.Unauthorized("admin access required")
	}

	var rejected bool
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		entry := d.blank()
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(entry, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("%s %d not found", d, id)
		}
		if err != nil {
			return fmt.Errorf("lock %s %d: %w", d, id, err)
		}

		if entry.Meta().Status == models.StatusPending {
			rejected = true
			return merge.Withdraw(ctx, tx, d.Target(), id)
		}
		_, err = merge.Remove(ctx, tx, entry)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("domain", string(d)).
		Uint("id", id).
		Str("admin_id", actor.UserID).
		Bool("rejected", rejected).
		Msg("entry force deleted")
	return nil
}
