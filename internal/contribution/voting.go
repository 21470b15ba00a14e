package contribution

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/approval"
	"github.com/emilythestrangee/community-directory/backend/internal/database"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

// VoteResult is what a cast vote did.
type VoteResult struct {
	// Vote is nil when the call retracted the caller's vote.
	Vote     *models.Vote
	Outcome  reaction.Outcome
	Status   approval.Status
	Approved bool
}

// CastVote toggles actor's vote on contribution id of d and approves the
// contribution when the active policy is satisfied. Votes on one
// contribution are serialized by its row lock, so the tally includes this
// vote and every vote committed before it, and only one caller ever sees
// the contribution cross the line.
func (s *Service) CastVote(ctx context.Context, actor Actor, d Domain, id uint, voteType models.VoteType) (VoteResult, error) {
	if !voteType.Valid() {
		return VoteResult{}, apperr.Validation("voteType must be %q or %q", models.Upvote, models.Downvote)
	}
	policy := s.policies.Active()
	key := reaction.Key{Type: d.Target(), ID: id}

	var res VoteResult
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		res = VoteResult{}
		p, err := s.lockPending(tx, d, id)
		if err != nil {
			return err
		}

		votes := s.votes.WithTx(tx)
		set, err := votes.Set(ctx, actor.UserID, key, voteType)
		if err != nil {
			return err
		}
		res.Outcome = set.Outcome
		if set.Outcome != reaction.Removed {
			res.Vote = set.Row
		}

		res.Status, res.Approved, err = s.settle(ctx, tx, policy, d, p)
		return err
	})
	if err != nil {
		return VoteResult{}, err
	}
	return res, nil
}

// RetractVote deletes actor's vote voteID and re-evaluates the contribution
// it was cast on, which may approve it. Votes cast by someone else are
// reported as not found.
func (s *Service) RetractVote(ctx context.Context, actor Actor, voteID uint) (*models.Vote, error) {
	policy := s.policies.Active()

	var removed *models.Vote
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		removed = nil
		var v models.Vote
		err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", voteID, actor.UserID).Take(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("vote %d not found", voteID)
		}
		if err != nil {
			return fmt.Errorf("load vote %d: %w", voteID, err)
		}
		d, ok := DomainOf(v.TargetType)
		if !ok {
			return fmt.Errorf("vote %d targets %q", voteID, v.TargetType)
		}

		p, err := s.lockPending(tx, d, v.TargetID)
		if err != nil {
			return err
		}
		removed, err = s.votes.WithTx(tx).RemoveOwned(ctx, actor.UserID, voteID)
		if apperr.Is(err, apperr.KindNotFound) {
			// retracted by a concurrent request before we took the lock
			return apperr.NotFound("vote %d not found", voteID)
		}
		if err != nil {
			return err
		}

		_, _, err = s.settle(ctx, tx, policy, d, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// settle evaluates the votes on p under policy and approves p when they
// suffice. The caller holds the row lock on p.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, policy approval.Policy, d Domain, p Pending) (approval.Status, bool, error) {
	tally, err := s.votes.WithTx(tx).Tally(ctx, reaction.Key{Type: d.Target(), ID: p.entry.EntryID()})
	if err != nil {
		return nil, false, err
	}
	status := policy.Evaluate(tally)
	if !status.IsApproved() {
		return status, false, nil
	}
	if err := s.approve(ctx, tx, d, p); err != nil {
		return nil, false, err
	}
	return status, true, nil
}

// ApprovalStatus evaluates the current votes on contribution id under the
// named policy, or the active one when policyName is empty.
func (s *Service) ApprovalStatus(ctx context.Context, d Domain, id uint, policyName string) (approval.Status, error) {
	policy, err := s.policies.Lookup(policyName)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, d, id); err != nil {
		return nil, err
	}
	tally, err := s.votes.Tally(ctx, reaction.Key{Type: d.Target(), ID: id})
	if err != nil {
		return nil, err
	}
	return policy.Evaluate(tally), nil
}

// lockPending locks contribution id FOR UPDATE, including retired rows so a
// late voter learns it was already approved rather than that it never
// existed.
func (s *Service) lockPending(tx *gorm.DB, d Domain, id uint) (Pending, error) {
	entry := d.blank()
	err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).Take(entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Pending{}, apperr.NotFound("%s contribution %d not found", d, id)
	}
	if err != nil {
		return Pending{}, fmt.Errorf("lock %s contribution %d: %w", d, id, err)
	}
	return pendingFrom(d, entry)
}

// approve carries out p. The caller holds the row lock on p.
func (s *Service) approve(ctx context.Context, tx *gorm.DB, d Domain, p Pending) error {
	switch k := p.Kind.(type) {
	case NewEntry:
		if err := tx.Model(p.entry).Update("status", models.StatusApproved).Error; err != nil {
			return fmt.Errorf("approve %s %d: %w", d, p.entry.EntryID(), err)
		}
		p.entry.Meta().Status = models.StatusApproved
	case EditOf:
		if err := s.merge.Edit(ctx, tx, p.entry, k.Target.ID()); err != nil {
			return err
		}
	case DeleteOf:
		if err := s.merge.Delete(ctx, tx, p.entry, k.Target.ID()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("approve %s %d: unhandled contribution kind %T", d, p.entry.EntryID(), k)
	}

	s.log.Info().
		Str("domain", string(d)).
		Uint("id", p.entry.EntryID()).
		Str("type", string(p.Kind.contributionType())).
		Msg("contribution approved")
	return nil
}
