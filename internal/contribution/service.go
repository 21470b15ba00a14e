// Package contribution runs the moderation lifecycle of directory entries:
// submissions, votes, approval and the admin overrides.
package contribution

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/approval"
	"github.com/emilythestrangee/community-directory/backend/internal/database"
	"github.com/emilythestrangee/community-directory/backend/internal/merge"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Admin  bool
}

type VoteStore = reaction.Store[models.Vote, models.VoteType, *models.Vote]

type Service struct {
	db       *gorm.DB
	votes    *VoteStore
	policies *approval.Registry
	merge    *merge.Executor
	log      zerolog.Logger
}

func NewService(db *gorm.DB, policies *approval.Registry, log zerolog.Logger) *Service {
	return &Service{
		db: db,
		// CastVote locks the contribution itself, so votes need no resolver
		votes:    reaction.NewStore[models.Vote, models.VoteType, *models.Vote](db, "vote_type", models.Upvote, nil),
		policies: policies,
		merge:    merge.NewExecutor(log),
		log:      log.With().Str("component", "contribution").Logger(),
	}
}

// Submit stores a pending contribution for a new entry.
func (s *Service) Submit(ctx context.Context, actor Actor, d Domain, payload models.Payload) (models.Entry, error) {
	p := Pending{Kind: NewEntry{}, entry: d.blank()}
	p.entry.Apply(payload)
	if missing := p.entry.Missing(); missing != "" {
		return nil, apperr.Validation("%s is required", missing)
	}
	p.stamp(actor.UserID)

	if err := s.db.WithContext(ctx).Create(p.entry).Error; err != nil {
		return nil, fmt.Errorf("create %s contribution: %w", d, err)
	}
	s.log.Info().Str("domain", string(d)).Uint("id", p.entry.EntryID()).Str("user_id", actor.UserID).Msg("new contribution submitted")
	return p.entry, nil
}

// SubmitEdit stores a pending edit of the approved entry originalID. Only the
// fields set in payload are changed when the edit is merged.
func (s *Service) SubmitEdit(ctx context.Context, actor Actor, d Domain, originalID uint, payload models.Payload) (models.Entry, error) {
	entry := d.blank()
	entry.Apply(payload)
	if len(entry.Columns()) == 0 {
		return nil, apperr.Validation("an edit must change at least one field")
	}
	return s.submitChange(ctx, actor, d, originalID, "edit", func(c Canonical) Pending {
		return Pending{Kind: EditOf{Target: c.Ref()}, entry: entry}
	})
}

// SubmitDelete stores a pending request to delete the approved entry
// originalID. The contribution carries a copy of the entry's fields so voters
// can see what would be removed.
func (s *Service) SubmitDelete(ctx context.Context, actor Actor, d Domain, originalID uint) (models.Entry, error) {
	return s.submitChange(ctx, actor, d, originalID, "delete", func(c Canonical) Pending {
		entry := d.blank()
		entry.Apply(c.Entry().Payload())
		return Pending{Kind: DeleteOf{Target: c.Ref()}, entry: entry}
	})
}

func (s *Service) submitChange(ctx context.Context, actor Actor, d Domain, originalID uint, verb string, build func(Canonical) Pending) (models.Entry, error) {
	var p Pending
	err := database.Transact(ctx, s.db, func(tx *gorm.DB) error {
		// the lock serializes concurrent submissions against the same entry
		original, err := s.lockCanonical(tx, d, originalID, verb)
		if err != nil {
			return err
		}

		var outstanding int64
		err = tx.Model(d.blank()).
			Where("submitted_by = ? AND original_id = ? AND status = ?", actor.UserID, originalID, models.StatusPending).
			Count(&outstanding).Error
		if err != nil {
			return fmt.Errorf("count outstanding contributions: %w", err)
		}
		if outstanding > 0 {
			return apperr.Precondition("you already have a pending change to %s %d", d, originalID)
		}

		p = build(original)
		p.stamp(actor.UserID)
		if err := tx.Create(p.entry).Error; err != nil {
			return fmt.Errorf("create %s %s contribution: %w", d, verb, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("domain", string(d)).
		Uint("id", p.entry.EntryID()).
		Uint("original_id", originalID).
		Str("type", string(p.Kind.contributionType())).
		Str("user_id", actor.UserID).
		Msg("change submitted")
	return p.entry, nil
}

func (s *Service) lockCanonical(tx *gorm.DB, d Domain, id uint, verb string) (Canonical, error) {
	entry := d.blank()
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Canonical{}, apperr.NotFound("%s %d not found", d, id)
	}
	if err != nil {
		return Canonical{}, fmt.Errorf("lock %s %d: %w", d, id, err)
	}
	if entry.Meta().Status != models.StatusApproved {
		return Canonical{}, apperr.Precondition("can only %s approved items", verb)
	}
	return canonicalFrom(d, entry)
}

// Get returns the live row id of d, pending or approved.
func (s *Service) Get(ctx context.Context, d Domain, id uint) (models.Entry, error) {
	entry := d.blank()
	err := s.db.WithContext(ctx).Take(entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("%s %d not found", d, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", d, id, err)
	}
	return entry, nil
}

// List returns the live rows of d in the given status, newest first.
func (s *Service) List(ctx context.Context, d Domain, status models.ContributionStatus) ([]models.Entry, error) {
	if status == "" {
		status = models.StatusApproved
	}
	if status != models.StatusApproved && status != models.StatusPending {
		return nil, apperr.Validation("status must be %q or %q", models.StatusApproved, models.StatusPending)
	}

	q := s.db.WithContext(ctx).Where("status = ?", status).Order("created_at DESC, id DESC")
	switch d {
	case People:
		return list[models.Person](q)
	case Resources:
		return list[models.Resource](q)
	case Apps:
		return list[models.App](q)
	}
	return nil, apperr.Validation("unknown directory %q", d)
}

func list[T any, P interface {
	*T
	models.Entry
}](q *gorm.DB) ([]models.Entry, error) {
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", P(new(T)).TableName(), err)
	}
	out := make([]models.Entry, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, nil
}
