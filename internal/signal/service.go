// Package signal records likes and dislikes on projects, ideas and approved
// directory entries.
package signal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
)

// Cache holds tallies between reads. *cache.TallyCache implements it.
//
// Invalidate moves a key to a new generation. Store only writes a tally if
// the key is still at the generation the tally was counted under.
type Cache interface {
	Get(ctx context.Context, k reaction.Key) (reaction.Tally, bool, error)
	Generation(ctx context.Context, k reaction.Key) (int64, error)
	Store(ctx context.Context, k reaction.Key, t reaction.Tally, gen int64) (bool, error)
	Invalidate(ctx context.Context, k reaction.Key) error
}

type Store = reaction.Store[models.Signal, bool, *models.Signal]

// NewStore returns the signal store over db. Writes through it check the
// target with Resolve.
func NewStore(db *gorm.DB) *Store {
	return reaction.NewStore[models.Signal, bool, *models.Signal](db, "is_like", true, Resolve)
}

type Service struct {
	db    *gorm.DB
	store *Store
	cache Cache
	log   zerolog.Logger
}

// NewService builds the signal service. cache may be nil, in which case
// every read goes to the database.
func NewService(db *gorm.DB, cache Cache, log zerolog.Logger) *Service {
	return &Service{
		db:    db,
		store: NewStore(db),
		cache: cache,
		log:   log.With().Str("component", "signal").Logger(),
	}
}

// Set toggles userID's like (isLike) or dislike on key and returns what
// happened together with the counts after the write.
func (s *Service) Set(ctx context.Context, userID string, key reaction.Key, isLike bool) (reaction.Result[models.Signal], reaction.Tally, error) {
	res, err := s.store.Set(ctx, userID, key, isLike)
	if err != nil {
		return res, reaction.Tally{}, err
	}
	s.invalidate(ctx, key)

	tally, err := s.store.Tally(ctx, key)
	if err != nil {
		return res, reaction.Tally{}, err
	}
	return res, tally, nil
}

// Remove deletes userID's signal on key if there is one.
func (s *Service) Remove(ctx context.Context, userID string, key reaction.Key) error {
	if err := s.store.Remove(ctx, userID, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

// Counts returns the like and dislike totals on key, from the cache when it
// has them.
func (s *Service) Counts(ctx context.Context, key reaction.Key) (reaction.Tally, error) {
	lookup, cacheable := s.cached(ctx, key)
	if lookup.hit {
		return lookup.tally, nil
	}

	if err := Resolve(ctx, s.db, key); err != nil {
		return reaction.Tally{}, err
	}
	t, err := s.store.Tally(ctx, key)
	if err != nil {
		return reaction.Tally{}, err
	}

	if cacheable {
		stored, err := s.cache.Store(ctx, key, t, lookup.gen)
		if err != nil {
			s.log.Warn().Err(err).Str("target", key.String()).Msg("tally cache write failed")
		} else if !stored {
			s.log.Debug().Str("target", key.String()).Msg("tally changed while counting, not cached")
		}
	}
	return t, nil
}

type cacheLookup struct {
	hit   bool
	tally reaction.Tally
	gen   int64
}

// cached looks key up in the cache. On a miss it returns the generation to
// store a fresh tally under; the boolean is false when nothing should be
// stored.
func (s *Service) cached(ctx context.Context, key reaction.Key) (cacheLookup, bool) {
	if s.cache == nil {
		return cacheLookup{}, false
	}
	// generation first: an invalidation after this point must win
	gen, err := s.cache.Generation(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("target", key.String()).Msg("tally cache read failed")
		return cacheLookup{}, false
	}
	t, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("target", key.String()).Msg("tally cache read failed")
	}
	if ok {
		return cacheLookup{hit: true, tally: t}, false
	}
	return cacheLookup{gen: gen}, true
}

func (s *Service) invalidate(ctx context.Context, key reaction.Key) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		// the entry still expires on its own
		s.log.Warn().Err(err).Str("target", key.String()).Msg("tally cache invalidation failed")
	}
}

// Resolve checks that key names something that can be liked: any live
// project or idea, or an approved directory entry. The target row is share
// locked so it cannot be deleted before the signal is written.
func Resolve(ctx context.Context, tx *gorm.DB, key reaction.Key) error {
	q := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}).Select("id")

	var target any
	switch key.Type {
	case models.TargetProject:
		target = &models.Project{}
	case models.TargetIdea:
		target = &models.Idea{}
	case models.TargetPerson, models.TargetResource, models.TargetApp:
		entry, err := models.NewEntry(key.Type)
		if err != nil {
			return err
		}
		target = entry
		q = q.Where("status = ?", models.StatusApproved)
	default:
		return apperr.Validation("unknown target type %q", key.Type)
	}

	err := q.Take(target, key.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %d not found", key.Type, key.ID)
	}
	if err != nil {
		return fmt.Errorf("resolve %s: %w", key, err)
	}
	return nil
}
