package signal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/cache"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
	"github.com/emilythestrangee/community-directory/backend/internal/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunMain(m))
}

func TestSignalLifecycle(t *testing.T) {
	db := testutil.DB(t)
	s := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()

	project := models.Project{Title: "Compiler", SubmittedBy: "alice"}
	require.NoError(t, db.Create(&project).Error)
	key := reaction.Key{Type: models.TargetProject, ID: project.ID}

	res, tally, err := s.Set(ctx, "bob", key, true)
	require.NoError(t, err)
	assert.Equal(t, reaction.Created, res.Outcome)
	assert.Equal(t, reaction.NewTally(1, 0), tally)

	res, tally, err = s.Set(ctx, "bob", key, false)
	require.NoError(t, err)
	assert.Equal(t, reaction.Switched, res.Outcome)
	assert.Equal(t, reaction.NewTally(0, 1), tally)

	res, tally, err = s.Set(ctx, "bob", key, false)
	require.NoError(t, err)
	assert.Equal(t, reaction.Removed, res.Outcome)
	assert.Zero(t, tally.Total)

	var left int64
	require.NoError(t, db.Model(&models.Signal{}).Where("user_id = ?", "bob").Count(&left).Error)
	assert.Zero(t, left)
}

func TestResolveTargets(t *testing.T) {
	db := testutil.DB(t)
	s := NewService(db, nil, zerolog.Nop())
	ctx := context.Background()

	idea := models.Idea{Title: "Dark mode", SubmittedBy: "alice"}
	require.NoError(t, db.Create(&idea).Error)
	approved := testutil.Seed(t, db, &models.App{Name: "Live"}, models.StatusApproved, "alice")
	pending := testutil.Seed(t, db, &models.App{Name: "Queued"}, models.StatusPending, "alice")

	_, _, err := s.Set(ctx, "bob", reaction.Key{Type: models.TargetIdea, ID: idea.ID}, true)
	assert.NoError(t, err)
	_, _, err = s.Set(ctx, "bob", reaction.Key{Type: models.TargetApp, ID: approved.ID}, true)
	assert.NoError(t, err)

	_, _, err = s.Set(ctx, "bob", reaction.Key{Type: models.TargetApp, ID: pending.ID}, true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "pending entries cannot be liked")
	_, _, err = s.Set(ctx, "bob", reaction.Key{Type: models.TargetProject, ID: 404}, true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, _, err = s.Set(ctx, "bob", reaction.Key{Type: "comment", ID: 1}, true)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = s.Counts(ctx, reaction.Key{Type: models.TargetIdea, ID: 404})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, db.Delete(&idea).Error)
	_, _, err = s.Set(ctx, "carol", reaction.Key{Type: models.TargetIdea, ID: idea.ID}, true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "deleted content cannot be liked")
}

func TestCountsUseCacheAndWritesInvalidate(t *testing.T) {
	db := testutil.DB(t)
	mr := miniredis.RunT(t)
	tallies, err := cache.NewTallyCache("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer tallies.Close()

	s := NewService(db, tallies, zerolog.Nop())
	ctx := context.Background()

	project := models.Project{Title: "Cached", SubmittedBy: "alice"}
	require.NoError(t, db.Create(&project).Error)
	key := reaction.Key{Type: models.TargetProject, ID: project.ID}

	_, _, err = s.Set(ctx, "bob", key, true)
	require.NoError(t, err)

	got, err := s.Counts(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Positive)
	assert.True(t, mr.Exists("likes:"+key.String()))

	// a write behind the service's back is not seen until the entry goes
	require.NoError(t, db.Create(&models.Signal{UserID: "carol", TargetType: key.Type, TargetID: key.ID, IsLike: true}).Error)
	got, err = s.Counts(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Positive)

	_, _, err = s.Set(ctx, "dave", key, false)
	require.NoError(t, err)
	assert.False(t, mr.Exists("likes:"+key.String()))

	got, err = s.Counts(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, reaction.NewTally(2, 1), got)

	require.NoError(t, s.Remove(ctx, "dave", key))
	assert.False(t, mr.Exists("likes:"+key.String()))
}

func TestCountsSurviveCacheOutage(t *testing.T) {
	db := testutil.DB(t)
	mr := miniredis.RunT(t)
	tallies, err := cache.NewTallyCache("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer tallies.Close()

	s := NewService(db, tallies, zerolog.Nop())
	ctx := context.Background()

	idea := models.Idea{Title: "Offline", SubmittedBy: "alice"}
	require.NoError(t, db.Create(&idea).Error)
	key := reaction.Key{Type: models.TargetIdea, ID: idea.ID}

	mr.Close()

	_, _, err = s.Set(ctx, "bob", key, true)
	require.NoError(t, err)
	got, err := s.Counts(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Positive)
}

// racingCache runs beforeStore once, between the database count and the
// cache write of the next Counts call.
type racingCache struct {
	*cache.TallyCache
	beforeStore func()
}

func (c *racingCache) Store(ctx context.Context, k reaction.Key, t reaction.Tally, gen int64) (bool, error) {
	if hook := c.beforeStore; hook != nil {
		c.beforeStore = nil
		hook()
	}
	return c.TallyCache.Store(ctx, k, t, gen)
}

func TestCountsDoNotCacheTallyOverlappingAWrite(t *testing.T) {
	db := testutil.DB(t)
	mr := miniredis.RunT(t)
	tallies, err := cache.NewTallyCache("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	defer tallies.Close()

	racing := &racingCache{TallyCache: tallies}
	s := NewService(db, racing, zerolog.Nop())
	ctx := context.Background()

	project := models.Project{Title: "Racy", SubmittedBy: "alice"}
	require.NoError(t, db.Create(&project).Error)
	key := reaction.Key{Type: models.TargetProject, ID: project.ID}

	racing.beforeStore = func() {
		_, _, err := s.Set(ctx, "bob", key, true)
		require.NoError(t, err)
	}

	got, err := s.Counts(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, got.Total, "counted before the like landed")
	assert.False(t, mr.Exists("likes:"+key.String()), "stale tally must not be cached")

	got, err = s.Counts(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, reaction.NewTally(1, 0), got)
	assert.True(t, mr.Exists("likes:"+key.String()))
}
