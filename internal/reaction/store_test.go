package reaction_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/reaction"
	"github.com/emilythestrangee/community-directory/backend/internal/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunMain(m))
}

type signalStore = reaction.Store[models.Signal, bool, *models.Signal]
type voteStore = reaction.Store[models.Vote, models.VoteType, *models.Vote]

func newSignals(db *gorm.DB, resolve reaction.Resolver) *signalStore {
	return reaction.NewStore[models.Signal, bool, *models.Signal](db, "is_like", true, resolve)
}

func newVotes(db *gorm.DB) *voteStore {
	return reaction.NewStore[models.Vote, models.VoteType, *models.Vote](db, "vote_type", models.Upvote, nil)
}

func countRows(t *testing.T, db *gorm.DB, model any, key reaction.Key) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where("target_type = ? AND target_id = ?", key.Type, key.ID).Count(&n).Error)
	return n
}

func TestSetSameValueTwiceRetracts(t *testing.T) {
	db := testutil.DB(t)
	store := newSignals(db, nil)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetProject, ID: 1}

	res, err := store.Set(ctx, "u1", key, true)
	require.NoError(t, err)
	assert.Equal(t, reaction.Created, res.Outcome)
	assert.True(t, res.Row.IsLike)

	res, err = store.Set(ctx, "u1", key, true)
	require.NoError(t, err)
	assert.Equal(t, reaction.Removed, res.Outcome)

	assert.Zero(t, countRows(t, db, &models.Signal{}, key))
}

func TestSetOppositeValueSwitches(t *testing.T) {
	db := testutil.DB(t)
	store := newSignals(db, nil)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetIdea, ID: 4}

	first, err := store.Set(ctx, "u1", key, true)
	require.NoError(t, err)
	res, err := store.Set(ctx, "u1", key, false)
	require.NoError(t, err)
	assert.Equal(t, reaction.Switched, res.Outcome)
	assert.Equal(t, first.Row.ID, res.Row.ID, "switched in place")

	assert.EqualValues(t, 1, countRows(t, db, &models.Signal{}, key))
	tally, err := store.Tally(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, reaction.NewTally(0, 1), tally)
}

func TestTallyOverManyUsers(t *testing.T) {
	db := testutil.DB(t)
	store := newVotes(db)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetResource, ID: 3}
	other := reaction.Key{Type: models.TargetApp, ID: 3}

	values := []models.VoteType{models.Upvote, models.Upvote, models.Downvote, models.Upvote, models.Downvote, models.Upvote}
	for i, v := range values {
		_, err := store.Set(ctx, fmt.Sprintf("u%d", i), key, v)
		require.NoError(t, err)
	}
	// same id, different target type
	_, err := store.Set(ctx, "u0", other, models.Downvote)
	require.NoError(t, err)

	tally, err := store.Tally(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 4, tally.Positive)
	assert.Equal(t, 2, tally.Negative)
	assert.Equal(t, tally.Positive+tally.Negative, tally.Total)
	assert.LessOrEqual(t, tally.Total, len(values))
	assert.InDelta(t, 66.666, tally.PercentagePositive, 0.01)
}

func TestConcurrentDoubleClickKeepsOneRow(t *testing.T) {
	db := testutil.DB(t)
	store := newSignals(db, nil)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetProject, ID: 99}

	const clicks = 10
	var wg sync.WaitGroup
	errs := make([]error, clicks)
	outcomes := make([]reaction.Outcome, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := store.Set(ctx, "clicker", key, i%2 == 0)
			errs[i], outcomes[i] = err, res.Outcome
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "click %d", i)
	}
	assert.LessOrEqual(t, countRows(t, db, &models.Signal{}, key), int64(1))

	var created int
	for _, o := range outcomes {
		if o == reaction.Created {
			created++
		}
	}
	assert.GreaterOrEqual(t, created, 1)
}

func TestResolverRejectsUnknownTarget(t *testing.T) {
	db := testutil.DB(t)
	store := newSignals(db, func(ctx context.Context, tx *gorm.DB, key reaction.Key) error {
		return apperr.NotFound("%s not found", key)
	})

	_, err := store.Set(context.Background(), "u1", reaction.Key{Type: models.TargetProject, ID: 5}, true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Zero(t, countRows(t, db, &models.Signal{}, reaction.Key{Type: models.TargetProject, ID: 5}))
}

func TestRemoveIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	store := newSignals(db, nil)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetPerson, ID: 2}

	require.NoError(t, store.Remove(ctx, "u1", key))
	_, err := store.Set(ctx, "u1", key, false)
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, "u1", key))
	require.NoError(t, store.Remove(ctx, "u1", key))
	assert.Zero(t, countRows(t, db, &models.Signal{}, key))
}

func TestRemoveOwned(t *testing.T) {
	db := testutil.DB(t)
	store := newVotes(db)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetApp, ID: 8}

	res, err := store.Set(ctx, "owner", key, models.Downvote)
	require.NoError(t, err)

	_, err = store.RemoveOwned(ctx, "intruder", res.Row.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	removed, err := store.RemoveOwned(ctx, "owner", res.Row.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Downvote, removed.VoteType)
	assert.Zero(t, countRows(t, db, &models.Vote{}, key))
}

func TestWithTxSeesOwnWrites(t *testing.T) {
	db := testutil.DB(t)
	store := newVotes(db)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetPerson, ID: 6}

	err := db.Transaction(func(tx *gorm.DB) error {
		bound := store.WithTx(tx)
		if _, err := bound.Set(ctx, "u1", key, models.Upvote); err != nil {
			return err
		}
		inside, err := bound.Tally(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, inside.Positive)

		outside, err := store.Tally(ctx, key)
		require.NoError(t, err)
		assert.Zero(t, outside.Total, "uncommitted vote is invisible outside the transaction")
		return fmt.Errorf("roll back")
	})
	require.Error(t, err)

	tally, err := store.Tally(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, tally.Total)
}

func TestPurge(t *testing.T) {
	db := testutil.DB(t)
	store := newSignals(db, nil)
	ctx := context.Background()
	key := reaction.Key{Type: models.TargetIdea, ID: 12}

	for _, u := range []string{"a", "b", "c"} {
		_, err := store.Set(ctx, u, key, true)
		require.NoError(t, err)
	}
	require.NoError(t, store.Purge(ctx, key))
	assert.Zero(t, countRows(t, db, &models.Signal{}, key))
}
