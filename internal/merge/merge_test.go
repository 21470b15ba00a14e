package merge

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/community-directory/backend/internal/apperr"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
	"github.com/emilythestrangee/community-directory/backend/internal/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunMain(m))
}

func pendingOf(t *testing.T, db *gorm.DB, e *models.App, kind models.ContributionType, originalID uint) *models.App {
	e.ContributionType = kind
	e.OriginalID = &originalID
	return testutil.Seed(t, db, e, models.StatusPending, "contributor")
}

func vote(t *testing.T, db *gorm.DB, userID string, targetID uint) {
	v := &models.Vote{}
	v.Bind(userID, models.TargetApp, targetID, models.Upvote)
	require.NoError(t, db.Create(v).Error)
}

func countVotes(t *testing.T, db *gorm.DB, targetID uint) int64 {
	var n int64
	require.NoError(t, db.Model(&models.Vote{}).Where("target_type = ? AND target_id = ?", models.TargetApp, targetID).Count(&n).Error)
	return n
}

func TestEditMergesOnlySetFields(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	original := testutil.Seed(t, db, &models.App{Name: "Notes", Platform: "ios", URL: "https://notes.app"}, models.StatusApproved, "owner")
	edit := pendingOf(t, db, &models.App{Platform: "android"}, models.ContributionEdit, original.ID)
	vote(t, db, "voter", edit.ID)

	err := db.Transaction(func(tx *gorm.DB) error {
		return NewExecutor(zerolog.Nop()).Edit(ctx, tx, edit, original.ID)
	})
	require.NoError(t, err)

	var got models.App
	require.NoError(t, db.Take(&got, original.ID).Error)
	assert.Equal(t, "Notes", got.Name)
	assert.Equal(t, "android", got.Platform)
	assert.Equal(t, "https://notes.app", got.URL)

	var retired models.App
	require.NoError(t, db.Unscoped().Take(&retired, edit.ID).Error)
	assert.Equal(t, models.StatusApproved, retired.Status)
	assert.True(t, retired.DeletedAt.Valid)
	assert.Zero(t, countVotes(t, db, edit.ID))
}

func TestEditRejectsPendingOriginal(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	original := testutil.Seed(t, db, &models.App{Name: "Draft"}, models.StatusPending, "owner")
	edit := pendingOf(t, db, &models.App{Name: "Renamed"}, models.ContributionEdit, original.ID)

	err := db.Transaction(func(tx *gorm.DB) error {
		return NewExecutor(zerolog.Nop()).Edit(ctx, tx, edit, original.ID)
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))
}

func TestDeleteWithdrawsOtherChanges(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	original := testutil.Seed(t, db, &models.App{Name: "Old"}, models.StatusApproved, "owner")
	del := pendingOf(t, db, &models.App{Name: "Old"}, models.ContributionDelete, original.ID)
	rival := pendingOf(t, db, &models.App{Description: "better"}, models.ContributionEdit, original.ID)
	vote(t, db, "voter", rival.ID)

	like := &models.Signal{}
	like.Bind("fan", models.TargetApp, original.ID, true)
	require.NoError(t, db.Create(like).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return NewExecutor(zerolog.Nop()).Delete(ctx, tx, del, original.ID)
	})
	require.NoError(t, err)

	var gone models.App
	assert.ErrorIs(t, db.Take(&gone, original.ID).Error, gorm.ErrRecordNotFound)

	var retired models.App
	require.NoError(t, db.Unscoped().Take(&retired, del.ID).Error)
	assert.Equal(t, models.StatusApproved, retired.Status)

	assert.ErrorIs(t, db.Unscoped().Take(&models.App{}, rival.ID).Error, gorm.ErrRecordNotFound)
	assert.Zero(t, countVotes(t, db, rival.ID))

	var signals int64
	require.NoError(t, db.Model(&models.Signal{}).Where("target_type = ? AND target_id = ?", models.TargetApp, original.ID).Count(&signals).Error)
	assert.Zero(t, signals)
}

func TestWithdrawWithoutIDs(t *testing.T) {
	assert.NoError(t, Withdraw(context.Background(), nil, models.TargetApp))
}
