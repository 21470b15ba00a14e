package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_URL", "ADMIN_USER_IDS", "REDIS_URL", "LIKE_CACHE_TTL_SECONDS",
		"APPROVAL_POLICY", "APPROVAL_MIN_VOTES", "APPROVAL_RATIO", "APPROVAL_THRESHOLD", "APPROVAL_PERCENTAGE",
		"CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.AdminUserIDs)
	assert.Equal(t, time.Minute, cfg.LikeCacheTTL)
	assert.Equal(t, "dual-threshold", cfg.Approval.Active)
	assert.Equal(t, 50, cfg.Approval.MinVotes)
	assert.Equal(t, 3.0, cfg.Approval.RatioThreshold)
	assert.Equal(t, 10, cfg.Approval.Threshold)
	assert.Equal(t, 70.0, cfg.Approval.PercentageThreshold)
	assert.Contains(t, cfg.DatabaseURL, "sslmode=")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/dir")
	t.Setenv("ADMIN_USER_IDS", " alice, bob ,,")
	t.Setenv("APPROVAL_MIN_VOTES", "5")
	t.Setenv("APPROVAL_RATIO", "1.5")
	t.Setenv("APPROVAL_POLICY", "threshold-or-percentage")
	t.Setenv("LIKE_CACHE_TTL_SECONDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "postgres://u:p@db:5432/dir", cfg.DatabaseURL)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AdminUserIDs)
	assert.True(t, cfg.IsAdmin("bob"))
	assert.False(t, cfg.IsAdmin("carol"))
	assert.Equal(t, 5, cfg.Approval.MinVotes)
	assert.Equal(t, 1.5, cfg.Approval.RatioThreshold)
	assert.Equal(t, "threshold-or-percentage", cfg.Approval.Active)
	assert.Equal(t, time.Minute, cfg.LikeCacheTTL)
}

func TestBlankListFallsBack(t *testing.T) {
	for _, value := range []string{",", " , ,", "   "} {
		t.Setenv("CORS_ORIGINS", value)
		t.Setenv("ADMIN_USER_IDS", value)

		cfg := Load()

		assert.Equal(t, []string{"*"}, cfg.CORSOrigins, "CORS_ORIGINS=%q", value)
		assert.Empty(t, cfg.AdminUserIDs)
	}
}
