package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	CORSOrigins []string
	// Admin allow-list, compared against the token subject
	AdminUserIDs []string

	// Redis is optional; the like counters are read straight from Postgres when empty
	RedisURL     string
	LikeCacheTTL time.Duration

	Approval ApprovalConfig

	LogLevel  string
	LogFormat string
	GinMode   string
}

// ApprovalConfig carries both named approval policies. Active selects the one
// used when a vote is cast; the other stays available on the status endpoint.
type ApprovalConfig struct {
	Active              string
	MinVotes            int
	RatioThreshold      float64
	Threshold           int
	PercentageThreshold float64
}

func Load() Config {
	return Config{
		Port:         getenv("PORT", "8080"),
		DatabaseURL:  databaseURL(),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		CORSOrigins:  getenvList("CORS_ORIGINS", []string{"*"}),
		AdminUserIDs: getenvList("ADMIN_USER_IDS", nil),
		RedisURL:     os.Getenv("REDIS_URL"),
		LikeCacheTTL: time.Duration(getenvInt("LIKE_CACHE_TTL_SECONDS", 60)) * time.Second,
		Approval: ApprovalConfig{
			Active:              getenv("APPROVAL_POLICY", "dual-threshold"),
			MinVotes:            getenvInt("APPROVAL_MIN_VOTES", 50),
			RatioThreshold:      getenvFloat("APPROVAL_RATIO", 3),
			Threshold:           getenvInt("APPROVAL_THRESHOLD", 10),
			PercentageThreshold: getenvFloat("APPROVAL_PERCENTAGE", 70),
		},
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
		GinMode:   getenv("GIN_MODE", "release"),
	}
}

// IsAdmin reports whether userID is on the admin allow-list.
func (c Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getenv("DB_NAME", "directory"),
		getenv("DB_PORT", "5432"),
		getenv("DB_SSLMODE", "disable"),
	)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
