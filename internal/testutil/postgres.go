// Package testutil starts a throwaway Postgres for integration tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/emilythestrangee/community-directory/backend/internal/database"
	"github.com/emilythestrangee/community-directory/backend/internal/models"
)

const postgresImage = "postgres:16-alpine"

var shared struct {
	once      sync.Once
	db        database.Service
	container *postgres.PostgresContainer
	err       error
}

// RunMain runs the package's tests and stops the container afterwards. Use it
// from TestMain.
func RunMain(m *testing.M) int {
	code := m.Run()
	if shared.db != nil {
		_ = shared.db.Close()
	}
	if shared.container != nil {
		_ = shared.container.Terminate(context.Background())
	}
	return code
}

// DB returns a migrated database with every table emptied. The test is
// skipped when no container runtime is available.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	shared.once.Do(start)
	if shared.err != nil {
		t.Skipf("postgres container unavailable: %v", shared.err)
	}
	db := shared.db.GetDB()
	Reset(t, db)
	return db
}

func start() {
	defer func() {
		// testcontainers panics on some hosts without a docker socket
		if r := recover(); r != nil {
			shared.err = fmt.Errorf("start container: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("directory"),
		postgres.WithUsername("directory"),
		postgres.WithPassword("directory"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		shared.err = err
		return
	}
	shared.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		shared.err = err
		return
	}
	shared.db, shared.err = database.New(ctx, dsn, zerolog.Nop())
}

// Reset empties every table and restarts the id sequences.
func Reset(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Exec(`TRUNCATE signals, votes, people, resources, apps, projects, ideas RESTART IDENTITY CASCADE`).Error
	if err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

// Seed inserts entry with the given moderation state and returns it.
func Seed[E models.Entry](t *testing.T, db *gorm.DB, entry E, status models.ContributionStatus, submittedBy string) E {
	t.Helper()
	meta := entry.Meta()
	meta.Status = status
	meta.SubmittedBy = submittedBy
	if meta.ContributionType == "" {
		meta.ContributionType = models.ContributionNew
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("seed %s: %v", entry.TableName(), err)
	}
	return entry
}
