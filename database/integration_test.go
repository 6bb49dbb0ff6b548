//go:build integration

package database_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	"topper-backend/database"
	"topper-backend/models"
	"topper-backend/services"
	"topper-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("topper_test"),
		tcpostgres.WithUsername("topper"),
		tcpostgres.WithPassword("topper"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestConcurrentInvitesRespectCapacity(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	invitations := services.NewInvitationService(db, nil, nil)

	organiser := testutil.CreateTestOrganiser(t, db, "o@x.com")
	story := testutil.CreateTestStory(t, db, organiser.ID, "TOP-RACE", 3)

	const attempts = 12
	senders := make([]*models.Sender, attempts)
	for i := range senders {
		senders[i] = testutil.CreateTestSender(t, db, fmt.Sprintf("s%d@x.com", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range senders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = invitations.Invite(ctx, story.ID, senders[i].ID)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, services.ErrCapacityExceeded)
	}
	assert.Equal(t, 3, ok)

	active, err := invitations.ActiveCount(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), active)
}

func TestConcurrentInvitesOfSamePair(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	invitations := services.NewInvitationService(db, nil, nil)

	organiser := testutil.CreateTestOrganiser(t, db, "o@x.com")
	story := testutil.CreateTestStory(t, db, organiser.ID, "TOP-PAIR", 6)
	sender := testutil.CreateTestSender(t, db, "a@x.com")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = invitations.Invite(ctx, story.ID, sender.ID)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, services.ErrDuplicateInvitation)
	}
	assert.Equal(t, 1, ok)

	var rows int64
	require.NoError(t, db.Model(&models.StorySender{}).Where("story_id = ?", story.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestStoryDeleteCascadesInPostgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	stories := services.NewStoryService(db, nil)

	organiser := testutil.CreateTestOrganiser(t, db, "o@x.com")
	story := testutil.CreateTestStory(t, db, organiser.ID, "TOP-DEL", 6)
	sender := testutil.CreateTestSender(t, db, "a@x.com")
	inv := testutil.CreateTestInvitation(t, db, story.ID, sender.ID, models.InvitationAccepted)
	content := "hello"
	require.NoError(t, db.Create(&models.Contribution{
		StorySenderID: inv.ID,
		Kind:          models.KindText,
		Content:       &content,
		Status:        models.ModerationPending,
	}).Error)

	require.NoError(t, stories.Delete(ctx, organiser.ID, story.ID))

	var contributions, links int64
	require.NoError(t, db.Model(&models.Contribution{}).Count(&contributions).Error)
	require.NoError(t, db.Model(&models.StorySender{}).Count(&links).Error)
	assert.Zero(t, contributions)
	assert.Zero(t, links)
}
