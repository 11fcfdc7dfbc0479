package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/rsc-forge/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every new connection to :memory: is a fresh database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&ConversionRow{}))
	return db
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestGormConversionRepository_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConversionRepository(db)
	ctx := context.Background()

	t.Run("GetRecordByKey_NotFound", func(t *testing.T) {
		rec, err := repo.GetRecordByKey(ctx, "dumps/missing.ydr")
		assert.Nil(t, rec)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("SaveRecord_Insert", func(t *testing.T) {
		rec := &ConversionRecord{
			InputKey:    "dumps/a.ydr",
			OutputKey:   "containers/a.rsc",
			Status:      StatusConverted,
			Tier:        "heuristic",
			Generation:  "legacy",
			InputSize:   1024,
			OutputSize:  300,
			Warnings:    2,
			FailedTiers: []string{"structural: no structural loader"},
			Duration:    1500 * time.Millisecond,
		}
		require.NoError(t, repo.SaveRecord(ctx, rec))
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())

		got, err := repo.GetRecordByKey(ctx, "dumps/a.ydr")
		require.NoError(t, err)
		assert.Equal(t, "containers/a.rsc", got.OutputKey)
		assert.Equal(t, StatusConverted, got.Status)
		assert.Equal(t, "heuristic", got.Tier)
		assert.Equal(t, 1024, got.InputSize)
		assert.Equal(t, 2, got.Warnings)
		assert.Equal(t, []string{"structural: no structural loader"}, got.FailedTiers)
		assert.Equal(t, 1500*time.Millisecond, got.Duration)
	})

	t.Run("SaveRecord_ReplacesSameKey", func(t *testing.T) {
		rec := &ConversionRecord{
			InputKey:     "dumps/a.ydr",
			Status:       StatusFailed,
			Generation:   "next",
			ErrorCode:    apperrors.CodeConversionFailed,
			ErrorMessage: "all 3 conversion tiers failed",
		}
		require.NoError(t, repo.SaveRecord(ctx, rec))

		got, err := repo.GetRecordByKey(ctx, "dumps/a.ydr")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Equal(t, apperrors.CodeConversionFailed, got.ErrorCode)
		assert.Empty(t, got.OutputKey)
		assert.Nil(t, got.FailedTiers)

		var count int64
		require.NoError(t, db.Model(&ConversionRow{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("SaveRecord_RequiresKey", func(t *testing.T) {
		err := repo.SaveRecord(ctx, &ConversionRecord{Status: StatusSkipped})
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
	})
}

func TestGormConversionRepository_ListRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConversionRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, key := range []string{"a", "b", "c"} {
		repo.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, repo.SaveRecord(ctx, &ConversionRecord{InputKey: key, Status: StatusConverted}))
	}

	records, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].InputKey)
	assert.Equal(t, "b", records[1].InputKey)

	all, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGormConversionRepository_CountByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConversionRepository(db)
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("Mixed", func(t *testing.T) {
		statuses := map[string]ConversionStatus{
			"a": StatusConverted, "b": StatusConverted, "c": StatusSkipped, "d": StatusFailed,
		}
		for key, status := range statuses {
			require.NoError(t, repo.SaveRecord(ctx, &ConversionRecord{InputKey: key, Status: status}))
		}

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[ConversionStatus]int64{
			StatusConverted: 2,
			StatusSkipped:   1,
			StatusFailed:    1,
		}, counts)
	})
}
