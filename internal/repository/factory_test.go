package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"

	"github.com/rsc-forge/pkg/config"
	apperrors "github.com/rsc-forge/pkg/errors"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		want    string
		wantErr string
	}{
		{name: "sqlite", cfg: config.DatabaseConfig{Type: "sqlite", Path: "ledger.db"}, want: "sqlite"},
		{name: "sqlite without path", cfg: config.DatabaseConfig{Type: "sqlite"}, wantErr: "path is required"},
		{name: "postgres", cfg: config.DatabaseConfig{Type: "postgres", Host: "db", Port: 5432}, want: "postgres"},
		{name: "postgresql alias", cfg: config.DatabaseConfig{Type: "postgresql", Host: "db"}, want: "postgres"},
		{name: "mysql", cfg: config.DatabaseConfig{Type: "mysql", Host: "db", Port: 3306}, want: "mysql"},
		{name: "unsupported", cfg: config.DatabaseConfig{Type: "oracle"}, wantErr: "unsupported database type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dialector(&tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}
}

func TestOpen_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	repos, err := Open(ctx, &config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	defer repos.Close()

	require.NotNil(t, repos.Conversions)
	assert.NoError(t, repos.HealthCheck(ctx))
	assert.NotNil(t, repos.DB())
	assert.True(t, repos.GormDB().Migrator().HasTable(&ConversionRow{}))

	require.NoError(t, repos.Conversions.SaveRecord(ctx, &ConversionRecord{InputKey: "k", Status: StatusSkipped}))
	got, err := repos.Conversions.GetRecordByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, got.Status)
}

func TestRepositories_Close(t *testing.T) {
	repos := NewRepositories(setupTestDB(t))
	assert.NoError(t, repos.Close())
	assert.Error(t, repos.HealthCheck(context.Background()))

	var empty Repositories
	assert.NoError(t, empty.Close())
}

func newMockRepo(t *testing.T) (*GormConversionRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := OpenGorm(postgres.New(postgres.Config{Conn: sqlDB}), 4)
	require.NoError(t, err)
	return NewGormConversionRepository(db), mock
}

func TestGormConversionRepository_DatabaseErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("GetRecordByKey", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT \* FROM "conversion_records" WHERE input_key = \$1`).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetRecordByKey(ctx, "k")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
		assert.ErrorContains(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CountByStatus", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT status, count\(\*\) AS count FROM "conversion_records" GROUP BY "status"`).
			WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
				AddRow("converted", 7).
				AddRow("failed", 1))

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), counts[StatusConverted])
		assert.Equal(t, int64(1), counts[StatusFailed])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListRecent", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT \* FROM "conversion_records" ORDER BY created_at DESC,id DESC LIMIT`).
			WillReturnError(errors.New("timeout"))

		_, err := repo.ListRecent(ctx, 5)
		assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
