package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/rsc-forge/pkg/errors"
)

// GormConversionRepository implements ConversionRepository using GORM.
type GormConversionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormConversionRepository creates a new GormConversionRepository.
func NewGormConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db, now: time.Now}
}

// SaveRecord upserts a record keyed by InputKey. A zero CreatedAt is
// stamped with the current time.
func (r *GormConversionRepository) SaveRecord(ctx context.Context, record *ConversionRecord) error {
	if record == nil || record.InputKey == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "record input key is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	row, err := newConversionRow(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "input_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"output_key", "status", "tier", "generation", "input_size", "output_size",
				"warnings", "failed_tiers", "error_code", "error_message", "duration_ms", "created_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save conversion record", err)
	}

	record.ID = row.ID
	return nil
}

// GetRecordByKey retrieves the record for an input key.
func (r *GormConversionRepository) GetRecordByKey(ctx context.Context, inputKey string) (*ConversionRecord, error) {
	var row ConversionRow

	err := r.db.WithContext(ctx).Where("input_key = ?", inputKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "conversion record not found: %s", inputKey)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get conversion record", err)
	}

	return row.ToModel()
}

// ListRecent returns up to limit records, newest first.
func (r *GormConversionRepository) ListRecent(ctx context.Context, limit int) ([]*ConversionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []ConversionRow
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list conversion records", err)
	}

	records := make([]*ConversionRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", rows[i].ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountByStatus returns the number of records per status.
func (r *GormConversionRepository) CountByStatus(ctx context.Context) (map[ConversionStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	err := r.db.WithContext(ctx).
		Model(&ConversionRow{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to count conversion records", err)
	}

	counts := make(map[ConversionStatus]int64, len(rows))
	for _, row := range rows {
		counts[ConversionStatus(row.Status)] = row.Count
	}
	return counts, nil
}
