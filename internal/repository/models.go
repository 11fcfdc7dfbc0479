package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ConversionRow represents the conversion_records table.
type ConversionRow struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	InputKey     string    `gorm:"column:input_key;type:varchar(512);uniqueIndex"`
	OutputKey    string    `gorm:"column:output_key;type:varchar(512)"`
	Status       string    `gorm:"column:status;type:varchar(16);index"`
	Tier         string    `gorm:"column:tier;type:varchar(16)"`
	Generation   string    `gorm:"column:generation;type:varchar(16)"`
	InputSize    int64     `gorm:"column:input_size"`
	OutputSize   int64     `gorm:"column:output_size"`
	Warnings     int       `gorm:"column:warnings"`
	FailedTiers  JSONField `gorm:"column:failed_tiers;type:json"`
	ErrorCode    string    `gorm:"column:error_code;type:varchar(32)"`
	ErrorMessage string    `gorm:"column:error_message;type:text"`
	DurationMS   int64     `gorm:"column:duration_ms"`
	CreatedAt    time.Time `gorm:"column:created_at;index"`
}

// TableName returns the table name for ConversionRow.
func (ConversionRow) TableName() string {
	return "conversion_records"
}

func newConversionRow(r *ConversionRecord) (*ConversionRow, error) {
	// ID is left to the database so upserts never collide on the primary key.
	row := &ConversionRow{
		InputKey:     r.InputKey,
		OutputKey:    r.OutputKey,
		Status:       string(r.Status),
		Tier:         r.Tier,
		Generation:   r.Generation,
		InputSize:    int64(r.InputSize),
		OutputSize:   int64(r.OutputSize),
		Warnings:     r.Warnings,
		ErrorCode:    r.ErrorCode,
		ErrorMessage: r.ErrorMessage,
		DurationMS:   r.Duration.Milliseconds(),
		CreatedAt:    r.CreatedAt,
	}
	if len(r.FailedTiers) > 0 {
		data, err := json.Marshal(r.FailedTiers)
		if err != nil {
			return nil, err
		}
		row.FailedTiers = data
	}
	return row, nil
}

// ToModel converts the row to a ConversionRecord.
func (r *ConversionRow) ToModel() (*ConversionRecord, error) {
	rec := &ConversionRecord{
		ID:           r.ID,
		InputKey:     r.InputKey,
		OutputKey:    r.OutputKey,
		Status:       ConversionStatus(r.Status),
		Tier:         r.Tier,
		Generation:   r.Generation,
		InputSize:    int(r.InputSize),
		OutputSize:   int(r.OutputSize),
		Warnings:     r.Warnings,
		ErrorCode:    r.ErrorCode,
		ErrorMessage: r.ErrorMessage,
		Duration:     time.Duration(r.DurationMS) * time.Millisecond,
		CreatedAt:    r.CreatedAt,
	}
	if r.FailedTiers != nil {
		if err := json.Unmarshal(r.FailedTiers, &rec.FailedTiers); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// JSONField is a JSON column stored as raw bytes.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}
