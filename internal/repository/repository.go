// Package repository persists the conversion ledger: one record per
// converted, skipped or failed input object.
package repository

import (
	"context"
	"time"
)

// ConversionStatus is the outcome recorded for one input.
type ConversionStatus string

const (
	StatusConverted ConversionStatus = "converted"
	StatusSkipped   ConversionStatus = "skipped"
	StatusFailed    ConversionStatus = "failed"
)

// ConversionRecord is one ledger entry. InputKey is unique; saving a
// record for a known key replaces the previous entry.
type ConversionRecord struct {
	ID         int64            `json:"id"`
	InputKey   string           `json:"input_key"`
	OutputKey  string           `json:"output_key,omitempty"`
	Status     ConversionStatus `json:"status"`
	Tier       string           `json:"tier,omitempty"`
	Generation string           `json:"generation"`
	InputSize  int              `json:"input_size"`
	OutputSize int              `json:"output_size"`
	Warnings   int              `json:"warnings"`
	// FailedTiers lists "tier: error" for every rung that failed first.
	FailedTiers  []string      `json:"failed_tiers,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ConversionRepository defines the ledger operations.
type ConversionRepository interface {
	// SaveRecord inserts the record or replaces the one with the same InputKey.
	SaveRecord(ctx context.Context, record *ConversionRecord) error

	// GetRecordByKey returns the record for an input key.
	GetRecordByKey(ctx context.Context, inputKey string) (*ConversionRecord, error)

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*ConversionRecord, error)

	// CountByStatus returns how many records carry each status.
	CountByStatus(ctx context.Context) (map[ConversionStatus]int64, error)
}
