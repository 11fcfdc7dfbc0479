package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rsc-forge/internal/repository"
)

// MockConversionRepository is a mock implementation of the
// ConversionRepository interface.
type MockConversionRepository struct {
	mock.Mock
}

// SaveRecord mocks the SaveRecord method.
func (m *MockConversionRepository) SaveRecord(ctx context.Context, record *repository.ConversionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// GetRecordByKey mocks the GetRecordByKey method.
func (m *MockConversionRepository) GetRecordByKey(ctx context.Context, inputKey string) (*repository.ConversionRecord, error) {
	args := m.Called(ctx, inputKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ConversionRecord), args.Error(1)
}

// ListRecent mocks the ListRecent method.
func (m *MockConversionRepository) ListRecent(ctx context.Context, limit int) ([]*repository.ConversionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ConversionRecord), args.Error(1)
}

// CountByStatus mocks the CountByStatus method.
func (m *MockConversionRepository) CountByStatus(ctx context.Context) (map[repository.ConversionStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[repository.ConversionStatus]int64), args.Error(1)
}

// ExpectAnySave sets up an expectation for any SaveRecord call.
func (m *MockConversionRepository) ExpectAnySave(err error) *mock.Call {
	return m.On("SaveRecord", mock.Anything, mock.Anything).Return(err)
}
