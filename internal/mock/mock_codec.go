package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rsc-forge/internal/convert"
	"github.com/rsc-forge/internal/resource"
)

// MockStructuralCodec is a mock implementation of convert.StructuralCodec.
type MockStructuralCodec struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockStructuralCodec) Load(ctx context.Context, dump []byte) (convert.StructuralModel, error) {
	args := m.Called(ctx, dump)
	return args.Get(0), args.Error(1)
}

// Save mocks the Save method.
func (m *MockStructuralCodec) Save(ctx context.Context, model convert.StructuralModel, gen resource.Generation) ([]byte, error) {
	args := m.Called(ctx, model, gen)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// ExpectLoad sets up an expectation for Load on any dump.
func (m *MockStructuralCodec) ExpectLoad(model convert.StructuralModel, err error) *mock.Call {
	return m.On("Load", mock.Anything, mock.Anything).Return(model, err)
}

// ExpectSave sets up an expectation for Save on any model.
func (m *MockStructuralCodec) ExpectSave(out []byte, err error) *mock.Call {
	return m.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(out, err)
}
