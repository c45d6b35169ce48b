package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// MockRecordRepo is a mock implementation of port.RecordRepository.
type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) CreateBatch(ctx context.Context, records []*domain.InvoiceRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockRecordRepo) ListByPeriod(ctx context.Context, businessGSTIN string, period domain.FilingPeriod, source domain.RecordSource) ([]*domain.InvoiceRecord, error) {
	args := m.Called(ctx, businessGSTIN, period, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InvoiceRecord), args.Error(1)
}

func (m *MockRecordRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.InvoiceRecord, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InvoiceRecord), args.Error(1)
}
