package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// MockReconService is a mock implementation of service.ReconService.
type MockReconService struct {
	mock.Mock
}

func (m *MockReconService) Run(ctx context.Context, businessGSTIN string, period domain.FilingPeriod) (*domain.ReconciliationRun, error) {
	args := m.Called(ctx, businessGSTIN, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationRun), args.Error(1)
}

func (m *MockReconService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.ReconciliationRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationRun), args.Error(1)
}

func (m *MockReconService) ListRuns(ctx context.Context, businessGSTIN string, offset, limit int) ([]domain.ReconciliationRun, int, error) {
	args := m.Called(ctx, businessGSTIN, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ReconciliationRun), args.Int(1), args.Error(2)
}

func (m *MockReconService) ExportCSV(ctx context.Context, runID uuid.UUID, w io.Writer) (string, error) {
	args := m.Called(ctx, runID, w)
	return args.String(0), args.Error(1)
}

func (m *MockReconService) ArchiveURL(ctx context.Context, runID uuid.UUID) (string, error) {
	args := m.Called(ctx, runID)
	return args.String(0), args.Error(1)
}
