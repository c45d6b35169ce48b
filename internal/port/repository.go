package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// RecordRepository defines the contract for normalized invoice record
// persistence. Records are insert-only; a corrected upload supersedes by
// provenance id rather than updating in place.
type RecordRepository interface {
	CreateBatch(ctx context.Context, records []*domain.InvoiceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	ListByPeriod(ctx context.Context, businessGSTIN string, period domain.FilingPeriod, source domain.RecordSource) ([]*domain.InvoiceRecord, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.InvoiceRecord, error)
}

// RunRepository defines the contract for reconciliation run persistence.
// Runs are append-only: a re-run creates a new run row, past runs are never
// updated or deleted.
type RunRepository interface {
	Create(ctx context.Context, run *domain.ReconciliationRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error)
	ListByBusiness(ctx context.Context, businessGSTIN string, offset, limit int) ([]domain.ReconciliationRun, int, error)
}
