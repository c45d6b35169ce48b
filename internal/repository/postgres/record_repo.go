package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/port"
)

type recordRepo struct {
	db *sqlx.DB
}

// NewRecordRepo creates a new PostgreSQL-backed RecordRepository.
func NewRecordRepo(db *sqlx.DB) port.RecordRepository {
	return &recordRepo{db: db}
}

func (r *recordRepo) CreateBatch(ctx context.Context, records []*domain.InvoiceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recordRepo.CreateBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx,
		`INSERT INTO invoice_records
		   (id, business_gstin, source, counterparty_gstin, invoice_number, invoice_date,
		    taxable_value, tax_rate, tax_amount, filing_period, raw_provenance_id,
		    low_confidence_gstin, created_at)
		 VALUES
		   (:id, :business_gstin, :source, :counterparty_gstin, :invoice_number, :invoice_date,
		    :taxable_value, :tax_rate, :tax_amount, :filing_period, :raw_provenance_id,
		    :low_confidence_gstin, :created_at)`)
	if err != nil {
		return fmt.Errorf("recordRepo.CreateBatch prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			return fmt.Errorf("recordRepo.CreateBatch insert %s: %w", rec.RawProvenanceID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recordRepo.CreateBatch commit: %w", err)
	}
	return nil
}

func (r *recordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	var rec domain.InvoiceRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT * FROM invoice_records WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("recordRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *recordRepo) ListByPeriod(ctx context.Context, businessGSTIN string, period domain.FilingPeriod, source domain.RecordSource) ([]*domain.InvoiceRecord, error) {
	var records []*domain.InvoiceRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM invoice_records
		 WHERE business_gstin = $1 AND filing_period = $2 AND source = $3
		 ORDER BY invoice_number, raw_provenance_id`,
		businessGSTIN, period, source)
	if err != nil {
		return nil, fmt.Errorf("recordRepo.ListByPeriod: %w", err)
	}
	return records, nil
}

func (r *recordRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.InvoiceRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM invoice_records WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("recordRepo.ListByIDs build: %w", err)
	}
	var records []*domain.InvoiceRecord
	err = r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("recordRepo.ListByIDs: %w", err)
	}
	return records, nil
}
