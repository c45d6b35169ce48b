package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/port"
)

type runRepo struct {
	db *sqlx.DB
}

// NewRunRepo creates a new PostgreSQL-backed RunRepository.
func NewRunRepo(db *sqlx.DB) port.RunRepository {
	return &runRepo{db: db}
}

// runRow is the flat reconciliation_runs row; the summary is stored as JSONB.
type runRow struct {
	ID            uuid.UUID           `db:"id"`
	BusinessGSTIN string              `db:"business_gstin"`
	Period        domain.FilingPeriod `db:"period"`
	Status        domain.RunStatus    `db:"status"`
	FailureReason string              `db:"failure_reason"`
	Summary       []byte              `db:"summary"`
	GeneratedAt   sql.NullTime        `db:"generated_at"`
}

func (r *runRepo) Create(ctx context.Context, run *domain.ReconciliationRun) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("runRepo.Create marshal summary: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("runRepo.Create begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reconciliation_runs
		   (id, business_gstin, period, status, failure_reason, summary, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.BusinessGSTIN, run.Period, run.Status, run.FailureReason, summary, run.GeneratedAt)
	if err != nil {
		return fmt.Errorf("runRepo.Create run: %w", err)
	}

	for i := range run.Assignments {
		a := &run.Assignments[i]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO match_assignments
			   (id, run_id, purchase_record_id, sales_record_id, match_type, confidence, split_group_id, bucket_key)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.RunID, a.PurchaseRecordID, a.SalesRecordID, a.MatchType, a.Confidence, a.SplitGroupID, a.BucketKey)
		if err != nil {
			return fmt.Errorf("runRepo.Create assignment %s: %w", a.ID, err)
		}
	}

	for i := range run.Discrepancies {
		d := &run.Discrepancies[i]
		_, err = tx.ExecContext(ctx,
			`INSERT INTO discrepancies
			   (id, run_id, assignment_id, category, field, expected_value, actual_value, magnitude)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			d.ID, d.RunID, d.AssignmentID, d.Category, d.Field, d.ExpectedValue, d.ActualValue, d.Magnitude)
		if err != nil {
			return fmt.Errorf("runRepo.Create discrepancy %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("runRepo.Create commit: %w", err)
	}
	return nil
}

func (r *runRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM reconciliation_runs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("runRepo.GetByID: %w", err)
	}

	run, err := rowToRun(&row)
	if err != nil {
		return nil, err
	}

	err = r.db.SelectContext(ctx, &run.Assignments,
		`SELECT * FROM match_assignments WHERE run_id = $1 ORDER BY bucket_key, match_type, id`, id)
	if err != nil {
		return nil, fmt.Errorf("runRepo.GetByID assignments: %w", err)
	}
	err = r.db.SelectContext(ctx, &run.Discrepancies,
		`SELECT * FROM discrepancies WHERE run_id = $1 ORDER BY category, id`, id)
	if err != nil {
		return nil, fmt.Errorf("runRepo.GetByID discrepancies: %w", err)
	}
	return run, nil
}

func (r *runRepo) ListByBusiness(ctx context.Context, businessGSTIN string, offset, limit int) ([]domain.ReconciliationRun, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM reconciliation_runs WHERE business_gstin = $1`, businessGSTIN)
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.ListByBusiness count: %w", err)
	}

	var rows []runRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT * FROM reconciliation_runs
		 WHERE business_gstin = $1
		 ORDER BY generated_at DESC
		 LIMIT $2 OFFSET $3`,
		businessGSTIN, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.ListByBusiness: %w", err)
	}

	runs := make([]domain.ReconciliationRun, 0, len(rows))
	for i := range rows {
		run, rerr := rowToRun(&rows[i])
		if rerr != nil {
			return nil, 0, rerr
		}
		runs = append(runs, *run)
	}
	return runs, total, nil
}

func rowToRun(row *runRow) (*domain.ReconciliationRun, error) {
	run := &domain.ReconciliationRun{
		ID:            row.ID,
		BusinessGSTIN: row.BusinessGSTIN,
		Period:        row.Period,
		Status:        row.Status,
		FailureReason: row.FailureReason,
	}
	if row.GeneratedAt.Valid {
		run.GeneratedAt = row.GeneratedAt.Time
	}
	if len(row.Summary) > 0 {
		if err := json.Unmarshal(row.Summary, &run.Summary); err != nil {
			return nil, fmt.Errorf("runRepo: unmarshal summary of %s: %w", row.ID, err)
		}
	}
	return run, nil
}
