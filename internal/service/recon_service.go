package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/config"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/csvexport"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/gstin"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/port"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/recon"
)

// ReconService defines the reconciliation orchestration contract.
type ReconService interface {
	Run(ctx context.Context, businessGSTIN string, period domain.FilingPeriod) (*domain.ReconciliationRun, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*domain.ReconciliationRun, error)
	ListRuns(ctx context.Context, businessGSTIN string, offset, limit int) ([]domain.ReconciliationRun, int, error)
	ExportCSV(ctx context.Context, runID uuid.UUID, w io.Writer) (string, error)
	ArchiveURL(ctx context.Context, runID uuid.UUID) (string, error)
}

type reconService struct {
	records port.RecordRepository
	runs    port.RunRepository
	storage port.ObjectStorage
	cfg     config.ReconConfig
	s3cfg   config.S3Config
}

// NewReconService creates a new ReconService implementation. storage may be
// nil, in which case exports are not archived.
func NewReconService(records port.RecordRepository, runs port.RunRepository, storage port.ObjectStorage, cfg config.ReconConfig, s3cfg config.S3Config) ReconService {
	return &reconService{records: records, runs: runs, storage: storage, cfg: cfg, s3cfg: s3cfg}
}

// OptionsFromConfig maps engine settings from the config layer.
func OptionsFromConfig(cfg config.ReconConfig) recon.Options {
	opts := recon.DefaultOptions()
	if cfg.DateWindowDays > 0 {
		opts.DateWindowDays = cfg.DateWindowDays
	}
	if cfg.ValueTolerancePct > 0 {
		opts.ValueTolerancePct = cfg.ValueTolerancePct
	}
	if cfg.ExactThreshold > 0 {
		opts.ExactThreshold = cfg.ExactThreshold
	}
	if cfg.FuzzyThreshold > 0 {
		opts.FuzzyThreshold = cfg.FuzzyThreshold
	}
	if cfg.MaxBucketSize > 0 {
		opts.MaxBucketSize = cfg.MaxBucketSize
	}
	if cfg.MaxSplitGroup > 0 {
		opts.MaxSplitGroup = cfg.MaxSplitGroup
	}
	if cfg.GSTINTopK > 0 {
		opts.GSTINTopK = cfg.GSTINTopK
	}
	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}
	return opts
}

// Run snapshots the period's records, executes the matching engine under the
// configured job deadline, and persists the resulting run. Partial and
// timed-out runs are persisted too, explicitly marked; the engine's error is
// returned alongside so callers can distinguish them from completed runs.
func (s *reconService) Run(ctx context.Context, businessGSTIN string, period domain.FilingPeriod) (*domain.ReconciliationRun, error) {
	if gstin.Validate(businessGSTIN) != domain.GSTINValid {
		return nil, fmt.Errorf("business GSTIN %q: %w", businessGSTIN, domain.ErrInvalidGSTIN)
	}

	purchases, err := s.records.ListByPeriod(ctx, businessGSTIN, period, domain.SourcePurchase)
	if err != nil {
		return nil, fmt.Errorf("loading purchase snapshot: %w", err)
	}
	sales, err := s.records.ListByPeriod(ctx, businessGSTIN, period, domain.SourceSales)
	if err != nil {
		return nil, fmt.Errorf("loading sales snapshot: %w", err)
	}

	runCtx := ctx
	if s.cfg.JobDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.JobDeadline)
		defer cancel()
	}

	runner := recon.NewRunner(OptionsFromConfig(s.cfg))
	run, runErr := runner.Run(runCtx, recon.RunInput{
		BusinessGSTIN: businessGSTIN,
		Period:        period,
		Purchases:     purchases,
		Sales:         sales,
	})
	if run == nil {
		return nil, runErr
	}

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("persisting run %s: %w", run.ID, err)
	}
	return run, runErr
}

func (s *reconService) GetRun(ctx context.Context, runID uuid.UUID) (*domain.ReconciliationRun, error) {
	return s.runs.GetByID(ctx, runID)
}

func (s *reconService) ListRuns(ctx context.Context, businessGSTIN string, offset, limit int) ([]domain.ReconciliationRun, int, error) {
	return s.runs.ListByBusiness(ctx, businessGSTIN, offset, limit)
}

// ExportCSV streams the run's assignments and discrepancies as a
// BOM-prefixed CSV and returns the suggested filename. When object storage
// is configured, an archive copy is uploaded as well; archive failures are
// logged, not fatal, since the caller already has the bytes.
func (s *reconService) ExportCSV(ctx context.Context, runID uuid.UUID, w io.Writer) (string, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return "", err
	}

	ids := make([]uuid.UUID, 0, len(run.Assignments)*2)
	for _, a := range run.Assignments {
		if a.PurchaseRecordID != nil {
			ids = append(ids, *a.PurchaseRecordID)
		}
		if a.SalesRecordID != nil {
			ids = append(ids, *a.SalesRecordID)
		}
	}
	records, err := s.records.ListByIDs(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("loading run records: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.InvoiceRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	var buf bytes.Buffer
	buf.Write(csvexport.BOM)
	writer := csvexport.NewWriter(&buf)
	if err := writer.WriteHeader(); err != nil {
		return "", fmt.Errorf("writing export header: %w", err)
	}
	if err := writer.WriteRun(run, byID); err != nil {
		return "", fmt.Errorf("writing export rows: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flushing export: %w", err)
	}

	if s.storage != nil {
		key := archiveKey(run)
		_, uerr := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.s3cfg.Bucket,
			Key:         key,
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: "text/csv",
			Size:        int64(buf.Len()),
		})
		if uerr != nil {
			log.Printf("reconService: archiving export of run %s failed: %v", run.ID, uerr)
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return "", fmt.Errorf("streaming export: %w", err)
	}
	return csvexport.BuildFilename(run.BusinessGSTIN, run.Period), nil
}

// ArchiveURL returns a presigned GET URL for the run's archived export copy.
func (s *reconService) ArchiveURL(ctx context.Context, runID uuid.UUID) (string, error) {
	if s.storage == nil {
		return "", domain.ErrArchiveUnavailable
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return "", err
	}
	url, err := s.storage.GetPresignedURL(ctx, s.s3cfg.Bucket, archiveKey(run), s.s3cfg.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning archive of run %s: %w", run.ID, err)
	}
	return url, nil
}

// archiveKey is the S3 object key for a run's archived export.
func archiveKey(run *domain.ReconciliationRun) string {
	return fmt.Sprintf("runs/%s/%s.csv", run.BusinessGSTIN, run.ID)
}
