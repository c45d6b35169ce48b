package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/gstin"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/ingest"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/normalize"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/port"
)

// IngestInput is the DTO for ingesting a ledger file.
type IngestInput struct {
	BusinessGSTIN string
	Source        domain.RecordSource
	FileName      string
	Body          io.Reader
}

// IngestResult reports what happened to each row of an uploaded ledger.
type IngestResult struct {
	Accepted      int                     `json:"accepted"`
	LowConfidence int                     `json:"low_confidence"`
	Excluded      []domain.ExcludedRecord `json:"excluded,omitempty"`
}

// RecordService defines the ledger ingestion contract.
type RecordService interface {
	Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
}

type recordService struct {
	repo         port.RecordRepository
	tolerancePct float64
}

// NewRecordService creates a new RecordService implementation. tolerancePct
// is passed through to the normalizer's OCR digit-repair consistency check.
func NewRecordService(repo port.RecordRepository, tolerancePct float64) RecordService {
	return &recordService{repo: repo, tolerancePct: tolerancePct}
}

// Ingest reads a ledger file, normalizes every row, and persists the
// accepted records. Rows that fail normalization are reported in the result
// rather than aborting the batch. The file format is chosen by extension:
// .xlsx goes through the workbook reader, everything else is treated as CSV.
func (s *recordService) Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error) {
	if gstin.Validate(input.BusinessGSTIN) != domain.GSTINValid {
		return nil, fmt.Errorf("business GSTIN %q: %w", input.BusinessGSTIN, domain.ErrInvalidGSTIN)
	}

	var raws []map[string]string
	var err error
	if strings.HasSuffix(strings.ToLower(input.FileName), ".xlsx") {
		raws, err = ingest.ReadXLSX(input.Body, input.FileName)
	} else {
		raws, err = ingest.ReadCSV(input.Body, input.FileName)
	}
	if err != nil {
		return nil, err
	}

	normalizer := normalize.New(gstin.NewCache(), s.tolerancePct)
	result := &IngestResult{}
	records := make([]*domain.InvoiceRecord, 0, len(raws))
	now := time.Now().UTC()

	for _, raw := range raws {
		rec, nerr := normalizer.Normalize(raw, input.Source)
		if nerr != nil {
			var ne *domain.NormalizationError
			reason := nerr.Error()
			provenance := raw[normalize.FieldProvenanceID]
			if errors.As(nerr, &ne) && ne.ProvenanceID != "" {
				provenance = ne.ProvenanceID
			}
			result.Excluded = append(result.Excluded, domain.ExcludedRecord{
				ProvenanceID: provenance,
				Source:       input.Source,
				Reason:       reason,
			})
			continue
		}
		rec.BusinessGSTIN = input.BusinessGSTIN
		rec.CreatedAt = now
		records = append(records, rec)
		result.Accepted++
		if rec.LowConfidenceGSTIN {
			result.LowConfidence++
		}
	}

	if err := s.repo.CreateBatch(ctx, records); err != nil {
		return nil, err
	}

	log.Printf("recordService: %s %s: accepted=%d low_confidence=%d excluded=%d",
		input.BusinessGSTIN, input.FileName, result.Accepted, result.LowConfidence, len(result.Excluded))
	return result, nil
}

// Get returns a single normalized record by id.
func (s *recordService) Get(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	return s.repo.GetByID(ctx, id)
}
