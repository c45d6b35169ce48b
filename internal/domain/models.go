package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FilingPeriod is the statutory reporting window an invoice belongs to,
// formatted as "YYYY-MM".
type FilingPeriod string

// PeriodOf derives the filing period from an invoice date.
func PeriodOf(t time.Time) FilingPeriod {
	return FilingPeriod(t.Format("2006-01"))
}

// InvoiceRecord is a canonicalized invoice-side record. Immutable once
// normalized; a re-upload supersedes it with a new provenance id rather than
// editing it in place.
type InvoiceRecord struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	BusinessGSTIN      string          `db:"business_gstin" json:"business_gstin"`
	Source             RecordSource    `db:"source" json:"source"`
	CounterpartyGSTIN  string          `db:"counterparty_gstin" json:"counterparty_gstin"`
	InvoiceNumber      string          `db:"invoice_number" json:"invoice_number"`
	InvoiceDate        time.Time       `db:"invoice_date" json:"invoice_date"`
	TaxableValue       decimal.Decimal `db:"taxable_value" json:"taxable_value"`
	TaxRate            decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	TaxAmount          decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	FilingPeriod       FilingPeriod    `db:"filing_period" json:"filing_period"`
	RawProvenanceID    string          `db:"raw_provenance_id" json:"raw_provenance_id"`
	LowConfidenceGSTIN bool            `db:"low_confidence_gstin" json:"low_confidence_gstin"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// FieldDiff captures a single per-field difference between a purchase and a
// sales record of a candidate pair.
type FieldDiff struct {
	Field    string `json:"field"`
	Purchase string `json:"purchase"`
	Sales    string `json:"sales"`
}

// MatchCandidatePair is a scored purchase/sales pairing considered by the
// matching engine. Transient; never persisted beyond the run that produced it.
type MatchCandidatePair struct {
	PurchaseRecordID uuid.UUID   `json:"purchase_record_id"`
	SalesRecordID    uuid.UUID   `json:"sales_record_id"`
	SimilarityScore  float64     `json:"similarity_score"`
	FieldDiffs       []FieldDiff `json:"field_diffs"`
}

// MatchAssignment is the final disposition of one or two records. Every input
// record appears in exactly one assignment. SPLIT assignments spanning more
// than two records share a SplitGroupID.
type MatchAssignment struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	RunID            uuid.UUID  `db:"run_id" json:"run_id"`
	PurchaseRecordID *uuid.UUID `db:"purchase_record_id" json:"purchase_record_id,omitempty"`
	SalesRecordID    *uuid.UUID `db:"sales_record_id" json:"sales_record_id,omitempty"`
	MatchType        MatchType  `db:"match_type" json:"match_type"`
	Confidence       float64    `db:"confidence" json:"confidence"`
	SplitGroupID     *uuid.UUID `db:"split_group_id" json:"split_group_id,omitempty"`
	BucketKey        string     `db:"bucket_key" json:"bucket_key"`
}

// Discrepancy is a classified mismatch derived from an assignment.
type Discrepancy struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	RunID         uuid.UUID           `db:"run_id" json:"run_id"`
	AssignmentID  uuid.UUID           `db:"assignment_id" json:"assignment_id"`
	Category      DiscrepancyCategory `db:"category" json:"category"`
	Field         string              `db:"field" json:"field"`
	ExpectedValue string              `db:"expected_value" json:"expected_value"`
	ActualValue   string              `db:"actual_value" json:"actual_value"`
	Magnitude     decimal.Decimal     `db:"magnitude" json:"magnitude"`
}

// ExcludedRecord reports a raw record dropped during normalization, so the
// run summary never hides an input failure.
type ExcludedRecord struct {
	ProvenanceID string       `json:"provenance_id"`
	Source       RecordSource `json:"source"`
	Reason       string       `json:"reason"`
}

// RunSummary holds the aggregate totals of a finalized run. Building it twice
// from the same input snapshot yields identical values.
type RunSummary struct {
	TotalPurchaseRecords int                         `json:"total_purchase_records"`
	TotalSalesRecords    int                         `json:"total_sales_records"`
	MatchedValue         decimal.Decimal             `json:"matched_value"`
	DiscrepancyValue     decimal.Decimal             `json:"discrepancy_value"`
	CountByMatchType     map[MatchType]int           `json:"count_by_match_type"`
	CountByCategory      map[DiscrepancyCategory]int `json:"count_by_category"`
	OversizedBuckets     []string                    `json:"oversized_buckets,omitempty"`
	ProcessedBuckets     []string                    `json:"processed_buckets"`
	ExcludedRecords      []ExcludedRecord            `json:"excluded_records,omitempty"`
}

// ReconciliationRun owns all assignments and discrepancies produced for one
// (business, filing period) reconciliation. Append-only: a re-run creates a
// new run, never edits a past one.
type ReconciliationRun struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	BusinessGSTIN string            `db:"business_gstin" json:"business_gstin"`
	Period        FilingPeriod      `db:"period" json:"period"`
	Status        RunStatus         `db:"status" json:"status"`
	FailureReason string            `db:"failure_reason" json:"failure_reason,omitempty"`
	Assignments   []MatchAssignment `json:"assignments"`
	Discrepancies []Discrepancy     `json:"discrepancies"`
	Summary       RunSummary        `json:"summary"`
	GeneratedAt   time.Time         `db:"generated_at" json:"generated_at"`
}
