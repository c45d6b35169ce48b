package recon

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// RunInput is the immutable snapshot a run is built from.
type RunInput struct {
	BusinessGSTIN string
	Period        domain.FilingPeriod
	Purchases     []*domain.InvoiceRecord
	Sales         []*domain.InvoiceRecord
	Excluded      []domain.ExcludedRecord
}

// BuildRun aggregates outcomes into a finalized ReconciliationRun. The
// conservation invariant is checked for both sides independently over the
// processed buckets: a violation indicates an engine bug and is always fatal,
// never ignored. Building twice from the same snapshot yields identical
// summary totals.
func BuildRun(in RunInput, outcomes []Outcome, processedBuckets, oversizedBuckets []string, status domain.RunStatus, failureReason string) (*domain.ReconciliationRun, error) {
	sortOutcomes(outcomes)

	run := &domain.ReconciliationRun{
		ID:            uuid.New(),
		BusinessGSTIN: in.BusinessGSTIN,
		Period:        in.Period,
		Status:        status,
		FailureReason: failureReason,
		GeneratedAt:   time.Now().UTC(),
	}

	summary := domain.RunSummary{
		TotalPurchaseRecords: len(in.Purchases),
		TotalSalesRecords:    len(in.Sales),
		MatchedValue:         decimal.Zero,
		DiscrepancyValue:     decimal.Zero,
		CountByMatchType:     make(map[domain.MatchType]int),
		CountByCategory:      make(map[domain.DiscrepancyCategory]int),
		ProcessedBuckets:     processedBuckets,
		OversizedBuckets:     oversizedBuckets,
		ExcludedRecords:      in.Excluded,
	}

	outPurchase := decimal.Zero
	outSales := decimal.Zero
	seen := make(map[string]bool)

	for _, out := range outcomes {
		assignments, anchorID := toAssignments(out, run.ID)
		run.Assignments = append(run.Assignments, assignments...)
		summary.CountByMatchType[out.Type] += len(assignments)

		for _, d := range Classify(out, run.ID, anchorID) {
			summary.CountByCategory[d.Category]++
			summary.DiscrepancyValue = summary.DiscrepancyValue.Add(d.Magnitude)
			run.Discrepancies = append(run.Discrepancies, d)
		}

		for _, rec := range out.Purchases {
			if seen[rec.ID.String()] {
				return nil, fmt.Errorf("record %s appears in more than one outcome: %w", rec.ID, domain.ErrConservationViolation)
			}
			seen[rec.ID.String()] = true
			outPurchase = outPurchase.Add(rec.TaxableValue)
			if out.Type != domain.MatchUnmatchedPurchase {
				summary.MatchedValue = summary.MatchedValue.Add(rec.TaxableValue)
			}
		}
		for _, rec := range out.Sales {
			if seen[rec.ID.String()] {
				return nil, fmt.Errorf("record %s appears in more than one outcome: %w", rec.ID, domain.ErrConservationViolation)
			}
			seen[rec.ID.String()] = true
			outSales = outSales.Add(rec.TaxableValue)
		}
	}

	inPurchase := sumValues(in.Purchases)
	inSales := sumValues(in.Sales)
	if !inPurchase.Equal(outPurchase) {
		return nil, fmt.Errorf("purchase side: input %s != output %s: %w",
			inPurchase, outPurchase, domain.ErrConservationViolation)
	}
	if !inSales.Equal(outSales) {
		return nil, fmt.Errorf("sales side: input %s != output %s: %w",
			inSales, outSales, domain.ErrConservationViolation)
	}
	for _, recs := range [][]*domain.InvoiceRecord{in.Purchases, in.Sales} {
		for _, rec := range recs {
			if !seen[rec.ID.String()] {
				return nil, fmt.Errorf("record %s missing from outcomes: %w", rec.ID, domain.ErrConservationViolation)
			}
		}
	}

	run.Summary = summary
	return run, nil
}

// toAssignments converts an outcome into assignments: one per involved
// record for SPLIT (linked by a shared group id), one shared row for
// EXACT/FUZZY pairs, one single-sided row for unmatched records. The anchor
// assignment is the one discrepancies attach to.
func toAssignments(out Outcome, runID uuid.UUID) ([]domain.MatchAssignment, uuid.UUID) {
	switch out.Type {
	case domain.MatchExact, domain.MatchFuzzy:
		a := domain.MatchAssignment{
			ID:               uuid.New(),
			RunID:            runID,
			PurchaseRecordID: recordIDPtr(out.Purchases[0]),
			SalesRecordID:    recordIDPtr(out.Sales[0]),
			MatchType:        out.Type,
			Confidence:       out.Score,
			BucketKey:        out.BucketKey,
		}
		return []domain.MatchAssignment{a}, a.ID

	case domain.MatchSplit:
		groupID := uuid.New()
		var assignments []domain.MatchAssignment
		for _, rec := range out.Purchases {
			assignments = append(assignments, domain.MatchAssignment{
				ID:               uuid.New(),
				RunID:            runID,
				PurchaseRecordID: recordIDPtr(rec),
				MatchType:        domain.MatchSplit,
				Confidence:       out.Score,
				SplitGroupID:     &groupID,
				BucketKey:        out.BucketKey,
			})
		}
		for _, rec := range out.Sales {
			assignments = append(assignments, domain.MatchAssignment{
				ID:            uuid.New(),
				RunID:         runID,
				SalesRecordID: recordIDPtr(rec),
				MatchType:     domain.MatchSplit,
				Confidence:    out.Score,
				SplitGroupID:  &groupID,
				BucketKey:     out.BucketKey,
			})
		}
		return assignments, assignments[0].ID

	case domain.MatchUnmatchedPurchase:
		a := domain.MatchAssignment{
			ID:               uuid.New(),
			RunID:            runID,
			PurchaseRecordID: recordIDPtr(out.Purchases[0]),
			MatchType:        out.Type,
			BucketKey:        out.BucketKey,
		}
		return []domain.MatchAssignment{a}, a.ID

	default: // MatchUnmatchedSales
		a := domain.MatchAssignment{
			ID:            uuid.New(),
			RunID:         runID,
			SalesRecordID: recordIDPtr(out.Sales[0]),
			MatchType:     out.Type,
			BucketKey:     out.BucketKey,
		}
		return []domain.MatchAssignment{a}, a.ID
	}
}

// sortOutcomes orders outcomes deterministically: bucket key, match type,
// then the anchor record's invoice number and provenance id.
func sortOutcomes(outcomes []Outcome) {
	rank := map[domain.MatchType]int{
		domain.MatchExact:             0,
		domain.MatchFuzzy:             1,
		domain.MatchSplit:             2,
		domain.MatchUnmatchedPurchase: 3,
		domain.MatchUnmatchedSales:    4,
	}
	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].BucketKey != outcomes[j].BucketKey {
			return outcomes[i].BucketKey < outcomes[j].BucketKey
		}
		if rank[outcomes[i].Type] != rank[outcomes[j].Type] {
			return rank[outcomes[i].Type] < rank[outcomes[j].Type]
		}
		ri, rj := anchorRecord(outcomes[i]), anchorRecord(outcomes[j])
		if ri.InvoiceNumber != rj.InvoiceNumber {
			return ri.InvoiceNumber < rj.InvoiceNumber
		}
		return ri.RawProvenanceID < rj.RawProvenanceID
	})
}

func anchorRecord(out Outcome) *domain.InvoiceRecord {
	if len(out.Purchases) > 0 {
		return out.Purchases[0]
	}
	return out.Sales[0]
}

func recordIDPtr(rec *domain.InvoiceRecord) *uuid.UUID {
	id := rec.ID
	return &id
}

func sumValues(recs []*domain.InvoiceRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range recs {
		sum = sum.Add(rec.TaxableValue)
	}
	return sum
}
