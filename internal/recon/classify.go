package recon

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// Classify derives discrepancies for an outcome, attached to its anchor
// assignment. EXACT outcomes produce none; FUZZY outcomes produce one per
// differing field; SPLIT outcomes produce a single split-shipment entry;
// UNMATCHED outcomes report the missing counterparty record. Magnitude is
// the absolute value delta, used downstream for materiality thresholds.
func Classify(out Outcome, runID, assignmentID uuid.UUID) []domain.Discrepancy {
	switch out.Type {
	case domain.MatchExact:
		return nil
	case domain.MatchFuzzy:
		return classifyFuzzy(out, runID, assignmentID)
	case domain.MatchSplit:
		return classifySplit(out, runID, assignmentID)
	default:
		return classifyUnmatched(out, runID, assignmentID)
	}
}

func classifyFuzzy(out Outcome, runID, assignmentID uuid.UUID) []domain.Discrepancy {
	p, s := out.Purchases[0], out.Sales[0]
	var ds []domain.Discrepancy

	add := func(category domain.DiscrepancyCategory, field, expected, actual string, magnitude decimal.Decimal) {
		ds = append(ds, domain.Discrepancy{
			ID: uuid.New(), RunID: runID, AssignmentID: assignmentID,
			Category: category, Field: field,
			ExpectedValue: expected, ActualValue: actual,
			Magnitude: magnitude,
		})
	}

	if !p.TaxableValue.Equal(s.TaxableValue) {
		add(domain.DiscrepancyTaxableValue, "taxable_value",
			p.TaxableValue.String(), s.TaxableValue.String(),
			p.TaxableValue.Sub(s.TaxableValue).Abs())
	}
	if !p.TaxAmount.Equal(s.TaxAmount) {
		add(domain.DiscrepancyTaxAmount, "tax_amount",
			p.TaxAmount.String(), s.TaxAmount.String(),
			p.TaxAmount.Sub(s.TaxAmount).Abs())
	}
	if !p.TaxRate.Equal(s.TaxRate) {
		add(domain.DiscrepancyTaxRate, "tax_rate",
			p.TaxRate.String(), s.TaxRate.String(),
			p.TaxRate.Sub(s.TaxRate).Abs())
	}
	if !p.InvoiceDate.Equal(s.InvoiceDate) {
		add(domain.DiscrepancyDate, "invoice_date",
			p.InvoiceDate.Format("2006-01-02"), s.InvoiceDate.Format("2006-01-02"),
			decimal.Zero)
	}
	if p.InvoiceNumber != s.InvoiceNumber {
		add(domain.DiscrepancyInvoiceNumber, "invoice_number",
			p.InvoiceNumber, s.InvoiceNumber, decimal.Zero)
	}
	return ds
}

func classifySplit(out Outcome, runID, assignmentID uuid.UUID) []domain.Discrepancy {
	single := out.Purchases[0]
	group := out.Sales
	if len(out.Sales) == 1 && len(out.Purchases) > 1 {
		single = out.Sales[0]
		group = out.Purchases
	}
	sum := decimal.Zero
	for _, rec := range group {
		sum = sum.Add(rec.TaxableValue)
	}
	return []domain.Discrepancy{{
		ID: uuid.New(), RunID: runID, AssignmentID: assignmentID,
		Category:      domain.DiscrepancySplitShipment,
		Field:         "taxable_value",
		ExpectedValue: single.TaxableValue.String(),
		ActualValue:   sum.String(),
		Magnitude:     single.TaxableValue.Sub(sum).Abs(),
	}}
}

func classifyUnmatched(out Outcome, runID, assignmentID uuid.UUID) []domain.Discrepancy {
	rec := outcomeRecord(out)
	return []domain.Discrepancy{{
		ID: uuid.New(), RunID: runID, AssignmentID: assignmentID,
		Category:      domain.DiscrepancyMissingCounterpart,
		Field:         "invoice_number",
		ExpectedValue: rec.InvoiceNumber,
		ActualValue:   "",
		Magnitude:     rec.TaxableValue.Abs(),
	}}
}

// outcomeRecord returns the single record of an unmatched outcome.
func outcomeRecord(out Outcome) *domain.InvoiceRecord {
	if len(out.Purchases) > 0 {
		return out.Purchases[0]
	}
	return out.Sales[0]
}
