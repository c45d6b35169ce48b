package domain

// RecordSource identifies which side of the reconciliation a record came from.
type RecordSource string

const (
	SourcePurchase RecordSource = "purchase"
	SourceSales    RecordSource = "sales"
)

// Opposite returns the other side of the reconciliation.
func (s RecordSource) Opposite() RecordSource {
	if s == SourcePurchase {
		return SourceSales
	}
	return SourcePurchase
}

// GSTINStatus is the result of structural and checksum validation of a GSTIN.
type GSTINStatus string

const (
	GSTINValid           GSTINStatus = "valid"
	GSTINInvalidChecksum GSTINStatus = "invalid_checksum"
	GSTINInvalidFormat   GSTINStatus = "invalid_format"
)

// MatchType classifies how a record was consumed by the matching engine.
type MatchType string

const (
	MatchExact             MatchType = "exact"
	MatchFuzzy             MatchType = "fuzzy"
	MatchSplit             MatchType = "split"
	MatchUnmatchedPurchase MatchType = "unmatched_purchase"
	MatchUnmatchedSales    MatchType = "unmatched_sales"
)

// DiscrepancyCategory is the fixed taxonomy for classified mismatches.
type DiscrepancyCategory string

const (
	DiscrepancyTaxableValue       DiscrepancyCategory = "taxable_value_mismatch"
	DiscrepancyTaxAmount          DiscrepancyCategory = "tax_amount_mismatch"
	DiscrepancyTaxRate            DiscrepancyCategory = "tax_rate_mismatch"
	DiscrepancyDate               DiscrepancyCategory = "date_mismatch"
	DiscrepancyInvoiceNumber      DiscrepancyCategory = "invoice_number_mismatch"
	DiscrepancySplitShipment      DiscrepancyCategory = "split_shipment"
	DiscrepancyMissingCounterpart DiscrepancyCategory = "missing_counterparty_record"
)

// RunStatus is the lifecycle state of a reconciliation run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)
