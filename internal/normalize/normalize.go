package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/gstin"
)

// Canonical raw-field keys expected from the extraction collaborator.
// internal/ingest maps loosely labeled source columns onto these.
const (
	FieldGSTIN         = "counterparty_gstin"
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldTaxableValue  = "taxable_value"
	FieldTaxRate       = "tax_rate"
	FieldTaxAmount     = "tax_amount"
	FieldFilingPeriod  = "filing_period"
	FieldProvenanceID  = "provenance_id"
)

// dateFormats is the ordered list of accepted date layouts; first match wins.
// Indian day-first layouts come before ISO and month-first fallbacks.
var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"02/01/06",
	"02-01-06",
	"02.01.06",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 02, 2006",
	"2006-01-02T15:04:05Z07:00",
}

// ocrRepairs maps commonly misread characters to the digit they usually
// stand for in numeric invoice fields.
var ocrRepairs = map[rune]rune{
	'O': '0', 'o': '0',
	'I': '1', 'l': '1',
	'S': '5', 's': '5',
	'B': '8',
}

// Normalizer canonicalizes raw key-value records into InvoiceRecords. The
// GSTIN cache is injected per reconciliation run.
type Normalizer struct {
	cache     *gstin.Cache
	tolerance decimal.Decimal
}

// New creates a Normalizer. tolerancePct is the relative tolerance (percent)
// used to accept OCR digit repairs against the declared rate/amount ratio.
func New(cache *gstin.Cache, tolerancePct float64) *Normalizer {
	return &Normalizer{
		cache:     cache,
		tolerance: decimal.NewFromFloat(tolerancePct).Div(decimal.NewFromInt(100)),
	}
}

// Normalize canonicalizes one raw record. It returns a NormalizationError
// when a mandatory field (GSTIN, invoice number, date, taxable value) is
// absent or unparsable. A checksum-invalid GSTIN does not fail the record;
// it is kept and tagged low confidence.
func (n *Normalizer) Normalize(raw map[string]string, source domain.RecordSource) (*domain.InvoiceRecord, error) {
	provenance := strings.TrimSpace(raw[FieldProvenanceID])
	if provenance == "" {
		return nil, &domain.NormalizationError{Field: FieldProvenanceID, Value: ""}
	}

	rawGSTIN := strings.ToUpper(strings.TrimSpace(raw[FieldGSTIN]))
	status := n.cache.Validate(rawGSTIN)
	if status == domain.GSTINInvalidFormat {
		return nil, &domain.NormalizationError{
			Field: FieldGSTIN, Value: rawGSTIN, ProvenanceID: provenance,
			Err: domain.ErrInvalidGSTIN,
		}
	}

	invoiceNumber := strings.ToUpper(strings.TrimSpace(raw[FieldInvoiceNumber]))
	if invoiceNumber == "" {
		return nil, &domain.NormalizationError{Field: FieldInvoiceNumber, Value: "", ProvenanceID: provenance}
	}

	invoiceDate, err := ParseDate(raw[FieldInvoiceDate])
	if err != nil {
		return nil, &domain.NormalizationError{
			Field: FieldInvoiceDate, Value: raw[FieldInvoiceDate], ProvenanceID: provenance, Err: err,
		}
	}

	// Optional tax fields parse leniently: an unparsable value degrades to
	// zero rather than rejecting the whole record.
	taxRate := lenientDecimal(raw[FieldTaxRate])
	taxAmount := lenientDecimal(raw[FieldTaxAmount])

	taxableValue, err := n.parseTaxableValue(raw[FieldTaxableValue], taxRate, taxAmount)
	if err != nil {
		return nil, &domain.NormalizationError{
			Field: FieldTaxableValue, Value: raw[FieldTaxableValue], ProvenanceID: provenance, Err: err,
		}
	}

	period := domain.FilingPeriod(strings.TrimSpace(raw[FieldFilingPeriod]))
	if period == "" {
		period = domain.PeriodOf(invoiceDate)
	}

	return &domain.InvoiceRecord{
		ID:                 uuid.New(),
		Source:             source,
		CounterpartyGSTIN:  rawGSTIN,
		InvoiceNumber:      invoiceNumber,
		InvoiceDate:        invoiceDate,
		TaxableValue:       taxableValue,
		TaxRate:            taxRate,
		TaxAmount:          taxAmount,
		FilingPeriod:       period,
		RawProvenanceID:    provenance,
		LowConfidenceGSTIN: status == domain.GSTINInvalidChecksum,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// ParseDate parses s against the ordered accepted-format list.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %s", s)
}

// parseTaxableValue parses a monetary string, falling back to OCR digit
// repair. A repaired value is accepted only when it is consistent with the
// declared rate and tax amount: taxable * rate/100 must be within tolerance
// of the tax amount.
func (n *Normalizer) parseTaxableValue(s string, taxRate, taxAmount decimal.Decimal) (decimal.Decimal, error) {
	cleaned := cleanAmount(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("missing value")
	}

	if v, err := decimal.NewFromString(cleaned); err == nil {
		return v, nil
	}

	repaired := repairDigits(cleaned)
	if repaired == cleaned {
		return decimal.Zero, fmt.Errorf("unparseable amount: %s", s)
	}
	v, err := decimal.NewFromString(repaired)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount: %s", s)
	}
	if !n.rateConsistent(v, taxRate, taxAmount) {
		return decimal.Zero, fmt.Errorf("ocr repair %q -> %q inconsistent with declared tax rate", s, repaired)
	}
	return v, nil
}

// rateConsistent reports whether taxable * rate/100 is within tolerance of
// the declared tax amount. Without a declared rate and amount there is
// nothing to corroborate a repair against, so it is rejected.
func (n *Normalizer) rateConsistent(taxable, rate, amount decimal.Decimal) bool {
	if rate.IsZero() || amount.IsZero() {
		return false
	}
	expected := taxable.Mul(rate).Div(decimal.NewFromInt(100))
	diff := expected.Sub(amount).Abs()
	return diff.LessThanOrEqual(amount.Abs().Mul(n.tolerance))
}

// cleanAmount strips thousands separators, currency markers, and whitespace.
func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"₹", "Rs.", "RS.", "Rs", "RS", "INR", "inr"} {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// repairDigits applies single-character OCR substitutions.
func repairDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if repl, ok := ocrRepairs[r]; ok {
			return repl
		}
		return r
	}, s)
}

// lenientDecimal parses an optional monetary or percentage string, returning
// zero when it cannot be parsed.
func lenientDecimal(s string) decimal.Decimal {
	cleaned := cleanAmount(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if cleaned == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return v
}
