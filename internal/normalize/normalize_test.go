package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/gstin"
)

func newNormalizer() *Normalizer {
	return New(gstin.NewCache(), 1.0)
}

func rawRecord(overrides map[string]string) map[string]string {
	raw := map[string]string{
		FieldProvenanceID:  "purchases.csv:2",
		FieldGSTIN:         "27AAPFU0939F1ZV",
		FieldInvoiceNumber: " inv-001 ",
		FieldInvoiceDate:   "05/04/2024",
		FieldTaxableValue:  "10,000.00",
		FieldTaxRate:       "18",
		FieldTaxAmount:     "1800.00",
	}
	for k, v := range overrides {
		raw[k] = v
	}
	return raw
}

func TestNormalize_HappyPath(t *testing.T) {
	rec, err := newNormalizer().Normalize(rawRecord(nil), domain.SourcePurchase)
	require.NoError(t, err)

	assert.Equal(t, domain.SourcePurchase, rec.Source)
	assert.Equal(t, "27AAPFU0939F1ZV", rec.CounterpartyGSTIN)
	assert.Equal(t, "INV-001", rec.InvoiceNumber)
	assert.Equal(t, time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	assert.True(t, rec.TaxableValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, rec.TaxRate.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, domain.FilingPeriod("2024-04"), rec.FilingPeriod)
	assert.False(t, rec.LowConfidenceGSTIN)
}

func TestNormalize_DateFormats(t *testing.T) {
	cases := map[string]time.Time{
		"05/04/2024":  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
		"05-04-2024":  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
		"05.04.2024":  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
		"2024-04-05":  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
		"5 Apr 2024":  time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
		"Apr 05, 2024": time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("not a date")
	assert.Error(t, err)
}

func TestNormalize_MandatoryFieldMissing(t *testing.T) {
	for _, field := range []string{FieldGSTIN, FieldInvoiceNumber, FieldInvoiceDate, FieldTaxableValue} {
		_, err := newNormalizer().Normalize(rawRecord(map[string]string{field: ""}), domain.SourcePurchase)
		var nerr *domain.NormalizationError
		require.ErrorAs(t, err, &nerr, field)
	}
}

func TestNormalize_ChecksumInvalidGSTINKeptLowConfidence(t *testing.T) {
	rec, err := newNormalizer().Normalize(rawRecord(map[string]string{
		FieldGSTIN: "27AAAPL1234C1Z5",
	}), domain.SourceSales)
	require.NoError(t, err)
	assert.True(t, rec.LowConfidenceGSTIN)
}

func TestNormalize_OCRRepairAcceptedWhenRateConsistent(t *testing.T) {
	// "1O000" repairs to 10000; 10000 * 18% = 1800 matches declared tax amount.
	rec, err := newNormalizer().Normalize(rawRecord(map[string]string{
		FieldTaxableValue: "1O000",
	}), domain.SourcePurchase)
	require.NoError(t, err)
	assert.True(t, rec.TaxableValue.Equal(decimal.NewFromInt(10000)))
}

func TestNormalize_OCRRepairRejectedWhenInconsistent(t *testing.T) {
	// Repair yields 10000 but declared tax amount says the value should be 5000.
	_, err := newNormalizer().Normalize(rawRecord(map[string]string{
		FieldTaxableValue: "1O000",
		FieldTaxAmount:    "900.00",
	}), domain.SourcePurchase)
	var nerr *domain.NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, FieldTaxableValue, nerr.Field)
}

func TestNormalize_OCRRepairRejectedWithoutDeclaredRate(t *testing.T) {
	_, err := newNormalizer().Normalize(rawRecord(map[string]string{
		FieldTaxableValue: "1O000",
		FieldTaxRate:      "",
		FieldTaxAmount:    "",
	}), domain.SourcePurchase)
	var nerr *domain.NormalizationError
	require.ErrorAs(t, err, &nerr)
}

func TestNormalize_CurrencyMarkersStripped(t *testing.T) {
	rec, err := newNormalizer().Normalize(rawRecord(map[string]string{
		FieldTaxableValue: "₹ 10,000.00",
	}), domain.SourcePurchase)
	require.NoError(t, err)
	assert.True(t, rec.TaxableValue.Equal(decimal.NewFromInt(10000)))
}

func TestNormalize_ExplicitFilingPeriodWins(t *testing.T) {
	rec, err := newNormalizer().Normalize(rawRecord(map[string]string{
		FieldFilingPeriod: "2024-03",
	}), domain.SourcePurchase)
	require.NoError(t, err)
	assert.Equal(t, domain.FilingPeriod("2024-03"), rec.FilingPeriod)
}
