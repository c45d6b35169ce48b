package ingest

import (
	"regexp"
	"strings"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/normalize"
)

// headerAliases maps each canonical field key to the loosely labeled column
// headings seen in uploaded ledgers. Matching is case-insensitive after
// punctuation stripping, so "Invoice No.", "INVOICE NUMBER" and "inv no"
// all land on invoice_number.
var headerAliases = map[string][]string{
	normalize.FieldGSTIN: {
		"COUNTERPARTY GSTIN", "GSTIN", "GST NO", "GST NUMBER",
		"SELLER GSTIN", "BUYER GSTIN", "SUPPLIER GSTIN", "CUSTOMER GSTIN",
	},
	normalize.FieldInvoiceNumber: {
		"INVOICE NUMBER", "INVOICE NO", "INVOICE", "INV NO", "INV",
		"BILL NO", "BILL NUMBER", "TAX INVOICE", "VOUCHER NO",
	},
	normalize.FieldInvoiceDate: {
		"INVOICE DATE", "DATE", "BILL DATE", "VOUCHER DATE",
	},
	normalize.FieldTaxableValue: {
		"TAXABLE VALUE", "TAXABLE AMOUNT", "TAXABLE AMT", "BASE AMOUNT",
		"AMOUNT", "VALUE", "TOTAL VALUE",
	},
	normalize.FieldTaxRate: {
		"TAX RATE", "GST RATE", "RATE", "RATE %", "GST %",
	},
	normalize.FieldTaxAmount: {
		"TAX AMOUNT", "GST AMOUNT", "TOTAL TAX", "TAX AMT", "GST AMT",
	},
	normalize.FieldFilingPeriod: {
		"FILING PERIOD", "PERIOD", "RETURN PERIOD", "TAX PERIOD",
	},
	normalize.FieldProvenanceID: {
		"PROVENANCE ID", "ROW ID", "RECORD ID", "SOURCE ID",
	},
}

var labelPunct = regexp.MustCompile(`[.:#_\-/]+`)
var labelSpace = regexp.MustCompile(`\s+`)

// cleanLabel strips punctuation and collapses whitespace for alias lookup.
func cleanLabel(label string) string {
	s := strings.ToUpper(strings.TrimSpace(label))
	s = labelPunct.ReplaceAllString(s, " ")
	s = labelSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// aliasIndex is the flattened alias lookup, built once.
var aliasIndex = func() map[string]string {
	m := make(map[string]string)
	for canonical, aliases := range headerAliases {
		for _, a := range aliases {
			m[cleanLabel(a)] = canonical
		}
	}
	return m
}()

// MapHeader resolves a header row to a column-index to canonical-key map.
// Unrecognized columns are ignored; a later duplicate of an already mapped
// key is ignored too, so the leftmost matching column wins.
func MapHeader(labels []string) map[int]string {
	mapped := make(map[int]string)
	seen := make(map[string]bool)
	for i, label := range labels {
		canonical, ok := aliasIndex[cleanLabel(label)]
		if !ok || seen[canonical] {
			continue
		}
		mapped[i] = canonical
		seen[canonical] = true
	}
	return mapped
}
