package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row for run exports.
var columns = []string{
	"Match Type",
	"Confidence",
	"Bucket",
	"Split Group",
	"Purchase Provenance",
	"Purchase Invoice",
	"Purchase Date",
	"Purchase Taxable Value",
	"Purchase Tax Rate",
	"Sales Provenance",
	"Sales Invoice",
	"Sales Date",
	"Sales Taxable Value",
	"Sales Tax Rate",
	"Discrepancy Categories",
	"Discrepancy Magnitude",
}

// Writer wraps csv.Writer for exporting a reconciliation run as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRun converts a run's assignments to CSV rows and writes them. records
// maps record ids to the normalized records of the run's input snapshot;
// assignments referencing an unknown id get empty record columns rather
// than failing the export.
func (w *Writer) WriteRun(run *domain.ReconciliationRun, records map[uuid.UUID]*domain.InvoiceRecord) error {
	byAssignment := make(map[uuid.UUID][]domain.Discrepancy, len(run.Discrepancies))
	for _, d := range run.Discrepancies {
		byAssignment[d.AssignmentID] = append(byAssignment[d.AssignmentID], d)
	}

	for i := range run.Assignments {
		row := assignmentToRow(&run.Assignments[i], records, byAssignment)
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func assignmentToRow(a *domain.MatchAssignment, records map[uuid.UUID]*domain.InvoiceRecord, discrepancies map[uuid.UUID][]domain.Discrepancy) []string {
	row := make([]string, len(columns))

	row[0] = string(a.MatchType)
	row[1] = strconv.FormatFloat(a.Confidence, 'f', 4, 64)
	row[2] = a.BucketKey
	if a.SplitGroupID != nil {
		row[3] = a.SplitGroupID.String()
	}
	if a.PurchaseRecordID != nil {
		fillRecord(row, 4, records[*a.PurchaseRecordID])
	}
	if a.SalesRecordID != nil {
		fillRecord(row, 9, records[*a.SalesRecordID])
	}

	ds := discrepancies[a.ID]
	if len(ds) == 0 {
		return row
	}
	categories := make([]string, 0, len(ds))
	magnitude := decimal.Zero
	for _, d := range ds {
		categories = append(categories, string(d.Category))
		magnitude = magnitude.Add(d.Magnitude)
	}
	row[14] = strings.Join(categories, ";")
	row[15] = magnitude.StringFixed(2)
	return row
}

// fillRecord writes one side's five record columns starting at offset.
func fillRecord(row []string, offset int, rec *domain.InvoiceRecord) {
	if rec == nil {
		return
	}
	row[offset] = rec.RawProvenanceID
	row[offset+1] = rec.InvoiceNumber
	row[offset+2] = rec.InvoiceDate.Format("2006-01-02")
	row[offset+3] = rec.TaxableValue.StringFixed(2)
	row[offset+4] = rec.TaxRate.StringFixed(2)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a business GSTIN or label for use in
// Content-Disposition. Replaces non-alphanumeric chars (except - _) with _,
// collapses consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for Content-Disposition header.
// Format: {sanitized_label}_{period}_{YYYY-MM-DD}.csv
func BuildFilename(label string, period domain.FilingPeriod) string {
	sanitized := SanitizeFilename(label)
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s_%s.csv", sanitized, period, date)
}
