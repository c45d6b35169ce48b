package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/normalize"
)

// requiredKeys are the canonical fields a header must resolve before the
// file is accepted. Missing per-row values still fail record by record in
// the normalizer; this check only rejects files whose columns cannot be
// identified at all.
var requiredKeys = []string{
	normalize.FieldGSTIN,
	normalize.FieldInvoiceNumber,
	normalize.FieldInvoiceDate,
	normalize.FieldTaxableValue,
}

// ReadCSV parses a purchase-ledger CSV into raw records keyed by canonical
// field names. The first row is the header. Each record gets a provenance id
// of the form "<sourceName>:<rowNumber>" unless the file carries its own
// provenance column. Fully empty rows are skipped.
func ReadCSV(r io.Reader, sourceName string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", sourceName, err)
	}
	mapped, err := resolveHeader(header, sourceName)
	if err != nil {
		return nil, err
	}

	var records []map[string]string
	rowNum := 1
	for {
		row, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("reading row %d of %s: %w", rowNum+1, sourceName, rerr)
		}
		rowNum++
		if rec := rawRecord(row, mapped, sourceName, rowNum); rec != nil {
			records = append(records, rec)
		}
	}

	log.Printf("ingest: %s: %d records from %d rows", sourceName, len(records), rowNum-1)
	return records, nil
}

// ReadXLSX parses a sales-ledger workbook. Only the first sheet is read; the
// first row is the header.
func ReadXLSX(r io.Reader, sourceName string) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", sourceName, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", sourceName)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, sourceName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s sheet %q is empty", sourceName, sheet)
	}

	mapped, err := resolveHeader(rows[0], sourceName)
	if err != nil {
		return nil, err
	}

	var records []map[string]string
	for i := 1; i < len(rows); i++ {
		if rec := rawRecord(rows[i], mapped, sourceName, i+1); rec != nil {
			records = append(records, rec)
		}
	}

	log.Printf("ingest: %s: %d records from %d rows", sourceName, len(records), len(rows)-1)
	return records, nil
}

func resolveHeader(header []string, sourceName string) (map[int]string, error) {
	mapped := MapHeader(header)
	present := make(map[string]bool, len(mapped))
	for _, key := range mapped {
		present[key] = true
	}
	for _, key := range requiredKeys {
		if !present[key] {
			return nil, fmt.Errorf("%s: no column maps to %s", sourceName, key)
		}
	}
	return mapped, nil
}

// rawRecord builds one canonical-keyed raw record, or nil for an empty row.
func rawRecord(row []string, mapped map[int]string, sourceName string, rowNum int) map[string]string {
	rec := make(map[string]string, len(mapped)+1)
	empty := true
	for i, key := range mapped {
		if i >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			continue
		}
		rec[key] = val
		empty = false
	}
	if empty {
		return nil
	}
	if rec[normalize.FieldProvenanceID] == "" {
		rec[normalize.FieldProvenanceID] = fmt.Sprintf("%s:%d", sourceName, rowNum)
	}
	return rec
}
