// Command reconcile matches a purchase ledger against a sales ledger
// offline, without the API server or a database. It reads CSV or XLSX
// exports, runs the matching engine, and writes the reconciliation
// report as CSV.
// Usage: go run ./cmd/reconcile -business 29ABCDE1234F1ZW -period 2024-04 \
//	-purchases purchases.csv -sales sales.xlsx -out report.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/csvexport"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/gstin"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/ingest"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/normalize"
	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/recon"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		business  = flag.String("business", "", "business GSTIN the ledgers belong to")
		period    = flag.String("period", "", "filing period, YYYY-MM")
		purchases = flag.String("purchases", "", "purchase ledger file (.csv or .xlsx)")
		sales     = flag.String("sales", "", "sales ledger file (.csv or .xlsx)")
		out       = flag.String("out", "", "output CSV path (default derived from business and period)")
		tolerance = flag.Float64("tolerance", 1.0, "value tolerance percent")
	)
	flag.Parse()

	if *business == "" || *period == "" || *purchases == "" || *sales == "" {
		flag.Usage()
		os.Exit(1)
	}
	if gstin.Validate(*business) != domain.GSTINValid {
		return fmt.Errorf("business GSTIN %q: %w", *business, domain.ErrInvalidGSTIN)
	}

	norm := normalize.New(gstin.NewCache(), *tolerance)

	var excluded []domain.ExcludedRecord
	purchaseRecs, err := loadLedger(norm, *purchases, domain.SourcePurchase, &excluded)
	if err != nil {
		return err
	}
	salesRecs, err := loadLedger(norm, *sales, domain.SourceSales, &excluded)
	if err != nil {
		return err
	}

	fp := domain.FilingPeriod(*period)
	purchaseRecs = filterPeriod(purchaseRecs, fp, &excluded)
	salesRecs = filterPeriod(salesRecs, fp, &excluded)

	opts := recon.DefaultOptions()
	opts.ValueTolerancePct = *tolerance

	report, err := recon.NewRunner(opts).Run(context.Background(), recon.RunInput{
		BusinessGSTIN: *business,
		Period:        fp,
		Purchases:     purchaseRecs,
		Sales:         salesRecs,
		Excluded:      excluded,
	})
	if err != nil {
		return fmt.Errorf("reconciling: %w", err)
	}

	byID := make(map[uuid.UUID]*domain.InvoiceRecord, len(purchaseRecs)+len(salesRecs))
	for _, rec := range purchaseRecs {
		byID[rec.ID] = rec
	}
	for _, rec := range salesRecs {
		byID[rec.ID] = rec
	}

	outPath := *out
	if outPath == "" {
		outPath = csvexport.BuildFilename(report.BusinessGSTIN, report.Period)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(csvexport.BOM); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	w := csvexport.NewWriter(f)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := w.WriteRun(report, byID); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	log.Printf("reconcile: wrote %s, %d assignments, %d discrepancies, status %s",
		outPath, len(report.Assignments), len(report.Discrepancies), report.Status)
	return nil
}

func loadLedger(norm *normalize.Normalizer, path string, source domain.RecordSource, excluded *[]domain.ExcludedRecord) ([]*domain.InvoiceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s ledger: %w", source, err)
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(path)
	var rows []map[string]string
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = ingest.ReadXLSX(f, name)
	} else {
		rows, err = ingest.ReadCSV(f, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s ledger: %w", source, err)
	}

	var records []*domain.InvoiceRecord
	for _, raw := range rows {
		rec, err := norm.Normalize(raw, source)
		if err != nil {
			var nerr *domain.NormalizationError
			provenance := raw[normalize.FieldProvenanceID]
			if errors.As(err, &nerr) && nerr.ProvenanceID != "" {
				provenance = nerr.ProvenanceID
			}
			*excluded = append(*excluded, domain.ExcludedRecord{
				ProvenanceID: provenance,
				Source:       source,
				Reason:       err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func filterPeriod(records []*domain.InvoiceRecord, period domain.FilingPeriod, excluded *[]domain.ExcludedRecord) []*domain.InvoiceRecord {
	kept := records[:0]
	for _, rec := range records {
		if rec.FilingPeriod != period {
			*excluded = append(*excluded, domain.ExcludedRecord{
				ProvenanceID: rec.RawProvenanceID,
				Source:       rec.Source,
				Reason:       fmt.Sprintf("outside filing period %s", period),
			})
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}
