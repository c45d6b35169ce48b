package recon

import (
	"fmt"
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// Bucket groups the records of one (counterparty GSTIN, filing period) pair.
type Bucket struct {
	GSTIN     string
	Period    domain.FilingPeriod
	Purchases []*domain.InvoiceRecord
	Sales     []*domain.InvoiceRecord
	Oversized bool
	// RecoveredFrom maps record id to the original GSTIN for records
	// re-homed here from a low-confidence bucket.
	RecoveredFrom map[string]string
}

// Key returns the bucket's stable identifier.
func (b *Bucket) Key() string {
	return fmt.Sprintf("%s|%s", b.GSTIN, b.Period)
}

// Size returns the total record count across both sides.
func (b *Bucket) Size() int {
	return len(b.Purchases) + len(b.Sales)
}

// Index partitions records into buckets. Every record lands in exactly one
// bucket, which makes the engine's one-assignment-per-record invariant hold
// by construction.
type Index struct {
	buckets map[string]*Bucket
	keys    []string
}

// Buckets returns the buckets in deterministic key order.
func (ix *Index) Buckets() []*Bucket {
	out := make([]*Bucket, 0, len(ix.keys))
	for _, k := range ix.keys {
		out = append(out, ix.buckets[k])
	}
	return out
}

// BuildIndex buckets records by (counterparty GSTIN, filing period) and then
// attempts OCR-misread recovery: a record with a low-confidence GSTIN whose
// own bucket has no opposite-side records is re-homed to the best counterparty
// bucket within Levenshtein distance 1 for the same period. Candidates are
// capped at opts.GSTINTopK, ranked by opposite-side record count and then
// lexicographically smaller GSTIN, so the re-homing is deterministic.
func BuildIndex(records []*domain.InvoiceRecord, opts Options) *Index {
	ix := &Index{buckets: make(map[string]*Bucket)}
	for _, rec := range records {
		ix.place(rec)
	}

	ix.recoverLowConfidence(opts)

	for _, b := range ix.buckets {
		sortRecords(b.Purchases)
		sortRecords(b.Sales)
		if opts.MaxBucketSize > 0 && b.Size() > opts.MaxBucketSize {
			b.Oversized = true
		}
	}

	ix.keys = ix.keys[:0]
	for k := range ix.buckets {
		ix.keys = append(ix.keys, k)
	}
	sort.Strings(ix.keys)
	return ix
}

func (ix *Index) place(rec *domain.InvoiceRecord) {
	key := fmt.Sprintf("%s|%s", rec.CounterpartyGSTIN, rec.FilingPeriod)
	b, ok := ix.buckets[key]
	if !ok {
		b = &Bucket{
			GSTIN:         rec.CounterpartyGSTIN,
			Period:        rec.FilingPeriod,
			RecoveredFrom: make(map[string]string),
		}
		ix.buckets[key] = b
	}
	if rec.Source == domain.SourcePurchase {
		b.Purchases = append(b.Purchases, rec)
	} else {
		b.Sales = append(b.Sales, rec)
	}
}

// recoverLowConfidence re-homes stranded low-confidence records. Buckets are
// visited in sorted key order so the outcome never depends on map iteration.
func (ix *Index) recoverLowConfidence(opts Options) {
	keys := make([]string, 0, len(ix.buckets))
	for k := range ix.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		b := ix.buckets[key]
		var stranded []*domain.InvoiceRecord
		if len(b.Sales) == 0 {
			stranded = b.Purchases
		} else if len(b.Purchases) == 0 {
			stranded = b.Sales
		} else {
			continue
		}

		var kept []*domain.InvoiceRecord
		for _, rec := range stranded {
			if !rec.LowConfidenceGSTIN {
				kept = append(kept, rec)
				continue
			}
			target := ix.findRecoveryBucket(b, rec, keys, opts)
			if target == nil {
				kept = append(kept, rec)
				continue
			}
			if rec.Source == domain.SourcePurchase {
				target.Purchases = append(target.Purchases, rec)
			} else {
				target.Sales = append(target.Sales, rec)
			}
			target.RecoveredFrom[rec.ID.String()] = rec.CounterpartyGSTIN
		}
		if len(stranded) > 0 {
			if stranded[0].Source == domain.SourcePurchase {
				b.Purchases = kept
			} else {
				b.Sales = kept
			}
		}
	}

	// Drop buckets emptied by recovery.
	for k, b := range ix.buckets {
		if b.Size() == 0 {
			delete(ix.buckets, k)
		}
	}
}

// findRecoveryBucket picks the best same-period bucket whose GSTIN is within
// edit distance 1 of the record's and which holds opposite-side records.
func (ix *Index) findRecoveryBucket(home *Bucket, rec *domain.InvoiceRecord, keys []string, opts Options) *Bucket {
	type candidate struct {
		key      string
		opposite int
	}
	var candidates []candidate
	for _, k := range keys {
		cb := ix.buckets[k]
		if cb == home || cb.Period != rec.FilingPeriod {
			continue
		}
		opposite := len(cb.Sales)
		if rec.Source == domain.SourceSales {
			opposite = len(cb.Purchases)
		}
		if opposite == 0 {
			continue
		}
		dist := levenshtein.DistanceForStrings(
			[]rune(rec.CounterpartyGSTIN), []rune(cb.GSTIN), levenshtein.DefaultOptions)
		if dist != 1 {
			continue
		}
		candidates = append(candidates, candidate{key: k, opposite: opposite})
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].opposite != candidates[j].opposite {
			return candidates[i].opposite > candidates[j].opposite
		}
		return candidates[i].key < candidates[j].key
	})
	if opts.GSTINTopK > 0 && len(candidates) > opts.GSTINTopK {
		candidates = candidates[:opts.GSTINTopK]
	}
	return ix.buckets[candidates[0].key]
}

// sortRecords orders records by invoice number, then provenance id: the
// tie-break order used everywhere for reproducibility.
func sortRecords(recs []*domain.InvoiceRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].InvoiceNumber != recs[j].InvoiceNumber {
			return recs[i].InvoiceNumber < recs[j].InvoiceNumber
		}
		return recs[i].RawProvenanceID < recs[j].RawProvenanceID
	})
}
