package recon

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// Outcome is the disposition of one or more records produced by matching a
// bucket. EXACT/FUZZY outcomes carry one record per side; SPLIT carries one
// record on one side and the group on the other; UNMATCHED_* carries a single
// record.
type Outcome struct {
	Type       domain.MatchType
	Purchases  []*domain.InvoiceRecord
	Sales      []*domain.InvoiceRecord
	Score      float64
	FieldDiffs []domain.FieldDiff
	BucketKey  string
}

// Engine performs deterministic greedy matching within buckets.
type Engine struct {
	opts      Options
	tolerance decimal.Decimal
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:      opts,
		tolerance: decimal.NewFromFloat(opts.ValueTolerancePct).Div(decimal.NewFromInt(100)),
	}
}

// candidatePair is a scored purchase/sales pairing under consideration.
type candidatePair struct {
	purchase *domain.InvoiceRecord
	sales    *domain.InvoiceRecord
	pair     domain.MatchCandidatePair
}

// MatchBucket matches one bucket and returns an outcome for every record in
// it. Identical bucket contents (including order after index sorting) always
// yield identical outcomes.
func (e *Engine) MatchBucket(b *Bucket) []Outcome {
	key := b.Key()
	pairs := e.buildCandidatePairs(b)

	// Greedy assignment: best score first; ties broken by lexicographically
	// smaller invoice number, then earlier provenance id.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pair.SimilarityScore != pairs[j].pair.SimilarityScore {
			return pairs[i].pair.SimilarityScore > pairs[j].pair.SimilarityScore
		}
		if pairs[i].purchase.InvoiceNumber != pairs[j].purchase.InvoiceNumber {
			return pairs[i].purchase.InvoiceNumber < pairs[j].purchase.InvoiceNumber
		}
		if pairs[i].sales.InvoiceNumber != pairs[j].sales.InvoiceNumber {
			return pairs[i].sales.InvoiceNumber < pairs[j].sales.InvoiceNumber
		}
		if pairs[i].purchase.RawProvenanceID != pairs[j].purchase.RawProvenanceID {
			return pairs[i].purchase.RawProvenanceID < pairs[j].purchase.RawProvenanceID
		}
		return pairs[i].sales.RawProvenanceID < pairs[j].sales.RawProvenanceID
	})

	consumed := make(map[string]bool)
	var outcomes []Outcome
	for _, cp := range pairs {
		if consumed[cp.purchase.ID.String()] || consumed[cp.sales.ID.String()] {
			continue
		}
		matchType := domain.MatchFuzzy
		if cp.pair.SimilarityScore >= e.opts.ExactThreshold {
			matchType = domain.MatchExact
		}
		consumed[cp.purchase.ID.String()] = true
		consumed[cp.sales.ID.String()] = true
		outcomes = append(outcomes, Outcome{
			Type:       matchType,
			Purchases:  []*domain.InvoiceRecord{cp.purchase},
			Sales:      []*domain.InvoiceRecord{cp.sales},
			Score:      cp.pair.SimilarityScore,
			FieldDiffs: cp.pair.FieldDiffs,
			BucketKey:  key,
		})
	}

	remainingP := remaining(b.Purchases, consumed)
	remainingS := remaining(b.Sales, consumed)

	// Split pass: one purchase against a group of sales records summing
	// within tolerance, and the mirror direction. Skipped for oversized
	// buckets, where the pruning pass only considers exact invoice pairs.
	if !b.Oversized {
		outcomes = append(outcomes, e.splitPass(remainingP, remainingS, domain.SourcePurchase, consumed, key)...)
		remainingP = remaining(b.Purchases, consumed)
		remainingS = remaining(b.Sales, consumed)
		outcomes = append(outcomes, e.splitPass(remainingS, remainingP, domain.SourceSales, consumed, key)...)
		remainingP = remaining(b.Purchases, consumed)
		remainingS = remaining(b.Sales, consumed)
	}

	for _, rec := range remainingP {
		outcomes = append(outcomes, Outcome{
			Type:      domain.MatchUnmatchedPurchase,
			Purchases: []*domain.InvoiceRecord{rec},
			BucketKey: key,
		})
	}
	for _, rec := range remainingS {
		outcomes = append(outcomes, Outcome{
			Type:      domain.MatchUnmatchedSales,
			Sales:     []*domain.InvoiceRecord{rec},
			BucketKey: key,
		})
	}
	return outcomes
}

// buildCandidatePairs constructs scored pairs for every purchase/sales
// combination inside the date window and value tolerance. Oversized buckets
// get the stricter pruning pass: exact invoice-number pairs only, avoiding
// the full pairwise comparison.
func (e *Engine) buildCandidatePairs(b *Bucket) []candidatePair {
	var pairs []candidatePair

	if b.Oversized {
		byInvoice := make(map[string][]*domain.InvoiceRecord, len(b.Sales))
		for _, s := range b.Sales {
			byInvoice[s.InvoiceNumber] = append(byInvoice[s.InvoiceNumber], s)
		}
		for _, p := range b.Purchases {
			for _, s := range byInvoice[p.InvoiceNumber] {
				if pair, ok := e.scorePair(p, s); ok {
					pairs = append(pairs, candidatePair{purchase: p, sales: s, pair: pair})
				}
			}
		}
		return pairs
	}

	for _, p := range b.Purchases {
		for _, s := range b.Sales {
			if pair, ok := e.scorePair(p, s); ok {
				pairs = append(pairs, candidatePair{purchase: p, sales: s, pair: pair})
			}
		}
	}
	return pairs
}

// scorePair scores one purchase/sales pairing. It returns ok=false when the
// pair falls outside the date window, outside the value tolerance, or below
// the fuzzy threshold.
func (e *Engine) scorePair(p, s *domain.InvoiceRecord) (domain.MatchCandidatePair, bool) {
	dateDelta := daysBetween(p.InvoiceDate, s.InvoiceDate)
	if dateDelta > e.opts.DateWindowDays {
		return domain.MatchCandidatePair{}, false
	}

	relDiff := relativeDiff(p.TaxableValue, s.TaxableValue)
	if relDiff.GreaterThan(e.tolerance) {
		return domain.MatchCandidatePair{}, false
	}

	invSim := levenshtein.RatioForStrings(
		[]rune(p.InvoiceNumber), []rune(s.InvoiceNumber), levenshtein.DefaultOptions)

	// Value closeness scales the relative difference by the tolerance: equal
	// values score 1.0, a difference at the tolerance edge scores 0.
	valueCloseness := 1.0
	if !e.tolerance.IsZero() {
		ratio, _ := relDiff.Div(e.tolerance).Float64()
		valueCloseness = 1.0 - ratio
		if valueCloseness < 0 {
			valueCloseness = 0
		}
	}

	rateScore := 0.0
	if p.TaxRate.Equal(s.TaxRate) {
		rateScore = 1.0
	}

	score := weightInvoiceNumber*invSim +
		weightDate*1.0 + // in-window, enforced above
		weightTaxableValue*valueCloseness +
		weightTaxRate*rateScore
	if score < e.opts.FuzzyThreshold {
		return domain.MatchCandidatePair{}, false
	}

	return domain.MatchCandidatePair{
		PurchaseRecordID: p.ID,
		SalesRecordID:    s.ID,
		SimilarityScore:  score,
		FieldDiffs:       fieldDiffs(p, s),
	}, true
}

// splitPass matches each remaining record on one side against groups of
// remaining opposite-side records whose values sum within tolerance.
// Records are already in (invoice number, provenance id) order, so the
// subset search is deterministic.
func (e *Engine) splitPass(singles, poolAll []*domain.InvoiceRecord, singleSide domain.RecordSource, consumed map[string]bool, key string) []Outcome {
	var outcomes []Outcome
	for _, single := range singles {
		if consumed[single.ID.String()] {
			continue
		}
		pool := remaining(poolAll, consumed)
		group := e.bestGroup(single.TaxableValue, pool)
		if group == nil {
			continue
		}
		consumed[single.ID.String()] = true
		sum := decimal.Zero
		for _, rec := range group {
			consumed[rec.ID.String()] = true
			sum = sum.Add(rec.TaxableValue)
		}

		out := Outcome{
			Type:      domain.MatchSplit,
			Score:     splitConfidence(single.TaxableValue, sum),
			BucketKey: key,
		}
		if singleSide == domain.SourcePurchase {
			out.Purchases = []*domain.InvoiceRecord{single}
			out.Sales = group
		} else {
			out.Sales = []*domain.InvoiceRecord{single}
			out.Purchases = group
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// bestGroup finds the subset of pool (size 2..MaxSplitGroup) whose values sum
// closest to target within tolerance. The depth-first search walks the pool
// in its deterministic order, so ties resolve to the lexicographically first
// group.
func (e *Engine) bestGroup(target decimal.Decimal, pool []*domain.InvoiceRecord) []*domain.InvoiceRecord {
	maxDelta := target.Abs().Mul(e.tolerance)
	var best []*domain.InvoiceRecord
	bestDelta := decimal.Zero

	var walk func(start int, current []*domain.InvoiceRecord, sum decimal.Decimal)
	walk = func(start int, current []*domain.InvoiceRecord, sum decimal.Decimal) {
		if len(current) >= 2 {
			delta := target.Sub(sum).Abs()
			if delta.LessThanOrEqual(maxDelta) && (best == nil || delta.LessThan(bestDelta)) {
				best = append([]*domain.InvoiceRecord(nil), current...)
				bestDelta = delta
			}
		}
		if len(current) == e.opts.MaxSplitGroup {
			return
		}
		for i := start; i < len(pool); i++ {
			next := sum.Add(pool[i].TaxableValue)
			// All values on one side share sign in practice; prune once the
			// running sum overshoots beyond tolerance.
			if next.Sub(target).GreaterThan(maxDelta) && pool[i].TaxableValue.IsPositive() {
				continue
			}
			walk(i+1, append(current, pool[i]), next)
		}
	}
	walk(0, nil, decimal.Zero)
	return best
}

// splitConfidence maps the group-sum delta onto [0,1].
func splitConfidence(target, sum decimal.Decimal) float64 {
	if target.IsZero() {
		if sum.IsZero() {
			return 1.0
		}
		return 0.0
	}
	ratio, _ := target.Sub(sum).Abs().Div(target.Abs()).Float64()
	c := 1.0 - ratio
	if c < 0 {
		return 0.0
	}
	return c
}

// relativeDiff computes |a-b| / max(|a|,|b|); two zero values diff to zero.
func relativeDiff(a, b decimal.Decimal) decimal.Decimal {
	larger := decimal.Max(a.Abs(), b.Abs())
	if larger.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(larger)
}

// daysBetween returns the absolute whole-day difference between two dates.
func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// fieldDiffs records per-field differences for explainability.
func fieldDiffs(p, s *domain.InvoiceRecord) []domain.FieldDiff {
	var diffs []domain.FieldDiff
	if p.InvoiceNumber != s.InvoiceNumber {
		diffs = append(diffs, domain.FieldDiff{Field: "invoice_number", Purchase: p.InvoiceNumber, Sales: s.InvoiceNumber})
	}
	if !p.InvoiceDate.Equal(s.InvoiceDate) {
		diffs = append(diffs, domain.FieldDiff{
			Field: "invoice_date", Purchase: p.InvoiceDate.Format("2006-01-02"), Sales: s.InvoiceDate.Format("2006-01-02"),
		})
	}
	if !p.TaxableValue.Equal(s.TaxableValue) {
		diffs = append(diffs, domain.FieldDiff{Field: "taxable_value", Purchase: p.TaxableValue.String(), Sales: s.TaxableValue.String()})
	}
	if !p.TaxRate.Equal(s.TaxRate) {
		diffs = append(diffs, domain.FieldDiff{Field: "tax_rate", Purchase: p.TaxRate.String(), Sales: s.TaxRate.String()})
	}
	if !p.TaxAmount.Equal(s.TaxAmount) {
		diffs = append(diffs, domain.FieldDiff{Field: "tax_amount", Purchase: p.TaxAmount.String(), Sales: s.TaxAmount.String()})
	}
	return diffs
}

// remaining filters out consumed records, preserving order.
func remaining(recs []*domain.InvoiceRecord, consumed map[string]bool) []*domain.InvoiceRecord {
	var out []*domain.InvoiceRecord
	for _, r := range recs {
		if !consumed[r.ID.String()] {
			out = append(out, r)
		}
	}
	return out
}
