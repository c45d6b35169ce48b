package recon

// Options holds the tunable parameters of the matching engine. The defaults
// are deliberate approximations for OCR noise and filing-period skew; every
// one of them is exposed through configuration rather than hardcoded.
type Options struct {
	// DateWindowDays is the maximum invoice-date skew (in days) for a
	// purchase/sales pair to be considered at all.
	DateWindowDays int
	// ValueTolerancePct is the maximum relative taxable-value difference
	// (percent) for a pair or split group to be considered.
	ValueTolerancePct float64
	// ExactThreshold and FuzzyThreshold partition similarity scores in [0,1].
	ExactThreshold float64
	FuzzyThreshold float64
	// MaxBucketSize is the record count beyond which a bucket is flagged
	// oversized and matched with exact invoice-number pruning only.
	MaxBucketSize int
	// MaxSplitGroup caps the number of records on the many side of a SPLIT.
	MaxSplitGroup int
	// GSTINTopK caps the candidate buckets considered when re-homing a
	// low-confidence GSTIN record.
	GSTINTopK int
	// Workers bounds concurrent bucket processing within a run.
	Workers int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		DateWindowDays:    3,
		ValueTolerancePct: 1.0,
		ExactThreshold:    0.95,
		FuzzyThreshold:    0.65,
		MaxBucketSize:     500,
		MaxSplitGroup:     5,
		GSTINTopK:         3,
		Workers:           4,
	}
}

// Similarity weights. Exact invoice numbers are the strongest signal, so the
// invoice-number component dominates.
const (
	weightInvoiceNumber = 0.5
	weightDate          = 0.2
	weightTaxableValue  = 0.2
	weightTaxRate       = 0.1
)
