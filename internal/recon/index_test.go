package recon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

func TestBuildIndex_PartitionsByGSTINAndPeriod(t *testing.T) {
	recs := []*domain.InvoiceRecord{
		record(domain.SourcePurchase, gstinA, "INV001", date(5), 1000, 18, "p1"),
		record(domain.SourcePurchase, gstinA, "INV002", date(6), 2000, 18, "p2"),
		record(domain.SourceSales, gstinA, "INV001", date(5), 1000, 18, "s1"),
		record(domain.SourcePurchase, "29ABCDE1234F1ZW", "INV009", date(7), 500, 5, "p3"),
	}

	ix := BuildIndex(recs, DefaultOptions())
	buckets := ix.Buckets()
	require.Len(t, buckets, 2)

	// Key order is sorted, so the 27-prefixed bucket comes first.
	assert.Equal(t, gstinA+"|2024-04", buckets[0].Key())
	assert.Equal(t, "29ABCDE1234F1ZW|2024-04", buckets[1].Key())
	assert.Len(t, buckets[0].Purchases, 2)
	assert.Len(t, buckets[0].Sales, 1)

	total := 0
	for _, b := range buckets {
		total += b.Size()
	}
	assert.Equal(t, len(recs), total)
}

func TestBuildIndex_SortsBucketContents(t *testing.T) {
	recs := []*domain.InvoiceRecord{
		record(domain.SourcePurchase, gstinA, "INV003", date(5), 1000, 18, "p3"),
		record(domain.SourcePurchase, gstinA, "INV001", date(5), 1000, 18, "p1"),
		record(domain.SourcePurchase, gstinA, "INV001", date(5), 1000, 18, "p0"),
	}

	buckets := BuildIndex(recs, DefaultOptions()).Buckets()
	require.Len(t, buckets, 1)
	got := buckets[0].Purchases
	assert.Equal(t, "p0", got[0].RawProvenanceID)
	assert.Equal(t, "p1", got[1].RawProvenanceID)
	assert.Equal(t, "p3", got[2].RawProvenanceID)
}

func TestBuildIndex_RecoversStrandedLowConfidenceGSTIN(t *testing.T) {
	// "27AAPFU0939F1Z0" is one edit away from a bucket that has sales
	// records; its own bucket has no counterparty side at all.
	misread := record(domain.SourcePurchase, "27AAPFU0939F1Z0", "INV001", date(5), 1000, 18, "p1")
	misread.LowConfidenceGSTIN = true

	recs := []*domain.InvoiceRecord{
		misread,
		record(domain.SourceSales, gstinA, "INV001", date(5), 1000, 18, "s1"),
	}

	buckets := BuildIndex(recs, DefaultOptions()).Buckets()
	require.Len(t, buckets, 1)
	b := buckets[0]
	assert.Equal(t, gstinA, b.GSTIN)
	require.Len(t, b.Purchases, 1)
	assert.Equal(t, "27AAPFU0939F1Z0", b.RecoveredFrom[misread.ID.String()])
}

func TestBuildIndex_DoesNotRecoverHighConfidenceRecords(t *testing.T) {
	recs := []*domain.InvoiceRecord{
		record(domain.SourcePurchase, "27AAPFU0939F1Z0", "INV001", date(5), 1000, 18, "p1"),
		record(domain.SourceSales, gstinA, "INV001", date(5), 1000, 18, "s1"),
	}

	buckets := BuildIndex(recs, DefaultOptions()).Buckets()
	assert.Len(t, buckets, 2)
}

func TestBuildIndex_DoesNotRecoverAcrossDistanceTwo(t *testing.T) {
	misread := record(domain.SourcePurchase, "27AAPFU0939F1XX", "INV001", date(5), 1000, 18, "p1")
	misread.LowConfidenceGSTIN = true

	recs := []*domain.InvoiceRecord{
		misread,
		record(domain.SourceSales, gstinA, "INV001", date(5), 1000, 18, "s1"),
	}

	buckets := BuildIndex(recs, DefaultOptions()).Buckets()
	assert.Len(t, buckets, 2)
}

func TestBuildIndex_FlagsOversizedBuckets(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBucketSize = 3

	recs := []*domain.InvoiceRecord{
		record(domain.SourcePurchase, gstinA, "INV001", date(5), 1000, 18, "p1"),
		record(domain.SourcePurchase, gstinA, "INV002", date(5), 2000, 18, "p2"),
		record(domain.SourceSales, gstinA, "INV001", date(5), 1000, 18, "s1"),
		record(domain.SourceSales, gstinA, "INV002", date(5), 2000, 18, "s2"),
	}

	buckets := BuildIndex(recs, opts).Buckets()
	require.Len(t, buckets, 1)
	assert.True(t, buckets[0].Oversized)
}

func TestMatchBucket_OversizedUsesExactInvoicePairsOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxBucketSize = 3

	recs := []*domain.InvoiceRecord{
		record(domain.SourcePurchase, gstinA, "INV001", date(5), 1000, 18, "p1"),
		record(domain.SourcePurchase, gstinA, "INV002", date(5), 2000, 18, "p2"),
		record(domain.SourceSales, gstinA, "INV001", date(5), 1000, 18, "s1"),
		record(domain.SourceSales, gstinA, "INV003", date(5), 2000, 18, "s2"),
	}

	buckets := BuildIndex(recs, opts).Buckets()
	require.Len(t, buckets, 1)

	outcomes := NewEngine(opts).MatchBucket(buckets[0])

	byType := make(map[domain.MatchType]int)
	for _, o := range outcomes {
		byType[o.Type]++
	}
	// INV001 pairs exactly; INV002 vs INV003 would match fuzzily in a
	// normal bucket but the pruning pass never compares them.
	assert.Equal(t, 1, byType[domain.MatchExact])
	assert.Equal(t, 0, byType[domain.MatchFuzzy])
	assert.Equal(t, 1, byType[domain.MatchUnmatchedPurchase])
	assert.Equal(t, 1, byType[domain.MatchUnmatchedSales])
}
