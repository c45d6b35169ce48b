package recon

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/vedang-patil-23/Automating-GST-compliance-for-Indian-SMBs/internal/domain"
)

// Runner executes a reconciliation run: it buckets the input snapshot,
// matches buckets across a bounded worker pool, and aggregates the results.
// Runs share no mutable state, so independent (business, period) runs may
// execute fully in parallel.
type Runner struct {
	opts   Options
	engine *Engine
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts, engine: NewEngine(opts)}
}

// Run matches the input snapshot and builds a finalized run. The engine is
// purely in-memory; ctx carries the overall job deadline. Cancellation is
// checked between buckets: completed buckets keep their assignments, and a
// timed-out or canceled run is returned explicitly marked with the processed
// bucket keys so a retry can exclude them. The returned error is
// ErrRunTimeout or ErrRunCanceled alongside the partial run, or a
// conservation violation, which is always fatal.
func (r *Runner) Run(ctx context.Context, in RunInput) (*domain.ReconciliationRun, error) {
	all := make([]*domain.InvoiceRecord, 0, len(in.Purchases)+len(in.Sales))
	all = append(all, in.Purchases...)
	all = append(all, in.Sales...)
	index := BuildIndex(all, r.opts)
	buckets := index.Buckets()

	log.Printf("recon.Runner: run %s/%s: %d purchase, %d sales, %d buckets",
		in.BusinessGSTIN, in.Period, len(in.Purchases), len(in.Sales), len(buckets))

	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}

	// Per-bucket outputs land in slots indexed by bucket position, then are
	// merged in deterministic order afterwards: no bucket's output can be
	// lost or duplicated regardless of scheduling.
	outcomes := make([][]Outcome, len(buckets))
	processed := make([]bool, len(buckets))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				outcomes[i] = r.engine.MatchBucket(buckets[i])
				processed[i] = true
			}
		}()
	}

dispatch:
	for i := range buckets {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	var merged []Outcome
	var processedKeys, oversizedKeys []string
	snapshot := RunInput{
		BusinessGSTIN: in.BusinessGSTIN,
		Period:        in.Period,
		Excluded:      in.Excluded,
	}
	for i, b := range buckets {
		if !processed[i] {
			continue
		}
		merged = append(merged, outcomes[i]...)
		processedKeys = append(processedKeys, b.Key())
		if b.Oversized {
			oversizedKeys = append(oversizedKeys, b.Key())
		}
		snapshot.Purchases = append(snapshot.Purchases, b.Purchases...)
		snapshot.Sales = append(snapshot.Sales, b.Sales...)
	}

	status := domain.RunStatusCompleted
	failureReason := ""
	var runErr error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = domain.RunStatusFailed
		failureReason = domain.ErrRunTimeout.Error()
		runErr = domain.ErrRunTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		status = domain.RunStatusPartial
		failureReason = domain.ErrRunCanceled.Error()
		runErr = domain.ErrRunCanceled
	}

	run, err := BuildRun(snapshot, merged, processedKeys, oversizedKeys, status, failureReason)
	if err != nil {
		// Conservation violations indicate an engine bug; surface them over
		// any timeout signal.
		return nil, err
	}

	log.Printf("recon.Runner: run %s finished: status=%s, assignments=%d, discrepancies=%d, buckets=%d/%d",
		run.ID, run.Status, len(run.Assignments), len(run.Discrepancies), len(processedKeys), len(buckets))
	return run, runErr
}
