package annotate

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/vcf-annotator/internal/vcf"
)

// WorkItem holds one input line, with its parsed variant for data lines.
type WorkItem struct {
	Seq     int
	Line    *vcf.Line
	Variant *vcf.Variant // nil for non-data lines
}

// WorkResult holds the annotation output for a single input line.
type WorkResult struct {
	Seq     int
	Line    *vcf.Line
	Variant *vcf.Variant
	Row     *Row // nil for non-data lines
	Err     error
}

// ParallelAnnotate annotates the data lines among items on a pool of workers
// and passes other lines through untouched. Results arrive in completion
// order; OrderedCollect restores input order. Once ctx is cancelled the
// remaining data lines fail with the context error instead of being looked up.
// If workers is 0, runtime.NumCPU() is used.
func (a *Annotator) ParallelAnnotate(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res := WorkResult{Seq: item.Seq, Line: item.Line, Variant: item.Variant}
				switch {
				case item.Variant == nil:
				case ctx.Err() != nil:
					res.Err = ctx.Err()
				default:
					res.Row, res.Err = a.Annotate(ctx, item.Variant)
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect hands results to emit in input line order. Lines that
// finish ahead of their turn wait in a reorder buffer. After emit fails the
// rest of results is discarded so the workers can exit, and the error is
// returned once results is closed.
func OrderedCollect(results <-chan WorkResult, emit func(WorkResult) error) error {
	waiting := make(map[int]WorkResult)
	next := 0

	var err error
	for res := range results {
		if err != nil {
			continue
		}
		waiting[res.Seq] = res
		for err == nil {
			ready, ok := waiting[next]
			if !ok {
				break
			}
			delete(waiting, next)
			next++
			err = emit(ready)
		}
	}
	return err
}
