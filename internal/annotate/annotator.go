package annotate

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/inodb/vcf-annotator/internal/vcf"
)

// Annotator annotates VCF data lines with coverage and frequency information.
type Annotator struct {
	resolver *Resolver
	samples  []string
	workers  int
	logger   *zap.Logger
}

// NewAnnotator creates an annotator for the given sample columns.
// A nil or empty samples list selects DefaultSamples.
func NewAnnotator(resolver *Resolver, samples []string) *Annotator {
	if len(samples) == 0 {
		samples = DefaultSamples
	}
	return &Annotator{
		resolver: resolver,
		samples:  samples,
		workers:  runtime.NumCPU(),
		logger:   zap.NewNop(),
	}
}

// SetWorkers sets the number of data lines annotated concurrently.
// One worker processes lines strictly one after another.
func (a *Annotator) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	a.workers = n
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Samples returns the annotated sample columns.
func (a *Annotator) Samples() []string {
	return a.samples
}

// Columns returns the names of the derived columns.
func (a *Annotator) Columns() []string {
	return Columns(a.samples)
}

// Annotate computes the derived fields of one variant. Coverage errors are
// fatal; frequency lookup failures only produce placeholders.
func (a *Annotator) Annotate(ctx context.Context, v *vcf.Variant) (*Row, error) {
	row := &Row{
		Type:     v.Type(),
		Coverage: make([]SampleCoverage, 0, len(a.samples)),
	}

	for _, s := range a.samples {
		c, err := ComputeCoverage(v, s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", v.Line, err)
		}
		row.Coverage = append(row.Coverage, *c)
	}

	freqs, effects, err := a.resolver.Resolve(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", v.Line, err)
	}
	row.AlleleFreqs = freqs
	row.Effects = effects

	return row, nil
}

// AnnotateAll streams every line of r to w. Meta and blank lines are copied,
// the column header gains the derived column names and each data line gains
// its derived values. Output order always matches input order.
func (a *Annotator) AnnotateAll(ctx context.Context, r *vcf.Reader, w Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make(chan WorkItem, 2*a.workers)
	var readErr error

	go func() {
		defer close(items)
		var header *vcf.Header
		for seq := 0; ; seq++ {
			l, err := r.Next()
			if err != nil {
				readErr = fmt.Errorf("read input: %w", err)
				return
			}
			if l == nil {
				if header == nil {
					readErr = &vcf.ParseError{Line: r.LineNumber(), Message: "no #CHROM header line found"}
				}
				return
			}

			item := WorkItem{Seq: seq, Line: l}
			switch l.Kind {
			case vcf.LineHeader:
				if header != nil {
					readErr = &vcf.ParseError{Line: l.Number, Message: "duplicate column header line"}
					return
				}
				header, err = vcf.ParseHeader(l.Number, l.Text, a.samples)
				if err != nil {
					readErr = err
					return
				}
			case vcf.LineData:
				if header == nil {
					readErr = &vcf.ParseError{Line: l.Number, Message: "data line before #CHROM header line"}
					return
				}
				item.Variant, err = header.Parse(l.Number, l.Text)
				if err != nil {
					readErr = err
					return
				}
			}

			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := a.ParallelAnnotate(ctx, items, a.workers)

	columns := a.Columns()
	variantCount := 0
	collectErr := OrderedCollect(results, func(res WorkResult) error {
		var err error
		switch res.Line.Kind {
		case vcf.LineHeader:
			err = w.WriteHeader(res.Line.Text, columns)
		case vcf.LineData:
			if res.Err != nil {
				cancel()
				return res.Err
			}
			variantCount++
			err = w.WriteRow(res.Line.Text, res.Row)
		default:
			err = w.WriteLine(res.Line.Text)
		}
		if err != nil {
			cancel()
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	})

	flushErr := w.Flush()

	if collectErr != nil {
		return collectErr
	}
	if readErr != nil {
		return readErr
	}
	if flushErr != nil {
		return fmt.Errorf("flush output: %w", flushErr)
	}

	if variantCount == 0 {
		a.logger.Info("0 variants processed")
	} else {
		a.logger.Info("annotation complete",
			zap.Int("variants", variantCount),
			zap.Int64("lookups", a.resolver.Lookups()),
			zap.Int64("failed_lookups", a.resolver.Failures()))
	}

	return nil
}

// Writer defines the interface for writing annotated output.
type Writer interface {
	WriteLine(text string) error
	WriteHeader(text string, columns []string) error
	WriteRow(text string, row *Row) error
	Flush() error
}
