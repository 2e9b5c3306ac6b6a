package annotate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vcf-annotator/internal/frequency"
	"github.com/inodb/vcf-annotator/internal/severity"
	"github.com/inodb/vcf-annotator/internal/vcf"
)

// Resolver defaults.
const (
	DefaultLookupTimeout = 5 * time.Second
	DefaultAlleleWorkers = 4
)

// ErrServiceUnavailable is returned once the configured number of
// consecutive lookups has failed.
var ErrServiceUnavailable = errors.New("frequency service unavailable")

// Resolver looks up allele frequency and most severe effect for each
// alternate allele of a variant.
type Resolver struct {
	client        frequency.Client
	table         *severity.Table
	timeout       time.Duration
	alleleWorkers int
	maxFailures   int64
	logger        *zap.Logger

	lookups     atomic.Int64
	failures    atomic.Int64
	consecutive atomic.Int64
}

// NewResolver creates a resolver using client for lookups and table for
// ranking consequences.
func NewResolver(client frequency.Client, table *severity.Table) *Resolver {
	return &Resolver{
		client:        client,
		table:         table,
		timeout:       DefaultLookupTimeout,
		alleleWorkers: DefaultAlleleWorkers,
		logger:        zap.NewNop(),
	}
}

// SetTimeout sets the per-request timeout. Zero disables it.
func (r *Resolver) SetTimeout(d time.Duration) {
	r.timeout = d
}

// SetAlleleWorkers bounds concurrent lookups for the alleles of one variant.
func (r *Resolver) SetAlleleWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.alleleWorkers = n
}

// SetMaxConsecutiveFailures makes Resolve fail with ErrServiceUnavailable
// after n lookups in a row have failed. Zero never escalates.
func (r *Resolver) SetMaxConsecutiveFailures(n int) {
	r.maxFailures = int64(n)
}

// SetLogger sets the logger for lookup failures.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Lookups returns the number of lookups issued so far.
func (r *Resolver) Lookups() int64 {
	return r.lookups.Load()
}

// Failures returns the number of lookups that fell back to the placeholder.
func (r *Resolver) Failures() int64 {
	return r.failures.Load()
}

// Resolve returns allele frequencies and effects index-aligned with v.Alt.
// A failed lookup yields Placeholder for both values of that allele only.
func (r *Resolver) Resolve(ctx context.Context, v *vcf.Variant) (freqs, effects []string, err error) {
	freqs = make([]string, len(v.Alt))
	effects = make([]string, len(v.Alt))

	resolve := func(ctx context.Context, i int) error {
		id := frequency.VariantID(v.Chrom, v.Pos, v.Ref, v.Alt[i])
		freq, effect, err := r.resolveAllele(ctx, id)
		if err != nil {
			freqs[i], effects[i] = Placeholder, Placeholder
			r.failures.Add(1)
			r.logger.Debug("frequency lookup failed",
				zap.String("variant_id", id),
				zap.Int("line", v.Line),
				zap.Error(err))
			if n := r.consecutive.Add(1); r.maxFailures > 0 && n >= r.maxFailures {
				return fmt.Errorf("%w: %d consecutive lookups failed, last: %v", ErrServiceUnavailable, n, err)
			}
			return nil
		}
		r.consecutive.Store(0)
		freqs[i], effects[i] = freq, effect
		return nil
	}

	if v.IsMultiAllelic() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.alleleWorkers)
		for i := range v.Alt {
			g.Go(func() error { return resolve(gctx, i) })
		}
		err = g.Wait()
	} else if len(v.Alt) == 1 {
		err = resolve(ctx, 0)
	}

	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return freqs, effects, nil
}

// resolveAllele performs one lookup. Any error leaves both outputs unset.
func (r *Resolver) resolveAllele(ctx context.Context, id string) (freq, effect string, err error) {
	r.lookups.Add(1)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.Lookup(ctx, id)
	if err != nil {
		return "", "", err
	}
	if err := resp.Validate(); err != nil {
		return "", "", &frequency.LookupError{VariantID: id, Err: err}
	}

	effect = Placeholder
	if term, ok := r.table.MostSevere(resp.Consequences()); ok {
		effect = term
	}
	return FormatRounded(*resp.AlleleFreq), effect, nil
}
