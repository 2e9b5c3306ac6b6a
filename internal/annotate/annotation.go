// Package annotate derives variant type, effect, coverage and allele
// frequency annotations for VCF records.
package annotate

// Column name prefixes for the derived columns.
const (
	ColTypeVariation   = "type_variation"
	ColVariationEffect = "variation_effect"
	ColAlleleFreq      = "allele_freq"

	ColDepthPrefix    = "depth_coverage_"
	ColAltReadsPrefix = "n_reads_var_"
	ColAltPercPrefix  = "perc_var_"
	ColRefPercPrefix  = "perc_ref_"
)

// DefaultSamples are the sample columns annotated when none are configured.
var DefaultSamples = []string{"normal", "vaf5"}

// Columns returns the derived column names for the given samples, in output order.
func Columns(samples []string) []string {
	cols := make([]string, 0, 3+4*len(samples))
	cols = append(cols, ColTypeVariation, ColVariationEffect)
	for _, s := range samples {
		cols = append(cols, ColDepthPrefix+s)
	}
	for _, s := range samples {
		cols = append(cols, ColAltReadsPrefix+s)
	}
	for _, s := range samples {
		cols = append(cols, ColAltPercPrefix+s, ColRefPercPrefix+s)
	}
	return append(cols, ColAlleleFreq)
}

// Row holds the derived annotation of one data line.
type Row struct {
	Type        string           // INFO TYPE
	Effects     []string         // most severe effect per allele
	AlleleFreqs []string         // population allele frequency per allele
	Coverage    []SampleCoverage // one entry per annotated sample
}

// Values returns the derived values in the order given by Columns.
// Per-allele lists are comma-joined.
func (r *Row) Values() []string {
	vals := make([]string, 0, 3+4*len(r.Coverage))
	vals = append(vals, r.Type, joinOrPlaceholder(r.Effects))
	for _, c := range r.Coverage {
		vals = append(vals, c.Depth)
	}
	for _, c := range r.Coverage {
		vals = append(vals, c.AltReads)
	}
	for _, c := range r.Coverage {
		vals = append(vals, joinOrPlaceholder(c.AltPerc), c.RefPerc)
	}
	return append(vals, joinOrPlaceholder(r.AlleleFreqs))
}
