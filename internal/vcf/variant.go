// Package vcf provides VCF file parsing functionality.
package vcf

// Variant represents a single data row of a VCF file.
type Variant struct {
	Line       int                          // 1-based input line number
	Chrom      string                       // Chromosome name (e.g., "12", "chr12")
	Pos        string                       // Position as written in the file
	ID         string                       // Variant identifier (e.g., rs ID)
	Ref        string                       // Reference allele
	Alt        []string                     // Alternate alleles in ALT order
	Info       map[string]string            // INFO field key-value pairs
	FormatKeys []string                     // FORMAT field names, e.g. DP, AO, RO
	Samples    map[string]map[string]string // sample name -> FORMAT key -> value
	Fields     map[string]string            // raw value of every column by header name
}

// Type returns the INFO TYPE value (snp, ins, del, complex, ...).
func (v *Variant) Type() string {
	return v.Info["TYPE"]
}

// Sample returns the FORMAT values of a sample.
func (v *Variant) Sample(name string) (map[string]string, bool) {
	s, ok := v.Samples[name]
	return s, ok
}

// IsMultiAllelic returns true if the record has more than one alternate allele.
func (v *Variant) IsMultiAllelic() bool {
	return len(v.Alt) > 1
}

