package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vcf-annotator/internal/annotate"
)

// infoColumn is the 0-based index of the INFO column in a VCF data line.
const infoColumn = 7

// VCFWriter writes the input back out as VCF with the derived values folded
// into the INFO column, one key per derived column.
type VCFWriter struct {
	w       *bufio.Writer
	columns []string
	known   map[string]bool
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer) *VCFWriter {
	return &VCFWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteLine copies a meta or blank line verbatim.
func (vw *VCFWriter) WriteLine(text string) error {
	_, err := vw.w.WriteString(text + "\n")
	return err
}

// WriteHeader inserts an ##INFO definition for each derived column before
// the #CHROM line.
func (vw *VCFWriter) WriteHeader(text string, columns []string) error {
	vw.columns = columns
	vw.known = make(map[string]bool, len(columns))
	for _, col := range columns {
		vw.known[col] = true
		if _, err := vw.w.WriteString(infoHeader(col) + "\n"); err != nil {
			return err
		}
	}
	_, err := vw.w.WriteString(text + "\n")
	return err
}

// WriteRow rewrites the INFO column of a data line to carry the derived values.
func (vw *VCFWriter) WriteRow(text string, row *annotate.Row) error {
	fields := strings.Split(text, "\t")
	if len(fields) <= infoColumn {
		return fmt.Errorf("vcf output: data line has %d columns, need at least %d", len(fields), infoColumn+1)
	}

	values := row.Values()
	if len(values) != len(vw.columns) {
		return fmt.Errorf("vcf output: %d values for %d columns", len(values), len(vw.columns))
	}

	var b strings.Builder
	b.Grow(len(fields[infoColumn]) + 24*len(values))
	b.WriteString(vw.stripDerived(fields[infoColumn]))
	for i, col := range vw.columns {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(col)
		b.WriteByte('=')
		b.WriteString(values[i])
	}
	fields[infoColumn] = b.String()

	_, err := vw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

// stripDerived drops INFO entries keyed by a derived column. "." becomes "".
func (vw *VCFWriter) stripDerived(info string) string {
	if info == "" || info == "." {
		return ""
	}

	var b strings.Builder
	for _, field := range strings.Split(info, ";") {
		key, _, _ := strings.Cut(field, "=")
		if vw.known[key] {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(field)
	}
	return b.String()
}

// infoHeader returns the ##INFO meta line describing one derived column.
func infoHeader(col string) string {
	number, typ, desc := "A", "String", col
	switch {
	case col == annotate.ColTypeVariation:
		desc = "Variant type per alternate allele"
	case col == annotate.ColVariationEffect:
		desc = "Most severe consequence per alternate allele"
	case col == annotate.ColAlleleFreq:
		desc = "Population allele frequency per alternate allele"
	case strings.HasPrefix(col, annotate.ColDepthPrefix):
		number, typ = "1", "Integer"
		desc = "Read depth of sample " + strings.TrimPrefix(col, annotate.ColDepthPrefix)
	case strings.HasPrefix(col, annotate.ColAltReadsPrefix):
		typ = "Integer"
		desc = "Reads supporting each alternate allele in sample " + strings.TrimPrefix(col, annotate.ColAltReadsPrefix)
	case strings.HasPrefix(col, annotate.ColAltPercPrefix):
		typ = "Float"
		desc = "Fraction of reads supporting each alternate allele in sample " + strings.TrimPrefix(col, annotate.ColAltPercPrefix)
	case strings.HasPrefix(col, annotate.ColRefPercPrefix):
		number, typ = "1", "Float"
		desc = "Fraction of reads supporting the reference allele in sample " + strings.TrimPrefix(col, annotate.ColRefPercPrefix)
	}
	return fmt.Sprintf("##INFO=<ID=%s,Number=%s,Type=%s,Description=\"%s\">", col, number, typ, desc)
}
