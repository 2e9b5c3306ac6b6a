package vcf

import (
	"fmt"
	"strings"
)

// Columns every annotated VCF must provide besides the sample columns.
const (
	ColChrom  = "CHROM"
	ColPos    = "POS"
	ColID     = "ID"
	ColRef    = "REF"
	ColAlt    = "ALT"
	ColInfo   = "INFO"
	ColFormat = "FORMAT"
)

var requiredColumns = []string{ColChrom, ColPos, ColID, ColRef, ColAlt, ColInfo, ColFormat}

// Header holds the column layout captured from the #CHROM line.
type Header struct {
	Columns []string // column names in file order, leading '#' removed
	Samples []string // sample columns decomposed with FORMAT

	index map[string]int
}

// ParseHeader parses the single-'#' column header line. samples names the
// sample columns that will be zipped with FORMAT for every data line; each
// must be present in the header.
func ParseHeader(lineNumber int, text string, samples []string) (*Header, error) {
	text = strings.TrimLeft(text, "#")
	if text == "" {
		return nil, &ParseError{Line: lineNumber, Message: "empty column header"}
	}

	h := &Header{
		Columns: strings.Split(text, "\t"),
		Samples: samples,
		index:   make(map[string]int),
	}
	for i, col := range h.Columns {
		if _, dup := h.index[col]; dup {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("duplicate column %q", col)}
		}
		h.index[col] = i
	}

	for _, col := range requiredColumns {
		if _, ok := h.index[col]; !ok {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("missing required column %s", col)}
		}
	}
	for _, s := range samples {
		if _, ok := h.index[s]; !ok {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("missing sample column %s", s)}
		}
	}

	return h, nil
}

// Parse parses one tab-separated data line into a Variant.
func (h *Header) Parse(lineNumber int, line string) (*Variant, error) {
	values := strings.Split(line, "\t")
	if len(values) != len(h.Columns) {
		return nil, &ParseError{
			Line:    lineNumber,
			Message: fmt.Sprintf("expected %d columns, found %d", len(h.Columns), len(values)),
		}
	}

	fields := make(map[string]string, len(values))
	for i, col := range h.Columns {
		fields[col] = values[i]
	}

	info, err := parseInfo(fields[ColInfo])
	if err != nil {
		return nil, &ParseError{Line: lineNumber, Message: err.Error()}
	}
	if _, ok := info["TYPE"]; !ok {
		return nil, &ParseError{Line: lineNumber, Message: "INFO has no TYPE entry"}
	}

	alt := fields[ColAlt]
	if alt == "" {
		return nil, &ParseError{Line: lineNumber, Message: "empty ALT"}
	}

	v := &Variant{
		Line:       lineNumber,
		Chrom:      fields[ColChrom],
		Pos:        fields[ColPos],
		ID:         fields[ColID],
		Ref:        fields[ColRef],
		Alt:        strings.Split(alt, ","),
		Info:       info,
		FormatKeys: strings.Split(fields[ColFormat], ":"),
		Samples:    make(map[string]map[string]string, len(h.Samples)),
		Fields:     fields,
	}

	for _, name := range h.Samples {
		sample, err := zip(v.FormatKeys, strings.Split(fields[name], ":"))
		if err != nil {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("sample %s: %v", name, err)}
		}
		v.Samples[name] = sample
	}

	return v, nil
}

// parseInfo parses the INFO field into a map. Every token must be key=value.
func parseInfo(info string) (map[string]string, error) {
	result := make(map[string]string)
	for _, kv := range strings.Split(info, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.Contains(value, "=") {
			return nil, fmt.Errorf("INFO token %q is not a key=value pair", kv)
		}
		result[key] = value
	}
	return result, nil
}

// zip pairs keys with values and fails if the lengths differ.
func zip(keys, values []string) (map[string]string, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("FORMAT has %d keys but sample has %d values", len(keys), len(values))
	}
	m := make(map[string]string, len(keys))
	for i, k := range keys {
		m[k] = values[i]
	}
	return m, nil
}
