// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vcf-annotator/internal/annotate"
)

// TabWriter writes the input lines back out with the derived columns
// appended, tab-separated.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteLine copies a meta or blank line verbatim.
func (tw *TabWriter) WriteLine(text string) error {
	_, err := tw.w.WriteString(text + "\n")
	return err
}

// WriteHeader writes the original column header followed by the derived column names.
func (tw *TabWriter) WriteHeader(text string, columns []string) error {
	return tw.writeJoined(text, columns)
}

// WriteRow writes the original data line followed by the derived values.
func (tw *TabWriter) WriteRow(text string, row *annotate.Row) error {
	return tw.writeJoined(text, row.Values())
}

func (tw *TabWriter) writeJoined(text string, extra []string) error {
	var lb strings.Builder
	lb.Grow(len(text) + 16*len(extra))
	lb.WriteString(text)
	for _, v := range extra {
		lb.WriteByte('\t')
		lb.WriteString(v)
	}
	lb.WriteByte('\n')
	_, err := tw.w.WriteString(lb.String())
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
