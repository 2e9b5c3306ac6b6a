// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformed is wrapped by every error caused by input that does not match
// the expected VCF shape.
var ErrMalformed = errors.New("malformed record")

// LineKind classifies a raw input line.
type LineKind int

const (
	LineMeta   LineKind = iota // "##" meta-information line
	LineHeader                 // single "#" column header line
	LineData                   // variant record
	LineBlank                  // empty line
)

// Line is one raw input line with its classification.
type Line struct {
	Number int
	Kind   LineKind
	Text   string // line content without the trailing newline
}

// Reader reads raw lines from a VCF file.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
}

// NewReader opens a VCF file for line reading.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files; "-" reads stdin.
func NewReader(path string) (*Reader, error) {
	if path == "-" {
		return NewReaderFrom(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	r := &Reader{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	// Seek back to beginning
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReader(r.gzipReader)
	} else {
		r.reader = bufio.NewReader(file)
	}

	return r, nil
}

// NewReaderFrom creates a reader from an io.Reader (e.g., stdin).
func NewReaderFrom(rd io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(rd)}
}

// Next reads the next line. Returns nil, nil at end of input.
func (r *Reader) Next() (*Line, error) {
	text, err := r.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read line: %w", err)
	}
	if err == io.EOF && text == "" {
		return nil, nil
	}
	r.lineNumber++

	text = strings.TrimRight(text, "\r\n")

	l := &Line{Number: r.lineNumber, Text: text}
	switch {
	case strings.HasPrefix(text, "##"):
		l.Kind = LineMeta
	case strings.HasPrefix(text, "#"):
		l.Kind = LineHeader
	case text == "":
		l.Kind = LineBlank
	default:
		l.Kind = LineData
	}
	return l, nil
}

// LineNumber returns the number of the last line read.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *ParseError) Unwrap() error {
	return ErrMalformed
}
