// Package severity provides the consequence severity ranking used to pick
// the most deleterious effect reported for an allele.
package severity

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Ensembl consequence ranking, most severe first.
//
//go:embed sequence_ontology.tsv
var defaultTable []byte

// Column names accepted for the rank and term columns. The empty name is the
// unnamed index column written by pandas DataFrame.to_csv.
var (
	rankColumns = []string{"score", "rank", ""}
	termColumns = []string{"so_term", "SO term", "term"}
)

// Table maps consequence terms to severity ranks and back.
// Lower rank means more severe. A Table is read-only after loading.
type Table struct {
	termToRank map[string]int
	rankToTerm map[int]string
}

// Entry is one (rank, term) pair of a severity table.
type Entry struct {
	Rank int
	Term string
}

// New builds a table from entries. Later entries win on duplicate keys.
func New(entries []Entry) *Table {
	t := &Table{
		termToRank: make(map[string]int, len(entries)),
		rankToTerm: make(map[int]string, len(entries)),
	}
	for _, e := range entries {
		t.termToRank[e.Term] = e.Rank
		t.rankToTerm[e.Rank] = e.Term
	}
	return t
}

// Default returns the built-in Ensembl ranking (36 terms, ranks 0-35).
func Default() *Table {
	t, err := parse(bytes.NewReader(defaultTable), '\t')
	if err != nil {
		panic(fmt.Sprintf("severity: built-in table: %v", err))
	}
	return t
}

// Load reads a severity table from a CSV or TSV file. Files ending in .tsv
// or .txt are tab-separated, everything else is comma-separated.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open severity table: %w", err)
	}
	defer f.Close()

	sep := ','
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		sep = '\t'
	}

	t, err := parse(f, sep)
	if err != nil {
		return nil, fmt.Errorf("severity table %s: %w", path, err)
	}
	return t, nil
}

// parse reads a header row, locates the rank and term columns and builds a Table.
func parse(r io.Reader, sep rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	rankIdx := findColumn(header, rankColumns)
	if rankIdx < 0 {
		return nil, fmt.Errorf("missing rank column (one of %q)", rankColumns)
	}
	termIdx := findColumn(header, termColumns)
	if termIdx < 0 {
		return nil, fmt.Errorf("missing term column (one of %q)", termColumns)
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) <= rankIdx || len(rec) <= termIdx {
			continue
		}
		term := strings.TrimSpace(rec[termIdx])
		if term == "" {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSpace(rec[rankIdx]))
		if err != nil {
			return nil, fmt.Errorf("invalid rank %q for term %s", rec[rankIdx], term)
		}
		if rank < 0 {
			return nil, fmt.Errorf("negative rank %d for term %s", rank, term)
		}
		entries = append(entries, Entry{Rank: rank, Term: term})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries")
	}
	return New(entries), nil
}

// findColumn returns the index of the first header column matching any of names.
func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, col := range header {
			if strings.TrimSpace(col) == name {
				return i
			}
		}
	}
	return -1
}

// Rank returns the severity rank of a term.
func (t *Table) Rank(term string) (int, bool) {
	r, ok := t.termToRank[term]
	return r, ok
}

// Term returns the term registered for a rank.
func (t *Table) Term(rank int) (string, bool) {
	term, ok := t.rankToTerm[rank]
	return term, ok
}

// Len returns the number of terms in the table.
func (t *Table) Len() int {
	return len(t.termToRank)
}

// Entries returns the table contents ordered by rank.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.rankToTerm))
	for rank, term := range t.rankToTerm {
		entries = append(entries, Entry{Rank: rank, Term: term})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries
}

// MostSevere returns the term for the lowest rank among the known terms.
// Unknown terms are ignored; ok is false when none of the terms is known.
func (t *Table) MostSevere(terms []string) (string, bool) {
	best, found := 0, false
	for _, term := range terms {
		r, ok := t.termToRank[term]
		if !ok {
			continue
		}
		if !found || r < best {
			best, found = r, true
		}
	}
	if !found {
		return "", false
	}
	return t.Term(best)
}

// WriteTSV writes the table as a two-column TSV readable by Load.
func (t *Table) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"score", "so_term"}); err != nil {
		return err
	}
	for _, e := range t.Entries() {
		if err := cw.Write([]string{strconv.Itoa(e.Rank), e.Term}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
