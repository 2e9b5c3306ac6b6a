package severity

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Excerpt of the CSV written by pandas when exporting the Ensembl table.
const pandasCSV = `,SO term,SO description,SO accession,Display term,IMPACT
0,transcript_ablation,"A feature ablation whereby the deleted region includes a transcript feature",SO:0001893,Transcript ablation,HIGH
1,splice_acceptor_variant,"A splice variant that changes the 2 base region at the 3' end of an intron",SO:0001574,Splice acceptor variant,HIGH
2,splice_donor_variant,"A splice variant that changes the 2 base region at the 5' end of an intron",SO:0001575,Splice donor variant,HIGH
3,stop_gained,"A sequence variant whereby at least one base of a codon is changed, resulting in a premature stop codon",SO:0001587,Stop gained,HIGH
10,missense_variant,"A sequence variant, that changes one or more bases, resulting in a different amino acid sequence",SO:0001583,Missense variant,MODERATE
16,synonymous_variant,"A sequence variant where there is no resulting change to the encoded amino acid",SO:0001819,Synonymous variant,LOW
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_PandasCSV(t *testing.T) {
	tbl, err := Load(writeFile(t, "sequence_ontology.csv", pandasCSV))
	require.NoError(t, err)

	assert.Equal(t, 6, tbl.Len())

	r, ok := tbl.Rank("missense_variant")
	require.True(t, ok)
	assert.Equal(t, 10, r)

	term, ok := tbl.Term(3)
	require.True(t, ok)
	assert.Equal(t, "stop_gained", term)
}

func TestLoad_TSV(t *testing.T) {
	tbl, err := Load(writeFile(t, "so.tsv", "score\tso_term\n0\tstop_gained\n1\tmissense_variant\n"))
	require.NoError(t, err)

	r, ok := tbl.Rank("missense_variant")
	require.True(t, ok)
	assert.Equal(t, 1, r)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "empty file"},
		{"no term column", "score,name\n0,stop_gained\n", "missing term column"},
		{"bad rank", "score,so_term\nx,stop_gained\n", "invalid rank"},
		{"no rows", "score,so_term\n", "no entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "so.csv", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDefault(t *testing.T) {
	tbl := Default()
	assert.Equal(t, 36, tbl.Len())

	r, ok := tbl.Rank("transcript_ablation")
	require.True(t, ok)
	assert.Equal(t, 0, r)

	r, ok = tbl.Rank("intergenic_variant")
	require.True(t, ok)
	assert.Equal(t, 35, r)
}

func TestMostSevere(t *testing.T) {
	tbl := Default()

	tests := []struct {
		name   string
		terms  []string
		want   string
		wantOK bool
	}{
		{"single", []string{"missense_variant"}, "missense_variant", true},
		{"picks lowest rank", []string{"intron_variant", "stop_gained", "missense_variant"}, "stop_gained", true},
		{"ignores unknown", []string{"not_a_term", "synonymous_variant"}, "synonymous_variant", true},
		{"rank zero", []string{"upstream_gene_variant", "transcript_ablation"}, "transcript_ablation", true},
		{"none known", []string{"not_a_term"}, "", false},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tbl.MostSevere(tt.terms)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMostSevere_DuplicateRank(t *testing.T) {
	// The reported term is whatever the rank maps back to.
	tbl := New([]Entry{{Rank: 1, Term: "a"}, {Rank: 1, Term: "b"}})
	got, ok := tbl.MostSevere([]string{"a"})
	require.True(t, ok)
	assert.Equal(t, "b", got)
}

func TestWriteTSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().WriteTSV(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "score\tso_term", lines[0])
	assert.Equal(t, "0\ttranscript_ablation", lines[1])
	assert.Len(t, lines, 37)

	tbl, err := Load(writeFile(t, "so.tsv", buf.String()))
	require.NoError(t, err)
	assert.Equal(t, Default().Entries(), tbl.Entries())
}
