package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/inodb/vcf-annotator/internal/annotate"
)

const vcfHeader = "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tnormal\tvaf5"

func testRow() *annotate.Row {
	return &annotate.Row{
		Type:        "snp",
		Effects:     []string{"missense_variant"},
		AlleleFreqs: []string{"0.0012"},
		Coverage: []annotate.SampleCoverage{
			{Sample: "normal", Depth: "10", AltReads: "3", AltPerc: []string{"0.3"}, RefPerc: "0.7"},
			{Sample: "vaf5", Depth: "20", AltReads: "5", AltPerc: []string{"0.25"}, RefPerc: "0.75"},
		},
	}
}

func TestVCFWriter_Header(t *testing.T) {
	var buf bytes.Buffer
	w := NewVCFWriter(&buf)
	if err := w.WriteLine("##fileformat=VCFv4.1"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteHeader(vcfHeader, annotate.Columns(annotate.DefaultSamples)); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "##fileformat=VCFv4.1" {
		t.Errorf("first line = %q, want ##fileformat=VCFv4.1", lines[0])
	}
	if got, want := len(lines), 1+11+1; got != want {
		t.Fatalf("got %d lines, want %d", got, want)
	}
	if lines[len(lines)-1] != vcfHeader {
		t.Errorf("#CHROM line changed: %q", lines[len(lines)-1])
	}

	for _, line := range lines[1 : len(lines)-1] {
		if !strings.HasPrefix(line, "##INFO=<ID=") {
			t.Errorf("expected INFO definition, got %q", line)
		}
	}
	if !strings.Contains(lines[3], "ID=depth_coverage_normal,Number=1,Type=Integer") {
		t.Errorf("depth INFO line = %q", lines[3])
	}
	if !strings.Contains(lines[11], "ID=allele_freq,Number=A,Type=String") {
		t.Errorf("allele_freq INFO line = %q", lines[11])
	}
}

func TestVCFWriter_Row(t *testing.T) {
	tests := []struct {
		name string
		info string
		want string
	}{
		{"missing INFO", ".", ""},
		{"keeps INFO", "DP=30;TYPE=snp", "DP=30;TYPE=snp;"},
		{"replaces derived keys", "DP=30;allele_freq=0.9;TYPE=snp", "DP=30;TYPE=snp;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewVCFWriter(&buf)
			if err := w.WriteHeader(vcfHeader, annotate.Columns(annotate.DefaultSamples)); err != nil {
				t.Fatal(err)
			}

			line := "1\t100\t.\tG\tA\t50\t.\t" + tt.info + "\tGT:DP\t0/1:10\t0/1:20"
			if err := w.WriteRow(line, testRow()); err != nil {
				t.Fatal(err)
			}
			if err := w.Flush(); err != nil {
				t.Fatal(err)
			}
			out := strings.TrimRight(buf.String(), "\n")
			out = out[strings.LastIndex(out, "\n")+1:]

			fields := strings.Split(out, "\t")
			if len(fields) != 11 {
				t.Fatalf("got %d columns, want 11", len(fields))
			}
			wantInfo := tt.want + "type_variation=snp;variation_effect=missense_variant;" +
				"depth_coverage_normal=10;depth_coverage_vaf5=20;n_reads_var_normal=3;n_reads_var_vaf5=5;" +
				"perc_var_normal=0.3;perc_ref_normal=0.7;perc_var_vaf5=0.25;perc_ref_vaf5=0.75;allele_freq=0.0012"
			if fields[7] != wantInfo {
				t.Errorf("INFO = %q\nwant   %q", fields[7], wantInfo)
			}
			if fields[9] != "0/1:10" || fields[10] != "0/1:20" {
				t.Errorf("sample columns changed: %v", fields[8:])
			}
		})
	}
}

func TestVCFWriter_ShortLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewVCFWriter(&buf)
	if err := w.WriteHeader(vcfHeader, annotate.Columns(annotate.DefaultSamples)); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRow("1\t100\t.\tG", testRow()); err == nil {
		t.Error("expected error for short data line")
	}
}
