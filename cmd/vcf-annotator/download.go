package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/inodb/vcf-annotator/internal/severity"
)

const defaultSeverityFile = "sequence_ontology.tsv"

func newDownloadSeverityCmd() *cobra.Command {
	var (
		url     string
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "download-severity",
		Short: "Download the Ensembl consequence severity ranking",
		Long: `Scrape the Ensembl "calculated variant consequences" table and save it as
a tab-separated severity table (score, so_term) usable with --severity.
Rows keep the page order, most severe first.`,
		Example: `  vcf-annotator download-severity
  vcf-annotator download-severity --output ~/.vcf-annotator/severity.tsv
  vcf-annotator --severity ~/.vcf-annotator/severity.tsv --input_path input.vcf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownloadSeverity(cmd, url, outPath, force)
		},
	}

	cmd.Flags().StringVar(&url, "url", severity.EnsemblURL, "Ensembl consequence table page")
	cmd.Flags().StringVarP(&outPath, "output", "o", defaultSeverityFile, "Output TSV file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing output file")

	return cmd
}

func runDownloadSeverity(cmd *cobra.Command, url, destPath string, force bool) error {
	w := cmd.OutOrStdout()

	if info, err := os.Stat(destPath); err == nil && !force {
		fmt.Fprintf(w, "  %s already exists (%s), skipping (use --force to overwrite)\n",
			filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(w, "  Downloading %s...\n", url)

	client := &http.Client{Timeout: time.Minute}
	table, err := severity.Fetch(cmd.Context(), client, url)
	if err != nil {
		return fmt.Errorf("download severity table: %w", err)
	}

	n, err := writeFileAtomic(destPath, table.WriteTSV)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "    Done: %d terms, %s written to %s\n", table.Len(), formatSize(n), destPath)
	return nil
}

// writeFileAtomic writes through a temp file renamed into place. On error
// destPath is left untouched.
func writeFileAtomic(destPath string, write func(io.Writer) error) (int64, error) {
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	cw := &countingWriter{w: f}
	bw := bufio.NewWriter(cw)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write %s: %w", destPath, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename file: %w", err)
	}
	return cw.n, nil
}

// countingWriter tracks bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
