package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vcf-annotator/internal/annotate"
	"github.com/inodb/vcf-annotator/internal/duckdb"
	"github.com/inodb/vcf-annotator/internal/frequency"
	"github.com/inodb/vcf-annotator/internal/output"
	"github.com/inodb/vcf-annotator/internal/severity"
	"github.com/inodb/vcf-annotator/internal/vcf"
)

// Annotation defaults.
const (
	defaultInputPath   = "Challenge_data_(1).vcf"
	defaultOutputPath  = "output.tsv"
	defaultMaxInFlight = 16

	serviceHTTPTimeout = 30 * time.Second
)

// annotateConfig holds the resolved settings of one annotation run.
type annotateConfig struct {
	InputPath              string
	OutputPath             string
	OutputFormat           string
	SeverityPath           string
	BaseURL                string
	CachePath              string
	Samples                []string
	Workers                int
	AlleleWorkers          int
	MaxInFlight            int
	MaxConsecutiveFailures int
	Timeout                time.Duration
}

func addAnnotateFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("input_path", defaultInputPath, "Input VCF file, plain or gzipped ('-' for stdin)")
	f.String("output_path", defaultOutputPath, "Output file ('-' for stdout)")
	f.StringP("output-format", "f", "tab", "Output format: tab, vcf")
	f.String("severity", "", "Severity table (CSV or TSV); built-in Ensembl ranking if empty")
	f.String("base-url", frequency.DefaultBaseURL, "Variant frequency service base URL")
	f.String("cache", "", "DuckDB file caching service responses (disabled if empty)")
	f.StringSlice("samples", annotate.DefaultSamples, "Sample columns to annotate")
	f.Int("workers", runtime.NumCPU(), "Number of data lines annotated concurrently")
	f.Int("allele-workers", annotate.DefaultAlleleWorkers, "Concurrent lookups per multi-allelic line")
	f.Int("max-in-flight", defaultMaxInFlight, "Maximum concurrent service requests (0 for unbounded)")
	f.Int("max-consecutive-failures", 0, "Abort after this many lookups fail in a row (0 never aborts)")
	f.Duration("timeout", annotate.DefaultLookupTimeout, "Per-request timeout for the frequency service")
}

// bindFlags makes every flag readable through viper. Dashes in flag names
// become underscores in config keys.
func bindFlags(fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Name == "config" || f.Name == "help" {
			return
		}
		err = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// listSetting reads a list-valued key. Values from the environment or a
// hand-written config file arrive as one string and are split on commas.
func listSetting(key string) []string {
	var out []string
	for _, v := range viper.GetStringSlice(key) {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func loadAnnotateConfig() (annotateConfig, error) {
	cfg := annotateConfig{
		InputPath:              viper.GetString("input_path"),
		OutputPath:             viper.GetString("output_path"),
		OutputFormat:           viper.GetString("output_format"),
		SeverityPath:           viper.GetString("severity"),
		BaseURL:                viper.GetString("base_url"),
		CachePath:              viper.GetString("cache"),
		Samples:                listSetting("samples"),
		Workers:                viper.GetInt("workers"),
		AlleleWorkers:          viper.GetInt("allele_workers"),
		MaxInFlight:            viper.GetInt("max_in_flight"),
		MaxConsecutiveFailures: viper.GetInt("max_consecutive_failures"),
		Timeout:                viper.GetDuration("timeout"),
	}

	switch {
	case cfg.InputPath == "":
		return cfg, errors.New("--input_path must not be empty")
	case cfg.OutputPath == "":
		return cfg, errors.New("--output_path must not be empty")
	case cfg.OutputFormat != "tab" && cfg.OutputFormat != "vcf":
		return cfg, fmt.Errorf("unknown output format %q (want tab or vcf)", cfg.OutputFormat)
	case cfg.BaseURL == "":
		return cfg, errors.New("--base-url must not be empty")
	case len(cfg.Samples) == 0:
		return cfg, errors.New("--samples must name at least one sample column")
	case cfg.Workers < 1:
		return cfg, fmt.Errorf("--workers must be at least 1, got %d", cfg.Workers)
	case cfg.AlleleWorkers < 1:
		return cfg, fmt.Errorf("--allele-workers must be at least 1, got %d", cfg.AlleleWorkers)
	case cfg.MaxConsecutiveFailures < 0:
		return cfg, fmt.Errorf("--max-consecutive-failures must not be negative, got %d", cfg.MaxConsecutiveFailures)
	case cfg.Timeout < 0:
		return cfg, fmt.Errorf("--timeout must not be negative, got %s", cfg.Timeout)
	}
	return cfg, nil
}

// runAnnotate opens every resource before the first row is written, then
// streams the input through the annotator.
func runAnnotate(ctx context.Context, cfg annotateConfig, stdout io.Writer, logger *zap.Logger) error {
	table := severity.Default()
	if cfg.SeverityPath != "" {
		var err error
		table, err = severity.Load(cfg.SeverityPath)
		if err != nil {
			return fmt.Errorf("load severity table: %w", err)
		}
		logger.Info("loaded severity table", zap.String("path", cfg.SeverityPath), zap.Int("terms", table.Len()))
	}

	reader, err := vcf.NewReader(cfg.InputPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	out := stdout
	if cfg.OutputPath != "-" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	service := frequency.NewHTTPClient(cfg.BaseURL, cfg.MaxInFlight)
	service.SetHTTPClient(newServiceHTTPClient(cfg.MaxInFlight))
	var client frequency.Client = service
	if cfg.CachePath != "" {
		store, err := duckdb.Open(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open response cache: %w", err)
		}
		defer store.Close()

		cleared, err := store.EnsureSource(cfg.BaseURL)
		if err != nil {
			return fmt.Errorf("open response cache: %w", err)
		}
		if cleared {
			logger.Info("cleared response cache fetched from a different service", zap.String("path", store.Path()))
		}

		cc := duckdb.NewCachingClient(store, client)
		cc.SetLogger(logger)
		defer func() {
			if err := cc.Close(); err != nil {
				logger.Warn("could not write response cache", zap.Error(err))
			}
			logger.Info("response cache",
				zap.String("path", store.Path()),
				zap.Int64("hits", cc.Hits()),
				zap.Int64("misses", cc.Misses()))
		}()
		client = cc
	}

	resolver := annotate.NewResolver(client, table)
	resolver.SetTimeout(cfg.Timeout)
	resolver.SetAlleleWorkers(cfg.AlleleWorkers)
	resolver.SetMaxConsecutiveFailures(cfg.MaxConsecutiveFailures)
	resolver.SetLogger(logger)

	ann := annotate.NewAnnotator(resolver, cfg.Samples)
	ann.SetWorkers(cfg.Workers)
	ann.SetLogger(logger)

	logger.Debug("annotating",
		zap.String("input", cfg.InputPath),
		zap.String("output", cfg.OutputPath),
		zap.Strings("samples", ann.Samples()),
		zap.Int("workers", cfg.Workers))

	var writer annotate.Writer = output.NewTabWriter(out)
	if cfg.OutputFormat == "vcf" {
		writer = output.NewVCFWriter(out)
	}

	return ann.AnnotateAll(ctx, reader, writer)
}

// newServiceHTTPClient keeps up to maxInFlight idle connections to the
// frequency service so concurrent lookups reuse them.
func newServiceHTTPClient(maxInFlight int) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if maxInFlight > 0 {
		t.MaxIdleConns = maxInFlight
		t.MaxIdleConnsPerHost = maxInFlight
		t.MaxConnsPerHost = maxInFlight
	}
	return &http.Client{Transport: t, Timeout: serviceHTTPTimeout}
}
