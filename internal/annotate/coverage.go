package annotate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vcf-annotator/internal/vcf"
)

// FORMAT keys read from each sample.
const (
	FormatDepth    = "DP" // total read depth
	FormatAltCount = "AO" // alternate allele observation count(s)
	FormatRefCount = "RO" // reference allele observation count
)

// ErrZeroDepth is returned when a sample has DP=0, which leaves the read
// percentages undefined.
var ErrZeroDepth = errors.New("zero read depth")

// FieldError reports a FORMAT value that cannot be used for coverage.
type FieldError struct {
	Sample string
	Field  string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("sample %s: %s=%q: %v", e.Sample, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// SampleCoverage holds the depth and read-support figures of one sample.
type SampleCoverage struct {
	Sample   string
	Depth    string   // DP as written in the input
	AltReads string   // AO as written in the input, one count per allele
	AltPerc  []string // AO_i / DP per allele
	RefPerc  string   // RO / DP
}

// ComputeCoverage derives depth and read percentages for one sample.
func ComputeCoverage(v *vcf.Variant, sample string) (*SampleCoverage, error) {
	values, ok := v.Sample(sample)
	if !ok {
		return nil, &FieldError{Sample: sample, Err: fmt.Errorf("%w: sample not parsed", vcf.ErrMalformed)}
	}

	dpRaw, err := field(values, sample, FormatDepth)
	if err != nil {
		return nil, err
	}
	aoRaw, err := field(values, sample, FormatAltCount)
	if err != nil {
		return nil, err
	}
	roRaw, err := field(values, sample, FormatRefCount)
	if err != nil {
		return nil, err
	}

	dp, err := parseCount(sample, FormatDepth, dpRaw)
	if err != nil {
		return nil, err
	}
	if dp == 0 {
		return nil, &FieldError{Sample: sample, Field: FormatDepth, Value: dpRaw, Err: ErrZeroDepth}
	}

	ro, err := parseCount(sample, FormatRefCount, roRaw)
	if err != nil {
		return nil, err
	}

	aos := strings.Split(aoRaw, ",")
	if len(aos) != len(v.Alt) {
		return nil, &FieldError{
			Sample: sample, Field: FormatAltCount, Value: aoRaw,
			Err: fmt.Errorf("%w: %d counts for %d alternate alleles", vcf.ErrMalformed, len(aos), len(v.Alt)),
		}
	}

	altPerc := make([]string, len(aos))
	for i, s := range aos {
		ao, err := parseCount(sample, FormatAltCount, s)
		if err != nil {
			return nil, err
		}
		altPerc[i] = FormatRounded(float64(ao) / float64(dp))
	}

	return &SampleCoverage{
		Sample:   sample,
		Depth:    dpRaw,
		AltReads: aoRaw,
		AltPerc:  altPerc,
		RefPerc:  FormatRounded(float64(ro) / float64(dp)),
	}, nil
}

func field(values map[string]string, sample, key string) (string, error) {
	s, ok := values[key]
	if !ok {
		return "", &FieldError{Sample: sample, Field: key, Err: fmt.Errorf("%w: FORMAT has no %s", vcf.ErrMalformed, key)}
	}
	return s, nil
}

func parseCount(sample, key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &FieldError{Sample: sample, Field: key, Value: s, Err: fmt.Errorf("%w: not an integer", vcf.ErrMalformed)}
	}
	return n, nil
}
