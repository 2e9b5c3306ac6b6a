package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vcf-annotator/internal/frequency"
)

// CachedResponse holds one validated service response keyed by variant ID.
type CachedResponse struct {
	VariantID string
	Response  *frequency.Response
	FetchedAt time.Time
}

// WriteResponses batch-inserts responses into DuckDB using the Appender API.
// Duplicate variant IDs within the batch are written once. Responses that
// fail validation are skipped.
func (s *Store) WriteResponses(responses []CachedResponse) error {
	if len(responses) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(responses))
	deduped := make([]CachedResponse, 0, len(responses))
	for _, r := range responses {
		if seen[r.VariantID] || r.Response == nil || r.Response.Validate() != nil {
			continue
		}
		seen[r.VariantID] = true
		deduped = append(deduped, r)
	}
	if len(deduped) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "frequency_responses")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		fetched := r.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		if err := appender.AppendRow(
			r.VariantID,
			*r.Response.AlleleFreq,
			strings.Join(r.Response.Consequences(), ","),
			fetched.UTC(),
		); err != nil {
			return fmt.Errorf("append response %s: %w", r.VariantID, err)
		}
	}

	return appender.Flush()
}

// LookupResponse returns the cached response for a variant ID.
// The bool result is false when nothing is cached.
func (s *Store) LookupResponse(variantID string) (*frequency.Response, bool, error) {
	var (
		af    float64
		terms string
	)
	err := s.db.QueryRow(`SELECT allele_freq, consequences
		FROM frequency_responses
		WHERE variant_id=?`, variantID).Scan(&af, &terms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query response %s: %w", variantID, err)
	}

	var consequences []string
	if terms != "" {
		consequences = strings.Split(terms, ",")
	}
	return frequency.NewResponse(af, consequences), true, nil
}

// CountResponses returns the number of cached responses.
func (s *Store) CountResponses() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT count(*) FROM frequency_responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

// ClearResponses removes all cached responses.
func (s *Store) ClearResponses() error {
	_, err := s.db.Exec("DELETE FROM frequency_responses")
	return err
}
