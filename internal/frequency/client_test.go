package frequency

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantID(t *testing.T) {
	assert.Equal(t, "1-931393-G-T", VariantID("1", "931393", "G", "T"))
	assert.Equal(t, "X-100-CT-C", VariantID("X", "100", "CT", "C"))
}

func TestHTTPClient_Lookup(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"allele_freq": 0.00012345, "vep_annotations": [
			{"major_consequence": "intron_variant", "Gene": "ENSG1"},
			{"major_consequence": "missense_variant"}
		], "variant_id": "1-931393-G-T"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/rest/variant/variant/", 2)
	resp, err := c.Lookup(context.Background(), "1-931393-G-T")
	require.NoError(t, err)

	assert.Equal(t, "/rest/variant/variant/1-931393-G-T", gotPath.Load())
	require.NotNil(t, resp.AlleleFreq)
	assert.InDelta(t, 0.00012345, *resp.AlleleFreq, 1e-12)
	assert.Equal(t, []string{"intron_variant", "missense_variant"}, resp.Consequences())
}

func TestHTTPClient_Lookup_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"not found", http.StatusNotFound, "no such variant", "HTTP error 404"},
		{"bad json", http.StatusOK, "<html>", "decode response"},
		{"missing allele_freq", http.StatusOK, `{"vep_annotations": []}`, "missing allele_freq"},
		{"missing vep_annotations", http.StatusOK, `{"allele_freq": 0.1}`, "missing vep_annotations"},
		{"missing major_consequence", http.StatusOK, `{"allele_freq": 0.1, "vep_annotations": [{}]}`, "no major_consequence"},
		{"wrong type", http.StatusOK, `{"allele_freq": "high", "vep_annotations": []}`, "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL+"/", 0).Lookup(context.Background(), "1-1-A-T")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var le *LookupError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, "1-1-A-T", le.VariantID)
		})
	}
}

func TestHTTPClient_Lookup_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(srv.URL+"/", 1).Lookup(ctx, "1-1-A-T")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPClient_MaxInFlight(t *testing.T) {
	var current, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		w.Write([]byte(`{"allele_freq": 0, "vep_annotations": []}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", 2)
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := c.Lookup(context.Background(), "1-1-A-T")
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTPClient_SetHTTPClient(t *testing.T) {
	var calls atomic.Int32
	c := NewHTTPClient("http://frequency.invalid/variant/", 0)
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		assert.Equal(t, "/variant/2-1647894-TC-T", r.URL.Path)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"allele_freq": 0.25, "vep_annotations": [{"major_consequence": "frameshift_variant"}]}`)),
			Request:    r,
		}, nil
	})})

	resp, err := c.Lookup(context.Background(), "2-1647894-TC-T")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"frameshift_variant"}, resp.Consequences())
}

func TestResponse_Validate(t *testing.T) {
	require.NoError(t, NewResponse(0.5, []string{"stop_gained"}).Validate())
	require.NoError(t, NewResponse(0, nil).Validate())

	err := (&Response{}).Validate()
	assert.ErrorIs(t, err, ErrSchema)
	assert.True(t, strings.Contains(err.Error(), "allele_freq"))
}
