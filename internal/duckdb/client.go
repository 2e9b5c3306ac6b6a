package duckdb

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vcf-annotator/internal/frequency"
)

// DefaultBatchSize is the number of fetched responses buffered before they
// are appended to the store.
const DefaultBatchSize = 500

// CachingClient serves lookups from a Store and falls back to another
// frequency.Client on a miss. Fetched responses are buffered and written in
// batches; call Close to write the remainder.
type CachingClient struct {
	store     *Store
	next      frequency.Client
	batchSize int
	logger    *zap.Logger

	mu      sync.Mutex
	pending []CachedResponse
	known   map[string]bool // IDs buffered or written this session

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachingClient wraps next with the response cache in store.
func NewCachingClient(store *Store, next frequency.Client) *CachingClient {
	return &CachingClient{
		store:     store,
		next:      next,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
		known:     make(map[string]bool),
	}
}

// SetBatchSize sets how many fetched responses are buffered per write.
func (c *CachingClient) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	c.batchSize = n
}

// SetLogger sets the logger for cache read and write failures.
func (c *CachingClient) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Hits returns the number of lookups served from the cache.
func (c *CachingClient) Hits() int64 { return c.hits.Load() }

// Misses returns the number of lookups forwarded to the service.
func (c *CachingClient) Misses() int64 { return c.misses.Load() }

// Lookup implements frequency.Client. Cache read errors are logged and
// treated as misses. Only valid responses are cached.
func (c *CachingClient) Lookup(ctx context.Context, variantID string) (*frequency.Response, error) {
	resp, ok, err := c.store.LookupResponse(variantID)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("variant_id", variantID), zap.Error(err))
	}
	if ok {
		c.hits.Add(1)
		return resp, nil
	}

	c.misses.Add(1)
	resp, err = c.next.Lookup(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if resp.Validate() == nil {
		c.add(CachedResponse{VariantID: variantID, Response: resp, FetchedAt: time.Now()})
	}
	return resp, nil
}

func (c *CachingClient) add(r CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.known[r.VariantID] {
		return
	}
	c.known[r.VariantID] = true
	c.pending = append(c.pending, r)

	if len(c.pending) >= c.batchSize {
		if err := c.flushLocked(); err != nil {
			c.logger.Warn("cache write failed", zap.Error(err))
		}
	}
}

// Flush writes buffered responses to the store.
func (c *CachingClient) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *CachingClient) flushLocked() error {
	if len(c.pending) == 0 {
		return nil
	}
	batch := c.pending
	c.pending = nil
	return c.store.WriteResponses(batch)
}

// Close flushes buffered responses. The store stays open.
func (c *CachingClient) Close() error {
	return c.Flush()
}
