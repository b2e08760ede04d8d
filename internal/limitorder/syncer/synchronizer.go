package syncer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
	"github.com/finalex-labs/orderbook-client/pkg/metrics"
)

// DefaultFetchConcurrency bounds concurrent endpoint queries process-wide.
const DefaultFetchConcurrency = 3

// Filter selects order broadcast events by contract and maker.
type Filter struct {
	Contract common.Address
	Maker    common.Address
}

// EventSource reads broadcast events from one RPC endpoint. Implementations
// own their transport timeouts.
type EventSource interface {
	// Endpoint identifies the source; used for cache keys, logs and metrics.
	Endpoint() string
	FilterBroadcasts(ctx context.Context, filter Filter, fromBlock, toBlock uint64) ([]model.BroadcastRecord, error)
}

// fetchKey dedups queries per (endpoint, filter, range). A struct key avoids
// the collision ambiguity of concatenated strings.
type fetchKey struct {
	endpoint string
	contract common.Address
	maker    common.Address
	from     uint64
	to       uint64
}

// Synchronizer fetches broadcast events across redundant endpoints, racing
// them and resolving with the first success. Meant to be a single shared
// instance: its cache and limiter are the process-wide dedup and concurrency
// gates every tracker goes through.
type Synchronizer struct {
	sources []EventSource
	limiter *Limiter
	cache   *Cache[fetchKey, []model.BroadcastRecord]
	logger  *zap.Logger
}

// NewSynchronizer wires the given sources behind a shared limiter. The first
// source is the primary endpoint; the rest are alternates for the same chain.
func NewSynchronizer(sources []EventSource, limiter *Limiter, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		sources: sources,
		limiter: limiter,
		cache:   NewCache[fetchKey, []model.BroadcastRecord](),
		logger:  logger.Named("syncer"),
	}
}

// Fetch returns all broadcast events matching filter in [fromBlock, toBlock].
// Every source is queried concurrently, each behind the cache and the
// limiter; the first successful source wins. Individual endpoint failures are
// absorbed; only when all sources fail does the last failure propagate,
// wrapped as ErrEndpointUnavailable.
func (s *Synchronizer) Fetch(ctx context.Context, filter Filter, fromBlock, toBlock uint64) ([]model.BroadcastRecord, error) {
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("%w: no sources configured", model.ErrEndpointUnavailable)
	}

	type outcome struct {
		endpoint string
		records  []model.BroadcastRecord
		err      error
	}
	outcomes := make(chan outcome, len(s.sources))

	for _, src := range s.sources {
		go func(src EventSource) {
			key := fetchKey{
				endpoint: src.Endpoint(),
				contract: filter.Contract,
				maker:    filter.Maker,
				from:     fromBlock,
				to:       toBlock,
			}
			invoked := false
			records, err := s.cache.Do(ctx, key, func() ([]model.BroadcastRecord, error) {
				invoked = true
				metrics.CacheMisses.Inc()
				return Limit(ctx, s.limiter, func() ([]model.BroadcastRecord, error) {
					return src.FilterBroadcasts(ctx, filter, fromBlock, toBlock)
				})
			})
			if !invoked {
				metrics.CacheHits.Inc()
			}
			outcomes <- outcome{endpoint: src.Endpoint(), records: records, err: err}
		}(src)
	}

	var lastErr error
	for range s.sources {
		out := <-outcomes
		if out.err == nil {
			return out.records, nil
		}
		lastErr = out.err
		metrics.EndpointFailures.WithLabelValues(out.endpoint).Inc()
		s.logger.Warn("event fetch failed",
			zap.String("endpoint", out.endpoint),
			zap.Uint64("from_block", fromBlock),
			zap.Uint64("to_block", toBlock),
			zap.Error(out.err))
	}
	return nil, fmt.Errorf("%w: %v", model.ErrEndpointUnavailable, lastErr)
}
