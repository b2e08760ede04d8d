package tracker

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/reconcile"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/syncer"
	"github.com/finalex-labs/orderbook-client/pkg/metrics"
)

// DefaultInterval is the resynchronization period.
const DefaultInterval = 5 * time.Second

// EventFeed supplies broadcast events; satisfied by syncer.Synchronizer.
type EventFeed interface {
	Fetch(ctx context.Context, filter syncer.Filter, fromBlock, toBlock uint64) ([]model.BroadcastRecord, error)
}

// LedgerReader supplies chain head and remaining-amount reads; satisfied by
// chain.Gateway.
type LedgerReader interface {
	LatestBlock(ctx context.Context) (uint64, error)
	Remaining(ctx context.Context, orderHash common.Hash) (*big.Int, error)
}

// Config describes one tracked maker.
type Config struct {
	Contract   common.Address
	Maker      common.Address
	StartBlock uint64
	Interval   time.Duration
}

// Tracker periodically resynchronizes one maker's orders: it discovers
// broadcast events, reads each order's remaining amount, reconciles, and
// publishes the snapshot to its subscriber. Broadcast records are only ever
// appended to the known set; the snapshot is recomputed every round.
type Tracker struct {
	cfg      Config
	feed     EventFeed
	ledger   LedgerReader
	limiter  *syncer.Limiter
	onUpdate func([]model.ReconciledOrder)
	logger   *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	polling atomic.Bool

	// mu guards stopped and snapshot; publishing holds it so Stop can
	// guarantee no callback fires after it returns.
	mu       sync.Mutex
	stopped  bool
	snapshot []model.ReconciledOrder

	// known and order are touched only by the single in-flight poll.
	known map[common.Hash]struct{}
	order []model.BroadcastRecord
}

// New creates a tracker. onUpdate receives every published snapshot; it runs
// on the poll goroutine and should return quickly.
func New(cfg Config, feed EventFeed, ledger LedgerReader, limiter *syncer.Limiter, onUpdate func([]model.ReconciledOrder), logger *zap.Logger) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		cfg:      cfg,
		feed:     feed,
		ledger:   ledger,
		limiter:  limiter,
		onUpdate: onUpdate,
		logger:   logger.Named("tracker").With(zap.String("maker", cfg.Maker.Hex())),
		known:    make(map[common.Hash]struct{}),
	}
}

// Start launches the polling loop: one round immediately, then one per tick.
func (t *Tracker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(ctx)
}

// Stop cancels the loop. An in-flight round may finish its network calls but
// its result is discarded; no subscriber callback fires after Stop returns.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Wait blocks until the polling loop and any in-flight round have exited.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Snapshot returns the last published reconciled order set.
func (t *Tracker) Snapshot() []model.ReconciledOrder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

func (t *Tracker) run(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.tryPoll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tryPoll(ctx)
		}
	}
}

// tryPoll enters the Polling state unless a round is already in flight, in
// which case the tick is dropped.
func (t *Tracker) tryPoll(ctx context.Context) {
	if !t.polling.CompareAndSwap(false, true) {
		t.logger.Debug("synchronization round still running, tick skipped")
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.polling.Store(false)
		t.poll(ctx)
	}()
}

func (t *Tracker) poll(ctx context.Context) {
	started := time.Now()

	head, err := t.ledger.LatestBlock(ctx)
	if err != nil {
		t.suppress("latest block read failed", err)
		return
	}

	records, err := t.feed.Fetch(ctx, syncer.Filter{Contract: t.cfg.Contract, Maker: t.cfg.Maker}, t.cfg.StartBlock, head)
	if err != nil {
		t.suppress("event fetch failed", err)
		return
	}
	for _, rec := range records {
		if _, ok := t.known[rec.OrderHash]; ok {
			continue
		}
		t.known[rec.OrderHash] = struct{}{}
		t.order = append(t.order, rec)
	}
	metrics.OrdersTracked.WithLabelValues(t.cfg.Maker.Hex()).Set(float64(len(t.order)))

	raws := t.readRemainings(ctx)
	snapshot, err := reconcile.Reconcile(t.order, raws)
	if err != nil {
		if errors.Is(err, model.ErrPollIncomplete) {
			t.suppress("remaining reads incomplete, keeping last snapshot", err)
		} else {
			t.suppress("reconciliation failed", err)
		}
		return
	}

	if t.publish(snapshot) {
		metrics.PollsTotal.WithLabelValues("published").Inc()
		metrics.PollDuration.Observe(time.Since(started).Seconds())
		t.logger.Debug("synchronization round published",
			zap.Int("orders", len(snapshot)),
			zap.Uint64("head", head))
	}
}

// readRemainings reads every known order's raw remaining amount, bounded by
// the shared limiter. A failed read leaves a nil slot; the reconciler treats
// that as an indeterminate round.
func (t *Tracker) readRemainings(ctx context.Context) []*big.Int {
	raws := make([]*big.Int, len(t.order))
	var wg sync.WaitGroup
	for i, rec := range t.order {
		wg.Add(1)
		go func(i int, hash common.Hash) {
			defer wg.Done()
			raw, err := syncer.Limit(ctx, t.limiter, func() (*big.Int, error) {
				return t.ledger.Remaining(ctx, hash)
			})
			if err != nil {
				t.logger.Warn("remaining read failed",
					zap.String("order_hash", hash.Hex()),
					zap.Error(err))
				return
			}
			raws[i] = raw
		}(i, rec.OrderHash)
	}
	wg.Wait()
	return raws
}

func (t *Tracker) suppress(msg string, err error) {
	metrics.PollsTotal.WithLabelValues("suppressed").Inc()
	t.logger.Warn(msg, zap.Error(err))
}

// publish stores and delivers the snapshot unless the tracker was stopped
// while the round was in flight.
func (t *Tracker) publish(snapshot []model.ReconciledOrder) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.snapshot = snapshot
	if t.onUpdate != nil {
		t.onUpdate(snapshot)
	}
	return true
}
