package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/builder"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/syncer"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/tracker"
)

// OrderBook is the remote order book boundary; chain.Gateway is the
// production implementation.
type OrderBook interface {
	Contract() common.Address
	Sources() []syncer.EventSource
	LatestBlock(ctx context.Context) (uint64, error)
	Remaining(ctx context.Context, orderHash common.Hash) (*big.Int, error)
	Submit(ctx context.Context, order model.Order, signature []byte, rewardDistributor common.Address) (common.Hash, error)
}

// Config carries the protocol constants the service needs.
type Config struct {
	DomainName        string
	DomainVersion     string
	ChainID           int64
	StartBlock        uint64
	PollInterval      time.Duration
	FetchConcurrency  int
	RewardDistributor common.Address
}

// Handle identifies one tracking subscription.
type Handle struct {
	id uuid.UUID
}

// Service is the consumer-facing surface: order construction, submission and
// lifecycle tracking. The limiter and event cache behind it are shared by all
// trackers, so one instance per process is the intended shape.
type Service struct {
	cfg     Config
	book    OrderBook
	builder *builder.Builder
	limiter *syncer.Limiter
	events  *syncer.Synchronizer
	logger  *zap.Logger

	mu       sync.Mutex
	trackers map[uuid.UUID]*tracker.Tracker
}

// New wires a service over the given order book.
func New(cfg Config, book OrderBook, logger *zap.Logger) *Service {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = syncer.DefaultFetchConcurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = tracker.DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := syncer.NewLimiter(cfg.FetchConcurrency)
	return &Service{
		cfg:      cfg,
		book:     book,
		builder:  builder.New(cfg.DomainName, cfg.DomainVersion, cfg.ChainID, book.Contract()),
		limiter:  limiter,
		events:   syncer.NewSynchronizer(book.Sources(), limiter, logger),
		logger:   logger.Named("limitorder"),
		trackers: make(map[uuid.UUID]*tracker.Tracker),
	}
}

// BuildOrder constructs a signable fixed-rate order.
func (s *Service) BuildOrder(spec builder.Spec) (*builder.Unsigned, error) {
	return s.builder.Build(spec)
}

// SubmitOrder broadcasts a built and signed order. Failures are not retried
// here; gas and nonce context may have changed, so resubmission is an
// explicit caller decision.
func (s *Service) SubmitOrder(ctx context.Context, order model.Order, signature []byte) (common.Hash, error) {
	txHash, err := s.book.Submit(ctx, order, signature, s.cfg.RewardDistributor)
	if err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}

// StartTracking begins periodic lifecycle reconciliation for the maker's
// orders. onUpdate receives each published snapshot until StopTracking.
func (s *Service) StartTracking(maker common.Address, onUpdate func([]model.ReconciledOrder)) Handle {
	t := tracker.New(tracker.Config{
		Contract:   s.book.Contract(),
		Maker:      maker,
		StartBlock: s.cfg.StartBlock,
		Interval:   s.cfg.PollInterval,
	}, s.events, s.book, s.limiter, onUpdate, s.logger)

	handle := Handle{id: uuid.New()}
	s.mu.Lock()
	s.trackers[handle.id] = t
	s.mu.Unlock()

	t.Start()
	s.logger.Info("tracking started", zap.String("maker", maker.Hex()))
	return handle
}

// StopTracking cancels a subscription. No callback fires after it returns.
func (s *Service) StopTracking(handle Handle) {
	s.mu.Lock()
	t, ok := s.trackers[handle.id]
	delete(s.trackers, handle.id)
	s.mu.Unlock()
	if ok {
		t.Stop()
	}
}

// Snapshot returns the subscription's last published order set, or an error
// for an unknown handle.
func (s *Service) Snapshot(handle Handle) ([]model.ReconciledOrder, error) {
	s.mu.Lock()
	t, ok := s.trackers[handle.id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown tracking handle %s", handle.id)
	}
	return t.Snapshot(), nil
}

// Close stops every active tracker.
func (s *Service) Close() {
	s.mu.Lock()
	trackers := make([]*tracker.Tracker, 0, len(s.trackers))
	for id, t := range s.trackers {
		trackers = append(trackers, t)
		delete(s.trackers, id)
	}
	s.mu.Unlock()
	for _, t := range trackers {
		t.Stop()
	}
}
