package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/builder"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/syncer"
)

var (
	testContract = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testMaker    = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type fakeBook struct {
	mu        sync.Mutex
	records   []model.BroadcastRecord
	remaining map[common.Hash]*big.Int
	submitErr error
	submitted []model.Order
}

func (b *fakeBook) Contract() common.Address { return testContract }

func (b *fakeBook) Sources() []syncer.EventSource { return []syncer.EventSource{b} }

func (b *fakeBook) Endpoint() string { return "fake" }

func (b *fakeBook) FilterBroadcasts(ctx context.Context, filter syncer.Filter, from, to uint64) ([]model.BroadcastRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.records, nil
}

func (b *fakeBook) LatestBlock(ctx context.Context) (uint64, error) { return 100, nil }

func (b *fakeBook) Remaining(ctx context.Context, orderHash common.Hash) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.remaining[orderHash]
	if !ok {
		return nil, fmt.Errorf("no such order")
	}
	return raw, nil
}

func (b *fakeBook) Submit(ctx context.Context, order model.Order, signature []byte, rewardDistributor common.Address) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return common.Hash{}, b.submitErr
	}
	b.submitted = append(b.submitted, order)
	return common.Hash{0xf0}, nil
}

func newTestService(t *testing.T, book *fakeBook) *Service {
	t.Helper()
	return New(Config{
		DomainName:    "Limit Order Protocol",
		DomainVersion: "1",
		ChainID:       137,
		StartBlock:    1,
		PollInterval:  25 * time.Millisecond,
	}, book, zaptest.NewLogger(t))
}

func validSpec() builder.Spec {
	return builder.Spec{
		MakerAsset:   common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		TakerAsset:   common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"),
		Maker:        testMaker,
		MakingAmount: big.NewInt(100),
		TakingAmount: big.NewInt(200),
	}
}

func TestBuildAndSubmitOrder(t *testing.T) {
	book := &fakeBook{}
	svc := newTestService(t, book)
	defer svc.Close()

	unsigned, err := svc.BuildOrder(validSpec())
	require.NoError(t, err)
	require.NotNil(t, unsigned)

	txHash, err := svc.SubmitOrder(context.Background(), unsigned.Order, []byte{0x01})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, txHash)
	assert.Len(t, book.submitted, 1)
}

func TestBuildOrderRejectsBadSpec(t *testing.T) {
	svc := newTestService(t, &fakeBook{})
	defer svc.Close()

	spec := validSpec()
	spec.MakingAmount = big.NewInt(0)
	_, err := svc.BuildOrder(spec)
	require.ErrorIs(t, err, model.ErrInvalidOrderSpec)
}

func TestSubmitOrderSurfacesRejection(t *testing.T) {
	book := &fakeBook{submitErr: fmt.Errorf("%w: reverted", model.ErrSubmissionFailed)}
	svc := newTestService(t, book)
	defer svc.Close()

	unsigned, err := svc.BuildOrder(validSpec())
	require.NoError(t, err)

	_, err = svc.SubmitOrder(context.Background(), unsigned.Order, []byte{0x01})
	require.ErrorIs(t, err, model.ErrSubmissionFailed)
}

func TestTrackingThroughFacade(t *testing.T) {
	hash := common.Hash{0xab}
	book := &fakeBook{
		records: []model.BroadcastRecord{{
			OrderHash: hash,
			Maker:     testMaker,
			Order:     model.Order{MakingAmount: big.NewInt(100), TakingAmount: big.NewInt(200)},
		}},
		remaining: map[common.Hash]*big.Int{hash: big.NewInt(0)},
	}
	svc := newTestService(t, book)
	defer svc.Close()

	updates := make(chan []model.ReconciledOrder, 16)
	handle := svc.StartTracking(testMaker, func(orders []model.ReconciledOrder) {
		updates <- orders
	})

	select {
	case snap := <-updates:
		require.Len(t, snap, 1)
		assert.Equal(t, int64(100), snap[0].Remaining.Int64())
		assert.True(t, snap[0].IsOpen)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}

	stored, err := svc.Snapshot(handle)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	svc.StopTracking(handle)
	_, err = svc.Snapshot(handle)
	require.Error(t, err)
}
