package reconcile

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

func record(hash byte, making int64) model.BroadcastRecord {
	return model.BroadcastRecord{
		OrderHash: common.Hash{hash},
		Order: model.Order{
			MakingAmount: big.NewInt(making),
			TakingAmount: big.NewInt(making * 2),
		},
		TransactionHash: common.Hash{0xaa, hash},
	}
}

func TestNormalizeRemaining(t *testing.T) {
	making := big.NewInt(100)

	tests := []struct {
		name string
		raw  int64
		want int64
	}{
		{"untouched sentinel means fully open", 0, 100},
		{"fully filled stores one", 1, 0},
		{"partial fill is off by one", 51, 50},
		{"maximum encoded value", 101, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeRemaining(big.NewInt(tt.raw), making)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestReconcileClassifiesOpenAndClosed(t *testing.T) {
	records := []model.BroadcastRecord{record(1, 100), record(2, 100), record(3, 100)}
	raws := []*big.Int{big.NewInt(0), big.NewInt(51), big.NewInt(1)}

	orders, err := Reconcile(records, raws)
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, int64(100), orders[0].Remaining.Int64())
	assert.True(t, orders[0].IsOpen)

	assert.Equal(t, int64(50), orders[1].Remaining.Int64())
	assert.True(t, orders[1].IsOpen)

	assert.Equal(t, int64(0), orders[2].Remaining.Int64())
	assert.False(t, orders[2].IsOpen)
}

func TestReconcilePreservesInputOrder(t *testing.T) {
	records := []model.BroadcastRecord{record(9, 10), record(2, 10), record(5, 10)}
	raws := []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}

	orders, err := Reconcile(records, raws)
	require.NoError(t, err)
	for i, rec := range records {
		assert.Equal(t, rec.OrderHash, orders[i].OrderHash)
		assert.Equal(t, rec.TransactionHash, orders[i].TransactionHash)
	}
}

func TestReconcileMissingReadIsIncomplete(t *testing.T) {
	records := []model.BroadcastRecord{record(1, 100), record(2, 100)}

	// Zero is a meaningful sentinel; a failed read must never default to it.
	_, err := Reconcile(records, []*big.Int{big.NewInt(0), nil})
	require.ErrorIs(t, err, model.ErrPollIncomplete)

	_, err = Reconcile(records, []*big.Int{big.NewInt(0)})
	require.ErrorIs(t, err, model.ErrPollIncomplete)
}

func TestReconcileEmpty(t *testing.T) {
	orders, err := Reconcile(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
