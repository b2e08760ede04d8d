package builder

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

var (
	usdc     = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	weth     = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
	maker    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	contract = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testBuilder() *Builder {
	return New("Limit Order Protocol", "1", 137, contract)
}

func validSpec() Spec {
	return Spec{
		MakerAsset:   usdc,
		TakerAsset:   weth,
		Maker:        maker,
		MakingAmount: big.NewInt(100),
		TakingAmount: big.NewInt(200),
	}
}

func TestBuildProducesTruncatedAmountGetters(t *testing.T) {
	unsigned, err := testBuilder().Build(validSpec())
	require.NoError(t, err)

	// Full pricing call = selector + three words; the live filled amount slot
	// is dropped so the contract can append it.
	require.Len(t, unsigned.Order.GetMakerAmount, 4+2*32)
	require.Len(t, unsigned.Order.GetTakerAmount, 4+2*32)

	full, err := amountGetterABI.Pack("getMakerAmount", big.NewInt(100), big.NewInt(200), big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, full[:len(full)-32], unsigned.Order.GetMakerAmount)

	full, err = amountGetterABI.Pack("getTakerAmount", big.NewInt(100), big.NewInt(200), big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, full[:len(full)-32], unsigned.Order.GetTakerAmount)

	// The two callbacks differ only in selector.
	assert.NotEqual(t, unsigned.Order.GetMakerAmount[:4], unsigned.Order.GetTakerAmount[:4])
	assert.Equal(t, unsigned.Order.GetMakerAmount[4:], unsigned.Order.GetTakerAmount[4:])
}

func TestBuildEncodesAmountsInCallbacks(t *testing.T) {
	spec := validSpec()
	spec.MakingAmount = big.NewInt(123456789)
	spec.TakingAmount = big.NewInt(987654321)

	unsigned, err := testBuilder().Build(spec)
	require.NoError(t, err)

	encoded := unsigned.Order.GetMakerAmount
	assert.Equal(t, spec.MakingAmount, new(big.Int).SetBytes(encoded[4:36]))
	assert.Equal(t, spec.TakingAmount, new(big.Int).SetBytes(encoded[36:68]))
}

func TestBuildDefaultsToUnrestrictedSentinels(t *testing.T) {
	unsigned, err := testBuilder().Build(validSpec())
	require.NoError(t, err)
	assert.Equal(t, model.ZeroAddress, unsigned.Order.Receiver)
	assert.Equal(t, model.ZeroAddress, unsigned.Order.AllowedSender)
	assert.Empty(t, unsigned.Order.Predicate)
	assert.Empty(t, unsigned.Order.Permit)
	assert.Empty(t, unsigned.Order.Interaction)
}

func TestBuildRejectsInvalidSpecs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"zero making amount", func(s *Spec) { s.MakingAmount = big.NewInt(0) }},
		{"nil making amount", func(s *Spec) { s.MakingAmount = nil }},
		{"zero taking amount", func(s *Spec) { s.TakingAmount = big.NewInt(0) }},
		{"negative taking amount", func(s *Spec) { s.TakingAmount = big.NewInt(-1) }},
		{"same asset both sides", func(s *Spec) { s.TakerAsset = s.MakerAsset }},
		{"missing maker", func(s *Spec) { s.Maker = common.Address{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			unsigned, err := testBuilder().Build(spec)
			require.ErrorIs(t, err, model.ErrInvalidOrderSpec)
			assert.Nil(t, unsigned)
		})
	}
}

func TestBuildSaltDecorrelatesIdenticalOrders(t *testing.T) {
	b := testBuilder()
	first, err := b.Build(validSpec())
	require.NoError(t, err)
	second, err := b.Build(validSpec())
	require.NoError(t, err)

	assert.NotEqual(t, first.Order.Salt, second.Order.Salt)
	assert.NotEqual(t, first.Digest, second.Digest)
}

func TestDigestIsDeterministicPerOrder(t *testing.T) {
	unsigned, err := testBuilder().Build(validSpec())
	require.NoError(t, err)

	again, err := Digest(unsigned.TypedData)
	require.NoError(t, err)
	assert.Equal(t, unsigned.Digest, again)
}

func TestDigestIsDomainBound(t *testing.T) {
	spec := validSpec()
	a, err := New("Limit Order Protocol", "1", 137, contract).Build(spec)
	require.NoError(t, err)

	// Same order fields under a different chain id must hash differently.
	typed := TypedData(a.Order, "Limit Order Protocol", "1", 1, contract)
	otherDigest, err := Digest(typed)
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest, otherDigest)
}
