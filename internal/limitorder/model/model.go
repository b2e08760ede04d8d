package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ZeroAddress is the unrestricted sentinel for Receiver and AllowedSender.
var ZeroAddress = common.Address{}

// Order is one off-chain-signed limit order in the shape the order book
// contract hashes and verifies. Immutable once signed; any change requires a
// new order with a fresh salt.
type Order struct {
	Salt          *big.Int       `json:"salt"`
	MakerAsset    common.Address `json:"makerAsset"`
	TakerAsset    common.Address `json:"takerAsset"`
	Maker         common.Address `json:"maker"`
	Receiver      common.Address `json:"receiver"`
	AllowedSender common.Address `json:"allowedSender"`
	MakingAmount  *big.Int       `json:"makingAmount"`
	TakingAmount  *big.Int       `json:"takingAmount"`

	// GetMakerAmount and GetTakerAmount hold the truncated call encodings of
	// the pricing functions. The contract appends the live filled amount as
	// the final word before evaluating them.
	GetMakerAmount []byte `json:"getMakerAmount"`
	GetTakerAmount []byte `json:"getTakerAmount"`

	// Extension slots, empty for plain fixed-rate orders.
	MakerAssetData []byte `json:"makerAssetData"`
	TakerAssetData []byte `json:"takerAssetData"`
	Predicate      []byte `json:"predicate"`
	Permit         []byte `json:"permit"`
	Interaction    []byte `json:"interaction"`
}

// BroadcastRecord is one observed OrderBroadcasted event. It is the
// authoritative discovery source for orders that exist; records are only ever
// appended to the locally known set.
type BroadcastRecord struct {
	OrderHash       common.Hash `json:"orderHash"`
	Maker           common.Address
	Order           Order
	Signature       []byte
	TransactionHash common.Hash `json:"transactionHash"`
	BlockNumber     uint64
}

// ReconciledOrder is the derived, externally consumed view of one order.
// Recomputed on every synchronization pass; a snapshot, never mutated.
type ReconciledOrder struct {
	OrderHash       common.Hash    `json:"orderHash"`
	MakerAsset      common.Address `json:"makerAsset"`
	TakerAsset      common.Address `json:"takerAsset"`
	MakingAmount    *big.Int       `json:"makingAmount"`
	TakingAmount    *big.Int       `json:"takingAmount"`
	Remaining       *big.Int       `json:"remaining"`
	IsOpen          bool           `json:"isOpen"`
	TransactionHash common.Hash    `json:"transactionHash"`
}

// NominalRate returns takingAmount/makingAmount as a decimal, the order's
// exchange rate at creation time.
func (r *ReconciledOrder) NominalRate() decimal.Decimal {
	if r.MakingAmount == nil || r.MakingAmount.Sign() == 0 {
		return decimal.Zero
	}
	making := decimal.NewFromBigInt(r.MakingAmount, 0)
	taking := decimal.NewFromBigInt(r.TakingAmount, 0)
	return taking.DivRound(making, 18)
}

// FillFraction returns the filled share of the order in [0, 1].
func (r *ReconciledOrder) FillFraction() decimal.Decimal {
	if r.MakingAmount == nil || r.MakingAmount.Sign() == 0 {
		return decimal.Zero
	}
	making := decimal.NewFromBigInt(r.MakingAmount, 0)
	remaining := decimal.NewFromBigInt(r.Remaining, 0)
	return decimal.NewFromInt(1).Sub(remaining.DivRound(making, 18))
}
