package builder

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

// saltBits bounds the random salt. The salt only decorrelates otherwise
// identical orders; 96 bits is plenty.
const saltBits = 96

// Spec is the caller-facing input for a fixed-rate order. Receiver and
// AllowedSender default to the unrestricted zero-address sentinel.
type Spec struct {
	MakerAsset    common.Address
	TakerAsset    common.Address
	Maker         common.Address
	Receiver      common.Address
	AllowedSender common.Address
	MakingAmount  *big.Int
	TakingAmount  *big.Int
}

// Unsigned pairs a constructed order with its signable typed-data payload.
type Unsigned struct {
	Order     model.Order
	TypedData apitypes.TypedData

	// Digest is the hash-to-sign, and once broadcast, the order hash the
	// contract reports in events and remaining-amount queries.
	Digest common.Hash
}

// Builder constructs signable fixed-rate orders for one order book
// deployment. Pure computation; signing is the caller's collaborator.
type Builder struct {
	domainName    string
	domainVersion string
	chainID       int64
	contract      common.Address
}

// New returns a Builder bound to the given signing domain.
func New(domainName, domainVersion string, chainID int64, contract common.Address) *Builder {
	return &Builder{
		domainName:    domainName,
		domainVersion: domainVersion,
		chainID:       chainID,
		contract:      contract,
	}
}

// Build validates the spec, constructs the order with its pricing callbacks
// and a fresh random salt, and returns the signable payload.
func (b *Builder) Build(spec Spec) (*Unsigned, error) {
	if err := validate(spec); err != nil {
		return nil, err
	}

	salt, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), saltBits))
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	getMaker, err := packAmountGetter("getMakerAmount", spec.MakingAmount, spec.TakingAmount)
	if err != nil {
		return nil, err
	}
	getTaker, err := packAmountGetter("getTakerAmount", spec.MakingAmount, spec.TakingAmount)
	if err != nil {
		return nil, err
	}

	order := model.Order{
		Salt:           salt,
		MakerAsset:     spec.MakerAsset,
		TakerAsset:     spec.TakerAsset,
		Maker:          spec.Maker,
		Receiver:       spec.Receiver,
		AllowedSender:  spec.AllowedSender,
		MakingAmount:   new(big.Int).Set(spec.MakingAmount),
		TakingAmount:   new(big.Int).Set(spec.TakingAmount),
		GetMakerAmount: getMaker,
		GetTakerAmount: getTaker,
		MakerAssetData: []byte{},
		TakerAssetData: []byte{},
		Predicate:      []byte{},
		Permit:         []byte{},
		Interaction:    []byte{},
	}

	typedData := TypedData(order, b.domainName, b.domainVersion, b.chainID, b.contract)
	digest, err := Digest(typedData)
	if err != nil {
		return nil, err
	}

	return &Unsigned{Order: order, TypedData: typedData, Digest: digest}, nil
}

func validate(spec Spec) error {
	if spec.MakingAmount == nil || spec.MakingAmount.Sign() <= 0 {
		return fmt.Errorf("%w: making amount must be positive", model.ErrInvalidOrderSpec)
	}
	if spec.TakingAmount == nil || spec.TakingAmount.Sign() <= 0 {
		return fmt.Errorf("%w: taking amount must be positive", model.ErrInvalidOrderSpec)
	}
	if spec.MakerAsset == spec.TakerAsset {
		return fmt.Errorf("%w: maker and taker asset are identical", model.ErrInvalidOrderSpec)
	}
	if spec.Maker == model.ZeroAddress {
		return fmt.Errorf("%w: maker address is required", model.ErrInvalidOrderSpec)
	}
	return nil
}
