package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

// orderComponents is the order tuple layout shared by the broadcast event and
// the broadcastOrder call. Field order must match the contract struct.
const orderComponents = `[
	{"name":"salt","type":"uint256"},
	{"name":"makerAsset","type":"address"},
	{"name":"takerAsset","type":"address"},
	{"name":"maker","type":"address"},
	{"name":"receiver","type":"address"},
	{"name":"allowedSender","type":"address"},
	{"name":"makingAmount","type":"uint256"},
	{"name":"takingAmount","type":"uint256"},
	{"name":"makerAssetData","type":"bytes"},
	{"name":"takerAssetData","type":"bytes"},
	{"name":"getMakerAmount","type":"bytes"},
	{"name":"getTakerAmount","type":"bytes"},
	{"name":"predicate","type":"bytes"},
	{"name":"permit","type":"bytes"},
	{"name":"interaction","type":"bytes"}
]`

var orderBookABI = mustParseABI(`[
	{"type":"event","name":"OrderBroadcasted","anonymous":false,"inputs":[
		{"name":"maker","type":"address","indexed":true},
		{"name":"orderHash","type":"bytes32","indexed":false},
		{"name":"order","type":"tuple","indexed":false,"components":` + orderComponents + `},
		{"name":"signature","type":"bytes","indexed":false}]},
	{"type":"function","name":"remainingRaw","stateMutability":"view","inputs":[
		{"name":"orderHash","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"broadcastOrder","stateMutability":"nonpayable","inputs":[
		{"name":"order","type":"tuple","components":` + orderComponents + `},
		{"name":"signature","type":"bytes"},
		{"name":"rewardDistributor","type":"address"}],
	 "outputs":[]}
]`)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// rawOrder mirrors the contract's order tuple for ABI packing and unpacking.
type rawOrder struct {
	Salt           *big.Int
	MakerAsset     common.Address
	TakerAsset     common.Address
	Maker          common.Address
	Receiver       common.Address
	AllowedSender  common.Address
	MakingAmount   *big.Int
	TakingAmount   *big.Int
	MakerAssetData []byte
	TakerAssetData []byte
	GetMakerAmount []byte
	GetTakerAmount []byte
	Predicate      []byte
	Permit         []byte
	Interaction    []byte
}

// broadcastEvent is the non-indexed payload of OrderBroadcasted.
type broadcastEvent struct {
	OrderHash [32]byte
	Order     rawOrder
	Signature []byte
}

func toRawOrder(o model.Order) rawOrder {
	return rawOrder{
		Salt:           o.Salt,
		MakerAsset:     o.MakerAsset,
		TakerAsset:     o.TakerAsset,
		Maker:          o.Maker,
		Receiver:       o.Receiver,
		AllowedSender:  o.AllowedSender,
		MakingAmount:   o.MakingAmount,
		TakingAmount:   o.TakingAmount,
		MakerAssetData: o.MakerAssetData,
		TakerAssetData: o.TakerAssetData,
		GetMakerAmount: o.GetMakerAmount,
		GetTakerAmount: o.GetTakerAmount,
		Predicate:      o.Predicate,
		Permit:         o.Permit,
		Interaction:    o.Interaction,
	}
}

func (r rawOrder) toModel() model.Order {
	return model.Order{
		Salt:           r.Salt,
		MakerAsset:     r.MakerAsset,
		TakerAsset:     r.TakerAsset,
		Maker:          r.Maker,
		Receiver:       r.Receiver,
		AllowedSender:  r.AllowedSender,
		MakingAmount:   r.MakingAmount,
		TakingAmount:   r.TakingAmount,
		MakerAssetData: r.MakerAssetData,
		TakerAssetData: r.TakerAssetData,
		GetMakerAmount: r.GetMakerAmount,
		GetTakerAmount: r.GetTakerAmount,
		Predicate:      r.Predicate,
		Permit:         r.Permit,
		Interaction:    r.Interaction,
	}
}
