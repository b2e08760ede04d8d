package builder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

// wordSize is one ABI-encoded argument slot.
const wordSize = 32

// amountGetterABI describes the linear, interest-free pricing functions of
// the limit order protocol. The third argument is the live filled amount the
// contract appends at evaluation time.
const amountGetterABIJSON = `[
	{"name":"getMakerAmount","type":"function","stateMutability":"pure","inputs":[
		{"name":"orderMakerAmount","type":"uint256"},
		{"name":"orderTakerAmount","type":"uint256"},
		{"name":"swapTakerAmount","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"getTakerAmount","type":"function","stateMutability":"pure","inputs":[
		{"name":"orderMakerAmount","type":"uint256"},
		{"name":"orderTakerAmount","type":"uint256"},
		{"name":"swapMakerAmount","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var amountGetterABI = mustParseABI(amountGetterABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// packAmountGetter encodes a call to the named pricing function with
// (makingAmount, takingAmount, 0) and drops exactly one trailing word, so the
// contract can append the live filled amount as the final parameter. The
// truncation offset is fixed by the protocol; do not adjust it per call.
func packAmountGetter(method string, makingAmount, takingAmount *big.Int) ([]byte, error) {
	full, err := amountGetterABI.Pack(method, makingAmount, takingAmount, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if len(full) < wordSize {
		return nil, fmt.Errorf("pack %s: encoding shorter than one word", method)
	}
	return full[:len(full)-wordSize], nil
}

// orderTypes is the EIP-712 type layout the order book contract verifies
// signatures against. Field order matters; it must match the contract.
var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "salt", Type: "uint256"},
		{Name: "makerAsset", Type: "address"},
		{Name: "takerAsset", Type: "address"},
		{Name: "maker", Type: "address"},
		{Name: "receiver", Type: "address"},
		{Name: "allowedSender", Type: "address"},
		{Name: "makingAmount", Type: "uint256"},
		{Name: "takingAmount", Type: "uint256"},
		{Name: "makerAssetData", Type: "bytes"},
		{Name: "takerAssetData", Type: "bytes"},
		{Name: "getMakerAmount", Type: "bytes"},
		{Name: "getTakerAmount", Type: "bytes"},
		{Name: "predicate", Type: "bytes"},
		{Name: "permit", Type: "bytes"},
		{Name: "interaction", Type: "bytes"},
	},
}

// TypedData builds the full EIP-712 payload for an order, bound to the given
// chain and verifying contract.
func TypedData(order model.Order, domainName, domainVersion string, chainID int64, verifyingContract common.Address) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":           (*math.HexOrDecimal256)(order.Salt),
			"makerAsset":     order.MakerAsset.Hex(),
			"takerAsset":     order.TakerAsset.Hex(),
			"maker":          order.Maker.Hex(),
			"receiver":       order.Receiver.Hex(),
			"allowedSender":  order.AllowedSender.Hex(),
			"makingAmount":   (*math.HexOrDecimal256)(order.MakingAmount),
			"takingAmount":   (*math.HexOrDecimal256)(order.TakingAmount),
			"makerAssetData": hexutil.Encode(order.MakerAssetData),
			"takerAssetData": hexutil.Encode(order.TakerAssetData),
			"getMakerAmount": hexutil.Encode(order.GetMakerAmount),
			"getTakerAmount": hexutil.Encode(order.GetTakerAmount),
			"predicate":      hexutil.Encode(order.Predicate),
			"permit":         hexutil.Encode(order.Permit),
			"interaction":    hexutil.Encode(order.Interaction),
		},
	}
}

// Digest computes the hash-to-sign for the typed data. The same value is the
// order hash the contract derives, so it doubles as the reconciliation key.
func Digest(typedData apitypes.TypedData) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("typed data hash: %w", err)
	}
	return common.BytesToHash(hash), nil
}
