package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/syncer"
)

// Endpoint is one RPC read endpoint bound to the order book contract. It
// implements syncer.EventSource; transport timeouts belong to the underlying
// RPC client.
type Endpoint struct {
	url      string
	client   *ethclient.Client
	contract common.Address
}

// Dial connects an endpoint. The URL doubles as the endpoint's identity in
// cache keys and metrics.
func Dial(rawurl string, contract common.Address) (*Endpoint, error) {
	client, err := ethclient.Dial(rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawurl, err)
	}
	return &Endpoint{url: rawurl, client: client, contract: contract}, nil
}

// Endpoint returns the endpoint's identity string.
func (e *Endpoint) Endpoint() string { return e.url }

// FilterBroadcasts queries OrderBroadcasted logs for the filter's maker in
// [fromBlock, toBlock] and decodes them into broadcast records.
func (e *Endpoint) FilterBroadcasts(ctx context.Context, filter syncer.Filter, fromBlock, toBlock uint64) ([]model.BroadcastRecord, error) {
	eventID := orderBookABI.Events["OrderBroadcasted"].ID
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{filter.Contract},
		Topics: [][]common.Hash{
			{eventID},
			{common.BytesToHash(filter.Maker.Bytes())},
		},
	}
	logs, err := e.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter logs via %s: %w", e.url, err)
	}

	records := make([]model.BroadcastRecord, 0, len(logs))
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		record, err := decodeBroadcast(lg)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// decodeBroadcast turns one OrderBroadcasted log into a broadcast record.
func decodeBroadcast(lg types.Log) (model.BroadcastRecord, error) {
	if len(lg.Topics) < 2 {
		return model.BroadcastRecord{}, fmt.Errorf("decode broadcast log %s: missing maker topic", lg.TxHash.Hex())
	}
	var ev broadcastEvent
	if err := orderBookABI.UnpackIntoInterface(&ev, "OrderBroadcasted", lg.Data); err != nil {
		return model.BroadcastRecord{}, fmt.Errorf("decode broadcast log %s: %w", lg.TxHash.Hex(), err)
	}
	return model.BroadcastRecord{
		OrderHash:       common.BytesToHash(ev.OrderHash[:]),
		Maker:           common.BytesToAddress(lg.Topics[1].Bytes()),
		Order:           ev.Order.toModel(),
		Signature:       ev.Signature,
		TransactionHash: lg.TxHash,
		BlockNumber:     lg.BlockNumber,
	}, nil
}

// Gateway is the order book service boundary: event sources for the
// synchronizer, remaining-amount reads, latest-block reads, and order
// broadcast submission. Reads go to the primary endpoint; the alternates
// only serve event queries through the synchronizer's race.
type Gateway struct {
	primary    *Endpoint
	alternates []*Endpoint
	contract   common.Address
	chainID    *big.Int
	gasLimit   uint64
	key        *ecdsa.PrivateKey
	logger     *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTransactor supplies the key used to sign broadcast transactions.
// Without one the gateway is read-only and Submit fails.
func WithTransactor(key *ecdsa.PrivateKey) GatewayOption {
	return func(g *Gateway) { g.key = key }
}

// WithGasLimit overrides the broadcast transaction gas limit.
func WithGasLimit(limit uint64) GatewayOption {
	return func(g *Gateway) { g.gasLimit = limit }
}

// NewGateway builds a gateway over an already-dialed primary endpoint and
// zero or more alternates for the same chain.
func NewGateway(primary *Endpoint, alternates []*Endpoint, chainID *big.Int, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		primary:    primary,
		alternates: alternates,
		contract:   primary.contract,
		chainID:    chainID,
		gasLimit:   400_000,
		logger:     logger.Named("chain"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sources returns the endpoints in race order, primary first.
func (g *Gateway) Sources() []syncer.EventSource {
	sources := make([]syncer.EventSource, 0, 1+len(g.alternates))
	sources = append(sources, g.primary)
	for _, alt := range g.alternates {
		sources = append(sources, alt)
	}
	return sources
}

// Contract returns the order book contract address.
func (g *Gateway) Contract() common.Address { return g.contract }

// LatestBlock returns the primary endpoint's current head number.
func (g *Gateway) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := g.primary.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	return n, nil
}

// Remaining reads the raw remaining amount for an order hash at the latest
// block. The value keeps the contract's sentinel encoding; normalization is
// the reconciler's job.
func (g *Gateway) Remaining(ctx context.Context, orderHash common.Hash) (*big.Int, error) {
	data, err := orderBookABI.Pack("remainingRaw", [32]byte(orderHash))
	if err != nil {
		return nil, fmt.Errorf("pack remainingRaw: %w", err)
	}
	out, err := g.primary.client.CallContract(ctx, ethereum.CallMsg{To: &g.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("remainingRaw %s: %w", orderHash.Hex(), err)
	}
	values, err := orderBookABI.Unpack("remainingRaw", out)
	if err != nil {
		return nil, fmt.Errorf("decode remainingRaw: %w", err)
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode remainingRaw: unexpected type %T", values[0])
	}
	return raw, nil
}

// Submit broadcasts a signed order to the order book contract and returns the
// transaction hash. The order's signature authorizes the maker; the
// transaction itself is signed by the configured transactor key.
func (g *Gateway) Submit(ctx context.Context, order model.Order, signature []byte, rewardDistributor common.Address) (common.Hash, error) {
	if g.key == nil {
		return common.Hash{}, fmt.Errorf("%w: gateway has no transactor key", model.ErrSubmissionFailed)
	}

	calldata, err := orderBookABI.Pack("broadcastOrder", toRawOrder(order), signature, rewardDistributor)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: pack broadcastOrder: %v", model.ErrSubmissionFailed, err)
	}

	from := crypto.PubkeyToAddress(g.key.PublicKey)
	nonce, err := g.primary.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: nonce: %v", model.ErrSubmissionFailed, err)
	}
	gasPrice, err := g.primary.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: gas price: %v", model.ErrSubmissionFailed, err)
	}

	tx := types.NewTransaction(nonce, g.contract, big.NewInt(0), g.gasLimit, gasPrice, calldata)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(g.chainID), g.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: sign tx: %v", model.ErrSubmissionFailed, err)
	}
	if err := g.primary.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("%w: send: %v", model.ErrSubmissionFailed, err)
	}

	g.logger.Info("order broadcast submitted",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("maker", order.Maker.Hex()))
	return signedTx.Hash(), nil
}
