package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"tradeRaffle/internal/model"
)

// ErrNoInput is returned for swaps where neither side was paid into the pool.
var ErrNoInput = errors.New("swap without input amount")

// SwapDecoder decodes V3 pool Swap logs into trades.
type SwapDecoder struct {
	swap   abi.Event
	topics map[string]struct{}
	caller Caller
	pools  *PoolMetaCache
	logger *zap.Logger
}

// NewSwapDecoder builds a decoder. extraTopics registers forks that emit the
// same Swap layout under a different signature.
func NewSwapDecoder(caller Caller, pools *PoolMetaCache, logger *zap.Logger, extraTopics ...string) (*SwapDecoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	if pools == nil {
		pools = NewPoolMetaCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	swap := parsed.Events["Swap"]
	topics := map[string]struct{}{strings.ToLower(swap.ID.Hex()): {}}
	for _, topic := range extraTopics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic != "" {
			topics[topic] = struct{}{}
		}
	}

	return &SwapDecoder{
		swap:   swap,
		topics: topics,
		caller: caller,
		pools:  pools,
		logger: logger,
	}, nil
}

// CanDecode checks if the topic0 is a known Swap signature.
func (d *SwapDecoder) CanDecode(topic0 string) bool {
	_, ok := d.topics[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a SwapEvent.
func (d *SwapDecoder) Decode(ctx context.Context, log model.LogRecord) (*model.SwapEvent, error) {
	if !d.CanDecode(log.Topic0()) {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topic0())
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	indexedTopics, err := parseIndexedTopics(d.swap, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(d.swap.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(d.swap, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	amount0, err := asSigned(values[0])
	if err != nil {
		return nil, err
	}
	amount1, err := asSigned(values[1])
	if err != nil {
		return nil, err
	}

	meta, err := d.poolMeta(ctx, pool)
	if err != nil {
		return nil, err
	}

	event := &model.SwapEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Pool:        pool,
		Timestamp:   log.Timestamp,
		Sender:      indexed.Sender,
		Recipient:   indexed.Recipient,
		Token0:      common.HexToAddress(meta.Token0),
		Token1:      common.HexToAddress(meta.Token1),
	}

	// Positive amounts flow into the pool.
	var in *big.Int
	switch {
	case amount0.Sign() > 0:
		event.TokenIn, in = event.Token0, amount0
	case amount1.Sign() > 0:
		event.TokenIn, in = event.Token1, amount1
	default:
		return nil, fmt.Errorf("%s: %w", log.Key(), ErrNoInput)
	}
	amountIn, overflow := uint256.FromBig(in)
	if overflow {
		return nil, fmt.Errorf("amount in overflow: %s", in)
	}
	event.AmountIn = amountIn
	return event, nil
}

func (d *SwapDecoder) poolMeta(ctx context.Context, pool common.Address) (model.PoolMeta, error) {
	if meta, ok := d.pools.Get(pool); ok {
		return meta, nil
	}
	meta, err := FetchPoolMeta(ctx, d.caller, pool)
	if err != nil {
		return model.PoolMeta{}, err
	}
	d.pools.Set(pool, meta)
	d.logger.Debug("pool meta loaded",
		zap.String("pool", pool.Hex()),
		zap.String("token0", meta.Token0),
		zap.String("token1", meta.Token1),
	)
	return meta, nil
}

func asSigned(value interface{}) (*big.Int, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
	return new(big.Int).Set(v), nil
}
