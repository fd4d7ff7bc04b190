package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradeRaffle/internal/model"
)

const nativeDecimals = 18

// Caller performs read-only contract calls. chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PoolMetaCache caches pool metadata by address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenCache caches token descriptors by address.
type TokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenDescriptor
}

func NewTokenCache() *TokenCache {
	return &TokenCache{data: make(map[common.Address]model.TokenDescriptor)}
}

func (c *TokenCache) Get(address common.Address) (model.TokenDescriptor, bool) {
	c.mu.RLock()
	desc, ok := c.data[address]
	c.mu.RUnlock()
	return desc, ok
}

func (c *TokenCache) Set(desc model.TokenDescriptor) {
	c.mu.Lock()
	c.data[desc.Address] = desc
	c.mu.Unlock()
}

// Resolve returns descriptors for tokens, fetching the missing ones in parallel.
func (c *TokenCache) Resolve(ctx context.Context, caller Caller, tokens []common.Address, logger *zap.Logger) ([]model.TokenDescriptor, error) {
	out := make([]model.TokenDescriptor, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, token := range tokens {
		if desc, ok := c.Get(token); ok {
			out[i] = desc
			continue
		}
		i, token := i, token
		g.Go(func() error {
			desc, err := FetchToken(gctx, caller, token, logger)
			if err != nil {
				return err
			}
			c.Set(desc)
			out[i] = desc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchPoolMeta loads token0, token1 and fee of a pool concurrently.
func FetchPoolMeta(ctx context.Context, caller Caller, pool common.Address) (model.PoolMeta, error) {
	if caller == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	var (
		token0, token1 common.Address
		fee            *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := callMethod(gctx, caller, pool, parsed, "token0")
		if err != nil {
			return err
		}
		token0, err = asAddress(values[0])
		return wrapField("token0", err)
	})
	g.Go(func() error {
		values, err := callMethod(gctx, caller, pool, parsed, "token1")
		if err != nil {
			return err
		}
		token1, err = asAddress(values[0])
		return wrapField("token1", err)
	})
	g.Go(func() error {
		values, err := callMethod(gctx, caller, pool, parsed, "fee")
		if err != nil {
			return err
		}
		fee, err = asBigInt(values[0])
		return wrapField("fee", err)
	})
	if err := g.Wait(); err != nil {
		return model.PoolMeta{}, fmt.Errorf("pool %s: %w", pool.Hex(), err)
	}

	return model.PoolMeta{
		Token0: token0.Hex(),
		Token1: token1.Hex(),
		Fee:    uint32(fee.Uint64()),
	}, nil
}

// FetchToken loads a token descriptor via ERC20 calls. decimals is required;
// symbol and name fall back to bytes32 and are otherwise left empty.
func FetchToken(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenDescriptor, error) {
	desc := model.TokenDescriptor{Address: token}
	if token == model.NativeToken {
		desc.Decimals = nativeDecimals
		return desc, nil
	}
	if caller == nil {
		return desc, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20ABIString.get()
	if err != nil {
		return desc, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32.get()
	if err != nil {
		return desc, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals")
	if err != nil {
		return desc, fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	if desc.Decimals, err = asUint8(values[0]); err != nil {
		return desc, fmt.Errorf("token %s: %w", token.Hex(), err)
	}

	desc.Symbol = textField(ctx, caller, token, "symbol", stringABI, bytes32ABI, logger)
	desc.Name = textField(ctx, caller, token, "name", stringABI, bytes32ABI, logger)
	return desc, nil
}

func textField(ctx context.Context, caller Caller, token common.Address, method string, stringABI, bytes32ABI abi.ABI, logger *zap.Logger) string {
	if values, err := callMethod(ctx, caller, token, stringABI, method); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := callMethod(ctx, caller, token, bytes32ABI, method)
	if err != nil {
		logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return ""
	}
	text, _ := bytes32ToString(values[0])
	return text
}

func callMethod(ctx context.Context, caller Caller, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func wrapField(field string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", field, err)
}
