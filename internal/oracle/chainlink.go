package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"tradeRaffle/internal/model"
)

const aggregatorV3ABIJSON = `[
  {
    "inputs": [],
    "name": "latestRoundData",
    "outputs": [
      {"internalType": "uint80", "name": "roundId", "type": "uint80"},
      {"internalType": "int256", "name": "answer", "type": "int256"},
      {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
      {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
      {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

// AggregatorV3ABI returns the parsed Chainlink aggregator ABI.
func AggregatorV3ABI() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorV3ABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RoundData is the latest answer of a feed.
type RoundData struct {
	RoundID   *big.Int
	Answer    *uint256.Int
	UpdatedAt time.Time
}

// ChainlinkQuoter prices tokens through AggregatorV3 feeds.
type ChainlinkQuoter struct {
	caller ContractCaller
	maxAge time.Duration
	clock  func() time.Time
	logger *zap.Logger
}

// ChainlinkOption customizes a ChainlinkQuoter.
type ChainlinkOption func(*ChainlinkQuoter)

// WithMaxAge rejects answers older than maxAge. Zero disables the check.
func WithMaxAge(maxAge time.Duration) ChainlinkOption {
	return func(q *ChainlinkQuoter) { q.maxAge = maxAge }
}

// WithQuoteClock replaces time.Now for the staleness check.
func WithQuoteClock(clock func() time.Time) ChainlinkOption {
	return func(q *ChainlinkQuoter) {
		if clock != nil {
			q.clock = clock
		}
	}
}

func NewChainlinkQuoter(caller ContractCaller, logger *zap.Logger, opts ...ChainlinkOption) *ChainlinkQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &ChainlinkQuoter{caller: caller, clock: time.Now, logger: logger}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Quote converts amount of token into USD using the latest answer of feed.
func (q *ChainlinkQuoter) Quote(ctx context.Context, feed common.Address, token model.TokenDescriptor, amount *uint256.Int) (*uint256.Int, error) {
	round, err := q.LatestRoundData(ctx, feed)
	if err != nil {
		return nil, err
	}
	if q.maxAge > 0 && q.clock().Sub(round.UpdatedAt) > q.maxAge {
		return nil, fmt.Errorf("%w: feed %s updated %s", ErrStaleAnswer, feed.Hex(), round.UpdatedAt.UTC().Format(time.RFC3339))
	}
	usd, err := ToUSD(amount, round.Answer, token.Decimals)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("usd quote",
		zap.String("feed", feed.Hex()),
		zap.String("token", token.Address.Hex()),
		zap.Stringer("amount", amount),
		zap.Stringer("usd", usd),
	)
	return usd, nil
}

// LatestRoundData reads the latest answer of feed.
func (q *ChainlinkQuoter) LatestRoundData(ctx context.Context, feed common.Address) (RoundData, error) {
	values, err := q.call(ctx, feed, "latestRoundData")
	if err != nil {
		return RoundData{}, err
	}
	if len(values) != 5 {
		return RoundData{}, fmt.Errorf("latestRoundData return size %d", len(values))
	}
	roundID, ok := values[0].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("latestRoundData roundId unexpected type %T", values[0])
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("latestRoundData answer unexpected type %T", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return RoundData{}, fmt.Errorf("latestRoundData updatedAt unexpected type %T", values[3])
	}
	if answer.Sign() <= 0 {
		return RoundData{}, fmt.Errorf("%w: feed %s answered %s", ErrInvalidAnswer, feed.Hex(), answer)
	}
	converted, overflow := uint256.FromBig(answer)
	if overflow {
		return RoundData{}, fmt.Errorf("%w: feed %s answer overflows", ErrInvalidAnswer, feed.Hex())
	}
	return RoundData{
		RoundID:   roundID,
		Answer:    converted,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0),
	}, nil
}

// Decimals reads the answer precision of feed.
func (q *ChainlinkQuoter) Decimals(ctx context.Context, feed common.Address) (uint8, error) {
	values, err := q.call(ctx, feed, "decimals")
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("decimals return size %d", len(values))
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals unexpected type %T", values[0])
	}
	return decimals, nil
}

func (q *ChainlinkQuoter) call(ctx context.Context, feed common.Address, method string) ([]interface{}, error) {
	if q.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := AggregatorV3ABI()
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := q.caller.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, feed.Hex(), err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
