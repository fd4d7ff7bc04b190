package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// Price is a fixed feed answer.
type Price struct {
	Answer   *uint256.Int
	Decimals uint8
}

// StaticQuoter answers from a fixed table. It serves offline replays.
type StaticQuoter struct {
	mu     sync.RWMutex
	prices map[common.Address]Price
}

func NewStaticQuoter(prices map[common.Address]Price) *StaticQuoter {
	q := &StaticQuoter{prices: make(map[common.Address]Price, len(prices))}
	for feed, price := range prices {
		q.Set(feed, price)
	}
	return q
}

// Set replaces the answer of feed.
func (q *StaticQuoter) Set(feed common.Address, price Price) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if price.Answer != nil {
		price.Answer = price.Answer.Clone()
	}
	q.prices[feed] = price
}

// Price returns the configured answer of feed.
func (q *StaticQuoter) Price(feed common.Address) (Price, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	price, ok := q.prices[feed]
	return price, ok
}

func (q *StaticQuoter) Quote(_ context.Context, feed common.Address, token model.TokenDescriptor, amount *uint256.Int) (*uint256.Int, error) {
	price, ok := q.Price(feed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, feed.Hex())
	}
	return ToUSD(amount, price.Answer, token.Decimals)
}
