package oracle

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
)

// USDDecimals is the precision of USD amounts from Chainlink USD feeds.
const USDDecimals = 8

var (
	ErrInvalidAnswer = errors.New("invalid price feed answer")
	ErrUnknownFeed   = errors.New("unknown price feed")
	ErrStaleAnswer   = errors.New("stale price feed answer")
)

// ToUSD converts amount (in token base units) with a feed answer. The result
// is expressed in the feed's own decimals.
func ToUSD(amount, answer *uint256.Int, tokenDecimals uint8) (*uint256.Int, error) {
	if answer == nil || answer.IsZero() {
		return nil, ErrInvalidAnswer
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(tokenDecimals)))
	usd, err := fee.MulDiv(amount, answer, scale)
	if err != nil {
		return nil, fmt.Errorf("convert to usd: %w", err)
	}
	return usd, nil
}
