package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapEvent is a decoded pool Swap enriched with the pool's tokens.
// TokenIn is the side the pool received; AmountIn is that amount.
type SwapEvent struct {
	ChainID     uint64         `json:"chain_id"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      string         `json:"tx_hash"`
	LogIndex    uint64         `json:"log_index"`
	Pool        common.Address `json:"pool"`
	Timestamp   uint64         `json:"timestamp"`
	Sender      common.Address `json:"sender"`
	Recipient   common.Address `json:"recipient"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	TokenIn     common.Address `json:"token_in"`
	AmountIn    *uint256.Int   `json:"amount_in"`
}

// Key identifies the swap across replays.
func (s SwapEvent) Key() string {
	return LogKey(s.BlockNumber, s.TxHash, s.LogIndex)
}
