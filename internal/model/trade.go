package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Trade is a single routed trade. It only lives for the duration of the call.
type Trade struct {
	Payer       common.Address `json:"payer"`
	Token       common.Address `json:"token"`
	GrossAmount *uint256.Int   `json:"gross_amount"`
}

// BatchTrade is one entry of a batched execution.
type BatchTrade struct {
	TradeAmount *uint256.Int   `json:"trade_amount"`
	User        common.Address `json:"user"`
}
