package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/model"
	"tradeRaffle/internal/router"
)

// TradeBuilder turns decoded swaps into replayable router trades. The swap
// recipient trades the input amount through the router and is credited the
// tickets; the net amount is staked for it.
type TradeBuilder struct {
	tokens        map[common.Address]struct{}
	wrappedNative common.Address
	tradeFeeBps   uint64
}

// NewTradeBuilder accepts swaps paying one of tokens into the pool; an empty
// list accepts every token. Swaps paying wrappedNative are routed as native
// trades.
func NewTradeBuilder(tokens []common.Address, wrappedNative common.Address, tradeFeeBps uint64) (*TradeBuilder, error) {
	if tradeFeeBps > fee.HundredPercent {
		return nil, fmt.Errorf("trade fee %d bps: %w", tradeFeeBps, fee.ErrInvalidFee)
	}
	set := make(map[common.Address]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return &TradeBuilder{tokens: set, wrappedNative: wrappedNative, tradeFeeBps: tradeFeeBps}, nil
}

// Build returns the trade action for swap, or false when its input token is
// not accepted.
func (b *TradeBuilder) Build(swap *model.SwapEvent, seq uint64) (model.Action, bool, error) {
	if swap == nil || swap.AmountIn == nil || swap.AmountIn.IsZero() {
		return model.Action{}, false, nil
	}
	if len(b.tokens) > 0 {
		if _, ok := b.tokens[swap.TokenIn]; !ok {
			return model.Action{}, false, nil
		}
	}

	net, err := fee.DetachTradeFee(swap.AmountIn, b.tradeFeeBps)
	if err != nil {
		return model.Action{}, false, err
	}
	data, err := router.EncodeStakeFor(swap.Recipient, net)
	if err != nil {
		return model.Action{}, false, err
	}

	action := model.Action{
		Seq:         seq,
		Kind:        model.ActionTrade,
		Caller:      swap.Recipient.Hex(),
		Beneficiary: swap.Recipient.Hex(),
		Timestamp:   swap.Timestamp,
		Amount:      swap.AmountIn.Dec(),
		Data:        hexutil.Encode(data),
		ChainID:     swap.ChainID,
		BlockNumber: swap.BlockNumber,
		TxHash:      swap.TxHash,
		LogIndex:    swap.LogIndex,
	}
	if b.wrappedNative != (common.Address{}) && swap.TokenIn == b.wrappedNative {
		action.Value = swap.AmountIn.Dec()
	} else {
		action.Token = swap.TokenIn.Hex()
	}
	return action, true, nil
}
