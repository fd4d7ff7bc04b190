package dex

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/router"
)

func TestTradeBuilder(t *testing.T) {
	wbnb := common.HexToAddress("0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c")
	usdt := common.HexToAddress("0x55d398326f99059ff775485246999027b3197955")
	other := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	recipient := common.HexToAddress("0x1111111111111111111111111111111111111111")

	builder, err := NewTradeBuilder([]common.Address{wbnb, usdt}, wbnb, 1000)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	swap := &model.SwapEvent{
		BlockNumber: 7,
		TxHash:      "0xabc",
		Timestamp:   1700000000,
		Recipient:   recipient,
		TokenIn:     wbnb,
		AmountIn:    uint256.NewInt(1000),
	}
	action, ok, err := builder.Build(swap, 3)
	if err != nil || !ok {
		t.Fatalf("build native: ok=%v err=%v", ok, err)
	}
	if action.Seq != 3 || action.Kind != model.ActionTrade || action.Token != "" || action.Value != "1000" {
		t.Fatalf("unexpected native action: %+v", action)
	}
	data, err := hexutil.Decode(action.Data)
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}
	user, amount, err := router.DecodeStakeFor(data)
	if err != nil {
		t.Fatalf("decode stake: %v", err)
	}
	if user != recipient || amount.Uint64() != 900 {
		t.Fatalf("unexpected stake call: %s %s", user.Hex(), amount)
	}

	swap.TokenIn = usdt
	action, ok, err = builder.Build(swap, 4)
	if err != nil || !ok {
		t.Fatalf("build token: ok=%v err=%v", ok, err)
	}
	if action.Token != usdt.Hex() || action.Value != "" {
		t.Fatalf("unexpected token action: %+v", action)
	}

	swap.TokenIn = other
	if _, ok, _ := builder.Build(swap, 5); ok {
		t.Fatalf("expected %s to be filtered", other.Hex())
	}
}

func TestTradeBuilderRejectsFee(t *testing.T) {
	if _, err := NewTradeBuilder(nil, common.Address{}, 10_001); err == nil {
		t.Fatalf("expected invalid fee error")
	}
}
