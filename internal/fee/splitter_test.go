package fee

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestApplyDetachRoundTrip(t *testing.T) {
	amounts := []uint64{0, 1, 7, 999, 1000, 123456789, 1_000_000_000_000_000_000}
	fees := []uint64{0, 1, 500, 1000, 5000, 9999}

	for _, amount := range amounts {
		for _, feeBps := range fees {
			net := uint256.NewInt(amount)
			gross, err := ApplyTradeFee(net, feeBps)
			if err != nil {
				t.Fatalf("apply %d @ %d: %v", amount, feeBps, err)
			}
			back, err := DetachTradeFee(gross, feeBps)
			if err != nil {
				t.Fatalf("detach %s @ %d: %v", gross, feeBps, err)
			}
			diff := new(uint256.Int)
			if back.Gt(net) {
				diff.Sub(back, net)
			} else {
				diff.Sub(net, back)
			}
			if diff.GtUint64(1) {
				t.Fatalf("round trip drift for %d @ %d: got %s", amount, feeBps, back)
			}
		}
	}
}

func TestApplyTradeFeeRejectsFullFee(t *testing.T) {
	if _, err := ApplyTradeFee(uint256.NewInt(1), HundredPercent); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
	if _, err := DetachTradeFee(uint256.NewInt(1), HundredPercent+1); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
	if _, err := ProtocolFeeFromDelta(uint256.NewInt(1), HundredPercent+1); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
}

func TestSplitFivePercent(t *testing.T) {
	delta := uint256.MustFromDecimal("10000000000000000000")
	protocolFee, increment, err := Split(delta, 500)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if protocolFee.Dec() != "500000000000000000" {
		t.Fatalf("fee mismatch: %s", protocolFee)
	}
	if increment.Dec() != "9500000000000000000" {
		t.Fatalf("increment mismatch: %s", increment)
	}
}

func TestSplitTruncates(t *testing.T) {
	protocolFee, increment, err := Split(uint256.NewInt(19), 1000)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if protocolFee.Uint64() != 1 || increment.Uint64() != 18 {
		t.Fatalf("unexpected split: fee=%s increment=%s", protocolFee, increment)
	}
}

func TestTradeAmountFromPotDelta(t *testing.T) {
	got, err := TradeAmountFromPotDelta(uint256.NewInt(100), 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Uint64() != 1000 {
		t.Fatalf("trade amount mismatch: %s", got)
	}
	if _, err := TradeAmountFromPotDelta(uint256.NewInt(100), 0); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
}

func TestOverflowChecks(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	if _, err := Add(max, uint256.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := Sub(uint256.NewInt(1), uint256.NewInt(2)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if _, err := ApplyTradeFee(max, 1000); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}
