package raffle

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestPotContributionAndSettle(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	pot := newPotAccount(1, uint256.NewInt(100), 500, common.Address{}, start)

	for i := 0; i < 10; i++ {
		if _, _, err := pot.AddContribution(uint256.NewInt(20)); err != nil {
			t.Fatalf("contribution %d: %v", i, err)
		}
	}
	if pot.Round.CurrentSize.Uint64() != 190 || pot.FeeOf(common.Address{}).Uint64() != 10 {
		t.Fatalf("size=%s fee=%s", pot.Round.CurrentSize, pot.FeeOf(common.Address{}))
	}
	if !pot.Triggered(TriggerPotFill, start) {
		t.Fatalf("pot should be full")
	}
	if pot.Triggered(TriggerTimed, start) {
		t.Fatalf("timed trigger needs an end time")
	}

	if _, err := pot.Settle(uint256.NewInt(1), start, nil); !errors.Is(err, ErrNotDrawn) {
		t.Fatalf("expected ErrNotDrawn, got %v", err)
	}
	if err := pot.MarkDrawn(); !errors.Is(err, ErrNotDrawn) {
		t.Fatalf("draw before close: %v", err)
	}
	if err := pot.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := pot.AddContribution(uint256.NewInt(1)); !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("expected ErrRoundClosed, got %v", err)
	}
	if err := pot.MarkDrawn(); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := pot.MarkDrawn(); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("expected ErrAlreadyDrawn, got %v", err)
	}

	end := start.Add(time.Hour)
	archived, err := pot.Settle(uint256.NewInt(100), start, &end)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !archived.WinnerSet || archived.Paid.Uint64() != 100 || archived.PotID != 1 {
		t.Fatalf("unexpected archive: %+v", archived)
	}
	if pot.Round.PotID != 2 || pot.Round.CurrentSize.Uint64() != 90 || pot.Round.IsClosed {
		t.Fatalf("unexpected next round: %+v", pot.Round)
	}
	if pot.Round.EndTime == nil || !pot.Round.EndTime.Equal(end) {
		t.Fatalf("next round end time not set")
	}
	if !pot.Triggered(TriggerTimed, end) {
		t.Fatalf("timed trigger should fire at end time")
	}
}

func TestPotFeesByToken(t *testing.T) {
	usdc := common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	pot := newPotAccount(1, uint256.NewInt(100), 1000, common.Address{}, time.Now())

	if err := pot.AccrueFee(usdc, uint256.NewInt(7)); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if err := pot.AccrueFee(common.Address{}, uint256.NewInt(3)); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if pot.Round.AccumulatedProtocolFee.Uint64() != 3 {
		t.Fatalf("round fee counts the prize token only, got %s", pot.Round.AccumulatedProtocolFee)
	}

	withdrawals := pot.WithdrawFees()
	if len(withdrawals) != 2 || withdrawals[0].Token != (common.Address{}) || withdrawals[1].Amount.Uint64() != 7 {
		t.Fatalf("unexpected withdrawals: %+v", withdrawals)
	}
	if !pot.FeeOf(usdc).IsZero() {
		t.Fatalf("fees must be cleared")
	}
}
