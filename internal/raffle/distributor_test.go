package raffle

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func fourWayTable(t *testing.T, limit *uint256.Int) PrizeDistribution {
	t.Helper()
	amounts := []*uint256.Int{
		uint256.MustFromDecimal("50000000000000000000"),
		uint256.MustFromDecimal("16600000000000000000"),
		uint256.MustFromDecimal("16600000000000000000"),
		uint256.MustFromDecimal("16600000000000000000"),
	}
	d, err := NewPrizeDistribution(amounts, 4, limit)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	return d
}

func TestDistributionValidate(t *testing.T) {
	limit := uint256.MustFromDecimal("100000000000000000000")
	fourWayTable(t, limit)

	if _, err := NewPrizeDistribution([]*uint256.Int{uint256.NewInt(1)}, 2, limit); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("count mismatch: %v", err)
	}
	if _, err := NewPrizeDistribution(nil, 0, limit); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("zero winners: %v", err)
	}
	over := []*uint256.Int{limit, uint256.NewInt(1)}
	if _, err := NewPrizeDistribution(over, 2, limit); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("table above limit: %v", err)
	}
}

func TestDistributionPayoutsScaleWithPot(t *testing.T) {
	limit := uint256.MustFromDecimal("100000000000000000000")
	d := fourWayTable(t, limit)

	full, err := d.Payouts(FundingSelf, uint256.MustFromDecimal("104500000000000000000"), limit, 4)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if full[0].Dec() != "50000000000000000000" || full[3].Dec() != "16600000000000000000" {
		t.Fatalf("full pot payouts: %v", full)
	}

	half, err := d.Payouts(FundingSelf, uint256.MustFromDecimal("50000000000000000000"), limit, 4)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if half[0].Dec() != "25000000000000000000" || half[1].Dec() != "8300000000000000000" {
		t.Fatalf("half pot payouts: %v", half)
	}

	short, err := d.Payouts(FundingSelf, limit, limit, 2)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if len(short) != 2 {
		t.Fatalf("payouts beyond the ticket count must be skipped, got %d", len(short))
	}
}

func TestTicketDrawDistinct(t *testing.T) {
	ids := TicketDraw{}.Draw(uint256.NewInt(12345), 5, 5)
	if len(ids) != 5 {
		t.Fatalf("expected 5 ids, got %v", ids)
	}
	if ids[0] != 12345%5 {
		t.Fatalf("first id must be random mod tickets, got %d", ids[0])
	}
	seen := make(map[uint64]bool)
	for _, id := range ids {
		if id >= 5 || seen[id] {
			t.Fatalf("invalid draw %v", ids)
		}
		seen[id] = true
	}

	if got := (TicketDraw{}).Draw(uint256.NewInt(1), 2, 4); len(got) != 2 {
		t.Fatalf("winners must be capped by tickets, got %v", got)
	}
	if got := (TicketDraw{}).Draw(uint256.NewInt(1), 0, 4); got != nil {
		t.Fatalf("no tickets, no winners: %v", got)
	}
}

func TestSelectorResolve(t *testing.T) {
	alice := common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob := common.HexToAddress("0x2222222222222222222222222222222222222222")
	drawn := []common.Address{alice, bob}

	got, err := TicketDraw{}.Resolve(drawn, nil, 2)
	if err != nil || len(got) != 2 || got[0] != alice {
		t.Fatalf("drawn owners should be used: %v %v", got, err)
	}
	if _, err := (TicketDraw{}).Resolve(drawn, []common.Address{bob, alice}, 2); !errors.Is(err, ErrWinnerMismatch) {
		t.Fatalf("expected ErrWinnerMismatch, got %v", err)
	}
	if _, err := (TicketDraw{}).Resolve(drawn, []common.Address{alice}, 2); !errors.Is(err, ErrWinnerCountMismatch) {
		t.Fatalf("expected ErrWinnerCountMismatch, got %v", err)
	}
	if _, err := (OperatorList{}).Resolve(nil, []common.Address{alice}, 2); !errors.Is(err, ErrWinnerCountMismatch) {
		t.Fatalf("expected ErrWinnerCountMismatch, got %v", err)
	}
}

func TestDistributionPayoutsSponsored(t *testing.T) {
	limit := uint256.MustFromDecimal("1000000000000000000000")
	d := fourWayTable(t, limit)

	// a sponsored pot pays the table even far below the limit
	paid, err := d.Payouts(FundingSponsored, uint256.MustFromDecimal("99800000000000000000"), limit, 4)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if paid[0].Dec() != "50000000000000000000" || paid[3].Dec() != "16600000000000000000" {
		t.Fatalf("sponsored payouts: %v", paid)
	}

	short, err := d.Payouts(FundingSponsored, uint256.MustFromDecimal("60000000000000000000"), limit, 4)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	want := []string{"50000000000000000000", "10000000000000000000", "0", "0"}
	for k, amount := range short {
		if amount.Dec() != want[k] {
			t.Fatalf("rank %d: got %s want %s", k, amount, want[k])
		}
	}
}
