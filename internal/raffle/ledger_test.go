package raffle

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ledgerAlice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	ledgerBob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestLedgerCarriesRemainder(t *testing.T) {
	ledger := newTicketLedger(uint256.MustFromDecimal("100000000000000000"), 1, false)

	first, err := ledger.Issue(ledgerAlice, uint256.MustFromDecimal("370000000000000000"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first.Issued != 3 || first.First != 0 || first.Last != 3 {
		t.Fatalf("unexpected first issuance: %+v", first)
	}
	if first.Pending.Dec() != "70000000000000000" {
		t.Fatalf("unexpected pending after first trade: %s", first.Pending)
	}

	second, err := ledger.Issue(ledgerAlice, uint256.MustFromDecimal("250000000000000000"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if second.Issued != 3 || second.First != 3 || second.Last != 6 {
		t.Fatalf("unexpected second issuance: %+v", second)
	}
	if got := ledger.PendingOf(ledgerAlice).Dec(); got != "20000000000000000" {
		t.Fatalf("pending mismatch: %s", got)
	}
	if ledger.LastTicketID != 6 {
		t.Fatalf("last ticket id %d", ledger.LastTicketID)
	}
	if len(ledger.Ranges) != 1 {
		t.Fatalf("adjacent ranges of one owner should merge, got %+v", ledger.Ranges)
	}
}

func TestLedgerOwnerOf(t *testing.T) {
	ledger := newTicketLedger(uint256.NewInt(10), 1, false)
	mustIssue(t, &ledger, ledgerAlice, 30)
	mustIssue(t, &ledger, ledgerBob, 25)
	mustIssue(t, &ledger, ledgerAlice, 15)

	cases := []struct {
		id    uint64
		owner common.Address
		ok    bool
	}{
		{id: 0, owner: ledgerAlice, ok: true},
		{id: 2, owner: ledgerAlice, ok: true},
		{id: 3, owner: ledgerBob, ok: true},
		{id: 4, owner: ledgerBob, ok: true},
		{id: 5, owner: ledgerAlice, ok: true},
		{id: 6, ok: false},
	}
	for _, tc := range cases {
		owner, ok := ledger.OwnerOf(tc.id)
		if ok != tc.ok || owner != tc.owner {
			t.Fatalf("ticket %d: got (%s, %v), want (%s, %v)", tc.id, owner.Hex(), ok, tc.owner.Hex(), tc.ok)
		}
	}
}

func TestLedgerPendingReset(t *testing.T) {
	keep := newTicketLedger(uint256.NewInt(10), 1, false)
	mustIssue(t, &keep, ledgerAlice, 7)
	keep.StartRound(2)
	if got := keep.PendingOf(ledgerAlice).Uint64(); got != 7 {
		t.Fatalf("pending should survive the round, got %d", got)
	}
	if keep.LastTicketID != 0 || len(keep.Ranges) != 0 {
		t.Fatalf("ticket counter must restart")
	}

	reset := newTicketLedger(uint256.NewInt(10), 1, true)
	mustIssue(t, &reset, ledgerAlice, 7)
	reset.StartRound(2)
	if got := reset.PendingOf(ledgerAlice).Uint64(); got != 0 {
		t.Fatalf("pending should reset, got %d", got)
	}
	issuance := mustIssue(t, &reset, ledgerAlice, 5)
	if issuance.Issued != 0 || issuance.Pending.Uint64() != 5 {
		t.Fatalf("stale remainder leaked into new round: %+v", issuance)
	}
}

func TestLedgerRejectsZeroCost(t *testing.T) {
	ledger := newTicketLedger(uint256.NewInt(10), 1, false)
	if err := ledger.SetTicketCost(new(uint256.Int)); !errors.Is(err, ErrMisconfiguredTicketCost) {
		t.Fatalf("expected ErrMisconfiguredTicketCost, got %v", err)
	}
	ledger.TicketCost = new(uint256.Int)
	if _, err := ledger.Issue(ledgerAlice, uint256.NewInt(1)); !errors.Is(err, ErrMisconfiguredTicketCost) {
		t.Fatalf("expected ErrMisconfiguredTicketCost, got %v", err)
	}
}

func TestLedgerCloneIsolated(t *testing.T) {
	ledger := newTicketLedger(uint256.NewInt(10), 1, false)
	mustIssue(t, &ledger, ledgerAlice, 15)

	copied := ledger.clone()
	mustIssue(t, &copied, ledgerAlice, 15)

	if ledger.LastTicketID != 1 || ledger.PendingOf(ledgerAlice).Uint64() != 5 {
		t.Fatalf("clone mutated the original ledger")
	}
	if copied.LastTicketID != 3 || copied.PendingOf(ledgerAlice).Uint64() != 0 {
		t.Fatalf("unexpected clone state: last=%d", copied.LastTicketID)
	}
}

func mustIssue(t *testing.T, ledger *TicketLedger, account common.Address, value uint64) Issuance {
	t.Helper()
	issuance, err := ledger.Issue(account, uint256.NewInt(value))
	if err != nil {
		t.Fatalf("issue %d: %v", value, err)
	}
	return issuance
}
