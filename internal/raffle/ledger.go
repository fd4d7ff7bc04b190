package raffle

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
)

// TicketRange assigns the tickets [First, Last) of the current round to Owner.
type TicketRange struct {
	First uint64         `json:"first"`
	Last  uint64         `json:"last"`
	Owner common.Address `json:"owner"`
}

// PendingEntry is the sub-ticket remainder of one account.
type PendingEntry struct {
	Amount *uint256.Int `json:"amount"`
	Round  uint64       `json:"round"`
}

// Issuance describes the tickets minted by one contribution.
type Issuance struct {
	Issued  uint64
	First   uint64
	Last    uint64
	Pending *uint256.Int
}

// TicketLedger converts contribution value into sequential tickets.
type TicketLedger struct {
	TicketCost   *uint256.Int                     `json:"ticket_cost"`
	LastTicketID uint64                           `json:"last_ticket_id"`
	Round        uint64                           `json:"round"`
	ResetPending bool                             `json:"reset_pending"`
	Pending      map[common.Address]*PendingEntry `json:"pending"`
	Ranges       []TicketRange                    `json:"ranges"`
}

func newTicketLedger(cost *uint256.Int, round uint64, resetPending bool) TicketLedger {
	return TicketLedger{
		TicketCost:   cost.Clone(),
		Round:        round,
		ResetPending: resetPending,
		Pending:      make(map[common.Address]*PendingEntry),
	}
}

// Issue adds value to the account's pending amount and mints whole tickets from it.
func (l *TicketLedger) Issue(account common.Address, value *uint256.Int) (Issuance, error) {
	if l.TicketCost == nil || l.TicketCost.IsZero() {
		return Issuance{}, ErrMisconfiguredTicketCost
	}

	total, err := fee.Add(l.PendingOf(account), value)
	if err != nil {
		return Issuance{}, err
	}

	count := new(uint256.Int).Div(total, l.TicketCost)
	remainder := new(uint256.Int).Mod(total, l.TicketCost)
	if !count.IsUint64() {
		return Issuance{}, ErrOverflow
	}

	issued := count.Uint64()
	first := l.LastTicketID
	last := first + issued
	if last < first {
		return Issuance{}, ErrOverflow
	}

	l.Pending[account] = &PendingEntry{Amount: remainder, Round: l.Round}
	if issued > 0 {
		l.LastTicketID = last
		l.appendRange(account, first, last)
	}

	return Issuance{Issued: issued, First: first, Last: last, Pending: remainder.Clone()}, nil
}

func (l *TicketLedger) appendRange(owner common.Address, first, last uint64) {
	if n := len(l.Ranges); n > 0 {
		tail := &l.Ranges[n-1]
		if tail.Owner == owner && tail.Last == first {
			tail.Last = last
			return
		}
	}
	l.Ranges = append(l.Ranges, TicketRange{First: first, Last: last, Owner: owner})
}

// PendingOf returns the carried remainder of account.
func (l *TicketLedger) PendingOf(account common.Address) *uint256.Int {
	entry, ok := l.Pending[account]
	if !ok || entry == nil || entry.Amount == nil {
		return new(uint256.Int)
	}
	if l.ResetPending && entry.Round != l.Round {
		return new(uint256.Int)
	}
	return entry.Amount.Clone()
}

// SetTicketCost applies to later contributions only.
func (l *TicketLedger) SetTicketCost(cost *uint256.Int) error {
	if cost == nil || cost.IsZero() {
		return ErrMisconfiguredTicketCost
	}
	l.TicketCost = cost.Clone()
	return nil
}

// OwnerOf finds the holder of ticket id in the current round.
func (l *TicketLedger) OwnerOf(id uint64) (common.Address, bool) {
	i := sort.Search(len(l.Ranges), func(i int) bool {
		return l.Ranges[i].Last > id
	})
	if i == len(l.Ranges) || l.Ranges[i].First > id {
		return common.Address{}, false
	}
	return l.Ranges[i].Owner, true
}

// StartRound resets the ticket counter. Pending amounts of older rounds are
// ignored lazily when ResetPending is set.
func (l *TicketLedger) StartRound(round uint64) {
	l.Round = round
	l.LastTicketID = 0
	l.Ranges = nil
}

func (l TicketLedger) clone() TicketLedger {
	out := l
	if l.TicketCost != nil {
		out.TicketCost = l.TicketCost.Clone()
	}
	out.Pending = make(map[common.Address]*PendingEntry, len(l.Pending))
	for account, entry := range l.Pending {
		if entry == nil {
			continue
		}
		copied := *entry
		if entry.Amount != nil {
			copied.Amount = entry.Amount.Clone()
		}
		out.Pending[account] = &copied
	}
	if l.Ranges != nil {
		out.Ranges = append([]TicketRange(nil), l.Ranges...)
	}
	return out
}
