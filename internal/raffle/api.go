package raffle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// ExecuteRaffle settles the drawn round with the given ranking.
func (e *Engine) ExecuteRaffle(ctx context.Context, caller common.Address, winners []common.Address) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.ExecuteRaffle(caller, winners)
	})
}

// Fulfill delivers an external randomness result.
func (e *Engine) Fulfill(ctx context.Context, caller common.Address, requestID, randomValue *uint256.Int) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.Fulfill(caller, requestID, randomValue)
	})
}

// FulfillRandomWords delivers an operator-supplied seed for the live round.
func (e *Engine) FulfillRandomWords(ctx context.Context, caller common.Address, seed *uint256.Int) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.FulfillRandomWords(caller, seed)
	})
}

// Claim pays the caller's prize and returns the amount paid.
func (e *Engine) Claim(ctx context.Context, caller common.Address) (*uint256.Int, error) {
	var amount *uint256.Int
	err := e.Update(ctx, func(tx *Tx) error {
		var err error
		amount, err = tx.Claim(caller)
		return err
	})
	return amount, err
}

// Poke closes the live round when its trigger has fired.
func (e *Engine) Poke(ctx context.Context) (bool, error) {
	var closed bool
	err := e.Update(ctx, func(tx *Tx) error {
		var err error
		closed, err = tx.Poke()
		return err
	})
	return closed, err
}

// SweepExpired returns expired awards to the open pot.
func (e *Engine) SweepExpired(ctx context.Context, caller common.Address) (*uint256.Int, error) {
	var total *uint256.Int
	err := e.Update(ctx, func(tx *Tx) error {
		var err error
		total, err = tx.SweepExpired(caller)
		return err
	})
	return total, err
}

func (e *Engine) WithdrawFee(ctx context.Context, caller, to common.Address) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.WithdrawFee(caller, to)
	})
}

func (e *Engine) SetRaffleTicketCost(ctx context.Context, caller common.Address, cost *uint256.Int) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.SetRaffleTicketCost(caller, cost)
	})
}

func (e *Engine) SetPotLimit(ctx context.Context, caller common.Address, limit *uint256.Int) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.SetPotLimit(caller, limit)
	})
}

func (e *Engine) UpdatePrizeDistribution(ctx context.Context, caller common.Address, amounts []*uint256.Int, numberOfWinners int) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.UpdatePrizeDistribution(caller, amounts, numberOfWinners)
	})
}

func (e *Engine) ConfigureUsdPriceFeeds(ctx context.Context, caller common.Address, tokens, feeds []common.Address) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.ConfigureUsdPriceFeeds(caller, tokens, feeds)
	})
}

func (e *Engine) AddIncentivizedTokens(ctx context.Context, caller common.Address, tokens []model.TokenDescriptor) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.AddIncentivizedTokens(caller, tokens)
	})
}

func (e *Engine) SponsorRaffle(ctx context.Context, caller common.Address, amount *uint256.Int) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.SponsorRaffle(caller, amount)
	})
}

func (e *Engine) StartRaffle(ctx context.Context, caller common.Address) error {
	return e.Update(ctx, func(tx *Tx) error {
		return tx.StartRaffle(caller)
	})
}

// CurrentPotSize is the size of the live round.
func (e *Engine) CurrentPotSize() *uint256.Int {
	var out *uint256.Int
	e.view(func(s *State) { out = s.Pot.Round.CurrentSize.Clone() })
	return out
}

// AccumulatedProtocolFee is the withdrawable fee in the prize token.
func (e *Engine) AccumulatedProtocolFee() *uint256.Int {
	var out *uint256.Int
	e.view(func(s *State) { out = s.Pot.FeeOf(e.params.PrizeToken.Address) })
	return out
}

// ProtocolFees returns every withdrawable fee balance by token.
func (e *Engine) ProtocolFees() map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int)
	e.view(func(s *State) {
		for token, amount := range s.Pot.Fees {
			out[token] = amount.Clone()
		}
	})
	return out
}

// PendingAmounts is the account's sub-ticket remainder in ticket units.
func (e *Engine) PendingAmounts(account common.Address) *uint256.Int {
	var out *uint256.Int
	e.view(func(s *State) { out = s.Ledger.PendingOf(account) })
	return out
}

// PendingAmountsUSD values the remainder in USD. Under USD ticketing the
// remainder already is USD; otherwise the prize token feed is used.
func (e *Engine) PendingAmountsUSD(ctx context.Context, account common.Address) (*uint256.Int, error) {
	var (
		pending *uint256.Int
		feed    common.Address
		hasFeed bool
	)
	e.view(func(s *State) {
		pending = s.Ledger.PendingOf(account)
		feed, hasFeed = s.PriceFeeds[e.params.PrizeToken.Address]
	})
	if e.params.Ticketing == TicketingUSD || pending.IsZero() {
		return pending, nil
	}
	if !hasFeed || e.quoter == nil {
		return nil, fmt.Errorf("%w: %s", ErrPriceFeedMissing, e.params.PrizeToken.Address.Hex())
	}
	return e.quoter.Quote(ctx, feed, e.params.PrizeToken, pending)
}

// LastRaffleTicketID is the number of tickets issued in the live round.
func (e *Engine) LastRaffleTicketID() uint64 {
	var out uint64
	e.view(func(s *State) { out = s.Ledger.LastTicketID })
	return out
}

// TicketOwner returns the holder of a ticket in the live round.
func (e *Engine) TicketOwner(id uint64) (common.Address, bool) {
	var (
		owner common.Address
		ok    bool
	)
	e.view(func(s *State) { owner, ok = s.Ledger.OwnerOf(id) })
	return owner, ok
}

// WinningTicketIDs returns the ids drawn for potID.
func (e *Engine) WinningTicketIDs(potID uint64) []uint64 {
	var out []uint64
	e.view(func(s *State) { out = append([]uint64(nil), s.WinningTickets[potID]...) })
	return out
}

// Winners returns the drawn owners, or the paid ranking once settled.
func (e *Engine) Winners(potID uint64) []common.Address {
	var out []common.Address
	e.view(func(s *State) { out = append([]common.Address(nil), s.Winners[potID]...) })
	return out
}

// ClaimablePrizes returns the unclaimed prize and its deadline.
func (e *Engine) ClaimablePrizes(account common.Address) (*uint256.Int, time.Time) {
	var (
		amount   *uint256.Int
		deadline time.Time
	)
	e.view(func(s *State) { amount, deadline = s.Vault.Claimable(account) })
	return amount, deadline
}

// LockedPrizes is the account's expired balance awaiting SweepExpired.
func (e *Engine) LockedPrizes(account common.Address) *uint256.Int {
	var out *uint256.Int
	e.view(func(s *State) { out = s.Vault.LockedOf(account) })
	return out
}

// RaffleStatus reports the flags of potID, live or archived.
func (e *Engine) RaffleStatus(potID uint64) (closed, drawn, winnerSet bool) {
	e.view(func(s *State) {
		round, ok := s.Rounds[potID]
		if !ok && s.Pot.Round.PotID == potID {
			round, ok = s.Pot.Round, true
		}
		if ok {
			closed, drawn, winnerSet = round.IsClosed, round.IsDrawn, round.WinnerSet
		}
	})
	return closed, drawn, winnerSet
}

// Round returns a copy of the live or archived PotState of potID.
func (e *Engine) Round(potID uint64) (model.PotState, bool) {
	var (
		out model.PotState
		ok  bool
	)
	e.view(func(s *State) {
		if round, found := s.Rounds[potID]; found {
			out, ok = round.Clone(), true
			return
		}
		if s.Pot.Round.PotID == potID {
			out, ok = s.Pot.Round.Clone(), true
		}
	})
	return out, ok
}

// CurrentPotID is the id of the live round.
func (e *Engine) CurrentPotID() uint64 {
	var out uint64
	e.view(func(s *State) { out = s.Pot.Round.PotID })
	return out
}

// RaffleEndTime is the end of the live timed round, if started.
func (e *Engine) RaffleEndTime() (time.Time, bool) {
	var (
		out time.Time
		ok  bool
	)
	e.view(func(s *State) {
		if s.Pot.Round.EndTime != nil {
			out, ok = *s.Pot.Round.EndTime, true
		}
	})
	return out, ok
}

// LastRequestID is the most recent randomness request id.
func (e *Engine) LastRequestID() (*uint256.Int, bool) {
	var out *uint256.Int
	e.view(func(s *State) {
		if s.Randomness.LastRequestID != nil {
			out = s.Randomness.LastRequestID.Clone()
		}
	})
	return out, out != nil
}

// RandomnessRequest looks a request up by id.
func (e *Engine) RandomnessRequest(requestID *uint256.Int) (model.RandomnessRequest, bool) {
	var (
		out model.RandomnessRequest
		ok  bool
	)
	e.view(func(s *State) {
		if req, found := s.Randomness.Get(requestID); found {
			out, ok = req.Clone(), true
		}
	})
	return out, ok
}

// TicketCost is the current ticket price.
func (e *Engine) TicketCost() *uint256.Int {
	var out *uint256.Int
	e.view(func(s *State) { out = s.Ledger.TicketCost.Clone() })
	return out
}

// PotLimit is the current fill threshold.
func (e *Engine) PotLimit() *uint256.Int {
	var out *uint256.Int
	e.view(func(s *State) { out = s.Pot.Limit.Clone() })
	return out
}

// Distribution returns a copy of the prize table.
func (e *Engine) Distribution() PrizeDistribution {
	var out PrizeDistribution
	e.view(func(s *State) { out = s.Distribution.clone() })
	return out
}

// Rounds returns the archived rounds ordered by pot id.
func (e *Engine) Rounds() []model.PotState {
	var out []model.PotState
	e.view(func(s *State) {
		for potID := uint64(firstPotID); potID < s.Pot.Round.PotID; potID++ {
			if round, ok := s.Rounds[potID]; ok {
				out = append(out, round.Clone())
			}
		}
	})
	return out
}

// Awards returns a copy of every award record ordered by account.
func (e *Engine) Awards() []model.PrizeAward {
	var out []model.PrizeAward
	e.view(func(s *State) {
		for _, award := range s.Vault.Awards {
			if award != nil {
				out = append(out, award.Clone())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Account.Hex() < out[j].Account.Hex()
	})
	return out
}
