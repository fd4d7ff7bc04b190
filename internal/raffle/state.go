package raffle

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

const firstPotID = 1

// State is the complete persisted raffle state. Round-indexed maps are keyed by
// pot id and never reindexed.
type State struct {
	Pot            PotAccount                               `json:"pot"`
	Ledger         TicketLedger                             `json:"ledger"`
	Vault          ClaimVault                               `json:"vault"`
	Randomness     RandomnessBook                           `json:"randomness"`
	Distribution   PrizeDistribution                        `json:"distribution"`
	Rounds         map[uint64]model.PotState                `json:"rounds"`
	WinningTickets map[uint64][]uint64                      `json:"winning_tickets"`
	Winners        map[uint64][]common.Address              `json:"winners"`
	PriceFeeds     map[common.Address]common.Address        `json:"price_feeds"`
	Incentivized   map[common.Address]model.TokenDescriptor `json:"incentivized"`
}

func newState(params Params, now time.Time) (*State, error) {
	distribution, err := params.distribution()
	if err != nil {
		return nil, err
	}
	s := &State{
		Pot:          newPotAccount(firstPotID, params.PotLimit, params.ProtocolFeeBps, params.PrizeToken.Address, now),
		Ledger:       newTicketLedger(params.TicketCost, firstPotID, params.ResetPendingEachRound),
		Vault:        newClaimVault(),
		Randomness:   newRandomnessBook(),
		Distribution: distribution,
	}
	s.normalize()
	return s, nil
}

func (s *State) normalize() {
	if s.Rounds == nil {
		s.Rounds = make(map[uint64]model.PotState)
	}
	if s.WinningTickets == nil {
		s.WinningTickets = make(map[uint64][]uint64)
	}
	if s.Winners == nil {
		s.Winners = make(map[uint64][]common.Address)
	}
	if s.PriceFeeds == nil {
		s.PriceFeeds = make(map[common.Address]common.Address)
	}
	if s.Incentivized == nil {
		s.Incentivized = make(map[common.Address]model.TokenDescriptor)
	}
	if s.Pot.Fees == nil {
		s.Pot.Fees = make(map[common.Address]*uint256.Int)
	}
	if s.Ledger.Pending == nil {
		s.Ledger.Pending = make(map[common.Address]*PendingEntry)
	}
	if s.Vault.Awards == nil {
		s.Vault.Awards = make(map[common.Address]*model.PrizeAward)
	}
	if s.Vault.Locked == nil {
		s.Vault.Locked = make(map[common.Address]*uint256.Int)
	}
	if s.Randomness.Requests == nil {
		s.Randomness.Requests = make(map[string]*model.RandomnessRequest)
	}
	if s.Randomness.ByPot == nil {
		s.Randomness.ByPot = make(map[uint64]string)
	}
}

func (s *State) clone() *State {
	out := &State{
		Pot:            s.Pot.clone(),
		Ledger:         s.Ledger.clone(),
		Vault:          s.Vault.clone(),
		Randomness:     s.Randomness.clone(),
		Distribution:   s.Distribution.clone(),
		Rounds:         make(map[uint64]model.PotState, len(s.Rounds)),
		WinningTickets: make(map[uint64][]uint64, len(s.WinningTickets)),
		Winners:        make(map[uint64][]common.Address, len(s.Winners)),
		PriceFeeds:     make(map[common.Address]common.Address, len(s.PriceFeeds)),
		Incentivized:   make(map[common.Address]model.TokenDescriptor, len(s.Incentivized)),
	}
	for potID, round := range s.Rounds {
		out.Rounds[potID] = round.Clone()
	}
	for potID, ids := range s.WinningTickets {
		out.WinningTickets[potID] = append([]uint64(nil), ids...)
	}
	for potID, winners := range s.Winners {
		out.Winners[potID] = append([]common.Address(nil), winners...)
	}
	for token, feed := range s.PriceFeeds {
		out.PriceFeeds[token] = feed
	}
	for token, desc := range s.Incentivized {
		out.Incentivized[token] = desc
	}
	return out
}
