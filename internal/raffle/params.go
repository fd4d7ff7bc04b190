package raffle

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/model"
)

// Trigger selects the condition that closes a round.
type Trigger string

const (
	TriggerPotFill Trigger = "pot-fill"
	TriggerTimed   Trigger = "timed"
)

// Funding selects where the prize pot comes from.
type Funding string

const (
	// FundingSelf grows the pot from trade deltas.
	FundingSelf Funding = "self"
	// FundingSponsored grows the pot from owner sponsorship; trade deltas are fees.
	FundingSponsored Funding = "sponsored"
)

// Ticketing selects the unit tickets are priced in.
type Ticketing string

const (
	TicketingNative Ticketing = "native"
	TicketingUSD    Ticketing = "usd"
)

// Selection selects the winner selection strategy.
type Selection string

const (
	SelectionTicketDraw   Selection = "tickets"
	SelectionOperatorList Selection = "operator"
)

// RandomnessMode selects who fulfills randomness requests.
type RandomnessMode string

const (
	RandomnessExternal RandomnessMode = "external"
	RandomnessOperator RandomnessMode = "operator"
)

// Params configures an Engine. TicketCost, PotLimit and the distribution seed
// the initial state and are changed later through owner calls.
type Params struct {
	Owner            common.Address
	Operator         common.Address
	Router           common.Address
	RandomnessSource common.Address

	PrizeToken     model.TokenDescriptor
	ProtocolFeeBps uint64
	ClaimWindow    time.Duration
	RoundDuration  time.Duration

	Trigger    Trigger
	Funding    Funding
	Ticketing  Ticketing
	Selection  Selection
	Randomness RandomnessMode

	ResetPendingEachRound bool

	TicketCost      *uint256.Int
	PotLimit        *uint256.Int
	PrizeAmounts    []*uint256.Int
	NumberOfWinners int
}

// DefaultParams returns a self-funded pot-fill raffle: 100 units pot, 0.1 unit
// tickets (18 decimals), one winner, 10% protocol fee, one day claim window.
func DefaultParams() Params {
	return Params{
		PrizeToken:      model.TokenDescriptor{Address: model.NativeToken, Decimals: 18},
		ProtocolFeeBps:  1000,
		ClaimWindow:     24 * time.Hour,
		Trigger:         TriggerPotFill,
		Funding:         FundingSelf,
		Ticketing:       TicketingNative,
		Selection:       SelectionTicketDraw,
		Randomness:      RandomnessExternal,
		TicketCost:      uint256.MustFromDecimal("100000000000000000"),
		PotLimit:        uint256.MustFromDecimal("100000000000000000000"),
		NumberOfWinners: 1,
	}
}

// Validate rejects configurations the engine cannot run with.
func (p Params) Validate() error {
	if p.ProtocolFeeBps > fee.HundredPercent {
		return fmt.Errorf("protocol fee %d bps: %w", p.ProtocolFeeBps, fee.ErrInvalidFee)
	}
	if p.TicketCost == nil || p.TicketCost.IsZero() {
		return ErrMisconfiguredTicketCost
	}
	if p.PotLimit == nil || p.PotLimit.IsZero() {
		return ErrInvalidPotLimit
	}
	if _, err := p.distribution(); err != nil {
		return err
	}

	switch p.Trigger {
	case TriggerPotFill:
	case TriggerTimed:
		if p.RoundDuration <= 0 {
			return ErrInvalidRoundDuration
		}
	default:
		return fmt.Errorf("trigger %q: %w", p.Trigger, ErrUnsupported)
	}
	switch p.Funding {
	case FundingSelf, FundingSponsored:
	default:
		return fmt.Errorf("funding %q: %w", p.Funding, ErrUnsupported)
	}
	switch p.Ticketing {
	case TicketingNative, TicketingUSD:
	default:
		return fmt.Errorf("ticketing %q: %w", p.Ticketing, ErrUnsupported)
	}
	switch p.Randomness {
	case RandomnessExternal, RandomnessOperator:
	default:
		return fmt.Errorf("randomness %q: %w", p.Randomness, ErrUnsupported)
	}
	if _, err := selectorFor(p.Selection); err != nil {
		return err
	}
	if p.ClaimWindow < 0 {
		return fmt.Errorf("claim window %s: %w", p.ClaimWindow, ErrUnsupported)
	}
	return nil
}

func (p Params) distribution() (PrizeDistribution, error) {
	amounts := p.PrizeAmounts
	winners := p.NumberOfWinners
	if len(amounts) == 0 {
		if winners == 0 {
			winners = 1
		}
		if winners == 1 && p.PotLimit != nil {
			amounts = []*uint256.Int{p.PotLimit}
		}
	}
	return NewPrizeDistribution(amounts, winners, p.PotLimit)
}
