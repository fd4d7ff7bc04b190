package raffle

import (
	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
)

// PrizeDistribution is the prize table of a round, ranked by position.
type PrizeDistribution struct {
	Amounts         []*uint256.Int `json:"amounts"`
	NumberOfWinners int            `json:"number_of_winners"`
}

// NewPrizeDistribution validates amounts against potLimit.
func NewPrizeDistribution(amounts []*uint256.Int, numberOfWinners int, potLimit *uint256.Int) (PrizeDistribution, error) {
	d := PrizeDistribution{NumberOfWinners: numberOfWinners}
	for _, amount := range amounts {
		if amount == nil {
			return PrizeDistribution{}, ErrInvalidDistribution
		}
		d.Amounts = append(d.Amounts, amount.Clone())
	}
	if err := d.Validate(potLimit); err != nil {
		return PrizeDistribution{}, err
	}
	return d, nil
}

// Validate rejects tables that do not match the winner count or exceed potLimit.
func (d PrizeDistribution) Validate(potLimit *uint256.Int) error {
	if d.NumberOfWinners <= 0 || len(d.Amounts) != d.NumberOfWinners {
		return ErrInvalidDistribution
	}
	total, err := d.Total()
	if err != nil {
		return ErrInvalidDistribution
	}
	if potLimit == nil || total.Gt(potLimit) {
		return ErrInvalidDistribution
	}
	return nil
}

// Total sums the table.
func (d PrizeDistribution) Total() (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, amount := range d.Amounts {
		next, err := fee.Add(total, amount)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// Payouts returns the prizes of the first winners ranks. Self-funded rounds
// scale every rank by min(potSize, potLimit)/potLimit. Sponsored rounds pay the
// table as configured, capped by what is left in the pot.
func (d PrizeDistribution) Payouts(funding Funding, potSize, potLimit *uint256.Int, winners int) ([]*uint256.Int, error) {
	if winners > len(d.Amounts) {
		winners = len(d.Amounts)
	}
	if funding == FundingSponsored {
		return d.sponsoredPayouts(potSize, winners), nil
	}
	funded := potSize
	if potSize.Gt(potLimit) {
		funded = potLimit
	}
	out := make([]*uint256.Int, 0, winners)
	for k := 0; k < winners; k++ {
		paid, err := fee.MulDiv(d.Amounts[k], funded, potLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, paid)
	}
	return out, nil
}

func (d PrizeDistribution) sponsoredPayouts(potSize *uint256.Int, winners int) []*uint256.Int {
	left := potSize.Clone()
	out := make([]*uint256.Int, 0, winners)
	for k := 0; k < winners; k++ {
		paid := d.Amounts[k].Clone()
		if paid.Gt(left) {
			paid.Set(left)
		}
		left.Sub(left, paid)
		out = append(out, paid)
	}
	return out
}

func (d PrizeDistribution) clone() PrizeDistribution {
	out := PrizeDistribution{NumberOfWinners: d.NumberOfWinners}
	for _, amount := range d.Amounts {
		out.Amounts = append(out.Amounts, amount.Clone())
	}
	return out
}
