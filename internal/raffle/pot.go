package raffle

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/model"
)

// PotAccount owns the live round and the withdrawable protocol fees.
type PotAccount struct {
	Round  model.PotState                  `json:"round"`
	Limit  *uint256.Int                    `json:"limit"`
	FeeBps uint64                          `json:"fee_bps"`
	Token  common.Address                  `json:"token"`
	Fees   map[common.Address]*uint256.Int `json:"fees"`
}

func newPotAccount(potID uint64, limit *uint256.Int, feeBps uint64, token common.Address, now time.Time) PotAccount {
	return PotAccount{
		Round:  model.NewPotState(potID, nil, now),
		Limit:  limit.Clone(),
		FeeBps: feeBps,
		Token:  token,
		Fees:   make(map[common.Address]*uint256.Int),
	}
}

func (p *PotAccount) requireOpen() error {
	if p.Round.IsClosed {
		return ErrRoundClosed
	}
	return nil
}

// AddContribution splits delta into protocol fee and pot increment.
func (p *PotAccount) AddContribution(delta *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := p.requireOpen(); err != nil {
		return nil, nil, err
	}
	protocolFee, increment, err := fee.Split(delta, p.FeeBps)
	if err != nil {
		return nil, nil, err
	}
	size, err := fee.Add(p.Round.CurrentSize, increment)
	if err != nil {
		return nil, nil, err
	}
	if err := p.accrue(p.Token, protocolFee); err != nil {
		return nil, nil, err
	}
	p.Round.CurrentSize = size
	return protocolFee, increment, nil
}

// AccrueFee books the whole amount as protocol fee in token.
func (p *PotAccount) AccrueFee(token common.Address, amount *uint256.Int) error {
	if err := p.requireOpen(); err != nil {
		return err
	}
	return p.accrue(token, amount)
}

func (p *PotAccount) accrue(token common.Address, amount *uint256.Int) error {
	current, ok := p.Fees[token]
	if !ok {
		current = new(uint256.Int)
	}
	total, err := fee.Add(current, amount)
	if err != nil {
		return err
	}
	if token == p.Token {
		roundFee, err := fee.Add(p.Round.AccumulatedProtocolFee, amount)
		if err != nil {
			return err
		}
		p.Round.AccumulatedProtocolFee = roundFee
	}
	p.Fees[token] = total
	return nil
}

// Add grows the pot without a fee split.
func (p *PotAccount) Add(amount *uint256.Int) error {
	if err := p.requireOpen(); err != nil {
		return err
	}
	size, err := fee.Add(p.Round.CurrentSize, amount)
	if err != nil {
		return err
	}
	p.Round.CurrentSize = size
	return nil
}

// Triggered reports whether the live round must close.
func (p *PotAccount) Triggered(trigger Trigger, now time.Time) bool {
	if p.Round.IsClosed {
		return false
	}
	switch trigger {
	case TriggerPotFill:
		return !p.Round.CurrentSize.Lt(p.Limit)
	case TriggerTimed:
		return p.Round.EndTime != nil && !now.Before(*p.Round.EndTime)
	default:
		return false
	}
}

// Close moves Open -> Closed.
func (p *PotAccount) Close() error {
	if err := p.requireOpen(); err != nil {
		return err
	}
	p.Round.IsClosed = true
	return nil
}

// MarkDrawn moves Closed -> Drawn.
func (p *PotAccount) MarkDrawn() error {
	if p.Round.IsDrawn {
		return ErrAlreadyDrawn
	}
	if !p.Round.IsClosed {
		return ErrNotDrawn
	}
	p.Round.IsDrawn = true
	return nil
}

// Settle archives the drawn round and opens the next one with the undistributed
// remainder.
func (p *PotAccount) Settle(paid *uint256.Int, now time.Time, nextEnd *time.Time) (model.PotState, error) {
	if p.Round.WinnerSet {
		return model.PotState{}, ErrAlreadyDrawn
	}
	if !p.Round.IsDrawn {
		return model.PotState{}, ErrNotDrawn
	}
	carry, err := fee.Sub(p.Round.CurrentSize, paid)
	if err != nil {
		return model.PotState{}, err
	}

	settledAt := now
	archived := p.Round.Clone()
	archived.WinnerSet = true
	archived.SettledAt = &settledAt
	archived.Paid = paid.Clone()

	next := model.NewPotState(p.Round.PotID+1, carry, now)
	if nextEnd != nil {
		end := *nextEnd
		next.EndTime = &end
	}
	p.Round = next
	return archived, nil
}

// FeeOf returns the withdrawable fee balance in token.
func (p *PotAccount) FeeOf(token common.Address) *uint256.Int {
	if v, ok := p.Fees[token]; ok && v != nil {
		return v.Clone()
	}
	return new(uint256.Int)
}

// FeeWithdrawal is one token balance released by WithdrawFees.
type FeeWithdrawal struct {
	Token  common.Address
	Amount *uint256.Int
}

// WithdrawFees zeroes every fee balance and returns them ordered by token.
func (p *PotAccount) WithdrawFees() []FeeWithdrawal {
	out := make([]FeeWithdrawal, 0, len(p.Fees))
	for token, amount := range p.Fees {
		if amount == nil || amount.IsZero() {
			continue
		}
		out = append(out, FeeWithdrawal{Token: token, Amount: amount.Clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Token.Hex() < out[j].Token.Hex()
	})
	p.Fees = make(map[common.Address]*uint256.Int)
	return out
}

func (p PotAccount) clone() PotAccount {
	out := p
	out.Round = p.Round.Clone()
	out.Limit = p.Limit.Clone()
	out.Fees = make(map[common.Address]*uint256.Int, len(p.Fees))
	for token, amount := range p.Fees {
		if amount != nil {
			out.Fees[token] = amount.Clone()
		}
	}
	return out
}
