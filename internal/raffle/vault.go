package raffle

import (
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/model"
)

// ClaimVault escrows prize awards until they are claimed or swept. Awards
// whose window lapsed before a new credit arrived are parked in Locked and
// only leave the vault through SweepExpired.
type ClaimVault struct {
	Awards map[common.Address]*model.PrizeAward `json:"awards"`
	Locked map[common.Address]*uint256.Int      `json:"locked"`
}

func newClaimVault() ClaimVault {
	return ClaimVault{
		Awards: make(map[common.Address]*model.PrizeAward),
		Locked: make(map[common.Address]*uint256.Int),
	}
}

// Credit adds amount to the account's award. Credits accumulate while the
// award is claimable and the latest deadline wins. An expired award is locked
// first, so the new credit starts a fresh award.
func (v *ClaimVault) Credit(account common.Address, amount *uint256.Int, deadline, now time.Time, potID uint64) error {
	award, ok := v.Awards[account]
	if ok && award != nil && !award.Claimed && award.Amount != nil && !award.Amount.IsZero() && now.After(award.ClaimDeadline) {
		if err := v.lock(account, award.Amount); err != nil {
			return err
		}
		award.Amount = new(uint256.Int)
	}
	if !ok || award == nil || award.Claimed || award.Amount == nil || award.Amount.IsZero() {
		award = &model.PrizeAward{Account: account, Amount: new(uint256.Int)}
	}
	total, err := fee.Add(award.Amount, amount)
	if err != nil {
		return err
	}
	award.Amount = total
	award.Claimed = false
	award.PotID = potID
	if deadline.After(award.ClaimDeadline) {
		award.ClaimDeadline = deadline
	}
	v.Awards[account] = award
	return nil
}

func (v *ClaimVault) lock(account common.Address, amount *uint256.Int) error {
	locked := v.Locked[account]
	if locked == nil {
		locked = new(uint256.Int)
	}
	total, err := fee.Add(locked, amount)
	if err != nil {
		return err
	}
	v.Locked[account] = total
	return nil
}

// LockedOf is the expired balance of account waiting to be swept.
func (v *ClaimVault) LockedOf(account common.Address) *uint256.Int {
	if locked := v.Locked[account]; locked != nil {
		return locked.Clone()
	}
	return new(uint256.Int)
}

// Claim releases the full award once.
func (v *ClaimVault) Claim(account common.Address, now time.Time) (*uint256.Int, error) {
	award, ok := v.Awards[account]
	if !ok || award == nil || award.Amount == nil || award.Amount.IsZero() {
		return nil, ErrNoAvailableWinnings
	}
	if now.After(award.ClaimDeadline) {
		return nil, ErrClaimWindowExpired
	}
	amount := award.Amount.Clone()
	award.Amount = new(uint256.Int)
	award.Claimed = true
	return amount, nil
}

// Claimable returns the unclaimed amount and its deadline.
func (v *ClaimVault) Claimable(account common.Address) (*uint256.Int, time.Time) {
	award, ok := v.Awards[account]
	if !ok || award == nil || award.Amount == nil {
		return new(uint256.Int), time.Time{}
	}
	return award.Amount.Clone(), award.ClaimDeadline
}

// SweptAward is an expired balance removed from the vault.
type SweptAward struct {
	Account common.Address
	Amount  *uint256.Int
}

// SweepExpired zeroes every locked balance and every unclaimed award past its
// deadline.
func (v *ClaimVault) SweepExpired(now time.Time) (*uint256.Int, []SweptAward, error) {
	seen := make(map[common.Address]struct{}, len(v.Awards)+len(v.Locked))
	for account := range v.Awards {
		seen[account] = struct{}{}
	}
	for account := range v.Locked {
		seen[account] = struct{}{}
	}
	accounts := make([]common.Address, 0, len(seen))
	for account := range seen {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Hex() < accounts[j].Hex()
	})

	total := new(uint256.Int)
	var swept []SweptAward
	for _, account := range accounts {
		amount := v.LockedOf(account)
		award := v.Awards[account]
		expired := award != nil && award.Amount != nil && !award.Amount.IsZero() && now.After(award.ClaimDeadline)
		if expired {
			next, err := fee.Add(amount, award.Amount)
			if err != nil {
				return nil, nil, err
			}
			amount = next
		}
		if amount.IsZero() {
			continue
		}
		next, err := fee.Add(total, amount)
		if err != nil {
			return nil, nil, err
		}
		total = next
		swept = append(swept, SweptAward{Account: account, Amount: amount})
		delete(v.Locked, account)
		if expired {
			award.Amount = new(uint256.Int)
		}
	}
	return total, swept, nil
}

func (v ClaimVault) clone() ClaimVault {
	out := ClaimVault{
		Awards: make(map[common.Address]*model.PrizeAward, len(v.Awards)),
		Locked: make(map[common.Address]*uint256.Int, len(v.Locked)),
	}
	for account, amount := range v.Locked {
		if amount != nil {
			out.Locked[account] = amount.Clone()
		}
	}
	for account, award := range v.Awards {
		if award == nil {
			continue
		}
		copied := award.Clone()
		out.Awards[account] = &copied
	}
	return out
}
