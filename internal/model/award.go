package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PrizeAward is a claimable balance held in escrow for an account.
type PrizeAward struct {
	Account       common.Address `json:"account"`
	Amount        *uint256.Int   `json:"amount"`
	ClaimDeadline time.Time      `json:"claim_deadline"`
	Claimed       bool           `json:"claimed"`
	PotID         uint64         `json:"pot_id"`
}

// Clone returns a deep copy.
func (a PrizeAward) Clone() PrizeAward {
	out := a
	out.Amount = cloneInt(a.Amount)
	return out
}
