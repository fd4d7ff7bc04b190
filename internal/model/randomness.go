package model

import (
	"time"

	"github.com/holiman/uint256"
)

// RandomnessRequest correlates an external randomness request with a pot.
type RandomnessRequest struct {
	RequestID   *uint256.Int `json:"request_id"`
	PotID       uint64       `json:"pot_id"`
	Created     bool         `json:"created"`
	Fulfilled   bool         `json:"fulfilled"`
	RandomValue *uint256.Int `json:"random_value,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	FulfilledAt *time.Time   `json:"fulfilled_at,omitempty"`
}

// Clone returns a deep copy.
func (r RandomnessRequest) Clone() RandomnessRequest {
	out := r
	out.RequestID = cloneInt(r.RequestID)
	out.RandomValue = cloneInt(r.RandomValue)
	if r.FulfilledAt != nil {
		at := *r.FulfilledAt
		out.FulfilledAt = &at
	}
	return out
}
