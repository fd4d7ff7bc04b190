package model

import (
	"time"

	"github.com/holiman/uint256"
)

// RoundStatus is the lifecycle state of a pot round.
type RoundStatus string

const (
	RoundOpen    RoundStatus = "open"
	RoundClosed  RoundStatus = "closed"
	RoundDrawn   RoundStatus = "drawn"
	RoundSettled RoundStatus = "settled"
)

// PotState is the accounting record of one round.
type PotState struct {
	PotID                  uint64       `json:"pot_id"`
	CurrentSize            *uint256.Int `json:"current_size"`
	AccumulatedProtocolFee *uint256.Int `json:"accumulated_protocol_fee"`
	IsClosed               bool         `json:"is_closed"`
	IsDrawn                bool         `json:"is_drawn"`
	WinnerSet              bool         `json:"winner_set"`
	EndTime                *time.Time   `json:"end_time,omitempty"`
	StartedAt              time.Time    `json:"started_at"`
	SettledAt              *time.Time   `json:"settled_at,omitempty"`
	TicketCount            uint64       `json:"ticket_count"`
	Paid                   *uint256.Int `json:"paid,omitempty"`
}

// NewPotState opens a fresh round carrying size over from the previous one.
func NewPotState(potID uint64, carry *uint256.Int, startedAt time.Time) PotState {
	size := new(uint256.Int)
	if carry != nil {
		size.Set(carry)
	}
	return PotState{
		PotID:                  potID,
		CurrentSize:            size,
		AccumulatedProtocolFee: new(uint256.Int),
		StartedAt:              startedAt,
	}
}

// Status derives the round status from its flags.
func (p PotState) Status() RoundStatus {
	switch {
	case p.WinnerSet:
		return RoundSettled
	case p.IsDrawn:
		return RoundDrawn
	case p.IsClosed:
		return RoundClosed
	default:
		return RoundOpen
	}
}

// Clone returns a deep copy.
func (p PotState) Clone() PotState {
	out := p
	out.CurrentSize = cloneInt(p.CurrentSize)
	out.AccumulatedProtocolFee = cloneInt(p.AccumulatedProtocolFee)
	out.Paid = cloneInt(p.Paid)
	if p.EndTime != nil {
		end := *p.EndTime
		out.EndTime = &end
	}
	if p.SettledAt != nil {
		settled := *p.SettledAt
		out.SettledAt = &settled
	}
	return out
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return v.Clone()
}
