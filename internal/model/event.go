package model

// EventKind names a committed engine transition.
type EventKind string

const (
	EventContribution        EventKind = "contribution"
	EventTicketsIssued       EventKind = "tickets_issued"
	EventRoundClosed         EventKind = "round_closed"
	EventRandomnessRequested EventKind = "randomness_requested"
	EventRandomnessFulfilled EventKind = "randomness_fulfilled"
	EventWinnersDrawn        EventKind = "winners_drawn"
	EventRoundSettled        EventKind = "round_settled"
	EventPrizeCredited       EventKind = "prize_credited"
	EventPrizeClaimed        EventKind = "prize_claimed"
	EventFeeWithdrawn        EventKind = "fee_withdrawn"
	EventSponsored           EventKind = "sponsored"
	EventRaffleStarted       EventKind = "raffle_started"
	EventConfigUpdated       EventKind = "config_updated"
	EventExpiredSwept        EventKind = "expired_swept"
	EventTradeRouted         EventKind = "trade_routed"
	EventRejected            EventKind = "rejected"
)

// Event is one journal entry. Amounts are decimal strings.
type Event struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	PotID       uint64    `json:"pot_id"`
	Account     string    `json:"account,omitempty"`
	Token       string    `json:"token,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	TicketFrom  uint64    `json:"ticket_from,omitempty"`
	TicketTo    uint64    `json:"ticket_to,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	RandomValue string    `json:"random_value,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	ActionSeq   uint64    `json:"action_seq,omitempty"`
	Timestamp   uint64    `json:"timestamp"`
}
