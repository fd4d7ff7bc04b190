package model

// ActionKind selects the engine or gateway call an Action replays.
type ActionKind string

const (
	ActionTrade                ActionKind = "trade"
	ActionBatch                ActionKind = "batch"
	ActionFulfill              ActionKind = "fulfill"
	ActionExecuteRaffle        ActionKind = "execute_raffle"
	ActionClaim                ActionKind = "claim"
	ActionSponsor              ActionKind = "sponsor"
	ActionStart                ActionKind = "start"
	ActionPoke                 ActionKind = "poke"
	ActionWithdrawFee          ActionKind = "withdraw_fee"
	ActionSweepExpired         ActionKind = "sweep_expired"
	ActionSetTicketCost        ActionKind = "set_ticket_cost"
	ActionSetPotLimit          ActionKind = "set_pot_limit"
	ActionUpdateDistribution   ActionKind = "update_distribution"
	ActionConfigurePriceFeeds  ActionKind = "configure_price_feeds"
	ActionAddIncentivizedToken ActionKind = "add_incentivized_tokens"
)

// BatchEntry is one trade inside a batch action.
type BatchEntry struct {
	TradeAmount string `json:"trade_amount"`
	User        string `json:"user"`
}

// Action is a replayable call against the raffle. Numeric values are decimal strings.
type Action struct {
	Seq             uint64       `json:"seq"`
	Kind            ActionKind   `json:"kind"`
	Caller          string       `json:"caller"`
	Timestamp       uint64       `json:"timestamp"`
	Token           string       `json:"token,omitempty"`
	Amount          string       `json:"amount,omitempty"`
	Value           string       `json:"value,omitempty"`
	Beneficiary     string       `json:"beneficiary,omitempty"`
	Data            string       `json:"data,omitempty"`
	Batch           []BatchEntry `json:"batch,omitempty"`
	Winners         []string     `json:"winners,omitempty"`
	RequestID       string       `json:"request_id,omitempty"`
	RandomValue     string       `json:"random_value,omitempty"`
	SeedBlock       uint64       `json:"seed_block,omitempty"`
	To              string       `json:"to,omitempty"`
	Amounts         []string     `json:"amounts,omitempty"`
	NumberOfWinners int          `json:"number_of_winners,omitempty"`
	Tokens          []string     `json:"tokens,omitempty"`
	Decimals        []uint8      `json:"decimals,omitempty"`
	Feeds           []string     `json:"feeds,omitempty"`

	ChainID     uint64 `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	LogIndex    uint64 `json:"log_index,omitempty"`
}
