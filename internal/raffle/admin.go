package raffle

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// SetRaffleTicketCost changes the price of later tickets.
func (tx *Tx) SetRaffleTicketCost(caller common.Address, cost *uint256.Int) error {
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	if err := tx.state.Ledger.SetTicketCost(cost); err != nil {
		return err
	}
	tx.configUpdated("ticket_cost=" + cost.Dec())
	return nil
}

// SetPotLimit changes the fill threshold and payout scale.
func (tx *Tx) SetPotLimit(caller common.Address, limit *uint256.Int) error {
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	if limit == nil || limit.IsZero() {
		return ErrInvalidPotLimit
	}
	if err := tx.state.Distribution.Validate(limit); err != nil {
		return err
	}
	tx.state.Pot.Limit = limit.Clone()
	tx.configUpdated("pot_limit=" + limit.Dec())
	return nil
}

// UpdatePrizeDistribution replaces the prize table.
func (tx *Tx) UpdatePrizeDistribution(caller common.Address, amounts []*uint256.Int, numberOfWinners int) error {
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	distribution, err := NewPrizeDistribution(amounts, numberOfWinners, tx.state.Pot.Limit)
	if err != nil {
		return err
	}
	tx.state.Distribution = distribution
	tx.configUpdated(fmt.Sprintf("winners=%d", numberOfWinners))
	return nil
}

// ConfigureUsdPriceFeeds maps tokens to their USD price feeds.
func (tx *Tx) ConfigureUsdPriceFeeds(caller common.Address, tokens, feeds []common.Address) error {
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	if len(tokens) != len(feeds) {
		return ErrLengthMismatch
	}
	for i, token := range tokens {
		tx.state.PriceFeeds[token] = feeds[i]
	}
	tx.configUpdated(fmt.Sprintf("price_feeds=%d", len(tokens)))
	return nil
}

// AddIncentivizedTokens makes trades in tokens earn tickets. Every token needs
// a configured price feed.
func (tx *Tx) AddIncentivizedTokens(caller common.Address, tokens []model.TokenDescriptor) error {
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	for _, token := range tokens {
		if _, ok := tx.state.PriceFeeds[token.Address]; !ok {
			return fmt.Errorf("%w: %s", ErrPriceFeedMissing, token.Address.Hex())
		}
		tx.state.Incentivized[token.Address] = token
	}
	tx.configUpdated(fmt.Sprintf("incentivized=%d", len(tokens)))
	return nil
}

// SponsorRaffle pulls amount of the prize token from the owner into the pot.
func (tx *Tx) SponsorRaffle(caller common.Address, amount *uint256.Int) error {
	params := tx.engine.params
	if params.Funding != FundingSponsored {
		return fmt.Errorf("sponsor: %w", ErrUnsupported)
	}
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrInsufficientFunds
	}
	if err := tx.state.Pot.Add(amount); err != nil {
		return err
	}
	tx.Emit(model.Event{
		Kind:    model.EventSponsored,
		Account: caller.Hex(),
		Token:   params.PrizeToken.Address.Hex(),
		Amount:  amount.Dec(),
	})
	if err := tx.evaluateTrigger(); err != nil {
		return err
	}
	tx.collect(params.PrizeToken.Address, caller, amount.Clone())
	return nil
}

// StartRaffle starts the clock of the first timed round. Sponsored rounds must
// already hold the full prize table.
func (tx *Tx) StartRaffle(caller common.Address) error {
	params := tx.engine.params
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	if params.Trigger != TriggerTimed {
		return fmt.Errorf("start: %w", ErrUnsupported)
	}
	pot := &tx.state.Pot
	if err := pot.requireOpen(); err != nil {
		return err
	}
	if pot.Round.EndTime != nil {
		return ErrRoundStarted
	}
	if params.Funding == FundingSponsored {
		total, err := tx.state.Distribution.Total()
		if err != nil {
			return err
		}
		if pot.Round.CurrentSize.Lt(total) {
			return ErrInsufficientFunds
		}
	}
	end := tx.now.Add(params.RoundDuration)
	pot.Round.EndTime = &end
	tx.Emit(model.Event{
		Kind:   model.EventRaffleStarted,
		Detail: "end=" + end.UTC().Format(time.RFC3339),
	})
	return nil
}

func (tx *Tx) configUpdated(detail string) {
	tx.Emit(model.Event{Kind: model.EventConfigUpdated, Detail: detail})
}
