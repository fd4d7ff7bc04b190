package raffle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// TradeInput is the raffle-bound part of one routed trade.
type TradeInput struct {
	Beneficiary common.Address
	Token       common.Address
	Gross       *uint256.Int
	Delta       *uint256.Int
}

// ExecuteTrade books the delta of a routed trade and issues tickets to the
// beneficiary. Only the router may call it. The call that crosses the trigger
// closes the round and requests randomness.
func (tx *Tx) ExecuteTrade(caller common.Address, in TradeInput) error {
	params := tx.engine.params
	if caller != params.Router {
		return ErrNotRouter
	}
	if in.Gross == nil || in.Delta == nil {
		return fmt.Errorf("trade amounts are required")
	}
	if in.Delta.Gt(in.Gross) {
		return fmt.Errorf("delta %s exceeds trade amount %s: %w", in.Delta, in.Gross, ErrOverflow)
	}

	pot := &tx.state.Pot
	if err := pot.requireOpen(); err != nil {
		return err
	}
	// A timed round past its end only closes; the late trade is refused.
	if params.Trigger == TriggerTimed && pot.Triggered(params.Trigger, tx.now) {
		if err := tx.closeRound(); err != nil {
			return err
		}
		tx.keepOnError = true
		return ErrRoundClosed
	}

	value, err := tx.contributionValue(in.Token, in.Gross)
	if err != nil {
		return err
	}

	switch params.Funding {
	case FundingSelf:
		if in.Token != params.PrizeToken.Address {
			return fmt.Errorf("%w: %s", ErrUnsupportedToken, in.Token.Hex())
		}
		protocolFee, increment, err := pot.AddContribution(in.Delta)
		if err != nil {
			return err
		}
		tx.Emit(model.Event{
			Kind:    model.EventContribution,
			Account: in.Beneficiary.Hex(),
			Token:   in.Token.Hex(),
			Amount:  increment.Dec(),
			Detail:  "protocol_fee=" + protocolFee.Dec(),
		})
	case FundingSponsored:
		if err := pot.AccrueFee(in.Token, in.Delta); err != nil {
			return err
		}
		tx.Emit(model.Event{
			Kind:    model.EventContribution,
			Account: in.Beneficiary.Hex(),
			Token:   in.Token.Hex(),
			Amount:  "0",
			Detail:  "protocol_fee=" + in.Delta.Dec(),
		})
	}

	issuance, err := tx.state.Ledger.Issue(in.Beneficiary, value)
	if err != nil {
		return err
	}
	if issuance.Issued > 0 {
		tx.Emit(model.Event{
			Kind:       model.EventTicketsIssued,
			Account:    in.Beneficiary.Hex(),
			Amount:     value.Dec(),
			TicketFrom: issuance.First,
			TicketTo:   issuance.Last,
		})
	}

	return tx.evaluateTrigger()
}

// contributionValue prices a trade in ticket units. Tokens that are not
// incentivized are worth nothing under USD ticketing.
func (tx *Tx) contributionValue(token common.Address, gross *uint256.Int) (*uint256.Int, error) {
	params := tx.engine.params
	switch params.Ticketing {
	case TicketingUSD:
		desc, ok := tx.state.Incentivized[token]
		if !ok {
			return new(uint256.Int), nil
		}
		feed, ok := tx.state.PriceFeeds[token]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPriceFeedMissing, token.Hex())
		}
		usd, err := tx.engine.quoter.Quote(tx.ctx, feed, desc, gross)
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", token.Hex(), err)
		}
		return usd, nil
	default:
		if token != params.PrizeToken.Address {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedToken, token.Hex())
		}
		return gross.Clone(), nil
	}
}

// Poke closes an Open round whose trigger has fired. It reports whether the
// round was closed.
func (tx *Tx) Poke() (bool, error) {
	if err := tx.state.Pot.requireOpen(); err != nil {
		return false, err
	}
	if !tx.state.Pot.Triggered(tx.engine.params.Trigger, tx.now) {
		return false, nil
	}
	if err := tx.closeRound(); err != nil {
		return false, err
	}
	return true, nil
}

func (tx *Tx) evaluateTrigger() error {
	if !tx.state.Pot.Triggered(tx.engine.params.Trigger, tx.now) {
		return nil
	}
	return tx.closeRound()
}

func (tx *Tx) closeRound() error {
	pot := &tx.state.Pot
	if err := pot.Close(); err != nil {
		return err
	}
	potID := pot.Round.PotID

	requestID, err := tx.engine.coordinator.RequestRandomness(tx.ctx, potID)
	if err != nil {
		return fmt.Errorf("request randomness: %w", err)
	}
	if _, err := tx.state.Randomness.Register(potID, requestID, tx.now); err != nil {
		return err
	}

	tx.Emit(model.Event{
		Kind:     model.EventRoundClosed,
		Amount:   pot.Round.CurrentSize.Dec(),
		TicketTo: tx.state.Ledger.LastTicketID,
	})
	tx.Emit(model.Event{
		Kind:      model.EventRandomnessRequested,
		RequestID: requestID.Dec(),
	})
	return nil
}
