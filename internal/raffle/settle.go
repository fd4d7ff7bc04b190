package raffle

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/model"
)

// ExecuteRaffle settles the drawn round: credits each ranked winner, archives
// the round and opens the next one with the remainder.
func (tx *Tx) ExecuteRaffle(caller common.Address, winners []common.Address) error {
	if err := tx.requireOperator(caller); err != nil {
		return err
	}
	pot := &tx.state.Pot
	switch pot.Round.Status() {
	case model.RoundDrawn:
	case model.RoundSettled:
		return ErrAlreadyDrawn
	default:
		return ErrNotDrawn
	}

	params := tx.engine.params
	potID := pot.Round.PotID
	distribution := tx.state.Distribution

	resolved, err := tx.engine.selector.Resolve(tx.state.Winners[potID], winners, distribution.NumberOfWinners)
	if err != nil {
		return err
	}
	payouts, err := distribution.Payouts(params.Funding, pot.Round.CurrentSize, pot.Limit, len(resolved))
	if err != nil {
		return err
	}

	deadline := tx.now.Add(params.ClaimWindow)
	paid := new(uint256.Int)
	for k, payout := range payouts {
		if err := tx.state.Vault.Credit(resolved[k], payout, deadline, tx.now, potID); err != nil {
			return err
		}
		if paid, err = fee.Add(paid, payout); err != nil {
			return err
		}
		tx.Emit(model.Event{
			Kind:    model.EventPrizeCredited,
			Account: resolved[k].Hex(),
			Token:   params.PrizeToken.Address.Hex(),
			Amount:  payout.Dec(),
			Detail:  "deadline=" + deadline.UTC().Format(time.RFC3339),
		})
	}

	var nextEnd *time.Time
	if params.Trigger == TriggerTimed {
		end := tx.now.Add(params.RoundDuration)
		nextEnd = &end
	}

	tickets := tx.state.Ledger.LastTicketID
	archived, err := pot.Settle(paid, tx.now, nextEnd)
	if err != nil {
		return err
	}
	archived.TicketCount = tickets
	tx.state.Rounds[potID] = archived
	tx.state.Winners[potID] = resolved
	tx.state.Ledger.StartRound(pot.Round.PotID)

	tx.Emit(model.Event{
		Kind:   model.EventRoundSettled,
		PotID:  potID,
		Amount: paid.Dec(),
		Detail: "carry=" + pot.Round.CurrentSize.Dec(),
	})
	if nextEnd != nil {
		tx.Emit(model.Event{
			Kind:   model.EventRaffleStarted,
			Detail: "end=" + nextEnd.UTC().Format(time.RFC3339),
		})
	}
	return nil
}
