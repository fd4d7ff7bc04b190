package raffle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// Fulfill delivers the random value of requestID. External mode accepts only
// the randomness source, operator mode only the operator.
func (tx *Tx) Fulfill(caller common.Address, requestID, randomValue *uint256.Int) error {
	params := tx.engine.params
	switch params.Randomness {
	case RandomnessExternal:
		if caller != params.RandomnessSource {
			return ErrUntrustedSource
		}
	case RandomnessOperator:
		if err := tx.requireOperator(caller); err != nil {
			return err
		}
	}
	if requestID == nil || randomValue == nil {
		return ErrUnknownRequest
	}
	return tx.fulfill(requestID, randomValue)
}

// FulfillRandomWords lets the operator supply the seed of the live round
// directly, bypassing the provider.
func (tx *Tx) FulfillRandomWords(caller common.Address, seed *uint256.Int) error {
	if tx.engine.params.Randomness != RandomnessOperator {
		return fmt.Errorf("operator fulfillment: %w", ErrUnsupported)
	}
	if err := tx.requireOperator(caller); err != nil {
		return err
	}
	req, ok := tx.state.Randomness.ForPot(tx.state.Pot.Round.PotID)
	if !ok {
		return ErrUnknownRequest
	}
	if seed == nil {
		return fmt.Errorf("seed is required")
	}
	return tx.fulfill(req.RequestID, seed)
}

func (tx *Tx) fulfill(requestID, randomValue *uint256.Int) error {
	req, err := tx.state.Randomness.Fulfill(requestID, randomValue, tx.now)
	if err != nil {
		return err
	}
	pot := &tx.state.Pot
	if req.PotID != pot.Round.PotID {
		return ErrAlreadyDrawn
	}
	if err := pot.MarkDrawn(); err != nil {
		return err
	}

	tx.Emit(model.Event{
		Kind:        model.EventRandomnessFulfilled,
		RequestID:   requestID.Dec(),
		RandomValue: randomValue.Dec(),
	})

	ledger := &tx.state.Ledger
	ids := tx.engine.selector.Draw(randomValue, ledger.LastTicketID, tx.state.Distribution.NumberOfWinners)
	owners := make([]common.Address, 0, len(ids))
	for _, id := range ids {
		owner, ok := ledger.OwnerOf(id)
		if !ok {
			return fmt.Errorf("ticket %d has no owner", id)
		}
		owners = append(owners, owner)
		tx.Emit(model.Event{
			Kind:       model.EventWinnersDrawn,
			Account:    owner.Hex(),
			TicketFrom: id,
			TicketTo:   id + 1,
		})
	}
	tx.state.WinningTickets[pot.Round.PotID] = ids
	tx.state.Winners[pot.Round.PotID] = owners
	return nil
}
