package raffle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// Claim pays the caller's credited prize. The transfer is the last effect.
func (tx *Tx) Claim(caller common.Address) (*uint256.Int, error) {
	amount, err := tx.state.Vault.Claim(caller, tx.now)
	if err != nil {
		return nil, err
	}
	token := tx.engine.params.PrizeToken.Address
	tx.Emit(model.Event{
		Kind:    model.EventPrizeClaimed,
		Account: caller.Hex(),
		Token:   token.Hex(),
		Amount:  amount.Dec(),
	})
	tx.pay(token, caller, amount)
	return amount, nil
}

// SweepExpired moves expired unclaimed awards back into the open pot.
func (tx *Tx) SweepExpired(caller common.Address) (*uint256.Int, error) {
	if err := tx.requireOwner(caller); err != nil {
		return nil, err
	}
	if err := tx.state.Pot.requireOpen(); err != nil {
		return nil, err
	}
	total, swept, err := tx.state.Vault.SweepExpired(tx.now)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return total, nil
	}
	if err := tx.state.Pot.Add(total); err != nil {
		return nil, err
	}
	for _, award := range swept {
		tx.Emit(model.Event{
			Kind:    model.EventExpiredSwept,
			Account: award.Account.Hex(),
			Amount:  award.Amount.Dec(),
		})
	}
	return total, tx.evaluateTrigger()
}

// WithdrawFee sends every accumulated protocol fee balance to to.
func (tx *Tx) WithdrawFee(caller, to common.Address) error {
	if err := tx.requireOwner(caller); err != nil {
		return err
	}
	for _, withdrawal := range tx.state.Pot.WithdrawFees() {
		tx.Emit(model.Event{
			Kind:    model.EventFeeWithdrawn,
			Account: to.Hex(),
			Token:   withdrawal.Token.Hex(),
			Amount:  withdrawal.Amount.Dec(),
		})
		tx.pay(withdrawal.Token, to, withdrawal.Amount)
	}
	return nil
}
