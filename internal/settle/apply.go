package settle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/raffle"
	"tradeRaffle/internal/randomness"
	"tradeRaffle/internal/retry"
	"tradeRaffle/internal/router"
)

// Apply replays a single action at its timestamp.
func (r *Replayer) Apply(ctx context.Context, action model.Action) error {
	r.deps.Clock.Advance(action.Timestamp)
	r.deps.Journal.setSeq(action.Seq)

	caller, err := parseAddress("caller", action.Caller)
	if err != nil && action.Kind != model.ActionPoke {
		return err
	}
	engine := r.deps.Engine

	switch action.Kind {
	case model.ActionTrade:
		return r.applyTrade(ctx, caller, action)
	case model.ActionBatch:
		return r.applyBatch(ctx, caller, action)
	case model.ActionFulfill:
		return r.applyFulfill(ctx, caller, action)
	case model.ActionExecuteRaffle:
		winners, err := parseAddresses("winners", action.Winners)
		if err != nil {
			return err
		}
		if len(winners) == 0 {
			winners = engine.Winners(engine.CurrentPotID())
		}
		return engine.ExecuteRaffle(ctx, caller, winners)
	case model.ActionClaim:
		_, err := engine.Claim(ctx, caller)
		return err
	case model.ActionSponsor:
		amount, err := parseAmount("amount", action.Amount)
		if err != nil {
			return err
		}
		if r.cfg.FundCalls {
			if err := r.mint(engine.Params().PrizeToken.Address, caller, amount); err != nil {
				return err
			}
		}
		return engine.SponsorRaffle(ctx, caller, amount)
	case model.ActionStart:
		return engine.StartRaffle(ctx, caller)
	case model.ActionPoke:
		closed, err := engine.Poke(ctx)
		if err == nil && closed {
			r.logger.Debug("poke closed round", zap.Uint64("seq", action.Seq))
		}
		return err
	case model.ActionWithdrawFee:
		to := caller
		if action.To != "" {
			if to, err = parseAddress("to", action.To); err != nil {
				return err
			}
		}
		return engine.WithdrawFee(ctx, caller, to)
	case model.ActionSweepExpired:
		_, err := engine.SweepExpired(ctx, caller)
		return err
	case model.ActionSetTicketCost:
		cost, err := parseAmount("amount", action.Amount)
		if err != nil {
			return err
		}
		return engine.SetRaffleTicketCost(ctx, caller, cost)
	case model.ActionSetPotLimit:
		limit, err := parseAmount("amount", action.Amount)
		if err != nil {
			return err
		}
		return engine.SetPotLimit(ctx, caller, limit)
	case model.ActionUpdateDistribution:
		amounts := make([]*uint256.Int, len(action.Amounts))
		for i, raw := range action.Amounts {
			if amounts[i], err = parseAmount(fmt.Sprintf("amounts[%d]", i), raw); err != nil {
				return err
			}
		}
		return engine.UpdatePrizeDistribution(ctx, caller, amounts, action.NumberOfWinners)
	case model.ActionConfigurePriceFeeds:
		tokens, err := parseAddresses("tokens", action.Tokens)
		if err != nil {
			return err
		}
		feeds, err := parseAddresses("feeds", action.Feeds)
		if err != nil {
			return err
		}
		return engine.ConfigureUsdPriceFeeds(ctx, caller, tokens, feeds)
	case model.ActionAddIncentivizedToken:
		tokens, err := parseAddresses("tokens", action.Tokens)
		if err != nil {
			return err
		}
		if len(action.Decimals) != len(tokens) {
			return fmt.Errorf("%w: %d tokens but %d decimals", ErrBadAction, len(tokens), len(action.Decimals))
		}
		descs := make([]model.TokenDescriptor, len(tokens))
		for i, token := range tokens {
			descs[i] = model.TokenDescriptor{Address: token, Decimals: action.Decimals[i]}
		}
		return engine.AddIncentivizedTokens(ctx, caller, descs)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrBadAction, action.Kind)
	}
}

func (r *Replayer) applyTrade(ctx context.Context, caller common.Address, action model.Action) error {
	amount, err := parseAmount("amount", action.Amount)
	if err != nil {
		return err
	}
	value, err := parseOptionalAmount("value", action.Value)
	if err != nil {
		return err
	}
	token := model.NativeToken
	if action.Token != "" {
		if token, err = parseAddress("token", action.Token); err != nil {
			return err
		}
	}
	var beneficiary common.Address
	if action.Beneficiary != "" {
		if beneficiary, err = parseAddress("beneficiary", action.Beneficiary); err != nil {
			return err
		}
	}
	data, err := parseData(action.Data)
	if err != nil {
		return err
	}

	if r.cfg.FundCalls {
		funded := amount
		if token == model.NativeToken && value.Gt(amount) {
			funded = value
		}
		if err := r.mint(token, caller, funded); err != nil {
			return err
		}
	}
	return r.deps.Gateway.Execute(ctx, router.Trade{
		Caller:      caller,
		Beneficiary: beneficiary,
		Token:       token,
		Amount:      amount,
		Value:       value,
		Data:        data,
	})
}

func (r *Replayer) applyBatch(ctx context.Context, caller common.Address, action model.Action) error {
	value, err := parseOptionalAmount("value", action.Value)
	if err != nil {
		return err
	}
	data, err := parseData(action.Data)
	if err != nil {
		return err
	}
	trades := make([]model.BatchTrade, len(action.Batch))
	for i, entry := range action.Batch {
		amount, err := parseAmount(fmt.Sprintf("batch[%d].trade_amount", i), entry.TradeAmount)
		if err != nil {
			return err
		}
		user, err := parseAddress(fmt.Sprintf("batch[%d].user", i), entry.User)
		if err != nil {
			return err
		}
		trades[i] = model.BatchTrade{TradeAmount: amount, User: user}
	}

	if r.cfg.FundCalls && !value.IsZero() {
		if err := r.mint(model.NativeToken, caller, value); err != nil {
			return err
		}
	}
	return r.deps.Gateway.ExecuteBatch(ctx, router.Batch{
		Caller: caller,
		Data:   data,
		Trades: trades,
		Value:  value,
	})
}

// applyFulfill delivers randomness for a request. The request defaults to the
// latest one; the value is either given or derived from a block hash.
func (r *Replayer) applyFulfill(ctx context.Context, caller common.Address, action model.Action) error {
	engine := r.deps.Engine
	operatorMode := engine.Params().Randomness == raffle.RandomnessOperator

	var (
		requestID *uint256.Int
		err       error
	)
	if action.RequestID != "" {
		if requestID, err = parseAmount("request_id", action.RequestID); err != nil {
			return err
		}
	}

	seedID := requestID
	if seedID == nil {
		last, ok := engine.LastRequestID()
		if !ok {
			return raffle.ErrUnknownRequest
		}
		seedID = last
	}

	var value *uint256.Int
	switch {
	case action.RandomValue != "":
		if value, err = parseAmount("random_value", action.RandomValue); err != nil {
			return err
		}
	case action.SeedBlock != 0:
		err = retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			value, err = randomness.SeedFromBlock(ctx, r.deps.Headers, action.SeedBlock, seedID)
			return err
		})
		if err != nil {
			return fmt.Errorf("seed from block %d: %w", action.SeedBlock, err)
		}
	default:
		return fmt.Errorf("%w: fulfill needs random_value or seed_block", ErrBadAction)
	}

	if operatorMode && requestID == nil {
		err = engine.FulfillRandomWords(ctx, caller, value)
	} else {
		err = engine.Fulfill(ctx, caller, seedID, value)
	}
	if err != nil {
		return err
	}
	r.deps.Coordinator.Resolve(seedID)
	return nil
}

func (r *Replayer) mint(token, account common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	return r.deps.Book.Mint(token, account, amount)
}

func parseAddress(field, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", ErrBadAction, field, raw)
	}
	return common.HexToAddress(raw), nil
}

func parseAddresses(field string, raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for i, item := range raw {
		addr, err := parseAddress(fmt.Sprintf("%s[%d]", field, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAmount(field, raw string) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrBadAction, field)
	}
	value, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrBadAction, field, raw, err)
	}
	return value, nil
}

func parseOptionalAmount(field, raw string) (*uint256.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return new(uint256.Int), nil
	}
	return parseAmount(field, raw)
}

func parseData(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0x" {
		return nil, nil
	}
	data, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrBadAction, err)
	}
	return data, nil
}
