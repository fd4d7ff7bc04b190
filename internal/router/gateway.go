package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/model"
	"tradeRaffle/internal/raffle"
)

var ErrEmptyBatch = errors.New("empty trade batch")

// Raffle is the engine surface driven by the gateway.
type Raffle interface {
	Update(ctx context.Context, fn func(tx *raffle.Tx) error) error
}

// Escrow holds the balances moved by routed trades.
type Escrow interface {
	BalanceOf(token, account common.Address) *uint256.Int
	Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error
}

// Config is the static part of a Gateway.
type Config struct {
	Address       common.Address
	Owner         common.Address
	RaffleAddress common.Address
	TradeFeeBps   uint64
}

// Gateway routes trades to the target protocol and their fee delta to the raffle.
type Gateway struct {
	cfg    Config
	escrow Escrow
	logger *zap.Logger

	mu         sync.RWMutex
	raffleAddr common.Address
	raffle     Raffle
	protocol   Protocol
}

func NewGateway(cfg Config, r Raffle, protocol Protocol, escrow Escrow, logger *zap.Logger) (*Gateway, error) {
	if cfg.TradeFeeBps > fee.HundredPercent {
		return nil, fmt.Errorf("trade fee %d bps: %w", cfg.TradeFeeBps, fee.ErrInvalidFee)
	}
	if r == nil || protocol == nil || escrow == nil {
		return nil, fmt.Errorf("raffle, protocol and escrow are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		cfg:        cfg,
		escrow:     escrow,
		logger:     logger,
		raffleAddr: cfg.RaffleAddress,
		raffle:     r,
		protocol:   protocol,
	}, nil
}

// Address is the account the raffle recognizes as its router.
func (g *Gateway) Address() common.Address {
	return g.cfg.Address
}

// TradeFeeBps is the share of every trade routed to the raffle.
func (g *Gateway) TradeFeeBps() uint64 {
	return g.cfg.TradeFeeBps
}

// Trade is one Execute call.
type Trade struct {
	Caller      common.Address
	Beneficiary common.Address
	Token       common.Address
	Amount      *uint256.Int
	Value       *uint256.Int
	Data        []byte
}

// Batch is one ExecuteBatch call. Batches are native-token only.
type Batch struct {
	Caller common.Address
	Data   []byte
	Trades []model.BatchTrade
	Value  *uint256.Int
}

// Execute routes one trade. Tickets go to Beneficiary, or to Caller when unset.
func (g *Gateway) Execute(ctx context.Context, trade Trade) error {
	if trade.Amount == nil {
		return fmt.Errorf("trade amount is required")
	}
	if err := g.checkFunds(trade.Caller, trade.Token, trade.Amount, trade.Value); err != nil {
		return err
	}
	split, err := g.split(trade.Amount)
	if err != nil {
		return err
	}

	beneficiary := trade.Beneficiary
	if beneficiary == (common.Address{}) {
		beneficiary = trade.Caller
	}

	r, raffleAddr, protocol := g.targets()
	return r.Update(ctx, func(tx *raffle.Tx) error {
		if err := g.book(tx, beneficiary, trade.Token, trade.Amount, split); err != nil {
			return err
		}
		tx.Defer(g.settle(trade.Caller, trade.Token, trade.Amount, split, raffleAddr, protocol, trade.Data))
		return nil
	})
}

// ExecuteBatch routes several native trades funded by one value and forwards
// their combined net amount in a single protocol call.
func (g *Gateway) ExecuteBatch(ctx context.Context, batch Batch) error {
	if len(batch.Trades) == 0 {
		return ErrEmptyBatch
	}

	total := new(uint256.Int)
	combined := tradeSplit{net: new(uint256.Int), delta: new(uint256.Int)}
	splits := make([]tradeSplit, len(batch.Trades))
	for i, trade := range batch.Trades {
		if trade.TradeAmount == nil {
			return fmt.Errorf("batch trade %d: amount is required", i)
		}
		var err error
		if total, err = fee.Add(total, trade.TradeAmount); err != nil {
			return err
		}
		if splits[i], err = g.split(trade.TradeAmount); err != nil {
			return err
		}
		if combined.net, err = fee.Add(combined.net, splits[i].net); err != nil {
			return err
		}
		if combined.delta, err = fee.Add(combined.delta, splits[i].delta); err != nil {
			return err
		}
	}
	if err := g.checkFunds(batch.Caller, model.NativeToken, total, batch.Value); err != nil {
		return err
	}

	r, raffleAddr, protocol := g.targets()
	return r.Update(ctx, func(tx *raffle.Tx) error {
		for i, trade := range batch.Trades {
			if err := g.book(tx, trade.User, model.NativeToken, trade.TradeAmount, splits[i]); err != nil {
				return fmt.Errorf("batch trade %d: %w", i, err)
			}
		}
		tx.Defer(g.settle(batch.Caller, model.NativeToken, total, combined, raffleAddr, protocol, batch.Data))
		return nil
	})
}

// SetRaffleAddress points the gateway at another raffle deployment.
func (g *Gateway) SetRaffleAddress(caller, address common.Address, r Raffle) error {
	if caller != g.cfg.Owner {
		return raffle.ErrNotOwner
	}
	if r == nil {
		return fmt.Errorf("raffle is nil")
	}
	g.mu.Lock()
	g.raffleAddr = address
	g.raffle = r
	g.mu.Unlock()
	g.logger.Info("raffle address updated", zap.String("raffle", address.Hex()))
	return nil
}

// MigrateProtocol replaces the forward target.
func (g *Gateway) MigrateProtocol(caller common.Address, protocol Protocol) error {
	if caller != g.cfg.Owner {
		return raffle.ErrNotOwner
	}
	if protocol == nil {
		return fmt.Errorf("protocol is nil")
	}
	g.mu.Lock()
	g.protocol = protocol
	g.mu.Unlock()
	g.logger.Info("protocol migrated", zap.String("protocol", protocol.Address().Hex()))
	return nil
}

// RaffleAddress is the account receiving trade deltas.
func (g *Gateway) RaffleAddress() common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.raffleAddr
}

type tradeSplit struct {
	net   *uint256.Int
	delta *uint256.Int
}

func (g *Gateway) split(amount *uint256.Int) (tradeSplit, error) {
	net, err := fee.DetachTradeFee(amount, g.cfg.TradeFeeBps)
	if err != nil {
		return tradeSplit{}, err
	}
	delta, err := fee.Sub(amount, net)
	if err != nil {
		return tradeSplit{}, err
	}
	return tradeSplit{net: net, delta: delta}, nil
}

func (g *Gateway) targets() (Raffle, common.Address, Protocol) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.raffle, g.raffleAddr, g.protocol
}

func (g *Gateway) checkFunds(caller, token common.Address, amount, value *uint256.Int) error {
	if token == model.NativeToken {
		if value == nil || value.Lt(amount) {
			return fmt.Errorf("%w: value below trade amount %s", raffle.ErrInsufficientFunds, amount)
		}
	}
	if balance := g.escrow.BalanceOf(token, caller); balance.Lt(amount) {
		return fmt.Errorf("%w: balance %s below trade amount %s", raffle.ErrInsufficientFunds, balance, amount)
	}
	return nil
}

func (g *Gateway) book(tx *raffle.Tx, beneficiary, token common.Address, amount *uint256.Int, split tradeSplit) error {
	err := tx.ExecuteTrade(g.cfg.Address, raffle.TradeInput{
		Beneficiary: beneficiary,
		Token:       token,
		Gross:       amount,
		Delta:       split.delta,
	})
	if err != nil {
		return err
	}
	tx.Emit(model.Event{
		Kind:    model.EventTradeRouted,
		Account: beneficiary.Hex(),
		Token:   token.Hex(),
		Amount:  amount.Dec(),
		Detail:  "net=" + split.net.Dec() + " delta=" + split.delta.Dec(),
	})
	return nil
}

// settle moves the escrowed funds after the engine accepted the trade. A
// failed forward returns every moved balance.
func (g *Gateway) settle(caller, token common.Address, amount *uint256.Int, split tradeSplit, raffleAddr common.Address, protocol Protocol, data []byte) func(context.Context) error {
	return func(ctx context.Context) error {
		m := &moves{escrow: g.escrow, logger: g.logger}
		if err := m.transfer(ctx, token, caller, g.cfg.Address, amount); err != nil {
			return fmt.Errorf("%w: %w", raffle.ErrInsufficientFunds, err)
		}
		if err := m.transfer(ctx, token, g.cfg.Address, raffleAddr, split.delta); err != nil {
			m.revert(ctx)
			return fmt.Errorf("route delta: %w", err)
		}
		if err := m.transfer(ctx, token, g.cfg.Address, protocol.Address(), split.net); err != nil {
			m.revert(ctx)
			return fmt.Errorf("route net: %w", err)
		}
		err := protocol.Forward(ctx, ForwardCall{
			From:   caller,
			Token:  token,
			Amount: split.net.Clone(),
			Data:   data,
		})
		if err != nil {
			m.revert(ctx)
			return fmt.Errorf("forward: %w", err)
		}
		return nil
	}
}

type move struct {
	token  common.Address
	from   common.Address
	to     common.Address
	amount *uint256.Int
}

type moves struct {
	escrow Escrow
	logger *zap.Logger
	done   []move
}

func (m *moves) transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	if err := m.escrow.Transfer(ctx, token, from, to, amount); err != nil {
		return err
	}
	m.done = append(m.done, move{token: token, from: from, to: to, amount: amount})
	return nil
}

func (m *moves) revert(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(m.done) - 1; i >= 0; i-- {
		mv := m.done[i]
		if err := m.escrow.Transfer(ctx, mv.token, mv.to, mv.from, mv.amount); err != nil {
			m.logger.Error("revert escrow move failed",
				zap.String("token", mv.token.Hex()),
				zap.String("from", mv.to.Hex()),
				zap.String("to", mv.from.Hex()),
				zap.Stringer("amount", mv.amount),
				zap.Error(err),
			)
		}
	}
	m.done = nil
}
