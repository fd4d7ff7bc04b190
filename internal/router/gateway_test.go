package router

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"tradeRaffle/internal/fee"
	"tradeRaffle/internal/funds"
	"tradeRaffle/internal/model"
	"tradeRaffle/internal/raffle"
	"tradeRaffle/internal/randomness"
)

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	routerAddr = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	raffleAddr = common.HexToAddress("0x00000000000000000000000000000000000000a5")
	stakeAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a6")
	user       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	user2      = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type gatewayFixture struct {
	gateway *Gateway
	engine  *raffle.Engine
	book    *funds.Book
	staking *StakingProtocol
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	return newGatewayFixtureWith(t, nil)
}

func newGatewayFixtureWith(t *testing.T, mutate func(*raffle.Params), opts ...raffle.Option) *gatewayFixture {
	t.Helper()
	params := raffle.DefaultParams()
	params.Owner = owner
	params.Operator = owner
	params.Router = routerAddr
	if mutate != nil {
		mutate(&params)
	}

	book := funds.NewBook()
	engine, err := raffle.New(params,
		randomness.NewLocalCoordinator(common.Hash{}, nil),
		funds.Treasury{Book: book, Account: raffleAddr},
		opts...,
	)
	require.NoError(t, err)

	staking := NewStakingProtocol(stakeAddr)
	gateway, err := NewGateway(Config{
		Address:       routerAddr,
		Owner:         owner,
		RaffleAddress: raffleAddr,
		TradeFeeBps:   1000,
	}, engine, staking, book, nil)
	require.NoError(t, err)

	return &gatewayFixture{gateway: gateway, engine: engine, book: book, staking: staking}
}

func stakeCall(t *testing.T, who common.Address, amount *uint256.Int) []byte {
	t.Helper()
	data, err := EncodeStakeFor(who, amount)
	require.NoError(t, err)
	return data
}

func TestExecuteRoutesTrade(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	staking := uint256.MustFromDecimal("1234560000000000000")
	amount, err := fee.ApplyTradeFee(staking, 1000)
	require.NoError(t, err)
	require.NoError(t, f.book.Mint(model.NativeToken, user, amount))

	err = f.gateway.Execute(ctx, Trade{
		Caller: user,
		Token:  model.NativeToken,
		Amount: amount,
		Value:  amount,
		Data:   stakeCall(t, user, staking),
	})
	require.NoError(t, err)

	net, err := fee.DetachTradeFee(amount, 1000)
	require.NoError(t, err)
	delta := new(uint256.Int).Sub(amount, net)
	_, increment, err := fee.Split(delta, 1000)
	require.NoError(t, err)

	require.Equal(t, staking, f.staking.Staked(user))
	require.Equal(t, delta, f.book.BalanceOf(model.NativeToken, raffleAddr))
	require.Equal(t, net, f.book.BalanceOf(model.NativeToken, stakeAddr))
	require.True(t, f.book.BalanceOf(model.NativeToken, user).IsZero())
	require.Equal(t, increment, f.engine.CurrentPotSize())

	cost := f.engine.TicketCost()
	require.Equal(t, new(uint256.Int).Mod(amount, cost), f.engine.PendingAmounts(user))
	require.Equal(t, new(uint256.Int).Div(amount, cost).Uint64(), f.engine.LastRaffleTicketID())
}

func TestExecuteInsufficientValue(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	staking := uint256.MustFromDecimal("2000000000000000000")
	amount, err := fee.ApplyTradeFee(staking, 1000)
	require.NoError(t, err)
	require.NoError(t, f.book.Mint(model.NativeToken, user, amount))

	short := new(uint256.Int).SubUint64(amount, 1)
	err = f.gateway.Execute(ctx, Trade{
		Caller: user,
		Token:  model.NativeToken,
		Amount: amount,
		Value:  short,
		Data:   stakeCall(t, user, staking),
	})
	require.ErrorIs(t, err, raffle.ErrInsufficientFunds)

	require.True(t, f.engine.CurrentPotSize().IsZero())
	require.True(t, f.engine.PendingAmounts(user).IsZero())
	require.Zero(t, f.engine.LastRaffleTicketID())
	require.Equal(t, amount, f.book.BalanceOf(model.NativeToken, user))
	require.True(t, f.staking.Staked(user).IsZero())
}

func TestExecuteAfterRoundEndLeavesFunds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newGatewayFixtureWith(t, func(p *raffle.Params) {
		p.Trigger = raffle.TriggerTimed
		p.RoundDuration = time.Hour
	}, raffle.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, f.engine.StartRaffle(ctx, owner))
	now = now.Add(time.Hour)

	amount := uint256.MustFromDecimal("1000000000000000000")
	require.NoError(t, f.book.Mint(model.NativeToken, user, amount))
	err := f.gateway.Execute(ctx, Trade{
		Caller: user,
		Token:  model.NativeToken,
		Amount: amount,
		Value:  amount,
		Data:   stakeCall(t, user, amount),
	})
	require.ErrorIs(t, err, raffle.ErrRoundClosed)

	closed, _, _ := f.engine.RaffleStatus(f.engine.CurrentPotID())
	require.True(t, closed)
	require.Zero(t, f.engine.LastRaffleTicketID())
	require.Equal(t, amount, f.book.BalanceOf(model.NativeToken, user))
	require.True(t, f.book.BalanceOf(model.NativeToken, raffleAddr).IsZero())
	require.True(t, f.staking.Staked(user).IsZero())
}

func TestExecuteRevertsOnForwardFailure(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	amount := uint256.MustFromDecimal("1000000000000000000")
	require.NoError(t, f.book.Mint(model.NativeToken, user, amount))

	err := f.gateway.Execute(ctx, Trade{
		Caller: user,
		Token:  model.NativeToken,
		Amount: amount,
		Value:  amount,
		Data:   []byte{0xde, 0xad, 0xbe, 0xef},
	})
	require.ErrorIs(t, err, ErrInvalidCalldata)

	require.Equal(t, amount, f.book.BalanceOf(model.NativeToken, user))
	require.True(t, f.book.BalanceOf(model.NativeToken, raffleAddr).IsZero())
	require.True(t, f.book.BalanceOf(model.NativeToken, routerAddr).IsZero())
	require.True(t, f.engine.CurrentPotSize().IsZero())
}

func TestExecuteBatch(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()

	staking1 := uint256.MustFromDecimal("1300000000000000000")
	staking2 := uint256.MustFromDecimal("700000000000000000")
	amount1, err := fee.ApplyTradeFee(staking1, 1000)
	require.NoError(t, err)
	amount2, err := fee.ApplyTradeFee(staking2, 1000)
	require.NoError(t, err)

	total := new(uint256.Int).Add(amount1, amount2)
	buffer := uint256.MustFromDecimal("400000000000000000")
	value := new(uint256.Int).Add(total, buffer)
	require.NoError(t, f.book.Mint(model.NativeToken, user, value))

	stakingTotal := new(uint256.Int).Add(staking1, staking2)
	batch := Batch{
		Caller: user,
		Data:   stakeCall(t, user, stakingTotal),
		Trades: []model.BatchTrade{
			{TradeAmount: amount1, User: user},
			{TradeAmount: amount2, User: user2},
		},
		Value: value,
	}
	require.NoError(t, f.gateway.ExecuteBatch(ctx, batch))

	net1, _ := fee.DetachTradeFee(amount1, 1000)
	net2, _ := fee.DetachTradeFee(amount2, 1000)
	delta := new(uint256.Int).Sub(total, new(uint256.Int).Add(net1, net2))

	cost := f.engine.TicketCost()
	require.Equal(t, delta, f.book.BalanceOf(model.NativeToken, raffleAddr))
	require.Equal(t, buffer, f.book.BalanceOf(model.NativeToken, user))
	require.Equal(t, stakingTotal, f.staking.Staked(user))
	require.Equal(t, new(uint256.Int).Mod(amount1, cost), f.engine.PendingAmounts(user))
	require.Equal(t, new(uint256.Int).Mod(amount2, cost), f.engine.PendingAmounts(user2))

	batch.Value = new(uint256.Int).SubUint64(total, 1)
	require.ErrorIs(t, f.gateway.ExecuteBatch(ctx, batch), raffle.ErrInsufficientFunds)
	require.ErrorIs(t, f.gateway.ExecuteBatch(ctx, Batch{Caller: user}), ErrEmptyBatch)
}

func TestGatewayOwnerOnly(t *testing.T) {
	f := newGatewayFixture(t)
	other := NewStakingProtocol(common.HexToAddress("0x00000000000000000000000000000000000000b1"))

	require.ErrorIs(t, f.gateway.MigrateProtocol(user, other), raffle.ErrNotOwner)
	require.ErrorIs(t, f.gateway.SetRaffleAddress(user, user, f.engine), raffle.ErrNotOwner)

	require.NoError(t, f.gateway.MigrateProtocol(owner, other))
	newRaffle := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	require.NoError(t, f.gateway.SetRaffleAddress(owner, newRaffle, f.engine))
	require.Equal(t, newRaffle, f.gateway.RaffleAddress())
}

func TestEngineRejectsDirectTrades(t *testing.T) {
	f := newGatewayFixture(t)
	err := f.engine.Update(context.Background(), func(tx *raffle.Tx) error {
		return tx.ExecuteTrade(user, raffle.TradeInput{
			Beneficiary: user,
			Token:       model.NativeToken,
			Gross:       uint256.NewInt(1),
			Delta:       uint256.NewInt(1),
		})
	})
	require.ErrorIs(t, err, raffle.ErrNotRouter)
}

func TestDecodeStakeFor(t *testing.T) {
	amount := uint256.MustFromDecimal("42")
	who, got, err := DecodeStakeFor(stakeCall(t, user2, amount))
	require.NoError(t, err)
	require.Equal(t, user2, who)
	require.Equal(t, amount, got)

	_, _, err = DecodeStakeFor([]byte{1, 2})
	require.ErrorIs(t, err, ErrInvalidCalldata)
}
