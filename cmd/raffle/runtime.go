package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tradeRaffle/internal/chain"
	"tradeRaffle/internal/config"
	"tradeRaffle/internal/funds"
	"tradeRaffle/internal/oracle"
	"tradeRaffle/internal/raffle"
	"tradeRaffle/internal/randomness"
	"tradeRaffle/internal/router"
	"tradeRaffle/internal/settle"
	"tradeRaffle/internal/storage"
	"tradeRaffle/internal/storage/boltstore"
	"tradeRaffle/internal/storage/postgres"
)

type runtimeOptions struct {
	RPCURL        string
	Events        string
	Snapshot      string
	BoltPath      string
	PGDSN         string
	StakeProtocol string
	Salt          string
	SnapshotEvery int
	FundCalls     bool
	MaxRetries    int
	RetryBackoff  time.Duration
}

// runtime is one wired raffle deployment: engine, gateway, escrow and the
// stores its state and journal go to.
type runtime struct {
	params   raffle.Params
	engine   *raffle.Engine
	gateway  *router.Gateway
	book     *funds.Book
	staking  *router.StakingProtocol
	replayer *settle.Replayer
	quoter   raffle.Quoter
	closers  []func()
}

func newRuntime(ctx context.Context, rc config.RaffleConfig, opts runtimeOptions, logger *zap.Logger) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	if rt.params, err = rc.Params(); err != nil {
		return nil, err
	}
	raffleAddr, err := rc.Raffle()
	if err != nil {
		return nil, fmt.Errorf("raffle-address: %w", err)
	}
	stakeAddr, err := config.ParseAddress(opts.StakeProtocol)
	if err != nil {
		return nil, fmt.Errorf("stake-protocol: %w", err)
	}
	start, err := rc.Start()
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = time.Now().UTC()
	}

	var chainClient *chain.Client
	if opts.RPCURL != "" {
		if chainClient, err = chain.NewClient(ctx, opts.RPCURL); err != nil {
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		rt.closers = append(rt.closers, chainClient.Close)
	}

	var (
		eventStores []storage.EventStore
		snapshots   storage.SnapshotStore
		archive     settle.Archive
	)
	if opts.Events != "" {
		eventStores = append(eventStores, storage.NewJsonlStorage(opts.Events))
	}
	if opts.Snapshot != "" {
		snapshots = &storage.FileSnapshotStore{Path: opts.Snapshot}
	}
	if opts.BoltPath != "" {
		db, err := boltstore.Open(opts.BoltPath)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		eventStores = append(eventStores, db)
		snapshots = db
	}
	if opts.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, opts.PGDSN, "raffle")
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		eventStores = append(eventStores, pg)
		snapshots = pg
		archive = pg
	}

	prices, err := rc.Prices()
	if err != nil {
		return nil, err
	}
	switch {
	case len(prices) > 0:
		rt.quoter = oracle.NewStaticQuoter(prices)
	case chainClient != nil:
		rt.quoter = oracle.NewChainlinkQuoter(chainClient, logger)
	}

	clock := settle.NewClock(start)
	journal := settle.NewJournal(eventStores...)
	coord := randomness.NewLocalCoordinator(common.HexToHash(opts.Salt), logger)
	rt.book = funds.NewBook()

	engineOpts := []raffle.Option{
		raffle.WithClock(clock.Now),
		raffle.WithEventSink(journal),
		raffle.WithLogger(logger),
	}
	if rt.quoter != nil {
		engineOpts = append(engineOpts, raffle.WithQuoter(rt.quoter))
	}
	rt.engine, err = raffle.New(rt.params, coord, funds.Treasury{Book: rt.book, Account: raffleAddr}, engineOpts...)
	if err != nil {
		return nil, err
	}

	rt.staking = router.NewStakingProtocol(stakeAddr)
	rt.gateway, err = router.NewGateway(router.Config{
		Address:       rt.params.Router,
		Owner:         rt.params.Owner,
		RaffleAddress: raffleAddr,
		TradeFeeBps:   rc.TradeFeeBps,
	}, rt.engine, rt.staking, rt.book, logger)
	if err != nil {
		return nil, err
	}

	deps := settle.Deps{
		Engine:      rt.engine,
		Gateway:     rt.gateway,
		Book:        rt.book,
		Coordinator: coord,
		Clock:       clock,
		Journal:     journal,
		Snapshots:   snapshots,
		Archive:     archive,
	}
	if chainClient != nil {
		deps.Headers = chainClient
	}
	rt.replayer, err = settle.New(settle.Config{
		SnapshotEvery: opts.SnapshotEvery,
		FundCalls:     opts.FundCalls,
		MaxRetries:    opts.MaxRetries,
		RetryBackoff:  opts.RetryBackoff,
	}, deps, logger)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// bootstrap applies the configured token and feed setup as the owner. It runs
// only on a fresh deployment; restored snapshots already carry it.
func (rt *runtime) bootstrap(ctx context.Context, rc config.RaffleConfig) error {
	tokens, err := rc.IncentivizedTokens()
	if err != nil {
		return err
	}
	if len(tokens) > 0 {
		if err := rt.engine.AddIncentivizedTokens(ctx, rt.params.Owner, tokens); err != nil {
			return fmt.Errorf("add incentivized tokens: %w", err)
		}
	}
	feedTokens, feeds, err := rc.Feeds()
	if err != nil {
		return err
	}
	if len(feeds) > 0 {
		if err := rt.engine.ConfigureUsdPriceFeeds(ctx, rt.params.Owner, feedTokens, feeds); err != nil {
			return fmt.Errorf("configure price feeds: %w", err)
		}
	}
	return nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
