package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeRaffle/internal/config"
)

func newSettleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Replay trade and admin actions through the router and raffle",
		RunE:  runSettle,
	}

	cmd.Flags().String("rpc", "", "RPC URL for price feeds and block-hash seeds")
	cmd.Flags().String("in", "./data/actions.jsonl", "input actions JSONL")
	cmd.Flags().String("events", "./data/events.jsonl", "event journal JSONL, empty disables it")
	cmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path")
	cmd.Flags().String("bolt", "", "bbolt database for snapshots and events")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshots, events, rounds and awards")
	cmd.Flags().String("stake-protocol", "0x00000000000000000000000000000000000000a6", "target protocol address")
	cmd.Flags().Int("snapshot-every", 1000, "actions between snapshots")
	cmd.Flags().Bool("fund-calls", true, "credit callers with the funds their trades and sponsorships carry")
	cmd.Flags().String("salt", "", "randomness request id salt (hex)")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addRaffleFlags(cmd)
	return cmd
}

// addRaffleFlags registers the deployment flags shared by settle and status.
func addRaffleFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("owner", "", "owner address")
	f.String("operator", "", "operator address")
	f.String("router", "", "router address")
	f.String("randomness-source", "", "trusted randomness source address")
	f.String("raffle-address", "0x00000000000000000000000000000000000000a5", "raffle escrow address")
	f.String("prize-token", "", "prize token address, empty for native")
	f.Uint("prize-decimals", 18, "prize token decimals")
	f.String("pot-limit", "100", "pot limit in prize token units")
	f.String("ticket-cost", "0.1", "ticket cost in ticket units")
	f.StringSlice("prize-amounts", nil, "prize table in prize token units (comma-separated)")
	f.Int("winners", 1, "number of winners")
	f.Uint64("protocol-fee-bps", 1000, "protocol share of each pot delta in basis points")
	f.Uint64("trade-fee-bps", 1000, "router trade fee in basis points")
	f.Duration("claim-window", 24*time.Hour, "prize claim window")
	f.Duration("round-duration", 24*time.Hour, "timed round duration")
	f.String("trigger", "pot-fill", "round trigger (pot-fill, timed)")
	f.String("funding", "self", "pot funding (self, sponsored)")
	f.String("ticketing", "native", "ticket pricing (native, usd)")
	f.String("selection", "tickets", "winner selection (tickets, operator)")
	f.String("randomness", "external", "randomness mode (external, operator)")
	f.Bool("reset-pending", false, "reset sub-ticket remainders every round")
	f.StringSlice("incentivized", nil, "incentivized tokens as addr[:decimals] (comma-separated)")
	f.String("price-feeds", "", "USD feeds as token=feed (comma-separated)")
	f.String("static-prices", "", "fixed feed answers as feed=answer:decimals (comma-separated)")
	f.String("start-time", "", "replay start time (unix seconds or RFC3339)")
}

func runSettle(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSettle(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg.Raffle, runtimeOptions{
		RPCURL:        cfg.RPCURL,
		Events:        cfg.Events,
		Snapshot:      cfg.Snapshot,
		BoltPath:      cfg.BoltPath,
		PGDSN:         cfg.PGDSN,
		StakeProtocol: cfg.StakeProtocol,
		Salt:          cfg.Salt,
		SnapshotEvery: cfg.SnapshotEvery,
		FundCalls:     cfg.FundCalls,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	seq, resumed, err := rt.replayer.Resume(ctx)
	if err != nil {
		return err
	}
	if !resumed {
		if err := rt.bootstrap(ctx, cfg.Raffle); err != nil {
			return err
		}
	}

	logger.Info("settle start",
		zap.String("in", cfg.In),
		zap.String("events", cfg.Events),
		zap.String("snapshot", cfg.Snapshot),
		zap.String("bolt", cfg.BoltPath),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("resumed", resumed),
		zap.Uint64("resume_seq", seq),
		zap.String("trigger", string(rt.params.Trigger)),
		zap.String("funding", string(rt.params.Funding)),
		zap.String("ticketing", string(rt.params.Ticketing)),
	)

	_, err = rt.replayer.Run(ctx, cfg.In)
	return err
}
