package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradeRaffle/internal/chain"
	"tradeRaffle/internal/config"
	"tradeRaffle/internal/dex"
	"tradeRaffle/internal/model"
	"tradeRaffle/internal/retry"
	"tradeRaffle/internal/storage"
)

const actionBatchSize = 500

func newTradesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Decode Swap logs into replayable router trades",
		RunE:  runTrades,
	}

	cmd.Flags().String("rpc", "", "RPC URL for pool and token metadata")
	cmd.Flags().String("in", "./data/logs.jsonl", "input raw logs JSONL")
	cmd.Flags().String("out", "./data/actions.jsonl", "output actions JSONL")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	cmd.Flags().StringSlice("tokens", nil, "accepted input tokens (comma-separated), empty accepts all")
	cmd.Flags().String("wrapped-native", "", "wrapped native token routed as native value")
	cmd.Flags().Uint64("trade-fee-bps", 1000, "router trade fee in basis points")
	cmd.Flags().StringSlice("topic0", nil, "extra Swap topic0 signatures of forks (comma-separated)")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runTrades(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTrades(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.In == "" || cfg.Out == "" || cfg.Errors == "" {
		return fmt.Errorf("in, out and errors paths are required")
	}

	tokens, err := config.ParseAddresses(cfg.Tokens)
	if err != nil {
		return err
	}
	var wrapped common.Address
	if cfg.WrappedNative != "" {
		if wrapped, err = config.ParseAddress(cfg.WrappedNative); err != nil {
			return fmt.Errorf("wrapped-native: %w", err)
		}
	}
	builder, err := dex.NewTradeBuilder(tokens, wrapped, cfg.TradeFeeBps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if len(tokens) > 0 {
		descs, err := dex.NewTokenCache().Resolve(ctx, chainClient, tokens, logger)
		if err != nil {
			return fmt.Errorf("resolve tokens: %w", err)
		}
		for _, desc := range descs {
			logger.Info("accepted token",
				zap.String("token", desc.Address.Hex()),
				zap.String("symbol", desc.Symbol),
				zap.Uint8("decimals", desc.Decimals),
			)
		}
	}

	decoder, err := dex.NewSwapDecoder(chainClient, dex.NewPoolMetaCache(), logger, cfg.Topic0...)
	if err != nil {
		return err
	}

	out := storage.NewJsonlStorage(cfg.Out)
	errs := storage.NewJsonlStorage(cfg.Errors)
	if err := out.Truncate(); err != nil {
		return err
	}
	if err := errs.Truncate(); err != nil {
		return err
	}

	logger.Info("trades start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("tokens", len(tokens)),
		zap.Uint64("trade_fee_bps", cfg.TradeFeeBps),
	)

	var (
		total, emitted, skipped, failed int
		seq                             uint64
		pending                         []model.Action
		failures                        []model.DecodeError
	)
	flush := func() error {
		if err := out.PutActions(pending); err != nil {
			return err
		}
		if err := errs.PutDecodeErrors(failures); err != nil {
			return err
		}
		pending, failures = pending[:0], failures[:0]
		return nil
	}

	err = storage.ReadJSONL(cfg.In, func(record model.LogRecord) error {
		total++
		if record.Removed || !decoder.CanDecode(record.Topic0()) {
			skipped++
			return nil
		}

		var swap *model.SwapEvent
		err := retry.Do(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			swap, err = decoder.Decode(ctx, record)
			if errors.Is(err, dex.ErrNoInput) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			failures = append(failures, model.NewDecodeError(model.StageDecode, record, seq+1, err))
			return nil
		}

		action, ok, err := builder.Build(swap, seq+1)
		if err != nil {
			failed++
			failures = append(failures, model.NewDecodeError(model.StageBuild, record, seq+1, err))
			return nil
		}
		if !ok {
			skipped++
			return nil
		}
		seq++
		emitted++
		pending = append(pending, action)
		if len(pending) >= actionBatchSize {
			return flush()
		}
		return nil
	}, func(line int, err error) {
		failed++
		failures = append(failures, model.DecodeError{Stage: model.StageParse, Line: line, Error: err.Error()})
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("trades complete",
		zap.Int("total", total),
		zap.Int("emitted", emitted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}
