package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/retry"
)

// LogSource is the chain surface the runner reads. chain.Client satisfies it.
type LogSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ScanLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// LogSink stores normalized log batches.
type LogSink interface {
	PutLogBatch(records []model.LogRecord) error
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock     uint64
	ToBlock       uint64
	Confirmations uint64
	Addresses     []common.Address
	Topic0        []common.Hash
	BatchSize     uint64
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Runner streams pool Swap logs from the chain into a sink.
type Runner struct {
	cfg    RunConfig
	source LogSource
	sink   LogSink
	cursor Cursor
	logger *zap.Logger
	seen   map[string]struct{}
	clock  func() time.Time
}

// NewRunner builds a Runner. A nil cursor always starts at cfg.FromBlock.
func NewRunner(cfg RunConfig, source LogSource, sink LogSink, cursor Cursor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		source: source,
		sink:   sink,
		cursor: cursor,
		logger: logger,
		seen:   make(map[string]struct{}),
		clock:  time.Now,
	}
}

// Run executes the indexing loop and returns the number of stored logs.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if r.source == nil {
		return 0, fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return 0, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return 0, fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return 0, fmt.Errorf("at least one pool address is required")
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	plan, err := r.plan(ctx)
	if err != nil {
		return 0, err
	}
	if plan.Empty() {
		r.logger.Info("nothing to sync", zap.Uint64("from", r.cfg.FromBlock), zap.Uint64("to", r.cfg.ToBlock))
		return 0, nil
	}
	r.logger.Info("scan planned",
		zap.Uint64("from", plan.Window.From),
		zap.Uint64("to", plan.Window.To),
		zap.Int("batches", len(plan.Batches)),
	)

	var stored int
	for _, blockRange := range plan.Batches {
		select {
		case <-ctx.Done():
			return stored, ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return stored, fmt.Errorf("filter logs: %w", err)
		}

		ingestedAt := r.clock().UTC().Format(time.RFC3339Nano)
		stamps := make(map[uint64]uint64)
		records := make([]model.LogRecord, 0, len(logs))
		var removed int
		for _, log := range logs {
			if log.Removed {
				removed++
				continue
			}
			if r.isDuplicate(log) {
				continue
			}

			ts, ok := stamps[log.BlockNumber]
			if !ok {
				if ts, err = r.blockTimestampWithRetry(ctx, log.BlockNumber); err != nil {
					return stored, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
				}
				stamps[log.BlockNumber] = ts
			}
			record := logRecord(log)
			record.ChainID = chainIDValue
			record.Timestamp = ts
			record.IngestedAt = ingestedAt
			records = append(records, record)
		}

		if err := r.sink.PutLogBatch(records); err != nil {
			return stored, fmt.Errorf("store logs: %w", err)
		}
		stored += len(records)

		if r.cursor != nil {
			if err := r.cursor.Save(ctx, blockRange.To); err != nil {
				return stored, err
			}
		}

		r.logger.Info("batch complete",
			zap.Int("logs", len(records)),
			zap.Int("removed", removed),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return stored, nil
}

// plan resumes after the cursor and keeps Confirmations blocks behind the head.
func (r *Runner) plan(ctx context.Context) (ScanPlan, error) {
	head, err := r.source.BlockNumber(ctx)
	if err != nil {
		return ScanPlan{}, fmt.Errorf("get latest block: %w", err)
	}

	from := r.cfg.FromBlock
	if r.cursor != nil {
		last, ok, err := r.cursor.Load(ctx)
		if err != nil {
			return ScanPlan{}, err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}
	return PlanScan(from, r.cfg.ToBlock, head, r.cfg.Confirmations, r.cfg.BatchSize)
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.ScanLogs(ctx, fromBlock, toBlock, r.cfg.Addresses, r.cfg.Topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := model.LogKey(log.BlockNumber, log.TxHash.Hex(), uint64(log.Index))
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

// logRecord normalizes the chain fields of a log; the caller stamps chain id
// and times.
func logRecord(log types.Log) model.LogRecord {
	record := model.LogRecord{
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      make([]string, len(log.Topics)),
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
	}
	for i, topic := range log.Topics {
		record.Topics[i] = topic.Hex()
	}
	return record
}
