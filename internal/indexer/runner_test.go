package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"tradeRaffle/internal/model"
)

type stubSource struct {
	latest   uint64
	logs     []types.Log
	failures int
	ranges   []BlockRange
}

func (s *stubSource) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(56), nil
}

func (s *stubSource) BlockNumber(context.Context) (uint64, error) {
	return s.latest, nil
}

func (s *stubSource) ScanLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("rate limited")
	}
	s.ranges = append(s.ranges, BlockRange{From: from, To: to})
	var out []types.Log
	for _, log := range s.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	// Providers occasionally repeat a log on range borders.
	if len(out) > 0 {
		out = append(out, out[0])
	}
	return out, nil
}

func (s *stubSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number, nil
}

type memorySink struct {
	records []model.LogRecord
}

func (m *memorySink) PutLogBatch(records []model.LogRecord) error {
	m.records = append(m.records, records...)
	return nil
}

func swapLog(block uint64, index uint, removed bool) types.Log {
	return types.Log{
		Address:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Topics:      []common.Hash{common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")},
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Index:       index,
		Removed:     removed,
	}
}

func TestRunnerStoresConfirmedLogs(t *testing.T) {
	source := &stubSource{
		latest:   112,
		failures: 1,
		logs: []types.Log{
			swapLog(100, 0, false),
			swapLog(101, 3, true),
			swapLog(104, 1, false),
			swapLog(110, 0, false),
		},
	}
	sink := &memorySink{}
	cursor := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))

	runner := NewRunner(RunConfig{
		FromBlock:     100,
		Confirmations: 5,
		Addresses:     []common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")},
		BatchSize:     3,
		MaxRetries:    2,
		RetryBackoff:  time.Millisecond,
	}, source, sink, cursor, zap.NewNop())

	stored, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stored != 2 {
		t.Fatalf("stored = %d, want 2", stored)
	}

	wantRanges := []BlockRange{{From: 100, To: 102}, {From: 103, To: 105}, {From: 106, To: 107}}
	if !reflect.DeepEqual(source.ranges, wantRanges) {
		t.Fatalf("ranges mismatch: %+v != %+v", source.ranges, wantRanges)
	}
	if sink.records[0].BlockNumber != 100 || sink.records[1].BlockNumber != 104 {
		t.Fatalf("unexpected records: %+v", sink.records)
	}
	if sink.records[1].Timestamp != 1_700_000_104 || sink.records[1].ChainID != 56 {
		t.Fatalf("record not enriched: %+v", sink.records[1])
	}

	last, ok, err := cursor.Load(context.Background())
	if err != nil || !ok || last != 107 {
		t.Fatalf("checkpoint = %d %v %v", last, ok, err)
	}

	// A second run resumes after the checkpoint and picks up the new head.
	source.latest = 115
	source.ranges = nil
	stored, err = runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stored != 1 || sink.records[2].BlockNumber != 110 {
		t.Fatalf("second run stored %d: %+v", stored, sink.records)
	}
	if source.ranges[0].From != 108 {
		t.Fatalf("resume mismatch: %+v", source.ranges)
	}
}

func TestRunnerNothingToSync(t *testing.T) {
	source := &stubSource{latest: 3}
	runner := NewRunner(RunConfig{
		Confirmations: 10,
		Addresses:     []common.Address{{}},
		BatchSize:     10,
	}, source, &memorySink{}, nil, nil)

	stored, err := runner.Run(context.Background())
	if err != nil || stored != 0 {
		t.Fatalf("expected empty run, got %d %v", stored, err)
	}
	if len(source.ranges) != 0 {
		t.Fatalf("unexpected fetch: %+v", source.ranges)
	}
}
