package model

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
)

func TestLogRecordKey(t *testing.T) {
	lr := LogRecord{
		BlockNumber: 36000000,
		TxHash:      "0xDEF456",
		LogIndex:    12,
		Topics:      []string{"0xaaa", "0xbbb"},
	}
	if got := lr.Key(); got != "36000000:0xdef456:12" {
		t.Fatalf("key mismatch: %s", got)
	}
	if lr.Topic0() != "0xaaa" {
		t.Fatalf("topic0 mismatch: %s", lr.Topic0())
	}
	if (LogRecord{}).Topic0() != "" {
		t.Fatalf("expected empty topic0")
	}
}

func TestPotStateStatus(t *testing.T) {
	tests := []struct {
		name  string
		state PotState
		want  RoundStatus
	}{
		{name: "open", state: PotState{}, want: RoundOpen},
		{name: "closed", state: PotState{IsClosed: true}, want: RoundClosed},
		{name: "drawn", state: PotState{IsClosed: true, IsDrawn: true}, want: RoundDrawn},
		{name: "settled", state: PotState{IsClosed: true, IsDrawn: true, WinnerSet: true}, want: RoundSettled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Status(); got != tt.want {
				t.Fatalf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPotStateCloneIsDeep(t *testing.T) {
	end := time.Unix(1700000000, 0).UTC()
	original := NewPotState(3, uint256.NewInt(7), end)
	original.EndTime = &end

	clone := original.Clone()
	clone.CurrentSize.AddUint64(clone.CurrentSize, 1)
	*clone.EndTime = clone.EndTime.Add(time.Hour)

	if original.CurrentSize.Uint64() != 7 {
		t.Fatalf("size leaked into original: %s", original.CurrentSize)
	}
	if !original.EndTime.Equal(end) {
		t.Fatalf("end time leaked into original: %s", original.EndTime)
	}
}

func TestPoolMetaHas(t *testing.T) {
	meta := PoolMeta{
		Token0: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Token1: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}
	if !meta.Has("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Fatalf("token0 not matched")
	}
	if meta.Has("0xcccccccccccccccccccccccccccccccccccccccc") || meta.Has("") {
		t.Fatalf("unexpected match")
	}
}

func TestNewDecodeError(t *testing.T) {
	record := LogRecord{
		ChainID:     56,
		BlockNumber: 42,
		TxHash:      "0xabc",
		LogIndex:    3,
		Address:     "0x1111111111111111111111111111111111111111",
	}
	got := NewDecodeError(StageBuild, record, 7, errors.New("token not incentivized"))
	want := DecodeError{
		Stage:       StageBuild,
		ActionSeq:   7,
		ChainID:     56,
		BlockNumber: 42,
		TxHash:      "0xabc",
		LogIndex:    3,
		Pool:        "0x1111111111111111111111111111111111111111",
		Error:       "token not incentivized",
	}
	if got != want {
		t.Fatalf("decode error mismatch: %+v != %+v", got, want)
	}
}
