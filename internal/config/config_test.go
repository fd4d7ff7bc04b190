package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/pflag"

	"tradeRaffle/internal/raffle"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{raw: "0.1", decimals: 18, want: "100000000000000000"},
		{raw: "100", decimals: 18, want: "100000000000000000000"},
		{raw: "2500.5", decimals: 8, want: "250050000000"},
		{raw: "1.5", decimals: 0, wantErr: true},
		{raw: "0.0000001", decimals: 6, wantErr: true},
		{raw: "-1", decimals: 18, wantErr: true},
		{raw: "abc", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.raw, tt.decimals)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseAmount(%q, %d) expected error, got %s", tt.raw, tt.decimals, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmount(%q, %d): %v", tt.raw, tt.decimals, err)
		}
		if got.Dec() != tt.want {
			t.Fatalf("ParseAmount(%q, %d) = %s, want %s", tt.raw, tt.decimals, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(uint256.MustFromDecimal("20000000000000000"), 18); got != "0.02" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatAmount(nil, 18); got != "0" {
		t.Fatalf("unexpected nil format: %s", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("parse rfc3339: %v", err)
	}
	if got != 1767225600 {
		t.Fatalf("unexpected timestamp: %d", got)
	}
	if got, err := ParseTimestamp("42"); err != nil || got != 42 {
		t.Fatalf("unexpected unix parse: %d %v", got, err)
	}
	if got, err := ParseTimestamp(""); err != nil || got != 0 {
		t.Fatalf("unexpected empty parse: %d %v", got, err)
	}
}

func TestLoadSettleFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
owner: "0x00000000000000000000000000000000000000a1"
operator: "0x00000000000000000000000000000000000000a2"
pot-limit: "5"
ticket-cost: "0.5"
prize-amounts: "3,2"
winners: 2
trigger: timed
round-duration: 1h
ticketing: usd
incentivized: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48:6"
price-feeds:
  "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": "0x8fffffd4afb6115b954bd326cbe7b4ba576818f6"
static-prices:
  "0x8fffffd4afb6115b954bd326cbe7b4ba576818f6": "1.0:8"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flags := pflag.NewFlagSet("settle", pflag.ContinueOnError)
	flags.Int("snapshot-every", 10, "")
	if err := flags.Parse([]string{"--snapshot-every=7"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadSettle(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SnapshotEvery != 7 {
		t.Fatalf("flag not bound: %d", cfg.SnapshotEvery)
	}
	if cfg.Raffle.TradeFeeBps != 1000 || cfg.Raffle.ClaimWindow != 24*time.Hour {
		t.Fatalf("defaults not applied: %+v", cfg.Raffle)
	}

	params, err := cfg.Raffle.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if params.Trigger != raffle.TriggerTimed || params.Ticketing != raffle.TicketingUSD {
		t.Fatalf("unexpected modes: %s %s", params.Trigger, params.Ticketing)
	}
	if params.Owner != common.HexToAddress("0xa1") {
		t.Fatalf("unexpected owner: %s", params.Owner)
	}
	wantAmounts := []string{"3000000000000000000", "2000000000000000000"}
	var gotAmounts []string
	for _, a := range params.PrizeAmounts {
		gotAmounts = append(gotAmounts, a.Dec())
	}
	if !reflect.DeepEqual(gotAmounts, wantAmounts) {
		t.Fatalf("unexpected amounts: %v", gotAmounts)
	}

	tokens, err := cfg.Raffle.IncentivizedTokens()
	if err != nil {
		t.Fatalf("incentivized: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Decimals != 6 {
		t.Fatalf("unexpected incentivized tokens: %+v", tokens)
	}

	feedTokens, feeds, err := cfg.Raffle.Feeds()
	if err != nil {
		t.Fatalf("feeds: %v", err)
	}
	if len(feedTokens) != 1 || feeds[0] != common.HexToAddress("0x8fffffd4afb6115b954bd326cbe7b4ba576818f6") {
		t.Fatalf("unexpected feeds: %v %v", feedTokens, feeds)
	}

	prices, err := cfg.Raffle.Prices()
	if err != nil {
		t.Fatalf("prices: %v", err)
	}
	price := prices[feeds[0]]
	if price.Decimals != 8 || price.Answer.Uint64() != 100000000 {
		t.Fatalf("unexpected price: %+v", price)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RAFFLE_CONFIRMATIONS", "12")
	t.Setenv("RAFFLE_ADDRESS", "0x01, 0x02,")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Confirmations != 12 {
		t.Fatalf("unexpected confirmations: %d", cfg.Confirmations)
	}
	if !reflect.DeepEqual(cfg.Addresses, []string{"0x01", "0x02"}) {
		t.Fatalf("unexpected addresses: %v", cfg.Addresses)
	}
	if cfg.BatchSize != 2000 {
		t.Fatalf("unexpected batch size default: %d", cfg.BatchSize)
	}
}

func TestParseAddressesDedupes(t *testing.T) {
	got, err := ParseAddresses([]string{
		"0x1111111111111111111111111111111111111111",
		" ",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[1] != common.HexToAddress("0x2222222222222222222222222222222222222222") {
		t.Fatalf("unexpected addresses: %v", got)
	}
	if _, err := ParseAddresses([]string{"0xnope"}); err == nil {
		t.Fatalf("expected invalid address error")
	}
}

func TestParseTopics(t *testing.T) {
	swap := "0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67"
	got, err := ParseTopics([]string{"", swap})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0] != common.HexToHash(swap) {
		t.Fatalf("unexpected topics: %v", got)
	}
	if _, err := ParseTopics([]string{"0x1234"}); err == nil {
		t.Fatalf("expected short topic error")
	}
}
