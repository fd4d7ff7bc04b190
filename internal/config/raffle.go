package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/oracle"
	"tradeRaffle/internal/raffle"
)

// RaffleConfig is the deployment shared by the settle and status commands.
// Amounts are human decimals scaled by PrizeDecimals.
type RaffleConfig struct {
	Owner            string
	Operator         string
	Router           string
	RandomnessSource string
	RaffleAddress    string
	PrizeToken       string
	PrizeDecimals    uint8

	PotLimit       string
	TicketCost     string
	PrizeAmounts   []string
	Winners        int
	ProtocolFeeBps uint64
	TradeFeeBps    uint64
	ClaimWindow    time.Duration
	RoundDuration  time.Duration

	Trigger      string
	Funding      string
	Ticketing    string
	Selection    string
	Randomness   string
	ResetPending bool

	Incentivized []string
	PriceFeeds   map[string]string
	StaticPrices map[string]string
	StartTime    string
}

func raffleDefaults(v *viper.Viper) {
	v.SetDefault("prize-decimals", 18)
	v.SetDefault("pot-limit", "100")
	v.SetDefault("ticket-cost", "0.1")
	v.SetDefault("winners", 1)
	v.SetDefault("protocol-fee-bps", uint64(1000))
	v.SetDefault("trade-fee-bps", uint64(1000))
	v.SetDefault("claim-window", 24*time.Hour)
	v.SetDefault("round-duration", 24*time.Hour)
	v.SetDefault("trigger", string(raffle.TriggerPotFill))
	v.SetDefault("funding", string(raffle.FundingSelf))
	v.SetDefault("ticketing", string(raffle.TicketingNative))
	v.SetDefault("selection", string(raffle.SelectionTicketDraw))
	v.SetDefault("randomness", string(raffle.RandomnessExternal))
	v.SetDefault("reset-pending", false)
	v.SetDefault("raffle-address", "0x00000000000000000000000000000000000000a5")
}

func loadRaffle(v *viper.Viper) RaffleConfig {
	return RaffleConfig{
		Owner:            v.GetString("owner"),
		Operator:         v.GetString("operator"),
		Router:           v.GetString("router"),
		RandomnessSource: v.GetString("randomness-source"),
		RaffleAddress:    v.GetString("raffle-address"),
		PrizeToken:       v.GetString("prize-token"),
		PrizeDecimals:    uint8(v.GetUint("prize-decimals")),
		PotLimit:         v.GetString("pot-limit"),
		TicketCost:       v.GetString("ticket-cost"),
		PrizeAmounts:     getStringSlice(v, "prize-amounts"),
		Winners:          v.GetInt("winners"),
		ProtocolFeeBps:   v.GetUint64("protocol-fee-bps"),
		TradeFeeBps:      v.GetUint64("trade-fee-bps"),
		ClaimWindow:      v.GetDuration("claim-window"),
		RoundDuration:    v.GetDuration("round-duration"),
		Trigger:          v.GetString("trigger"),
		Funding:          v.GetString("funding"),
		Ticketing:        v.GetString("ticketing"),
		Selection:        v.GetString("selection"),
		Randomness:       v.GetString("randomness"),
		ResetPending:     v.GetBool("reset-pending"),
		Incentivized:     getStringSlice(v, "incentivized"),
		PriceFeeds:       getStringMap(v, "price-feeds"),
		StaticPrices:     getStringMap(v, "static-prices"),
		StartTime:        v.GetString("start-time"),
	}
}

// Params converts the configuration into engine parameters.
func (c RaffleConfig) Params() (raffle.Params, error) {
	p := raffle.DefaultParams()

	addrs := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"owner", c.Owner, &p.Owner},
		{"operator", c.Operator, &p.Operator},
		{"router", c.Router, &p.Router},
		{"randomness-source", c.RandomnessSource, &p.RandomnessSource},
	}
	for _, a := range addrs {
		if a.raw == "" {
			continue
		}
		addr, err := ParseAddress(a.raw)
		if err != nil {
			return raffle.Params{}, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = addr
	}

	p.PrizeToken = model.TokenDescriptor{Address: model.NativeToken, Decimals: c.PrizeDecimals}
	if c.PrizeToken != "" {
		addr, err := ParseAddress(c.PrizeToken)
		if err != nil {
			return raffle.Params{}, fmt.Errorf("prize-token: %w", err)
		}
		p.PrizeToken.Address = addr
	}

	var err error
	if p.PotLimit, err = ParseAmount(c.PotLimit, c.PrizeDecimals); err != nil {
		return raffle.Params{}, fmt.Errorf("pot-limit: %w", err)
	}
	if p.TicketCost, err = ParseAmount(c.TicketCost, c.PrizeDecimals); err != nil {
		return raffle.Params{}, fmt.Errorf("ticket-cost: %w", err)
	}
	p.PrizeAmounts = nil
	for i, raw := range c.PrizeAmounts {
		amount, err := ParseAmount(raw, c.PrizeDecimals)
		if err != nil {
			return raffle.Params{}, fmt.Errorf("prize-amounts[%d]: %w", i, err)
		}
		p.PrizeAmounts = append(p.PrizeAmounts, amount)
	}

	p.NumberOfWinners = c.Winners
	p.ProtocolFeeBps = c.ProtocolFeeBps
	p.ClaimWindow = c.ClaimWindow
	p.RoundDuration = c.RoundDuration
	p.Trigger = raffle.Trigger(c.Trigger)
	p.Funding = raffle.Funding(c.Funding)
	p.Ticketing = raffle.Ticketing(c.Ticketing)
	p.Selection = raffle.Selection(c.Selection)
	p.Randomness = raffle.RandomnessMode(c.Randomness)
	p.ResetPendingEachRound = c.ResetPending

	if err := p.Validate(); err != nil {
		return raffle.Params{}, err
	}
	return p, nil
}

// Start returns the configured replay start time, or the zero time.
func (c RaffleConfig) Start() (time.Time, error) {
	ts, err := ParseTimestamp(c.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("start-time: %w", err)
	}
	if ts == 0 {
		return time.Time{}, nil
	}
	return time.Unix(int64(ts), 0).UTC(), nil
}

// Raffle parses the raffle contract address the gateway routes deltas to.
func (c RaffleConfig) Raffle() (common.Address, error) {
	return ParseAddress(c.RaffleAddress)
}

// IncentivizedTokens parses "addr[:decimals]" entries; decimals default to 18.
func (c RaffleConfig) IncentivizedTokens() ([]model.TokenDescriptor, error) {
	out := make([]model.TokenDescriptor, 0, len(c.Incentivized))
	for _, entry := range c.Incentivized {
		raw, dec, hasDec := strings.Cut(entry, ":")
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("incentivized %q: %w", entry, err)
		}
		decimals := uint64(18)
		if hasDec {
			if decimals, err = strconv.ParseUint(strings.TrimSpace(dec), 10, 8); err != nil {
				return nil, fmt.Errorf("incentivized %q decimals: %w", entry, err)
			}
		}
		out = append(out, model.TokenDescriptor{Address: addr, Decimals: uint8(decimals)})
	}
	return out, nil
}

// Feeds parses "token=feed" pairs into parallel slices ordered by token.
func (c RaffleConfig) Feeds() ([]common.Address, []common.Address, error) {
	keys := make([]string, 0, len(c.PriceFeeds))
	for k := range c.PriceFeeds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tokens := make([]common.Address, 0, len(keys))
	feeds := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		token, err := ParseAddress(k)
		if err != nil {
			return nil, nil, fmt.Errorf("price-feeds token %q: %w", k, err)
		}
		feed, err := ParseAddress(c.PriceFeeds[k])
		if err != nil {
			return nil, nil, fmt.Errorf("price-feeds feed %q: %w", c.PriceFeeds[k], err)
		}
		tokens = append(tokens, token)
		feeds = append(feeds, feed)
	}
	return tokens, feeds, nil
}

// Prices parses "feed=answer:decimals" entries for the static quoter. An
// answer is a human decimal such as 2500.5.
func (c RaffleConfig) Prices() (map[common.Address]oracle.Price, error) {
	out := make(map[common.Address]oracle.Price, len(c.StaticPrices))
	for k, raw := range c.StaticPrices {
		feed, err := ParseAddress(k)
		if err != nil {
			return nil, fmt.Errorf("static-prices feed %q: %w", k, err)
		}
		answer, dec, ok := strings.Cut(raw, ":")
		decimals := uint64(8)
		if ok {
			if decimals, err = strconv.ParseUint(strings.TrimSpace(dec), 10, 8); err != nil {
				return nil, fmt.Errorf("static-prices %q decimals: %w", raw, err)
			}
		}
		value, err := ParseAmount(answer, uint8(decimals))
		if err != nil {
			return nil, fmt.Errorf("static-prices %q: %w", raw, err)
		}
		out[feed] = oracle.Price{Answer: value, Decimals: uint8(decimals)}
	}
	return out, nil
}

// ParseAddress parses a hex address.
func ParseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// ParseAddresses parses a list of addresses, skipping blanks and repeats.
func ParseAddresses(raw []string) ([]common.Address, error) {
	items := cleanStrings(raw)
	out := make([]common.Address, 0, len(items))
	seen := make(map[common.Address]bool, len(items))
	for _, item := range items {
		addr, err := ParseAddress(item)
		if err != nil {
			return nil, err
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out, nil
}

// ParseTopics parses event signature hashes.
func ParseTopics(raw []string) ([]common.Hash, error) {
	items := cleanStrings(raw)
	out := make([]common.Hash, 0, len(items))
	for _, item := range items {
		data, err := hexutil.Decode(item)
		if err != nil || len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 %q", item)
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

// ParseAmount scales a human decimal by 10^decimals. Fractions finer than the
// token precision are rejected.
func ParseAmount(raw string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse amount %q: negative", raw)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("parse amount %q: more than %d decimals", raw, decimals)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("parse amount %q: overflow", raw)
	}
	return out, nil
}

// FormatAmount renders a base-unit amount as a human decimal.
func FormatAmount(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals)).String()
}
