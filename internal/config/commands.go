package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TradesConfig holds configuration for the trades command.
type TradesConfig struct {
	RPCURL        string
	In            string
	Out           string
	Errors        string
	Tokens        []string
	WrappedNative string
	TradeFeeBps   uint64
	Topic0        []string
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
}

// LoadTrades merges config file, environment variables, and flags into TradesConfig.
func LoadTrades(cfgFile string, flags *pflag.FlagSet) (TradesConfig, error) {
	v, err := read(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/logs.jsonl")
		v.SetDefault("out", "./data/actions.jsonl")
		v.SetDefault("errors", "./data/decode_errors.jsonl")
		v.SetDefault("trade-fee-bps", uint64(1000))
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return TradesConfig{}, err
	}

	return TradesConfig{
		RPCURL:        v.GetString("rpc"),
		In:            v.GetString("in"),
		Out:           v.GetString("out"),
		Errors:        v.GetString("errors"),
		Tokens:        getStringSlice(v, "tokens"),
		WrappedNative: v.GetString("wrapped-native"),
		TradeFeeBps:   v.GetUint64("trade-fee-bps"),
		Topic0:        getStringSlice(v, "topic0"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// SettleConfig holds configuration for the settle command.
type SettleConfig struct {
	RPCURL        string
	In            string
	Events        string
	Snapshot      string
	BoltPath      string
	PGDSN         string
	StakeProtocol string
	SnapshotEvery int
	FundCalls     bool
	Salt          string
	MaxRetries    int
	RetryBackoff  time.Duration
	LogLevel      string
	Raffle        RaffleConfig
}

// LoadSettle merges config file, environment variables, and flags into SettleConfig.
func LoadSettle(cfgFile string, flags *pflag.FlagSet) (SettleConfig, error) {
	v, err := read(cfgFile, flags, func(v *viper.Viper) {
		raffleDefaults(v)
		v.SetDefault("in", "./data/actions.jsonl")
		v.SetDefault("events", "./data/events.jsonl")
		v.SetDefault("snapshot", "./data/snapshot.json")
		v.SetDefault("stake-protocol", "0x00000000000000000000000000000000000000a6")
		v.SetDefault("snapshot-every", 1000)
		v.SetDefault("fund-calls", true)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return SettleConfig{}, err
	}

	return SettleConfig{
		RPCURL:        v.GetString("rpc"),
		In:            v.GetString("in"),
		Events:        v.GetString("events"),
		Snapshot:      v.GetString("snapshot"),
		BoltPath:      v.GetString("bolt"),
		PGDSN:         v.GetString("pg-dsn"),
		StakeProtocol: v.GetString("stake-protocol"),
		SnapshotEvery: v.GetInt("snapshot-every"),
		FundCalls:     v.GetBool("fund-calls"),
		Salt:          v.GetString("salt"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		LogLevel:      v.GetString("log-level"),
		Raffle:        loadRaffle(v),
	}, nil
}

// StatusConfig holds configuration for the status command.
type StatusConfig struct {
	Snapshot string
	BoltPath string
	PGDSN    string
	Accounts []string
	PotID    uint64
	LogLevel string
	Raffle   RaffleConfig
}

// LoadStatus merges config file, environment variables, and flags into StatusConfig.
func LoadStatus(cfgFile string, flags *pflag.FlagSet) (StatusConfig, error) {
	v, err := read(cfgFile, flags, func(v *viper.Viper) {
		raffleDefaults(v)
		v.SetDefault("snapshot", "./data/snapshot.json")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return StatusConfig{}, err
	}

	return StatusConfig{
		Snapshot: v.GetString("snapshot"),
		BoltPath: v.GetString("bolt"),
		PGDSN:    v.GetString("pg-dsn"),
		Accounts: getStringSlice(v, "account"),
		PotID:    v.GetUint64("pot-id"),
		LogLevel: v.GetString("log-level"),
		Raffle:   loadRaffle(v),
	}, nil
}
