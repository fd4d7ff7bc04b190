package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"tradeRaffle/internal/config"
	"tradeRaffle/internal/oracle"
	"tradeRaffle/internal/raffle"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the raffle state of the latest snapshot as JSON",
		RunE:  runStatus,
	}

	cmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path")
	cmd.Flags().String("bolt", "", "bbolt database holding the snapshot")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN holding the snapshot")
	cmd.Flags().StringSlice("account", nil, "accounts to report (comma-separated)")
	cmd.Flags().Uint64("pot-id", 0, "round to report, 0 means the live round")
	cmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")
	addRaffleFlags(cmd)
	return cmd
}

type roundStatus struct {
	PotID          uint64   `json:"pot_id"`
	Status         string   `json:"status"`
	Closed         bool     `json:"closed"`
	Drawn          bool     `json:"drawn"`
	WinnerSet      bool     `json:"winner_set"`
	Size           string   `json:"size"`
	TicketCount    uint64   `json:"ticket_count,omitempty"`
	WinningTickets []uint64 `json:"winning_tickets,omitempty"`
	Winners        []string `json:"winners,omitempty"`
}

type accountStatus struct {
	Account       string `json:"account"`
	Pending       string `json:"pending"`
	PendingUSD    string `json:"pending_usd,omitempty"`
	Claimable     string `json:"claimable"`
	ClaimDeadline string `json:"claim_deadline,omitempty"`
	Locked        string `json:"locked,omitempty"`
}

type statusReport struct {
	CurrentPotID   uint64            `json:"current_pot_id"`
	CurrentPotSize string            `json:"current_pot_size"`
	PotLimit       string            `json:"pot_limit"`
	TicketCost     string            `json:"ticket_cost"`
	LastTicketID   uint64            `json:"last_ticket_id"`
	ProtocolFees   map[string]string `json:"protocol_fees"`
	EndTime        string            `json:"end_time,omitempty"`
	LastRequestID  string            `json:"last_request_id,omitempty"`
	Round          *roundStatus      `json:"round,omitempty"`
	Accounts       []accountStatus   `json:"accounts,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStatus(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	rt, err := newRuntime(ctx, cfg.Raffle, runtimeOptions{
		Snapshot:      cfg.Snapshot,
		BoltPath:      cfg.BoltPath,
		PGDSN:         cfg.PGDSN,
		StakeProtocol: "0x0000000000000000000000000000000000000000",
	}, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, ok, err := rt.replayer.Resume(ctx); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("no snapshot found")
	}

	accounts, err := parseAccounts(cfg.Accounts)
	if err != nil {
		return err
	}
	report, err := buildStatus(ctx, rt.engine, cfg.PotID, accounts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func parseAccounts(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, item := range raw {
		addr, err := config.ParseAddress(item)
		if err != nil {
			return nil, fmt.Errorf("account: %w", err)
		}
		out = append(out, addr)
	}
	return out, nil
}

func buildStatus(ctx context.Context, engine *raffle.Engine, potID uint64, accounts []common.Address) (statusReport, error) {
	params := engine.Params()
	prizeDecimals := params.PrizeToken.Decimals
	ticketDecimals := prizeDecimals
	if params.Ticketing == raffle.TicketingUSD {
		ticketDecimals = oracle.USDDecimals
	}

	report := statusReport{
		CurrentPotID:   engine.CurrentPotID(),
		CurrentPotSize: config.FormatAmount(engine.CurrentPotSize(), prizeDecimals),
		PotLimit:       config.FormatAmount(engine.PotLimit(), prizeDecimals),
		TicketCost:     config.FormatAmount(engine.TicketCost(), ticketDecimals),
		LastTicketID:   engine.LastRaffleTicketID(),
		ProtocolFees:   make(map[string]string),
	}
	for token, amount := range engine.ProtocolFees() {
		report.ProtocolFees[token.Hex()] = amount.Dec()
	}
	if end, ok := engine.RaffleEndTime(); ok {
		report.EndTime = end.UTC().Format(time.RFC3339)
	}
	if id, ok := engine.LastRequestID(); ok {
		report.LastRequestID = id.Dec()
	}

	if potID == 0 {
		potID = report.CurrentPotID
	}
	if round, ok := engine.Round(potID); ok {
		closed, drawn, winnerSet := engine.RaffleStatus(potID)
		rs := &roundStatus{
			PotID:          potID,
			Status:         string(round.Status()),
			Closed:         closed,
			Drawn:          drawn,
			WinnerSet:      winnerSet,
			Size:           config.FormatAmount(round.CurrentSize, prizeDecimals),
			TicketCount:    round.TicketCount,
			WinningTickets: engine.WinningTicketIDs(potID),
		}
		for _, winner := range engine.Winners(potID) {
			rs.Winners = append(rs.Winners, winner.Hex())
		}
		report.Round = rs
	}

	for _, account := range accounts {
		pending := engine.PendingAmounts(account)
		claimable, deadline := engine.ClaimablePrizes(account)
		st := accountStatus{
			Account:   account.Hex(),
			Pending:   config.FormatAmount(pending, ticketDecimals),
			Claimable: config.FormatAmount(claimable, prizeDecimals),
		}
		if !deadline.IsZero() {
			st.ClaimDeadline = deadline.UTC().Format(time.RFC3339)
		}
		if locked := engine.LockedPrizes(account); !locked.IsZero() {
			st.Locked = config.FormatAmount(locked, prizeDecimals)
		}
		if usd, err := engine.PendingAmountsUSD(ctx, account); err == nil {
			st.PendingUSD = config.FormatAmount(usd, oracle.USDDecimals)
		}
		report.Accounts = append(report.Accounts, st)
	}
	return report, nil
}
