package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for raffle state and the event journal.
// Name scopes every row to one raffle deployment.
type Store struct {
	pool *pgxpool.Pool
	name string
}

func NewStore(ctx context.Context, dsn, name string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if name == "" {
		return nil, fmt.Errorf("store name is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, name: name}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the latest engine snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap storage.Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO raffle_snapshots (name, seq, state, taken_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE
		SET seq = EXCLUDED.seq, state = EXCLUDED.state, taken_at = EXCLUDED.taken_at, updated_at = now()
	`, s.name, int64(snap.Seq), []byte(snap.State), snap.TakenAt)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the latest engine snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (storage.Snapshot, bool, error) {
	var (
		seq   int64
		state []byte
		taken time.Time
	)
	row := s.pool.QueryRow(ctx, `SELECT seq, state, taken_at FROM raffle_snapshots WHERE name=$1`, s.name)
	if err := row.Scan(&seq, &state, &taken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Snapshot{}, false, nil
		}
		return storage.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return storage.Snapshot{Seq: uint64(seq), State: state, TakenAt: taken.UTC()}, true, nil
}

// UpsertRounds inserts or updates round records.
func (s *Store) UpsertRounds(ctx context.Context, rounds []model.PotState) error {
	if len(rounds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, round := range rounds {
		batch.Queue(`
			INSERT INTO raffle_rounds (
				name, pot_id, status, current_size, accumulated_protocol_fee, paid,
				ticket_count, started_at, end_time, settled_at, updated_at
			) VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9, $10, now())
			ON CONFLICT (name, pot_id)
			DO UPDATE SET
				status = EXCLUDED.status,
				current_size = EXCLUDED.current_size,
				accumulated_protocol_fee = EXCLUDED.accumulated_protocol_fee,
				paid = EXCLUDED.paid,
				ticket_count = EXCLUDED.ticket_count,
				end_time = EXCLUDED.end_time,
				settled_at = EXCLUDED.settled_at,
				updated_at = now()
		`,
			s.name,
			int64(round.PotID),
			string(round.Status()),
			decimalText(round.CurrentSize),
			decimalText(round.AccumulatedProtocolFee),
			optionalDecimal(round.Paid),
			int64(round.TicketCount),
			round.StartedAt,
			round.EndTime,
			round.SettledAt,
		)
	}
	return s.sendBatch(ctx, batch, len(rounds), "upsert rounds")
}

// UpsertAwards inserts or updates the award of each account.
func (s *Store) UpsertAwards(ctx context.Context, awards []model.PrizeAward) error {
	if len(awards) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, award := range awards {
		batch.Queue(`
			INSERT INTO prize_awards (name, account, pot_id, amount, claim_deadline, claimed, updated_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, now())
			ON CONFLICT (name, account)
			DO UPDATE SET
				pot_id = EXCLUDED.pot_id,
				amount = EXCLUDED.amount,
				claim_deadline = EXCLUDED.claim_deadline,
				claimed = EXCLUDED.claimed,
				updated_at = now()
		`,
			s.name,
			award.Account.Hex(),
			int64(award.PotID),
			decimalText(award.Amount),
			award.ClaimDeadline,
			award.Claimed,
		)
	}
	return s.sendBatch(ctx, batch, len(awards), "upsert awards")
}

// PutEvents journals engine events. Replays of the same event id are ignored.
func (s *Store) PutEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		id, err := uuid.Parse(event.ID)
		if err != nil {
			return fmt.Errorf("event id %q: %w", event.ID, err)
		}
		batch.Queue(`
			INSERT INTO raffle_events (
				id, name, kind, pot_id, account, token, amount, ticket_from, ticket_to,
				request_id, random_value, detail, action_seq, ts
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (id) DO NOTHING
		`,
			id.String(),
			s.name,
			string(event.Kind),
			int64(event.PotID),
			nullable(event.Account),
			nullable(event.Token),
			nullable(event.Amount),
			int64(event.TicketFrom),
			int64(event.TicketTo),
			nullable(event.RequestID),
			nullable(event.RandomValue),
			nullable(event.Detail),
			int64(event.ActionSeq),
			time.Unix(int64(event.Timestamp), 0).UTC(),
		)
	}
	return s.sendBatch(ctx, batch, len(events), "put events")
}

// LoadState returns the cursor stored under key.
func (s *Store) LoadState(ctx context.Context, key string) (uint64, bool, error) {
	if key == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, s.name+"/"+key)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts the cursor stored under key.
func (s *Store) SaveState(ctx context.Context, key string, last uint64) error {
	if key == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, s.name+"/"+key, int64(last))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int, op string) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}
