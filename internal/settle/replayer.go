package settle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradeRaffle/internal/funds"
	"tradeRaffle/internal/model"
	"tradeRaffle/internal/raffle"
	"tradeRaffle/internal/randomness"
	"tradeRaffle/internal/router"
	"tradeRaffle/internal/storage"
)

// ErrBadAction marks an action record that cannot be turned into a call.
var ErrBadAction = errors.New("malformed action")

// Archive receives the archived rounds and awards at every snapshot.
type Archive interface {
	UpsertRounds(ctx context.Context, rounds []model.PotState) error
	UpsertAwards(ctx context.Context, awards []model.PrizeAward) error
}

// Config controls replay behavior.
type Config struct {
	// SnapshotEvery takes a snapshot after this many applied actions; zero
	// snapshots only at the end of a run.
	SnapshotEvery int
	// FundCalls mints the funds attached to trade, batch and sponsor actions
	// to the caller before the call, standing in for on-chain deposits.
	FundCalls    bool
	MaxRetries   int
	RetryBackoff time.Duration
}

// Deps are the collaborators a Replayer drives.
type Deps struct {
	Engine      *raffle.Engine
	Gateway     *router.Gateway
	Book        *funds.Book
	Coordinator *randomness.LocalCoordinator
	Clock       *Clock
	Journal     *Journal
	Headers     randomness.HeaderSource
	Snapshots   storage.SnapshotStore
	Archive     Archive
}

// Stats summarizes one Run.
type Stats struct {
	Total    int
	Applied  int
	Skipped  int
	Rejected int
	Failed   int
	LastSeq  uint64
}

// Replayer applies recorded actions to the engine and gateway in order.
type Replayer struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	lastSeq       uint64
	sinceSnapshot int
}

type image struct {
	Engine      json.RawMessage             `json:"engine"`
	Balances    []funds.Balance             `json:"balances"`
	Coordinator randomness.CoordinatorState `json:"coordinator"`
	Clock       time.Time                   `json:"clock"`
}

func New(cfg Config, deps Deps, logger *zap.Logger) (*Replayer, error) {
	if deps.Engine == nil || deps.Gateway == nil || deps.Book == nil || deps.Coordinator == nil || deps.Clock == nil {
		return nil, fmt.Errorf("engine, gateway, book, coordinator and clock are required")
	}
	if deps.Journal == nil {
		deps.Journal = NewJournal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{cfg: cfg, deps: deps, logger: logger}, nil
}

// LastSeq is the sequence number of the last applied or skipped action.
func (r *Replayer) LastSeq() uint64 {
	return r.lastSeq
}

// Resume restores the latest snapshot, if any, and returns its sequence.
func (r *Replayer) Resume(ctx context.Context) (uint64, bool, error) {
	if r.deps.Snapshots == nil {
		return 0, false, nil
	}
	snap, ok, err := r.deps.Snapshots.LoadSnapshot(ctx)
	if err != nil || !ok {
		return 0, false, err
	}

	var img image
	if err := json.Unmarshal(snap.State, &img); err != nil {
		return 0, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := r.deps.Engine.Restore(img.Engine); err != nil {
		return 0, false, err
	}
	if err := r.deps.Book.Restore(img.Balances); err != nil {
		return 0, false, err
	}
	r.deps.Coordinator.Restore(img.Coordinator)
	r.deps.Clock.Set(img.Clock)
	r.lastSeq = snap.Seq

	r.logger.Info("resume from snapshot",
		zap.Uint64("seq", snap.Seq),
		zap.Uint64("pot_id", r.deps.Engine.CurrentPotID()),
	)
	return snap.Seq, true, nil
}

// Run replays every action of the JSONL file at path with Seq above the
// resumed sequence.
func (r *Replayer) Run(ctx context.Context, path string) (Stats, error) {
	var stats Stats
	err := storage.ReadJSONL(path, func(action model.Action) error {
		stats.Total++
		if err := ctx.Err(); err != nil {
			return err
		}
		if action.Seq != 0 && action.Seq <= r.lastSeq {
			stats.Skipped++
			return nil
		}
		if action.Seq == 0 {
			action.Seq = r.lastSeq + 1
		}

		if err := r.Apply(ctx, action); err != nil {
			if ctx.Err() != nil {
				return err
			}
			stats.Rejected++
			r.reject(ctx, action, err)
		} else {
			stats.Applied++
		}
		r.lastSeq = action.Seq

		r.sinceSnapshot++
		if r.cfg.SnapshotEvery > 0 && r.sinceSnapshot >= r.cfg.SnapshotEvery {
			return r.Snapshot(ctx)
		}
		return nil
	}, func(line int, err error) {
		stats.Failed++
		r.logger.Warn("decode action", zap.Int("line", line), zap.Error(err))
	})
	stats.LastSeq = r.lastSeq
	if err != nil {
		return stats, err
	}
	if r.sinceSnapshot > 0 {
		if err := r.Snapshot(ctx); err != nil {
			return stats, err
		}
	}

	r.logger.Info("settle complete",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("skipped", stats.Skipped),
		zap.Int("rejected", stats.Rejected),
		zap.Int("failed", stats.Failed),
		zap.Uint64("last_seq", stats.LastSeq),
	)
	return stats, nil
}

// Snapshot persists the engine, escrow and coordinator state together with
// the archive of settled rounds and awards.
func (r *Replayer) Snapshot(ctx context.Context) error {
	r.sinceSnapshot = 0
	if r.deps.Archive != nil {
		if err := r.deps.Archive.UpsertRounds(ctx, r.deps.Engine.Rounds()); err != nil {
			return err
		}
		if err := r.deps.Archive.UpsertAwards(ctx, r.deps.Engine.Awards()); err != nil {
			return err
		}
	}
	if r.deps.Snapshots == nil {
		return nil
	}

	state, err := r.deps.Engine.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.Marshal(image{
		Engine:      state,
		Balances:    r.deps.Book.Balances(),
		Coordinator: r.deps.Coordinator.State(),
		Clock:       r.deps.Clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	snap := storage.Snapshot{Seq: r.lastSeq, TakenAt: time.Now().UTC(), State: data}
	if err := r.deps.Snapshots.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	r.logger.Debug("snapshot saved", zap.Uint64("seq", r.lastSeq))
	return nil
}

func (r *Replayer) reject(ctx context.Context, action model.Action, cause error) {
	r.logger.Warn("action rejected",
		zap.Uint64("seq", action.Seq),
		zap.String("kind", string(action.Kind)),
		zap.String("caller", action.Caller),
		zap.Error(cause),
	)
	event := model.Event{
		ID:        uuid.NewString(),
		Kind:      model.EventRejected,
		PotID:     r.deps.Engine.CurrentPotID(),
		Account:   action.Caller,
		Detail:    string(action.Kind) + ": " + cause.Error(),
		ActionSeq: action.Seq,
		Timestamp: uint64(r.deps.Clock.Now().Unix()),
	}
	if err := r.deps.Journal.PutEvents(ctx, []model.Event{event}); err != nil {
		r.logger.Warn("journal rejected action failed", zap.Error(err))
	}
}
