package raffle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"tradeRaffle/internal/model"
)

// Treasury moves balances held by the raffle.
type Treasury interface {
	Pay(ctx context.Context, token, to common.Address, amount *uint256.Int) error
	Collect(ctx context.Context, token, from common.Address, amount *uint256.Int) error
}

// Quoter converts a token amount into USD units through a price feed.
type Quoter interface {
	Quote(ctx context.Context, feed common.Address, token model.TokenDescriptor, amount *uint256.Int) (*uint256.Int, error)
}

// EventSink receives the events of every committed transaction.
type EventSink interface {
	PutEvents(ctx context.Context, events []model.Event) error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithQuoter sets the USD quoter used for ticketing and pending views.
func WithQuoter(q Quoter) Option {
	return func(e *Engine) { e.quoter = q }
}

// WithEventSink sets the journal sink.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Engine serializes every state change of one raffle deployment.
type Engine struct {
	mu          sync.Mutex
	params      Params
	selector    WinnerSelector
	state       *State
	coordinator Coordinator
	treasury    Treasury
	quoter      Quoter
	sink        EventSink
	logger      *zap.Logger
	clock       func() time.Time
}

// New builds an engine with a fresh first round.
func New(params Params, coordinator Coordinator, treasury Treasury, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if coordinator == nil {
		return nil, fmt.Errorf("randomness coordinator is nil")
	}
	if treasury == nil {
		return nil, fmt.Errorf("treasury is nil")
	}
	selector, err := selectorFor(params.Selection)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		params:      params,
		selector:    selector,
		coordinator: coordinator,
		treasury:    treasury,
		logger:      zap.NewNop(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if params.Ticketing == TicketingUSD && e.quoter == nil {
		return nil, fmt.Errorf("usd ticketing requires a quoter")
	}

	state, err := newState(params, e.clock())
	if err != nil {
		return nil, err
	}
	e.state = state
	return e, nil
}

// Params returns the immutable engine parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Update runs fn against a copy of the state and commits it only when fn and
// every deferred effect succeed. A transaction marked with keepOnError commits
// its state and events even though fn failed, provided it queued no effects.
func (e *Engine) Update(ctx context.Context, fn func(tx *Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Tx{
		ctx:    ctx,
		engine: e,
		state:  e.state.clone(),
		now:    e.clock(),
	}
	if err := fn(tx); err != nil {
		if tx.keepOnError && len(tx.effects) == 0 {
			e.state = tx.state
			e.publish(ctx, tx.events)
		}
		return err
	}
	for i, eff := range tx.effects {
		if err := eff.run(ctx); err != nil {
			tx.unwind(ctx, i)
			return err
		}
	}

	e.state = tx.state
	e.publish(ctx, tx.events)
	return nil
}

func (e *Engine) view(fn func(s *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
}

func (e *Engine) publish(ctx context.Context, events []model.Event) {
	for _, event := range events {
		switch event.Kind {
		case model.EventRoundClosed, model.EventRandomnessFulfilled, model.EventRoundSettled, model.EventRaffleStarted:
			e.logger.Info(string(event.Kind),
				zap.Uint64("pot_id", event.PotID),
				zap.String("amount", event.Amount),
				zap.String("request_id", event.RequestID),
			)
		default:
			e.logger.Debug(string(event.Kind),
				zap.Uint64("pot_id", event.PotID),
				zap.String("account", event.Account),
				zap.String("amount", event.Amount),
			)
		}
	}
	if e.sink == nil || len(events) == 0 {
		return
	}
	if err := e.sink.PutEvents(ctx, events); err != nil {
		e.logger.Warn("publish events failed", zap.Int("events", len(events)), zap.Error(err))
	}
}

// Snapshot encodes the full state.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := json.Marshal(e.state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// Restore replaces the state with a snapshot.
func (e *Engine) Restore(data []byte) error {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}
	if state.Pot.Limit == nil || state.Ledger.TicketCost == nil {
		return fmt.Errorf("parse state: missing pot limit or ticket cost")
	}
	state.normalize()

	e.mu.Lock()
	e.state = &state
	e.mu.Unlock()
	return nil
}

// Tx is one atomic unit of work. It is only valid inside Engine.Update.
type Tx struct {
	ctx     context.Context
	engine  *Engine
	state   *State
	now     time.Time
	events  []model.Event
	effects []effect

	keepOnError bool
}

type effect struct {
	run  func(context.Context) error
	undo func(context.Context) error
}

// Now is the transaction timestamp.
func (tx *Tx) Now() time.Time {
	return tx.now
}

// Context returns the context of the enclosing Update.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Defer queues an external effect. Effects run in order after fn returns and
// before the state is committed.
func (tx *Tx) Defer(fn func(context.Context) error) {
	tx.effects = append(tx.effects, effect{run: fn})
}

// unwind compensates the first n effects, newest first.
func (tx *Tx) unwind(ctx context.Context, n int) {
	for i := n - 1; i >= 0; i-- {
		undo := tx.effects[i].undo
		if undo == nil {
			continue
		}
		if err := undo(ctx); err != nil {
			tx.engine.logger.Error("unwind effect failed", zap.Int("effect", i), zap.Error(err))
		}
	}
}

// Emit appends a journal event stamped with the current pot and time.
func (tx *Tx) Emit(event model.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.PotID == 0 {
		event.PotID = tx.state.Pot.Round.PotID
	}
	if event.Timestamp == 0 {
		event.Timestamp = uint64(tx.now.Unix())
	}
	tx.events = append(tx.events, event)
}

func (tx *Tx) requireOwner(caller common.Address) error {
	if caller != tx.engine.params.Owner {
		return ErrNotOwner
	}
	return nil
}

func (tx *Tx) requireOperator(caller common.Address) error {
	if caller != tx.engine.params.Operator {
		return ErrNotOperator
	}
	return nil
}

func (tx *Tx) pay(token, to common.Address, amount *uint256.Int) {
	treasury := tx.engine.treasury
	tx.effects = append(tx.effects, effect{
		run: func(ctx context.Context) error {
			if err := treasury.Pay(ctx, token, to, amount); err != nil {
				return fmt.Errorf("pay %s: %w", to.Hex(), err)
			}
			return nil
		},
		undo: func(ctx context.Context) error {
			return treasury.Collect(ctx, token, to, amount)
		},
	})
}

func (tx *Tx) collect(token, from common.Address, amount *uint256.Int) {
	treasury := tx.engine.treasury
	tx.effects = append(tx.effects, effect{
		run: func(ctx context.Context) error {
			if err := treasury.Collect(ctx, token, from, amount); err != nil {
				return fmt.Errorf("collect from %s: %w: %w", from.Hex(), ErrInsufficientFunds, err)
			}
			return nil
		},
		undo: func(ctx context.Context) error {
			return treasury.Pay(ctx, token, from, amount)
		},
	})
}
