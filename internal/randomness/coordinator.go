package randomness

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Request is a randomness request waiting for fulfillment.
type Request struct {
	ID    *uint256.Int `json:"id"`
	PotID uint64       `json:"pot_id"`
	Nonce uint64       `json:"nonce"`
}

// CoordinatorState is the persisted form of a LocalCoordinator.
type CoordinatorState struct {
	Nonce   uint64    `json:"nonce"`
	Pending []Request `json:"pending"`
}

// LocalCoordinator issues deterministic request ids and tracks which of them
// are still waiting for a value. Ids are keccak256(salt, potID, nonce).
type LocalCoordinator struct {
	mu      sync.Mutex
	salt    common.Hash
	nonce   uint64
	pending map[string]Request
	logger  *zap.Logger
}

func NewLocalCoordinator(salt common.Hash, logger *zap.Logger) *LocalCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalCoordinator{
		salt:    salt,
		pending: make(map[string]Request),
		logger:  logger,
	}
}

// RequestRandomness registers a new request for potID.
func (c *LocalCoordinator) RequestRandomness(ctx context.Context, potID uint64) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nonce := c.nonce
	c.nonce++
	id := RequestID(c.salt, potID, nonce)
	c.pending[id.Dec()] = Request{ID: id.Clone(), PotID: potID, Nonce: nonce}

	c.logger.Debug("randomness requested",
		zap.Uint64("pot_id", potID),
		zap.Uint64("nonce", nonce),
		zap.Stringer("request_id", id),
	)
	return id, nil
}

// Pending lists outstanding requests in issue order.
func (c *LocalCoordinator) Pending() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Request, 0, len(c.pending))
	for _, req := range c.pending {
		out = append(out, Request{ID: req.ID.Clone(), PotID: req.PotID, Nonce: req.Nonce})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Nonce < out[j].Nonce
	})
	return out
}

// Resolve drops a request from the pending set once it has been delivered.
func (c *LocalCoordinator) Resolve(id *uint256.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := id.Dec()
	if _, ok := c.pending[key]; !ok {
		return false
	}
	delete(c.pending, key)
	return true
}

// RequestID derives the id of the nonce-th request.
func RequestID(salt common.Hash, potID, nonce uint64) *uint256.Int {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], potID)
	binary.BigEndian.PutUint64(buf[8:], nonce)
	return new(uint256.Int).SetBytes(crypto.Keccak256(salt.Bytes(), buf[:]))
}

// State captures the nonce and outstanding requests.
func (c *LocalCoordinator) State() CoordinatorState {
	pending := c.Pending()
	c.mu.Lock()
	defer c.mu.Unlock()
	return CoordinatorState{Nonce: c.nonce, Pending: pending}
}

// Restore replaces the nonce and outstanding requests.
func (c *LocalCoordinator) Restore(state CoordinatorState) {
	pending := make(map[string]Request, len(state.Pending))
	for _, req := range state.Pending {
		if req.ID == nil {
			continue
		}
		pending[req.ID.Dec()] = Request{ID: req.ID.Clone(), PotID: req.PotID, Nonce: req.Nonce}
	}
	c.mu.Lock()
	c.nonce = state.Nonce
	c.pending = pending
	c.mu.Unlock()
}
