package raffle

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"tradeRaffle/internal/model"
)

// Coordinator issues randomness requests to an external provider. The value
// arrives later through Engine.Fulfill or Engine.FulfillRandomWords.
type Coordinator interface {
	RequestRandomness(ctx context.Context, potID uint64) (*uint256.Int, error)
}

// RandomnessBook maps request ids to in-flight draws.
type RandomnessBook struct {
	Requests      map[string]*model.RandomnessRequest `json:"requests"`
	ByPot         map[uint64]string                   `json:"by_pot"`
	LastRequestID *uint256.Int                        `json:"last_request_id,omitempty"`
}

func newRandomnessBook() RandomnessBook {
	return RandomnessBook{
		Requests: make(map[string]*model.RandomnessRequest),
		ByPot:    make(map[uint64]string),
	}
}

// Register records a created request for potID.
func (b *RandomnessBook) Register(potID uint64, requestID *uint256.Int, now time.Time) (*model.RandomnessRequest, error) {
	if key, ok := b.ByPot[potID]; ok {
		if existing := b.Requests[key]; existing != nil && existing.Fulfilled {
			return nil, ErrAlreadyFulfilled
		}
		return nil, ErrDuplicateRequest
	}
	key := requestID.Dec()
	if _, ok := b.Requests[key]; ok {
		return nil, ErrDuplicateRequest
	}

	req := &model.RandomnessRequest{
		RequestID:   requestID.Clone(),
		PotID:       potID,
		Created:     true,
		RequestedAt: now,
	}
	b.Requests[key] = req
	b.ByPot[potID] = key
	b.LastRequestID = requestID.Clone()
	return req, nil
}

// Fulfill stores the random value exactly once.
func (b *RandomnessBook) Fulfill(requestID, randomValue *uint256.Int, now time.Time) (*model.RandomnessRequest, error) {
	req, ok := b.Requests[requestID.Dec()]
	if !ok || req == nil || !req.Created {
		return nil, ErrUnknownRequest
	}
	if req.Fulfilled {
		return nil, ErrAlreadyFulfilled
	}
	fulfilledAt := now
	req.Fulfilled = true
	req.RandomValue = randomValue.Clone()
	req.FulfilledAt = &fulfilledAt
	return req, nil
}

// ForPot returns the request created for potID.
func (b *RandomnessBook) ForPot(potID uint64) (*model.RandomnessRequest, bool) {
	key, ok := b.ByPot[potID]
	if !ok {
		return nil, false
	}
	req, ok := b.Requests[key]
	return req, ok && req != nil
}

// Get looks a request up by id.
func (b *RandomnessBook) Get(requestID *uint256.Int) (*model.RandomnessRequest, bool) {
	req, ok := b.Requests[requestID.Dec()]
	return req, ok && req != nil
}

func (b RandomnessBook) clone() RandomnessBook {
	out := RandomnessBook{
		Requests: make(map[string]*model.RandomnessRequest, len(b.Requests)),
		ByPot:    make(map[uint64]string, len(b.ByPot)),
	}
	for key, req := range b.Requests {
		if req == nil {
			continue
		}
		copied := req.Clone()
		out.Requests[key] = &copied
	}
	for potID, key := range b.ByPot {
		out.ByPot[potID] = key
	}
	if b.LastRequestID != nil {
		out.LastRequestID = b.LastRequestID.Clone()
	}
	return out
}
