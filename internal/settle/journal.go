package settle

import (
	"context"
	"sync"

	"tradeRaffle/internal/model"
	"tradeRaffle/internal/storage"
)

// Journal stamps events with the sequence number of the action being replayed
// and fans them out to every configured store.
type Journal struct {
	stores []storage.EventStore

	mu  sync.Mutex
	seq uint64
}

func NewJournal(stores ...storage.EventStore) *Journal {
	out := make([]storage.EventStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Journal{stores: out}
}

func (j *Journal) setSeq(seq uint64) {
	j.mu.Lock()
	j.seq = seq
	j.mu.Unlock()
}

// PutEvents implements raffle.EventSink.
func (j *Journal) PutEvents(ctx context.Context, events []model.Event) error {
	j.mu.Lock()
	seq := j.seq
	j.mu.Unlock()

	stamped := make([]model.Event, len(events))
	for i, event := range events {
		if event.ActionSeq == 0 {
			event.ActionSeq = seq
		}
		stamped[i] = event
	}
	for _, store := range j.stores {
		if err := store.PutEvents(ctx, stamped); err != nil {
			return err
		}
	}
	return nil
}
