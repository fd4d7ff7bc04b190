package storage

import (
	"context"
	"encoding/json"
	"time"

	"tradeRaffle/internal/model"
)

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

// EventStore journals committed engine events.
type EventStore interface {
	PutEvents(ctx context.Context, events []model.Event) error
}

// Snapshot is an engine state image taken after action Seq was applied.
type Snapshot struct {
	Seq     uint64          `json:"seq"`
	TakenAt time.Time       `json:"taken_at"`
	State   json.RawMessage `json:"state"`
}

// SnapshotStore keeps the latest engine snapshot.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, bool, error)
}
