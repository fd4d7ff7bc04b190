package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradeRaffle/internal/model"
)

func TestJsonlAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJsonlStorage(path)

	first := []model.Event{{ID: "a", Kind: model.EventContribution, PotID: 1}}
	second := []model.Event{{ID: "b", Kind: model.EventRoundClosed, PotID: 1}, {ID: "c", Kind: model.EventRoundSettled, PotID: 1}}
	if err := sink.PutEvents(context.Background(), first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := sink.PutEvents(context.Background(), second); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if err := sink.PutEvents(context.Background(), nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}

	var ids []string
	err := ReadJSONL(path, func(event model.Event) error {
		ids = append(ids, event.ID)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestReadJSONLBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.jsonl")
	content := "{\"seq\":1,\"kind\":\"poke\"}\n\nnot json\n{\"seq\":2,\"kind\":\"claim\"}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var seqs []uint64
	var bad []int
	err := ReadJSONL(path, func(action model.Action) error {
		seqs = append(seqs, action.Seq)
		return nil
	}, func(line int, _ error) {
		bad = append(bad, line)
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(seqs) != 2 || seqs[1] != 2 {
		t.Fatalf("unexpected seqs: %v", seqs)
	}
	if len(bad) != 1 || bad[0] != 3 {
		t.Fatalf("unexpected bad lines: %v", bad)
	}

	if err := ReadJSONL(path, func(model.Action) error { return nil }, nil); err == nil {
		t.Fatalf("expected strict read to fail")
	}
}

func TestFileSnapshotStore(t *testing.T) {
	store := &FileSnapshotStore{Path: filepath.Join(t.TempDir(), "state", "snapshot.json")}

	if _, ok, err := store.LoadSnapshot(context.Background()); err != nil || ok {
		t.Fatalf("expected empty store, got %v %v", ok, err)
	}

	snap := Snapshot{
		Seq:     42,
		TakenAt: time.Unix(1700000000, 0).UTC(),
		State:   json.RawMessage(`{"pot":{"limit":"100"}}`),
	}
	if err := store.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.LoadSnapshot(context.Background())
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if got.Seq != 42 || string(got.State) != string(snap.State) || !got.TakenAt.Equal(snap.TakenAt) {
		t.Fatalf("snapshot mismatch: %+v", got)
	}
}
