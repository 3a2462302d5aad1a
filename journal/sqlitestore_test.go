package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/petal-labs/topicbus"
)

func testDSN(t *testing.T) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}

func newTestStore(t *testing.T, cfg SQLiteStoreConfig) *SQLiteStore {
	t.Helper()
	if cfg.DSN == "" {
		cfg.DSN = testDSN(t)
	}
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{})
	ctx := context.Background()

	appendN(t, s, "a", 3)

	recs, err := s.List(ctx, "a", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for i, rec := range recs {
		if rec.Seq != uint64(i+1) {
			t.Errorf("record %d has Seq %d, want %d", i, rec.Seq, i+1)
		}
		if rec.Topic != "a" || rec.Event != "ev" {
			t.Errorf("record %d = %+v", i, rec)
		}
	}
}

func TestSQLiteStore_SeqIsPerTopic(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{})
	ctx := context.Background()

	appendN(t, s, "a", 2)
	appendN(t, s, "b", 1)

	seqA, err := s.LatestSeq(ctx, "a")
	if err != nil {
		t.Fatalf("LatestSeq: %v", err)
	}
	seqB, err := s.LatestSeq(ctx, "b")
	if err != nil {
		t.Fatalf("LatestSeq: %v", err)
	}
	if seqA != 2 || seqB != 1 {
		t.Errorf("LatestSeq a=%d b=%d, want 2/1", seqA, seqB)
	}
}

func TestSQLiteStore_ListAfterSeqAndLimit(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{})
	ctx := context.Background()

	appendN(t, s, "a", 5)

	recs, err := s.List(ctx, "a", 3, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 || recs[0].Seq != 4 {
		t.Errorf("afterSeq=3 returned %d records", len(recs))
	}

	recs, err = s.List(ctx, "a", 0, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 || recs[1].Seq != 2 {
		t.Errorf("limit=2 returned %+v", recs)
	}
}

func TestSQLiteStore_BodyRoundTrip(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{})
	ctx := context.Background()

	rec := Record{
		ID:     "r1",
		Topic:  "a",
		Event:  "ev",
		Status: topicbus.StatusFulfilled,
		Body:   map[string]any{"code": float64(200), "ok": true},
		Time:   time.Now().UTC(),
	}
	if err := s.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	recs, err := s.List(ctx, "a", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got, ok := recs[0].Body.(map[string]any)
	if !ok {
		t.Fatalf("body = %T", recs[0].Body)
	}
	if got["code"] != float64(200) || got["ok"] != true {
		t.Errorf("body = %v", got)
	}
}

func TestSQLiteStore_RejectedRecordKeepsReason(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{})
	ctx := context.Background()

	rec := Record{
		ID:     "r1",
		Topic:  "a",
		Event:  "ev",
		Status: topicbus.StatusRejected,
		Reason: "receiver blew up",
		Time:   time.Now().UTC(),
	}
	if err := s.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	recs, err := s.List(ctx, "a", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if recs[0].Status != topicbus.StatusRejected || recs[0].Reason != "receiver blew up" {
		t.Errorf("record = %+v", recs[0])
	}
	if recs[0].Body != nil {
		t.Errorf("rejected record carries a body: %v", recs[0].Body)
	}
}

func TestSQLiteStore_Topics(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{})
	ctx := context.Background()

	appendN(t, s, "beta", 1)
	appendN(t, s, "alpha", 1)

	topics, err := s.Topics(ctx)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(topics) != 2 || topics[0] != "alpha" || topics[1] != "beta" {
		t.Errorf("Topics = %v", topics)
	}
}

func TestSQLiteStore_PruneByCount(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{RetentionCount: 2, PruneInterval: time.Hour})
	ctx := context.Background()

	appendN(t, s, "a", 5)

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	recs, err := s.List(ctx, "a", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records after prune, want 2", len(recs))
	}
	if recs[0].Seq != 4 || recs[1].Seq != 5 {
		t.Errorf("prune kept seqs %d,%d, want the newest", recs[0].Seq, recs[1].Seq)
	}
}

func TestSQLiteStore_PruneByAge(t *testing.T) {
	s := newTestStore(t, SQLiteStoreConfig{RetentionAge: time.Hour, PruneInterval: time.Hour})
	ctx := context.Background()

	old := Record{
		ID:     "old",
		Topic:  "a",
		Event:  "ev",
		Status: topicbus.StatusFulfilled,
		Time:   time.Now().Add(-2 * time.Hour),
	}
	fresh := Record{
		ID:     "fresh",
		Topic:  "a",
		Event:  "ev",
		Status: topicbus.StatusFulfilled,
		Time:   time.Now(),
	}
	if err := s.Append(ctx, old); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, fresh); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	recs, err := s.List(ctx, "a", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "fresh" {
		t.Errorf("records after prune = %+v", recs)
	}
}
