// Package journal persists dispatch outcomes for later inspection. A
// Receiver subscribed to a topic's report events appends one Record per
// re-emitted outcome to a Store; the in-memory store is the default and a
// SQLite-backed store is available for durability across process restarts.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petal-labs/topicbus"
)

// Record is one persisted dispatch outcome.
type Record struct {
	// ID is a unique identifier for this record.
	ID string

	// Topic and Event identify the original dispatch.
	Topic string
	Event string

	// SubscriptionID identifies the subscriber whose outcome this is.
	SubscriptionID string

	// Status is the settlement status of the outcome.
	Status topicbus.Status

	// Body is the fulfilled value or, for rejected outcomes, empty.
	// Keep bodies small; large payloads should be referenced, not stored.
	Body any

	// Reason is the rejection message for rejected outcomes.
	Reason string

	// Seq is assigned by the store on append, strictly increasing per
	// topic.
	Seq uint64

	// Time is when the record was created.
	Time time.Time
}

// Store persists outcome records.
type Store interface {
	// Append stores a record, assigning its Seq.
	Append(ctx context.Context, rec Record) error

	// List returns records for a topic in Seq order, optionally filtered.
	// afterSeq: return records with Seq > afterSeq (0 means all)
	// limit: max records to return (0 means no limit)
	List(ctx context.Context, topic string, afterSeq uint64, limit int) ([]Record, error)

	// LatestSeq returns the highest Seq for a topic (0 if no records).
	LatestSeq(ctx context.Context, topic string) (uint64, error)
}

// NewRecord builds a record from a report event's body and metadata. The
// original dispatch's topic, event, and subscription id are recovered from
// the meta record the reporting loop carried over.
func NewRecord(status topicbus.Status, body any, meta topicbus.Meta) Record {
	rec := Record{
		ID:     uuid.NewString(),
		Status: status,
		Time:   time.Now(),
	}

	if s, ok := meta[topicbus.MetaTopic].(string); ok {
		rec.Topic = s
	}
	if s, ok := meta[topicbus.MetaEvent].(string); ok {
		rec.Event = s
	}
	if s, ok := meta[topicbus.MetaSubscriptionID].(string); ok {
		rec.SubscriptionID = s
	}
	if ts, ok := meta[topicbus.MetaTime].(time.Time); ok {
		rec.Time = ts
	}

	if status == topicbus.StatusRejected {
		if err, ok := body.(error); ok {
			rec.Reason = err.Error()
		} else if body != nil {
			rec.Reason = fmt.Sprintf("%v", body)
		}
	} else {
		rec.Body = body
	}

	return rec
}
