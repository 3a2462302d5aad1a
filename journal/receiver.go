package journal

import (
	"context"
	"log/slog"

	"github.com/petal-labs/topicbus"
)

// Receiver writes report events to a Store. Subscribe one instance per
// report event name, tagged with the status that name carries:
//
//	store := journal.NewMemStore()
//	topic.Subscribe(ctx, journal.NewReceiver(store, topicbus.StatusRejected, nil), "error")
//	topic.Subscribe(ctx, journal.NewReceiver(store, topicbus.StatusFulfilled, nil), "fulfilled")
type Receiver struct {
	store  Store
	status topicbus.Status
	logger *slog.Logger
}

// NewReceiver creates a persisting receiver for report events of the given
// status.
func NewReceiver(store Store, status topicbus.Status, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		store:  store,
		status: status,
		logger: logger,
	}
}

// Receive persists a single report event to the store. It returns the stored
// record's id.
func (r *Receiver) Receive(ctx context.Context, body any, meta topicbus.Meta) (any, error) {
	rec := NewRecord(r.status, body, meta)
	if err := r.store.Append(ctx, rec); err != nil {
		r.logger.Error("failed to persist outcome",
			"topic", rec.Topic,
			"event", rec.Event,
			"status", rec.Status,
			"error", err,
		)
		return nil, err
	}
	return rec.ID, nil
}

// Compile-time interface check.
var _ topicbus.Receiver = (*Receiver)(nil)
