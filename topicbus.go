// Package topicbus is an in-process, topic-scoped publish/subscribe engine.
//
// Callers register receivers against named events within a Topic and dispatch
// events to them under one of three delivery semantics:
//
//   - Publish waits for every receiver to settle and returns all outcomes.
//   - Emit returns as soon as receivers have been invoked; settlement and
//     outcome reporting continue in the background.
//   - Deliver waits for each receiver to acknowledge the event, time out, or
//     fail, with an independent timeout per receiver.
//
// Receiver failures never fail a dispatch as a whole: each receiver settles
// into its own Outcome, and rejected outcomes can be re-emitted onto the same
// topic as report events for observers to consume.
//
// Subscriptions live in a Registry. The default is the in-memory MemRegistry;
// any implementation of the Registry interface can be injected via
// TopicConfig.
package topicbus

import "context"

// Status tags the settlement outcome of a single receiver invocation.
type Status string

const (
	// StatusFulfilled marks a receiver that returned a value.
	StatusFulfilled Status = "fulfilled"

	// StatusRejected marks a receiver that returned an error, panicked,
	// or timed out.
	StatusRejected Status = "rejected"
)

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// Outcome is the settlement result of one receiver invocation.
// Exactly one of Value and Reason is meaningful, selected by Status.
type Outcome struct {
	Status Status
	Value  any
	Reason error
}

// Result is returned by Publish, Emit, and Deliver.
// Count is the subscriber snapshot size at dispatch time. Outcomes holds one
// entry per subscriber in registration order; it is nil for Emit, whose
// settlement completes after the call returns.
type Result struct {
	Count    int
	Meta     Meta
	Outcomes []Outcome
}

// Receiver handles events dispatched to a subscription.
//
// A receiver may do its work synchronously and return a value or error, or it
// may return a Future to settle asynchronously; the dispatcher normalizes
// both shapes before aggregation. Panics inside a receiver are contained to
// that receiver's outcome.
type Receiver interface {
	Receive(ctx context.Context, body any, meta Meta) (any, error)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(ctx context.Context, body any, meta Meta) (any, error)

// Receive implements Receiver.
func (f ReceiverFunc) Receive(ctx context.Context, body any, meta Meta) (any, error) {
	return f(ctx, body, meta)
}

// Ack signals that a delivered event has been processed. The first call wins;
// later calls are no-ops. A non-nil err settles the delivery as rejected.
type Ack func(err error, result any)

// AckReceiver is implemented by receivers that acknowledge deliveries
// explicitly. Deliver invokes ReceiveAck; Publish and Emit fall back to
// Receive.
type AckReceiver interface {
	Receiver
	ReceiveAck(ctx context.Context, body any, meta Meta, ack Ack) (any, error)
}

// AckReceiverFunc adapts a function to the AckReceiver interface.
type AckReceiverFunc func(ctx context.Context, body any, meta Meta, ack Ack) (any, error)

// Receive implements Receiver. The ack is a no-op outside Deliver.
func (f AckReceiverFunc) Receive(ctx context.Context, body any, meta Meta) (any, error) {
	return f(ctx, body, meta, func(error, any) {})
}

// ReceiveAck implements AckReceiver.
func (f AckReceiverFunc) ReceiveAck(ctx context.Context, body any, meta Meta, ack Ack) (any, error) {
	return f(ctx, body, meta, ack)
}

// Verbosity controls which settlement outcomes the reporting loop re-emits.
type Verbosity string

const (
	// VerbosityAll re-emits fulfilled and rejected outcomes.
	VerbosityAll Verbosity = "all"

	// VerbosityErrors re-emits rejected outcomes only.
	VerbosityErrors Verbosity = "errors"

	// VerbosityNone disables outcome reporting.
	VerbosityNone Verbosity = "none"
)

// Valid reports whether v is one of the recognized verbosity levels.
func (v Verbosity) Valid() bool {
	switch v {
	case VerbosityAll, VerbosityErrors, VerbosityNone:
		return true
	}
	return false
}
