package topicbus

import "errors"

// Errors returned by the dispatch core. Validation errors short-circuit a
// dispatch before any receiver is invoked; the remaining errors surface as
// rejected outcomes scoped to a single receiver.
var (
	// ErrInvalidEventName is returned when an event name is empty after
	// normalization (lowercasing and trimming).
	ErrInvalidEventName = errors.New("invalid event name: expected a non-empty string")

	// ErrInvalidReceiver is returned by Subscribe when the receiver is nil.
	ErrInvalidReceiver = errors.New("invalid receiver: expected a non-nil receiver")

	// ErrInvalidSubscriptionID is returned by Unsubscribe when the id does
	// not decompose into topic, event, and token parts.
	ErrInvalidSubscriptionID = errors.New("invalid subscription id")

	// ErrInvalidTopicConfig is returned by NewTopic for malformed
	// configuration.
	ErrInvalidTopicConfig = errors.New("invalid topic config")

	// ErrDeliveryTimeout settles a delivery whose receiver neither
	// acknowledged nor failed within the topic timeout.
	ErrDeliveryTimeout = errors.New("delivery timed out")

	// ErrNotAwaitable marks an aggregator input that is not a usable
	// Future, such as a nil entry.
	ErrNotAwaitable = errors.New("not awaitable")
)
