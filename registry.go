package topicbus

import (
	"context"
	"fmt"
	"strings"
)

// Subscription binds a receiver to one event name. The ID is a composite of
// the topic, the registered event name, and a random token; it always
// decomposes back to the topic and the exact event name it was registered
// under.
type Subscription struct {
	ID       string
	Receiver Receiver
}

// Registry stores a topic's subscriptions. The default implementation is
// MemRegistry; any store satisfying this contract can back a Topic.
//
// GetSubscriptions must return a snapshot: dispatch iterates the returned
// slice while the live registry may be mutated concurrently, including by a
// receiver unsubscribing itself from within its own invocation.
type Registry interface {
	// Subscribe registers the receiver under each event name and returns
	// one subscription id per name, in input order.
	Subscribe(ctx context.Context, receiver Receiver, names ...string) ([]string, error)

	// Unsubscribe removes a subscription by id, reporting whether it was
	// found.
	Unsubscribe(ctx context.Context, id string) (bool, error)

	// GetSubscriptions returns a snapshot of the subscriptions for an
	// event name, in registration order.
	GetSubscriptions(ctx context.Context, name string) ([]Subscription, error)

	// HasSubscriptions reports whether an event name has any
	// subscriptions.
	HasSubscriptions(ctx context.Context, name string) (bool, error)
}

// NormalizeEventName lowercases and trims an event name, making registry keys
// case-insensitive. It returns ErrInvalidEventName when nothing remains.
func NormalizeEventName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("%w: got %q", ErrInvalidEventName, name)
	}
	return n, nil
}
