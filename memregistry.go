package topicbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/petal-labs/topicbus/ident"
)

// MemRegistry is the default in-memory subscription registry.
// It is safe for concurrent use: reads hand out copies of the subscriber
// list, so an in-flight dispatch is never affected by later mutations.
type MemRegistry struct {
	topic string

	mu   sync.RWMutex
	subs map[string][]Subscription // event name -> subscriptions, registration order
}

// NewMemRegistry creates an empty registry for the given topic name.
func NewMemRegistry(topic string) *MemRegistry {
	return &MemRegistry{
		topic: topic,
		subs:  make(map[string][]Subscription),
	}
}

// Subscribe registers the receiver under each event name and returns one
// subscription id per name.
func (r *MemRegistry) Subscribe(_ context.Context, receiver Receiver, names ...string) ([]string, error) {
	if receiver == nil {
		return nil, ErrInvalidReceiver
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no event names given", ErrInvalidEventName)
	}

	normalized := make([]string, len(names))
	for i, name := range names {
		n, err := NormalizeEventName(name)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(normalized))
	for i, name := range normalized {
		sub := Subscription{
			ID:       ident.MakeComposite(r.topic, name),
			Receiver: receiver,
		}
		r.subs[name] = append(r.subs[name], sub)
		ids[i] = sub.ID
	}
	return ids, nil
}

// Unsubscribe removes a subscription by id. The event name is recovered from
// the composite id, so only that event's list is scanned.
func (r *MemRegistry) Unsubscribe(_ context.Context, id string) (bool, error) {
	parts := ident.ParseComposite(id)
	if len(parts) < 3 {
		return false, fmt.Errorf("%w: got %q", ErrInvalidSubscriptionID, id)
	}
	name, err := NormalizeEventName(parts[1])
	if err != nil {
		return false, fmt.Errorf("%w: got %q", ErrInvalidSubscriptionID, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[name]
	for i, sub := range list {
		if sub.ID == id {
			r.subs[name] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// GetSubscriptions returns a snapshot of the subscriptions for an event name.
func (r *MemRegistry) GetSubscriptions(_ context.Context, name string) ([]Subscription, error) {
	n, err := NormalizeEventName(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]Subscription, len(r.subs[n]))
	copy(snapshot, r.subs[n])
	return snapshot, nil
}

// HasSubscriptions reports whether an event name has any subscriptions.
func (r *MemRegistry) HasSubscriptions(_ context.Context, name string) (bool, error) {
	n, err := NormalizeEventName(name)
	if err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs[n]) > 0, nil
}

// Compile-time interface check.
var _ Registry = (*MemRegistry)(nil)
