// Package wildcard provides a general-purpose event emitter that, on every
// emission, also fires a hierarchy of wildcard patterns derived from the
// event name, and a fallback event when nothing matched.
//
// With the default delimiter "_" and wildcard "%", emitting "foo_bar_baz"
// fires the patterns "%", "foo_%", and "foo_bar_%" (each with an Envelope
// naming the concrete event), then the literal "foo_bar_baz".
package wildcard

import (
	"strings"
	"sync"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultDelimiter = "_"
	DefaultWildcard  = "%"
)

// Config configures an Emitter.
type Config struct {
	// Delimiter separates the hierarchy levels of an event name
	// (default: "_").
	Delimiter string

	// Wildcard is the symbol terminating each derived pattern
	// (default: "%").
	Wildcard string

	// NoSubscriptionsEvent is fired when neither the literal event nor any
	// derived pattern had a listener (default: "").
	NoSubscriptionsEvent string
}

// Envelope is the first argument passed to wildcard and fallback listeners,
// naming the concrete event that triggered them.
type Envelope struct {
	Event string
}

// Listener handles an emission. Listeners run synchronously in registration
// order; a panicking listener propagates to the Emit caller.
type Listener func(args ...any)

type entry struct {
	fn Listener
}

// Emitter is a wildcard-expanding event emitter. It is safe for concurrent
// use; listeners themselves run outside the emitter's lock and may register
// or remove listeners.
type Emitter struct {
	delimiter   string
	wildcard    string
	noSubsEvent string

	mu        sync.RWMutex
	listeners map[string][]*entry
}

// New creates an Emitter, applying defaults for zero-value config fields.
func New(cfg Config) *Emitter {
	delimiter := cfg.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	wildcard := cfg.Wildcard
	if wildcard == "" {
		wildcard = DefaultWildcard
	}
	return &Emitter{
		delimiter:   delimiter,
		wildcard:    wildcard,
		noSubsEvent: cfg.NoSubscriptionsEvent,
		listeners:   make(map[string][]*entry),
	}
}

// On registers a listener for an event name or pattern and returns a removal
// func. Removal is idempotent.
func (e *Emitter) On(name string, l Listener) (remove func()) {
	en := &entry{fn: l}

	e.mu.Lock()
	e.listeners[name] = append(e.listeners[name], en)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		list := e.listeners[name]
		for i, cand := range list {
			if cand == en {
				e.listeners[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// ListenerCount returns the number of listeners registered for a name.
func (e *Emitter) ListenerCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[name])
}

// MakeWildcards derives the pattern hierarchy for an event name, most general
// first. A name without the delimiter yields just the bare wildcard.
// For every delimiter occurrence, scanned left to right, the pattern is the
// substring up to and including that delimiter, followed by the wildcard.
func (e *Emitter) MakeWildcards(event string) []string {
	if !strings.Contains(event, e.delimiter) {
		return []string{e.wildcard}
	}

	patterns := []string{e.wildcard}
	from := 0
	for {
		idx := strings.Index(event[from:], e.delimiter)
		if idx < 0 {
			break
		}
		pos := from + idx
		patterns = append(patterns, event[:pos+len(e.delimiter)]+e.wildcard)
		from = pos + 1
	}
	return patterns
}

// Emit fires each derived wildcard pattern with (Envelope{event}, args...),
// then the literal event with (args...). If neither had a listener, it fires
// the NoSubscriptionsEvent once with (Envelope{event}, args...) as a plain,
// final fallback, without wildcard expansion. It reports whether any listener
// fired.
func (e *Emitter) Emit(event string, args ...any) bool {
	wrapped := make([]any, 0, len(args)+1)
	wrapped = append(wrapped, Envelope{Event: event})
	wrapped = append(wrapped, args...)

	matched := false
	for _, pattern := range e.MakeWildcards(event) {
		if e.fire(pattern, wrapped...) {
			matched = true
		}
	}
	if e.fire(event, args...) {
		matched = true
	}
	if matched {
		return true
	}
	return e.fire(e.noSubsEvent, wrapped...)
}

// fire invokes the listeners registered for a name against a snapshot, so
// listeners may mutate registrations without affecting this emission.
func (e *Emitter) fire(name string, args ...any) bool {
	e.mu.RLock()
	entries := make([]*entry, len(e.listeners[name]))
	copy(entries, e.listeners[name])
	e.mu.RUnlock()

	if len(entries) == 0 {
		return false
	}
	for _, en := range entries {
		en.fn(args...)
	}
	return true
}
