package topicbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTimeout is the per-subscriber acknowledgement timeout for Deliver
// when TopicConfig.Timeout is zero.
const DefaultTimeout = 3 * time.Second

// ReportEvents names the events the reporting loop re-emits outcomes under.
type ReportEvents struct {
	// Fulfilled is the event name for fulfilled outcomes (default: "fulfilled").
	Fulfilled string

	// Rejected is the event name for rejected outcomes (default: "error").
	Rejected string
}

// TopicConfig configures a Topic. Zero values take documented defaults.
type TopicConfig struct {
	// Topic is the channel identity, embedded in every composite id and
	// metadata record. Required.
	Topic string

	// Registry backs the topic's subscriptions (default: a fresh
	// MemRegistry).
	Registry Registry

	// Timeout is the per-subscriber acknowledgement timeout for Deliver
	// (default: 3s).
	Timeout time.Duration

	// ReportVerbosity controls outcome reporting (default: VerbosityErrors).
	ReportVerbosity Verbosity

	// ReportEvents overrides the re-emitted outcome event names.
	ReportEvents ReportEvents

	// Logger receives diagnostics from detached settlement and reporting
	// (default: slog.Default()).
	Logger *slog.Logger
}

// Topic is a named channel owning a subscription registry and delivery
// configuration. Configuration is immutable after construction.
type Topic struct {
	name         string
	repo         Registry
	timeout      time.Duration
	verbosity    Verbosity
	reportEvents ReportEvents
	logger       *slog.Logger
}

// NewTopic validates the configuration and creates a Topic.
func NewTopic(cfg TopicConfig) (*Topic, error) {
	name := strings.TrimSpace(cfg.Topic)
	if name == "" {
		return nil, fmt.Errorf("%w: topic name is required", ErrInvalidTopicConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidTopicConfig)
	}

	verbosity := cfg.ReportVerbosity
	if verbosity == "" {
		verbosity = VerbosityErrors
	}
	if !verbosity.Valid() {
		return nil, fmt.Errorf("%w: unknown report verbosity %q", ErrInvalidTopicConfig, cfg.ReportVerbosity)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	reportEvents := cfg.ReportEvents
	if reportEvents.Fulfilled == "" {
		reportEvents.Fulfilled = "fulfilled"
	}
	if reportEvents.Rejected == "" {
		reportEvents.Rejected = "error"
	}

	repo := cfg.Registry
	if repo == nil {
		repo = NewMemRegistry(name)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Topic{
		name:         name,
		repo:         repo,
		timeout:      timeout,
		verbosity:    verbosity,
		reportEvents: reportEvents,
		logger:       logger,
	}, nil
}

// Name returns the topic's channel identity.
func (t *Topic) Name() string {
	return t.name
}

// Timeout returns the per-subscriber acknowledgement timeout used by Deliver.
func (t *Topic) Timeout() time.Duration {
	return t.timeout
}

// Subscribe registers the receiver for each event name through the topic's
// registry and returns one subscription id per name.
func (t *Topic) Subscribe(ctx context.Context, receiver Receiver, names ...string) ([]string, error) {
	return t.repo.Subscribe(ctx, receiver, names...)
}

// Unsubscribe removes a subscription by id. Removal never affects a dispatch
// already in flight.
func (t *Topic) Unsubscribe(ctx context.Context, id string) (bool, error) {
	return t.repo.Unsubscribe(ctx, id)
}

// GetSubscriptions returns a snapshot of the subscriptions for an event name.
func (t *Topic) GetSubscriptions(ctx context.Context, name string) ([]Subscription, error) {
	return t.repo.GetSubscriptions(ctx, name)
}

// HasSubscriptions reports whether an event name has any subscriptions.
func (t *Topic) HasSubscriptions(ctx context.Context, name string) (bool, error) {
	return t.repo.HasSubscriptions(ctx, name)
}
