// Package sched emits topic events on UTC cron schedules.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/petal-labs/topicbus"
)

const defaultTickInterval = time.Second

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// ParseUTC parses a standard 5-field cron expression. Timezone prefixes are
// rejected; schedules are evaluated in UTC only.
func ParseUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Topic is the topic events are emitted on. Required.
	Topic *topicbus.Topic

	// TickInterval is how often due schedules are checked (default: 1s).
	TickInterval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time

	// Logger receives emission failures (default: slog.Default()).
	Logger *slog.Logger
}

type entry struct {
	schedule cron.Schedule
	next     time.Time
	event    string
	body     any
	meta     topicbus.Meta
}

// Publisher emits configured events through a Topic whenever their cron
// schedule comes due. Emission uses the non-awaited Emit path, so a slow
// subscriber never delays the schedule loop.
type Publisher struct {
	topic    *topicbus.Topic
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	entries []*entry
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPublisher creates a Publisher and starts its schedule loop.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Topic == nil {
		return nil, fmt.Errorf("sched: topic is required")
	}

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		topic:    cfg.Topic,
		interval: interval,
		now:      now,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	go p.run()

	return p, nil
}

// Add registers an event to emit on the given cron schedule.
func (p *Publisher) Add(expr, event string, body any, meta topicbus.Meta) error {
	schedule, err := ParseUTC(expr)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("sched: publisher is closed")
	}
	p.entries = append(p.entries, &entry{
		schedule: schedule,
		next:     schedule.Next(p.now()),
		event:    event,
		body:     body,
		meta:     meta,
	})
	return nil
}

// Close stops the schedule loop. It is safe to call Close multiple times.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
}

func (p *Publisher) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fireDue()
		}
	}
}

// fireDue emits every entry whose next run time has passed and advances it.
func (p *Publisher) fireDue() {
	now := p.now()

	p.mu.Lock()
	var due []*entry
	for _, e := range p.entries {
		if !e.next.After(now) {
			due = append(due, e)
			e.next = e.schedule.Next(now)
		}
	}
	p.mu.Unlock()

	for _, e := range due {
		if _, err := p.topic.Emit(context.Background(), e.event, e.body, e.meta); err != nil {
			p.logger.Error("scheduled emit failed",
				"topic", p.topic.Name(),
				"event", e.event,
				"error", err,
			)
		}
	}
}
