package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Receiver kinds a scenario can script.
const (
	KindEcho   = "echo"   // returns the event body (or Message)
	KindFail   = "fail"   // returns an error
	KindSleep  = "sleep"  // settles asynchronously after Sleep
	KindAck    = "ack"    // acknowledges the delivery after Sleep
	KindSilent = "silent" // never acknowledges, forcing a delivery timeout
)

// Dispatch modes a scenario can use.
const (
	ModePublish = "publish"
	ModeEmit    = "emit"
	ModeDeliver = "deliver"
)

// Duration wraps time.Duration with YAML support for strings like "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Scenario describes a self-contained topicbus session: one topic, its
// scripted subscriptions, the dispatches to run against it, and optional
// cron schedules.
type Scenario struct {
	Topic           string         `yaml:"topic"`
	Timeout         Duration       `yaml:"timeout"`
	ReportVerbosity string         `yaml:"reportVerbosity"`
	Subscriptions   []Subscription `yaml:"subscriptions"`
	Dispatches      []Dispatch     `yaml:"dispatches"`
	Schedules       []Schedule     `yaml:"schedules"`

	// RunFor keeps the session alive after the dispatches, so schedules
	// and detached settlement can be observed.
	RunFor Duration `yaml:"runFor"`
}

// Subscription scripts one receiver registered under one or more events.
type Subscription struct {
	Events  []string `yaml:"events"`
	Kind    string   `yaml:"kind"`
	Message string   `yaml:"message"`
	Sleep   Duration `yaml:"sleep"`
}

// Dispatch is one publish/emit/deliver call.
type Dispatch struct {
	Mode  string         `yaml:"mode"`
	Event string         `yaml:"event"`
	Body  any            `yaml:"body"`
	Meta  map[string]any `yaml:"meta"`
}

// Schedule emits an event on a cron expression for the session's duration.
type Schedule struct {
	Cron  string `yaml:"cron"`
	Event string `yaml:"event"`
	Body  any    `yaml:"body"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	if sc.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	for i, sub := range sc.Subscriptions {
		if len(sub.Events) == 0 {
			return fmt.Errorf("subscriptions[%d]: events is required", i)
		}
		switch sub.Kind {
		case KindEcho, KindFail, KindSleep, KindAck, KindSilent:
		default:
			return fmt.Errorf("subscriptions[%d]: unknown kind %q", i, sub.Kind)
		}
	}
	for i, d := range sc.Dispatches {
		if d.Event == "" {
			return fmt.Errorf("dispatches[%d]: event is required", i)
		}
		switch d.Mode {
		case ModePublish, ModeEmit, ModeDeliver:
		default:
			return fmt.Errorf("dispatches[%d]: unknown mode %q", i, d.Mode)
		}
	}
	for i, s := range sc.Schedules {
		if s.Cron == "" || s.Event == "" {
			return fmt.Errorf("schedules[%d]: cron and event are required", i)
		}
	}
	return nil
}
