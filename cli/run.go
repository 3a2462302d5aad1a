package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/topicbus"
	"github.com/petal-labs/topicbus/journal"
	topicotel "github.com/petal-labs/topicbus/otel"
	"github.com/petal-labs/topicbus/sched"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitValidation   = 1
	exitRuntime      = 2
	exitFileNotFound = 3
	exitInputParse   = 4
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario file against a topic",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().String("journal", "", "Path to a SQLite journal for report events")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP endpoint for trace export")
	cmd.Flags().String("format", "pretty", "Output format: json | pretty")

	return cmd
}

type dispatchResult struct {
	Mode     string          `json:"mode"`
	Event    string          `json:"event"`
	Count    int             `json:"count"`
	Outcomes []outcomeResult `json:"outcomes,omitempty"`
}

type outcomeResult struct {
	Status string `json:"status"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sc, err := LoadScenario(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(exitFileNotFound, "%v", err)
		}
		return exitError(exitInputParse, "%v", err)
	}

	sessionID := uuid.NewString()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)).
		With("session", sessionID)

	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	shutdownTracing, tracer, err := setupTracing(ctx, endpoint)
	if err != nil {
		return exitError(exitRuntime, "setting up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("trace shutdown failed", "error", err)
		}
	}()

	topic, err := topicbus.NewTopic(topicbus.TopicConfig{
		Topic:           sc.Topic,
		Timeout:         time.Duration(sc.Timeout),
		ReportVerbosity: topicbus.Verbosity(sc.ReportVerbosity),
		Logger:          logger,
	})
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	journalPath, _ := cmd.Flags().GetString("journal")
	if journalPath != "" {
		store, err := journal.NewSQLiteStore(journal.SQLiteStoreConfig{DSN: journalPath})
		if err != nil {
			return exitError(exitRuntime, "opening journal: %v", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("journal close failed", "error", err)
			}
		}()

		if _, err := topic.Subscribe(ctx,
			journal.NewReceiver(store, topicbus.StatusRejected, logger), "error"); err != nil {
			return exitError(exitRuntime, "subscribing journal: %v", err)
		}
		if _, err := topic.Subscribe(ctx,
			journal.NewReceiver(store, topicbus.StatusFulfilled, logger), "fulfilled"); err != nil {
			return exitError(exitRuntime, "subscribing journal: %v", err)
		}
	}

	var observer *topicotel.Observer
	if tracer != nil {
		meter := otelapi.GetMeterProvider().Meter("github.com/petal-labs/topicbus/cli")
		observer, err = topicotel.NewObserver(meter, tracer)
		if err != nil {
			return exitError(exitRuntime, "setting up observer: %v", err)
		}
	}

	for i, sub := range sc.Subscriptions {
		receiver := buildReceiver(sub)
		if observer != nil {
			if _, ok := receiver.(topicbus.AckReceiver); !ok {
				receiver = observer.Wrap(receiver)
			}
		}
		if _, err := topic.Subscribe(ctx, receiver, sub.Events...); err != nil {
			return exitError(exitValidation, "subscriptions[%d]: %v", i, err)
		}
	}

	if len(sc.Schedules) > 0 {
		publisher, err := sched.NewPublisher(sched.PublisherConfig{
			Topic:  topic,
			Logger: logger,
		})
		if err != nil {
			return exitError(exitRuntime, "starting scheduler: %v", err)
		}
		defer publisher.Close()

		for i, s := range sc.Schedules {
			if err := publisher.Add(s.Cron, s.Event, s.Body, nil); err != nil {
				return exitError(exitValidation, "schedules[%d]: %v", i, err)
			}
		}
	}

	results := make([]dispatchResult, 0, len(sc.Dispatches))
	for _, d := range sc.Dispatches {
		res, err := runDispatch(ctx, topic, d)
		if err != nil {
			return exitError(exitRuntime, "dispatching %s %q: %v", d.Mode, d.Event, err)
		}
		results = append(results, res)
	}

	if sc.RunFor > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(sc.RunFor)):
		}
	}

	format, _ := cmd.Flags().GetString("format")
	return printResults(cmd, format, results)
}

func runDispatch(ctx context.Context, topic *topicbus.Topic, d Dispatch) (dispatchResult, error) {
	var res topicbus.Result
	var err error
	switch d.Mode {
	case ModePublish:
		res, err = topic.Publish(ctx, d.Event, d.Body, d.Meta)
	case ModeEmit:
		res, err = topic.Emit(ctx, d.Event, d.Body, d.Meta)
	case ModeDeliver:
		res, err = topic.Deliver(ctx, d.Event, d.Body, d.Meta)
	}
	if err != nil {
		return dispatchResult{}, err
	}

	out := dispatchResult{Mode: d.Mode, Event: d.Event, Count: res.Count}
	for _, o := range res.Outcomes {
		entry := outcomeResult{Status: o.Status.String(), Value: o.Value}
		if o.Reason != nil {
			entry.Reason = o.Reason.Error()
		}
		out.Outcomes = append(out.Outcomes, entry)
	}
	return out, nil
}

// buildReceiver scripts a receiver from a scenario subscription.
func buildReceiver(sub Subscription) topicbus.Receiver {
	sleep := time.Duration(sub.Sleep)

	switch sub.Kind {
	case KindFail:
		message := sub.Message
		if message == "" {
			message = "scripted failure"
		}
		return topicbus.ReceiverFunc(func(context.Context, any, topicbus.Meta) (any, error) {
			return nil, errors.New(message)
		})

	case KindSleep:
		return topicbus.ReceiverFunc(func(ctx context.Context, body any, _ topicbus.Meta) (any, error) {
			return topicbus.Go(ctx, func(context.Context) (any, error) {
				time.Sleep(sleep)
				return body, nil
			}), nil
		})

	case KindAck:
		return topicbus.AckReceiverFunc(func(_ context.Context, body any, _ topicbus.Meta, ack topicbus.Ack) (any, error) {
			go func() {
				time.Sleep(sleep)
				ack(nil, body)
			}()
			return nil, nil
		})

	case KindSilent:
		return topicbus.AckReceiverFunc(func(context.Context, any, topicbus.Meta, topicbus.Ack) (any, error) {
			return nil, nil
		})

	default: // KindEcho
		return topicbus.ReceiverFunc(func(_ context.Context, body any, _ topicbus.Meta) (any, error) {
			if sub.Message != "" {
				return sub.Message, nil
			}
			return body, nil
		})
	}
}

func printResults(cmd *cobra.Command, format string, results []dispatchResult) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return exitError(exitRuntime, "encoding results: %v", err)
		}
	case "pretty":
		for _, res := range results {
			fmt.Fprintf(out, "%s %q -> %d subscriber(s)\n", res.Mode, res.Event, res.Count)
			for i, o := range res.Outcomes {
				if o.Status == string(topicbus.StatusRejected) {
					fmt.Fprintf(out, "  [%d] %s: %s\n", i, o.Status, o.Reason)
				} else {
					fmt.Fprintf(out, "  [%d] %s: %v\n", i, o.Status, o.Value)
				}
			}
		}
	default:
		return exitError(exitValidation, "unknown format %q", format)
	}
	return nil
}
