package topicbus

import "context"

// report re-emits settlement outcomes as first-class events on the same
// topic. Rejected outcomes are re-emitted under ReportEvents.Rejected when
// verbosity is all or errors; fulfilled outcomes under ReportEvents.Fulfilled
// when verbosity is all.
//
// Every report event carries the original per-subscriber meta with
// reportVerbosity forced to none, so reporting on a report event is inert and
// the loop cannot recurse indefinitely.
func (t *Topic) report(ctx context.Context, d *dispatch, outcomes []Outcome) {
	verbosity := t.verbosityFor(d.factory.user)
	if verbosity == VerbosityNone {
		return
	}

	for i, out := range outcomes {
		meta := d.metas[i].Clone()
		meta[MetaReportVerbosity] = string(VerbosityNone)

		var event string
		var body any
		switch {
		case out.Status == StatusRejected:
			event = t.reportEvents.Rejected
			body = out.Reason
		case verbosity == VerbosityAll:
			event = t.reportEvents.Fulfilled
			body = out.Value
		default:
			continue
		}

		if _, err := t.Emit(ctx, event, body, meta); err != nil {
			t.logger.Error("failed to report outcome",
				"topic", t.name,
				"event", event,
				"status", out.Status,
				"error", err,
			)
		}
	}
}

// verbosityFor resolves the effective verbosity for one dispatch: a valid
// reportVerbosity in the user meta overrides the topic configuration.
func (t *Topic) verbosityFor(meta Meta) Verbosity {
	if meta != nil {
		if s, ok := meta[MetaReportVerbosity].(string); ok {
			if v := Verbosity(s); v.Valid() {
				return v
			}
		}
	}
	return t.verbosity
}
