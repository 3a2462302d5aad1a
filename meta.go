package topicbus

import "time"

// Meta is the metadata record attached to every delivered event.
//
// Reserved keys are MetaID, MetaTime, MetaTopic, and MetaEvent, composed once
// per dispatch and shared by every receiver of that dispatch. User-supplied
// metadata is shallow-merged over them and may override any of the four; this
// is the documented contract, not defensively blocked. MetaSubscriptionID is
// applied last, per receiver, and can never be overridden.
type Meta map[string]any

// Reserved metadata keys.
const (
	MetaID              = "id"
	MetaTime            = "time"
	MetaTopic           = "topic"
	MetaEvent           = "event"
	MetaSubscriptionID  = "subscriptionId"
	MetaReportVerbosity = "reportVerbosity"
)

// Clone returns a shallow copy of the meta record.
func (m Meta) Clone() Meta {
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// metaFactory assembles dispatch metadata in stages: the topic is bound at
// Topic construction, the event name, id, and timestamp once per dispatch
// call, and the subscription last. Every For call produces a fresh record, so
// handing one receiver's meta out never aliases another's.
type metaFactory struct {
	topic string
	event string
	id    string
	time  time.Time
	user  Meta
}

// For builds the metadata record for one subscription. A nil subscription
// yields the call-level record, without a subscription id.
func (f *metaFactory) For(sub *Subscription) Meta {
	m := Meta{
		MetaID:    f.id,
		MetaTime:  f.time,
		MetaTopic: f.topic,
		MetaEvent: f.event,
	}
	for k, v := range f.user {
		m[k] = v
	}
	if sub != nil {
		m[MetaSubscriptionID] = sub.ID
	}
	return m
}
