package topicbus

import (
	"context"
	"time"

	"github.com/petal-labs/topicbus/ident"
)

// dispatch holds the state of one fan-out: the subscriber snapshot taken at
// dispatch start, one future and one stamped meta record per subscriber, and
// the factory for the call-level meta.
type dispatch struct {
	count   int
	futures []Future
	metas   []Meta
	factory *metaFactory
}

// prepare validates the event name, snapshots the subscribers, stamps this
// call's id and timestamp, and invokes every receiver in registration order.
// Receivers run synchronously here; only their settlement is deferred.
func (t *Topic) prepare(ctx context.Context, event string, body any, meta Meta, withAck bool) (*dispatch, error) {
	name, err := NormalizeEventName(event)
	if err != nil {
		return nil, err
	}

	subs, err := t.repo.GetSubscriptions(ctx, name)
	if err != nil {
		return nil, err
	}

	factory := &metaFactory{
		topic: t.name,
		event: name,
		id:    ident.MakeComposite(t.name, name),
		time:  time.Now(),
		user:  meta,
	}

	d := &dispatch{
		count:   len(subs),
		futures: make([]Future, len(subs)),
		metas:   make([]Meta, len(subs)),
		factory: factory,
	}
	for i := range subs {
		m := factory.For(&subs[i])
		d.metas[i] = m
		if withAck {
			d.futures[i] = t.invokeAck(ctx, subs[i], body, m)
		} else {
			d.futures[i] = invoke(ctx, subs[i], body, m)
		}
	}
	return d, nil
}

// invoke runs one receiver and normalizes its return into a Future: a sync
// error or panic becomes a rejected future, a returned Future passes through,
// any other value becomes a fulfilled future.
func invoke(ctx context.Context, sub Subscription, body any, meta Meta) (f Future) {
	defer func() {
		if r := recover(); r != nil {
			f = Reject(recoveredError(r))
		}
	}()

	v, err := sub.Receiver.Receive(ctx, body, meta)
	if err != nil {
		return Reject(err)
	}
	if fut, ok := v.(Future); ok {
		return fut
	}
	return Resolve(v)
}

// invokeAck runs one receiver in acknowledgement mode. The returned future
// settles with the first of: the receiver's ack call, the settlement of a
// Future it returned, a synchronous error or panic, or the per-subscriber
// timeout. The pending timer is stopped as soon as an ack arrives; an ack
// after the timeout is a no-op.
func (t *Topic) invokeAck(ctx context.Context, sub Subscription, body any, meta Meta) Future {
	p := newPromise()

	timer := time.AfterFunc(t.timeout, func() {
		p.settle(nil, ErrDeliveryTimeout)
	})
	ack := Ack(func(err error, result any) {
		timer.Stop()
		p.settle(result, err)
	})

	var v any
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = recoveredError(r)
			}
		}()
		if ar, ok := sub.Receiver.(AckReceiver); ok {
			v, err = ar.ReceiveAck(ctx, body, meta, ack)
		} else {
			v, err = sub.Receiver.Receive(ctx, body, meta)
		}
	}()

	switch {
	case err != nil:
		ack(err, nil)
	case v != nil:
		// Only a returned Future can settle the delivery; an immediate
		// plain value still waits for an ack or the timeout.
		if fut, ok := v.(Future); ok {
			go func() {
				rv, rerr := fut.Await(ctx)
				ack(rerr, rv)
			}()
		}
	}

	return p
}

// Publish dispatches an event to every subscriber and waits for all of them
// to settle. The returned outcomes are in registration order, regardless of
// completion timing. Reporting runs detached from the caller.
func (t *Topic) Publish(ctx context.Context, event string, body any, meta Meta) (Result, error) {
	d, err := t.prepare(ctx, event, body, meta, false)
	if err != nil {
		return Result{}, err
	}

	outcomes := AllSettled(ctx, d.futures)
	go t.report(context.WithoutCancel(ctx), d, outcomes)

	return Result{Count: d.count, Meta: d.factory.For(nil), Outcomes: outcomes}, nil
}

// Emit dispatches an event and returns as soon as every receiver has been
// invoked, without waiting for settlement. Settlement and reporting continue
// in the background; their outcome is observable only through report events.
func (t *Topic) Emit(ctx context.Context, event string, body any, meta Meta) (Result, error) {
	d, err := t.prepare(ctx, event, body, meta, false)
	if err != nil {
		return Result{}, err
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		outcomes := AllSettled(detached, d.futures)
		t.report(detached, d, outcomes)
	}()

	return Result{Count: d.count, Meta: d.factory.For(nil)}, nil
}

// Deliver dispatches an event in acknowledgement mode: each subscriber's
// outcome settles on its ack, the settlement of a Future it returned, or its
// own timeout, whichever comes first. A timeout on one subscriber never
// affects the others.
func (t *Topic) Deliver(ctx context.Context, event string, body any, meta Meta) (Result, error) {
	d, err := t.prepare(ctx, event, body, meta, true)
	if err != nil {
		return Result{}, err
	}

	outcomes := AllSettled(ctx, d.futures)
	go t.report(context.WithoutCancel(ctx), d, outcomes)

	return Result{Count: d.count, Meta: d.factory.For(nil), Outcomes: outcomes}, nil
}
