package topicbus

import (
	"testing"
	"time"
)

func newTestFactory(user Meta) *metaFactory {
	return &metaFactory{
		topic: "orders",
		event: "order_placed",
		id:    "orders::order_placed::abc12345",
		time:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		user:  user,
	}
}

func TestMetaFactory_BaseFields(t *testing.T) {
	f := newTestFactory(nil)
	m := f.For(nil)

	if m[MetaID] != "orders::order_placed::abc12345" {
		t.Errorf("id = %v", m[MetaID])
	}
	if m[MetaTopic] != "orders" {
		t.Errorf("topic = %v", m[MetaTopic])
	}
	if m[MetaEvent] != "order_placed" {
		t.Errorf("event = %v", m[MetaEvent])
	}
	if _, ok := m[MetaSubscriptionID]; ok {
		t.Error("call-level meta must not carry a subscription id")
	}
}

func TestMetaFactory_UserMetaOverridesReservedFields(t *testing.T) {
	f := newTestFactory(Meta{
		MetaID:   "custom-id",
		"source": "tests",
	})
	m := f.For(nil)

	if m[MetaID] != "custom-id" {
		t.Errorf("id = %v, want the user override", m[MetaID])
	}
	if m["source"] != "tests" {
		t.Errorf("source = %v", m["source"])
	}
	if m[MetaTopic] != "orders" {
		t.Errorf("topic = %v, want unchanged", m[MetaTopic])
	}
}

func TestMetaFactory_SubscriptionIDNeverOverridable(t *testing.T) {
	f := newTestFactory(Meta{MetaSubscriptionID: "forged"})
	sub := &Subscription{ID: "orders::order_placed::tok00001"}
	m := f.For(sub)

	if m[MetaSubscriptionID] != sub.ID {
		t.Errorf("subscriptionId = %v, want %v", m[MetaSubscriptionID], sub.ID)
	}
}

func TestMetaFactory_RecordsDoNotAlias(t *testing.T) {
	f := newTestFactory(nil)
	a := f.For(&Subscription{ID: "a"})
	b := f.For(&Subscription{ID: "b"})

	a["extra"] = true
	if _, ok := b["extra"]; ok {
		t.Error("mutating one record leaked into another")
	}
	if a[MetaSubscriptionID] == b[MetaSubscriptionID] {
		t.Error("subscription ids must differ per record")
	}
}

func TestMeta_Clone(t *testing.T) {
	m := Meta{"k": "v"}
	c := m.Clone()
	c["k"] = "changed"

	if m["k"] != "v" {
		t.Errorf("clone mutated the original: %v", m["k"])
	}
}
