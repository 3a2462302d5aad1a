package topicbus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllSettled_OrderMatchesInput(t *testing.T) {
	slow := newPromise()
	go func() {
		time.Sleep(20 * time.Millisecond)
		slow.settle("slow", nil)
	}()

	outcomes := AllSettled(context.Background(), []Future{
		slow,
		Resolve("fast"),
	})

	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].Value != "slow" {
		t.Errorf("outcomes[0].Value = %v, want %q", outcomes[0].Value, "slow")
	}
	if outcomes[1].Value != "fast" {
		t.Errorf("outcomes[1].Value = %v, want %q", outcomes[1].Value, "fast")
	}
}

func TestAllSettled_MixedFulfilledAndRejected(t *testing.T) {
	boom := errors.New("boom")

	outcomes := AllSettled(context.Background(), []Future{
		Resolve(1),
		Reject(boom),
		Resolve(3),
	})

	want := []Status{StatusFulfilled, StatusRejected, StatusFulfilled}
	for i, status := range want {
		if outcomes[i].Status != status {
			t.Errorf("outcomes[%d].Status = %q, want %q", i, outcomes[i].Status, status)
		}
	}
	if !errors.Is(outcomes[1].Reason, boom) {
		t.Errorf("outcomes[1].Reason = %v, want %v", outcomes[1].Reason, boom)
	}
}

func TestAllSettled_AllRejected(t *testing.T) {
	outcomes := AllSettled(context.Background(), []Future{
		Reject(errors.New("a")),
		Reject(errors.New("b")),
	})

	for i, out := range outcomes {
		if out.Status != StatusRejected {
			t.Errorf("outcomes[%d].Status = %q, want rejected", i, out.Status)
		}
	}
}

func TestAllSettled_NilFutureIsRejectedNotFatal(t *testing.T) {
	outcomes := AllSettled(context.Background(), []Future{
		nil,
		Resolve("ok"),
	})

	if outcomes[0].Status != StatusRejected {
		t.Fatalf("outcomes[0].Status = %q, want rejected", outcomes[0].Status)
	}
	if !errors.Is(outcomes[0].Reason, ErrNotAwaitable) {
		t.Errorf("outcomes[0].Reason = %v, want ErrNotAwaitable", outcomes[0].Reason)
	}
	if outcomes[1].Status != StatusFulfilled {
		t.Errorf("outcomes[1].Status = %q, want fulfilled", outcomes[1].Status)
	}
}

type panickyFuture struct{}

func (panickyFuture) Await(context.Context) (any, error) {
	panic("await exploded")
}

func TestAllSettled_PanickingAwaitIsContained(t *testing.T) {
	outcomes := AllSettled(context.Background(), []Future{panickyFuture{}})

	if outcomes[0].Status != StatusRejected {
		t.Fatalf("status = %q, want rejected", outcomes[0].Status)
	}
	if outcomes[0].Reason == nil {
		t.Fatal("expected a reason for the panic")
	}
}

func TestAllSettled_Empty(t *testing.T) {
	outcomes := AllSettled(context.Background(), nil)
	if len(outcomes) != 0 {
		t.Fatalf("got %d outcomes, want 0", len(outcomes))
	}
}

func TestGo_SettlesAsynchronously(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (any, error) {
		return 42, nil
	})

	v, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if v != 42 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestGo_PanicBecomesError(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (any, error) {
		panic("worker exploded")
	})

	_, err := f.Await(context.Background())
	if err == nil {
		t.Fatal("expected an error from a panicking func")
	}
}

func TestPromise_FirstSettleWins(t *testing.T) {
	p := newPromise()
	p.settle("first", nil)
	p.settle("second", errors.New("late"))

	v, err := p.Await(context.Background())
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if v != "first" {
		t.Errorf("got %v, want %q", v, "first")
	}
}

func TestPromise_AwaitHonorsContext(t *testing.T) {
	p := newPromise()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
