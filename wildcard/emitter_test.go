package wildcard

import (
	"reflect"
	"testing"
)

func TestMakeWildcards(t *testing.T) {
	e := New(Config{})

	tests := []struct {
		event string
		want  []string
	}{
		{"foo_bar_baz", []string{"%", "foo_%", "foo_bar_%"}},
		{"foo_bar", []string{"%", "foo_%"}},
		{"foo", []string{"%"}},
		{"", []string{"%"}},
	}
	for _, tt := range tests {
		if got := e.MakeWildcards(tt.event); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("MakeWildcards(%q) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestMakeWildcards_CustomSymbols(t *testing.T) {
	e := New(Config{Delimiter: ".", Wildcard: "*"})

	got := e.MakeWildcards("a.b.c")
	want := []string{"*", "a.*", "a.b.*"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MakeWildcards = %v, want %v", got, want)
	}
}

func TestEmit_FiresPatternsAndLiteral(t *testing.T) {
	e := New(Config{})

	fired := map[string]int{}
	listen := func(name string) {
		e.On(name, func(args ...any) {
			fired[name]++
			if name != "foo_bar_baz" {
				env, ok := args[0].(Envelope)
				if !ok || env.Event != "foo_bar_baz" {
					t.Errorf("listener %q got args %v, want a leading envelope", name, args)
				}
			}
		})
	}
	for _, name := range []string{"%", "foo_%", "foo_bar_%", "foo_bar_baz"} {
		listen(name)
	}

	if !e.Emit("foo_bar_baz", 42) {
		t.Fatal("Emit reported no listeners")
	}
	for _, name := range []string{"%", "foo_%", "foo_bar_%", "foo_bar_baz"} {
		if fired[name] != 1 {
			t.Errorf("listener %q fired %d times, want 1", name, fired[name])
		}
	}
}

func TestEmit_LiteralListenerGetsRawArgs(t *testing.T) {
	e := New(Config{})

	var got []any
	e.On("plain", func(args ...any) {
		got = args
	})

	e.Emit("plain", "a", 2)
	if !reflect.DeepEqual(got, []any{"a", 2}) {
		t.Errorf("literal listener got %v, want the raw args", got)
	}
}

func TestEmit_FallbackFiresExactlyOnce(t *testing.T) {
	e := New(Config{})

	fallbacks := 0
	e.On("", func(args ...any) {
		fallbacks++
		env := args[0].(Envelope)
		if env.Event != "lost_event" {
			t.Errorf("fallback envelope = %+v", env)
		}
	})

	if !e.Emit("lost_event") {
		t.Fatal("Emit reported no listeners despite the fallback")
	}
	if fallbacks != 1 {
		t.Errorf("fallback fired %d times, want 1", fallbacks)
	}
}

func TestEmit_NoFallbackWhenAnythingMatched(t *testing.T) {
	e := New(Config{NoSubscriptionsEvent: "dead_letter"})

	fallbacks := 0
	e.On("dead_letter", func(...any) { fallbacks++ })
	e.On("%", func(...any) {})

	e.Emit("some_event")
	if fallbacks != 0 {
		t.Errorf("fallback fired %d times despite a wildcard match", fallbacks)
	}
}

func TestEmit_NothingRegistered(t *testing.T) {
	e := New(Config{})
	if e.Emit("void") {
		t.Error("Emit reported a listener on an empty emitter")
	}
}

func TestOn_RemoveIsIdempotent(t *testing.T) {
	e := New(Config{})

	calls := 0
	remove := e.On("ev", func(...any) { calls++ })
	e.On("ev", func(...any) { calls++ })

	remove()
	remove()
	if n := e.ListenerCount("ev"); n != 1 {
		t.Fatalf("ListenerCount = %d, want 1", n)
	}

	e.Emit("ev")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmit_ListenerMayRemoveItself(t *testing.T) {
	e := New(Config{})

	calls := 0
	var remove func()
	remove = e.On("ev", func(...any) {
		calls++
		remove()
	})

	e.Emit("ev")
	e.Emit("ev")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestListenerCount(t *testing.T) {
	e := New(Config{})
	if e.ListenerCount("ev") != 0 {
		t.Error("fresh emitter has listeners")
	}
	e.On("ev", func(...any) {})
	e.On("ev", func(...any) {})
	if n := e.ListenerCount("ev"); n != 2 {
		t.Errorf("ListenerCount = %d, want 2", n)
	}
}
